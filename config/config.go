// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config holds the Engine/Planner/Executor configuration types,
// following the teacher's internal/parallel.Config/DefaultConfig()
// shape: a plain struct of tunables plus a DefaultConfig constructor,
// here extended with YAML file loading via gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlannerConfig controls the contraction-sequence planner (spec.md §4.4).
type PlannerConfig struct {
	Strategy    string `yaml:"strategy"`     // "dummy", "heuro", "greed", or "metis"
	CachePath   string `yaml:"cache_path"`   // optional JSON cache persistence path
	ParallelTry int    `yaml:"parallel_try"` // parsed and stored only; no planner code reads it
}

// DefaultPlannerConfig returns the greedy strategy with no cache
// persistence and no parallel search.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{Strategy: "greed"}
}

// ExecutorConfig controls the DAG lazy-pump executor (spec.md §4.6).
type ExecutorConfig struct {
	PipelineDepth  int `yaml:"pipeline_depth"`
	PrefetchDepth  int `yaml:"prefetch_depth"`
}

// DefaultExecutorConfig returns pipeline depth 16, prefetch depth 4 —
// spec.md §4.6's stated defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{PipelineDepth: 16, PrefetchDepth: 4}
}

// EngineConfig is the top-level configuration an Engine is constructed
// from: which back-end to activate by default, and the two logging
// levels of spec.md §6.
type EngineConfig struct {
	Backend       string        `yaml:"backend"`
	ClientLevel   int           `yaml:"client_log_level"`
	RuntimeLevel  int           `yaml:"runtime_log_level"`
	Planner       PlannerConfig `yaml:"planner"`
	Executor      ExecutorConfig `yaml:"executor"`
}

// DefaultEngineConfig returns the "default" (CPU) back-end, silent
// logging, and the planner/executor defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Backend:  "default",
		Planner:  DefaultPlannerConfig(),
		Executor: DefaultExecutorConfig(),
	}
}

// LoadFile reads and unmarshals an EngineConfig from a YAML file at path,
// starting from DefaultEngineConfig so that any field the file omits
// keeps its default value.
func LoadFile(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	//nolint:gosec // G304: path is an operator-supplied config file, expected to vary.
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

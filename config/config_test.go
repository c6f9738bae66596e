package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.Backend != "default" {
		t.Errorf("Backend = %q, want \"default\"", cfg.Backend)
	}
	if cfg.Executor.PipelineDepth != 16 || cfg.Executor.PrefetchDepth != 4 {
		t.Errorf("Executor defaults = %+v, want {16 4}", cfg.Executor)
	}
	if cfg.Planner.Strategy != "greed" {
		t.Errorf("Planner.Strategy = %q, want \"greed\"", cfg.Planner.Strategy)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tnet.yaml")
	yamlContent := "backend: webgpu\nplanner:\n  strategy: metis\nexecutor:\n  pipeline_depth: 2\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != "webgpu" {
		t.Errorf("Backend = %q, want webgpu", cfg.Backend)
	}
	if cfg.Planner.Strategy != "metis" {
		t.Errorf("Planner.Strategy = %q, want metis", cfg.Planner.Strategy)
	}
	if cfg.Executor.PipelineDepth != 2 {
		t.Errorf("Executor.PipelineDepth = %d, want 2", cfg.Executor.PipelineDepth)
	}
	if cfg.Executor.PrefetchDepth != 4 {
		t.Errorf("Executor.PrefetchDepth = %d, want 4 (unset, keeps default)", cfg.Executor.PrefetchDepth)
	}
}

func TestLoadFileRejectsMissingPath(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error reading a missing config file")
	}
}

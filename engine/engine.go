// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package engine is the top-level object of spec.md §4.1/§9: it owns the
// process-wide space/tensor registry, a name-keyed back-end registry
// (spec.md §6's back-end selector), and the two logging levels, and
// drives the network → plan → lower → execute pipeline described by
// spec.md §4.4–§4.6. Exactly one Engine is the documented entry point —
// this formalizes §9's "lifetime is bound to an engine object".
package engine

import (
	"fmt"

	"github.com/tnet-go/tnet/backend"
	"github.com/tnet-go/tnet/backend/cpu"
	"github.com/tnet-go/tnet/config"
	"github.com/tnet-go/tnet/dag"
	"github.com/tnet-go/tnet/network"
	"github.com/tnet-go/tnet/planner"
	"github.com/tnet-go/tnet/space"
	"github.com/tnet-go/tnet/tensor"
	"github.com/tnet-go/tnet/tnerr"
	"github.com/tnet-go/tnet/tnlog"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConfig overrides the engine's default configuration.
func WithConfig(cfg config.EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithPlanCache installs a persisted contraction-plan cache (spec.md
// §4.4 "cache entries may be persisted across runs").
func WithPlanCache(c *planner.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// Engine is the process-wide registry, back-end selector, and logging
// state of spec.md §4.1/§9.
type Engine struct {
	cfg   config.EngineConfig
	reg   *space.Registry
	log   *tnlog.Logger
	cache *planner.Cache

	backends map[string]backend.Backend
	active   string

	tracked []*tensor.Tensor
}

// New constructs the process-wide registry, registers the "default"
// (CPU) back-end, sets the two logging levels from spec.md §6, and
// applies any options (e.g. a non-default EngineConfig, a persisted
// plan cache).
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:      config.DefaultEngineConfig(),
		reg:      space.New(),
		backends: map[string]backend.Backend{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil {
		e.cache = planner.NewCache()
	}
	e.log = tnlog.New(tnlog.Level(e.cfg.ClientLevel), tnlog.Level(e.cfg.RuntimeLevel))
	e.RegisterBackend(cpu.New())
	if e.cfg.Backend == "" {
		e.cfg.Backend = "default"
	}
	e.active = e.cfg.Backend
	return e
}

// Registry returns the engine's space/subspace registry, for
// constructing tensors and networks against.
func (e *Engine) Registry() *space.Registry { return e.reg }

// Logger returns the engine's structured logger.
func (e *Engine) Logger() *tnlog.Logger { return e.log }

// RegisterBackend adds b to the engine's name-keyed back-end registry
// (spec.md §6), addressable thereafter by b.Name() via UseBackend.
func (e *Engine) RegisterBackend(b backend.Backend) {
	e.backends[b.Name()] = b
}

// UseBackend selects the active back-end by name, failing if it was
// never registered.
func (e *Engine) UseBackend(name string) error {
	if _, ok := e.backends[name]; !ok {
		return fmt.Errorf("%w: back-end %q is not registered", tnerr.ErrRegistryMiss, name)
	}
	e.active = name
	return nil
}

// ActiveBackend returns the currently selected back-end.
func (e *Engine) ActiveBackend() backend.Backend { return e.backends[e.active] }

// Plan searches for a contraction sequence over n using the engine's
// configured planner strategy, consulting and populating the engine's
// plan cache.
func (e *Engine) Plan(n *network.Network) ([]planner.Triple, error) {
	strategy := planner.Strategy(e.cfg.Planner.Strategy)
	if strategy == "" {
		strategy = planner.Greed
	}
	e.log.Runtime(tnlog.Info, "planning contraction sequence", "strategy", strategy)
	return planner.Plan(n, strategy, e.cache)
}

// Execute projects, plans, lowers, and runs a finalized network to
// completion against the active back-end, blocking until every
// operation has retired, and returns the tensor holding the network's
// contracted result (spec.md §4.1 "Evaluate (contract) a finalized
// network to a concrete result tensor").
func (e *Engine) Execute(n *network.Network) (*tensor.Tensor, error) {
	if !n.Finalized {
		return nil, fmt.Errorf("%w: network %q is not finalized", tnerr.ErrContractViolation, n.Name)
	}
	triples, err := e.Plan(n)
	if err != nil {
		return nil, tnerr.Wrap(err, "engine: planning")
	}
	ops, result, err := Lower(n, e.reg, triples)
	if err != nil {
		return nil, tnerr.Wrap(err, "engine: lowering")
	}
	e.log.Runtime(tnlog.Debug, "lowered contraction plan", "ops", len(ops))

	d, err := dag.Build(ops)
	if err != nil {
		return nil, tnerr.Wrap(err, "engine: building DAG")
	}
	cfg := dag.Config{PipelineDepth: e.cfg.Executor.PipelineDepth, PrefetchDepth: e.cfg.Executor.PrefetchDepth}
	if cfg.PipelineDepth == 0 {
		cfg = dag.DefaultConfig()
	}
	exec := dag.NewExecutor(d, e.ActiveBackend(), cfg)
	if err := exec.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", tnerr.ErrBackendFailure, err)
	}

	result.Retain()
	e.tracked = append(e.tracked, result)
	return result, nil
}

// destroyer adapts the active back-end's Destroy method to dag.Destroyer
// for CollectGarbage, since not every Backend implementation exposes one
// (a back-end with no resident-memory lifecycle, e.g. a hypothetical
// pass-through device, simply never needs collecting).
type destroyer interface {
	Destroy(t *tensor.Tensor) error
}

// CollectGarbage destroys backend storage for every tensor the engine
// has produced whose reference count has dropped to one — only the
// engine's own tracking slice still holds it (spec.md §4.6).
func (e *Engine) CollectGarbage() error {
	d, ok := e.ActiveBackend().(destroyer)
	if !ok {
		return nil
	}
	return dag.CollectGarbage(e.tracked, dagDestroyer{d})
}

type dagDestroyer struct{ d destroyer }

func (w dagDestroyer) Destroy(t *tensor.Tensor) error { return w.d.Destroy(t) }

// Shutdown runs the tensor garbage collector and releases the engine's
// tracked result tensors, aggregating any failures with multierr
// (spec.md §9's "lifetime is bound to an engine object"). It steps no
// executor: Execute already runs each plan's DAG to completion.
func (e *Engine) Shutdown() error {
	err := e.CollectGarbage()
	for _, t := range e.tracked {
		t.Release(e.reg)
	}
	e.tracked = nil
	return tnerr.Combine(err)
}

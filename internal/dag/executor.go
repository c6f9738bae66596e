// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dag

import (
	"fmt"

	"github.com/tnet-go/tnet/internal/tensor"
)

// Ticket is an opaque handle a Backend returns from Submit, polled for
// completion via Poll. Backends define their own concrete type.
type Ticket interface{}

// Backend is the asynchronous device interface the executor drives
// (spec.md §5: "Device back-ends expose an asynchronous submit/poll
// interface; the pump never blocks on I/O."). Submit must not block;
// Poll reports whether the previously submitted operation has retired.
type Backend interface {
	Submit(n *Node) (Ticket, error)
	Poll(t Ticket) (done bool, err error)
	// WholeNetworkCapable reports whether this backend can execute an
	// entire contraction plan as a single fused device kernel. When
	// true, the executor reduces its pipeline depth to 2 (spec.md
	// §4.6), since a whole-network backend needs far less overlap to
	// keep its device busy.
	WholeNetworkCapable() bool
}

// Prefetcher is an optional Backend capability: a backend implementing
// it gets a chance to pre-stage a node's operands (e.g. pre-allocate
// device-side storage, kick off a host-to-device copy) before that node
// is actually ready to submit, so the eventual Submit finds its operands
// already resident (spec.md §4.6's prefetch window). Backends with no
// staging cost of their own simply don't implement this interface.
type Prefetcher interface {
	Prefetch(n *Node) error
}

// Config controls the lazy pump's pipelining, mirroring the teacher's
// Config/DefaultConfig pattern (internal/parallel.Config).
type Config struct {
	PipelineDepth int
	PrefetchDepth int
}

// DefaultConfig returns spec.md §4.6's defaults: pipeline depth 16,
// prefetch depth 4.
func DefaultConfig() Config {
	return Config{PipelineDepth: 16, PrefetchDepth: 4}
}

// Executor drives a DAG's nodes through a Backend with a single
// cooperative pump: at most Config.PipelineDepth operations in flight,
// nodes issued as soon as their dependencies are satisfied rather than
// strictly in submission order.
type Executor struct {
	dag     *DAG
	backend Backend
	cfg     Config

	done       []bool
	tickets    []Ticket
	prefetched []bool
	inFlight   int
}

// NewExecutor builds an executor for d against backend, reducing the
// pipeline depth to 2 when the backend is whole-network capable.
func NewExecutor(d *DAG, backend Backend, cfg Config) *Executor {
	if backend.WholeNetworkCapable() {
		cfg.PipelineDepth = 2
	}
	return &Executor{
		dag:        d,
		backend:    backend,
		cfg:        cfg,
		done:       make([]bool, len(d.Nodes)),
		tickets:    make([]Ticket, len(d.Nodes)),
		prefetched: make([]bool, len(d.Nodes)),
	}
}

// Step advances the pump once: submits as many ready, not-yet-submitted
// nodes as the pipeline depth allows, then polls every in-flight
// ticket, retiring those that completed. It returns true once every
// node has retired.
func (e *Executor) Step() (finished bool, err error) {
	submitted := make([]bool, len(e.dag.Nodes))
	for i := range e.tickets {
		if e.tickets[i] != nil {
			submitted[i] = true
		}
	}

	if pf, ok := e.backend.(Prefetcher); ok {
		staged := 0
		for i := range e.dag.Nodes {
			if staged >= e.cfg.PrefetchDepth {
				break
			}
			if e.done[i] || submitted[i] || e.prefetched[i] {
				continue
			}
			if err := pf.Prefetch(e.dag.Nodes[i]); err != nil {
				return false, fmt.Errorf("dag: prefetching node %d (%s): %w", i, e.dag.Nodes[i].Op, err)
			}
			e.prefetched[i] = true
			staged++
		}
	}

	for i := range e.dag.Nodes {
		if e.done[i] || submitted[i] {
			continue
		}
		if e.inFlight >= e.cfg.PipelineDepth {
			break
		}
		if !e.dag.ready(i, e.done) {
			continue
		}
		tk, err := e.backend.Submit(e.dag.Nodes[i])
		if err != nil {
			return false, fmt.Errorf("dag: submitting node %d (%s): %w", i, e.dag.Nodes[i].Op, err)
		}
		e.tickets[i] = tk
		e.inFlight++
	}

	for i, tk := range e.tickets {
		if tk == nil || e.done[i] {
			continue
		}
		ok, err := e.backend.Poll(tk)
		if err != nil {
			return false, fmt.Errorf("dag: polling node %d (%s): %w", i, e.dag.Nodes[i].Op, err)
		}
		if ok {
			e.done[i] = true
			e.inFlight--
		}
	}

	for _, d := range e.done {
		if !d {
			return false, nil
		}
	}
	return true, nil
}

// Run pumps Step to completion. Callers wanting finer control (e.g. an
// engine event loop interleaving other work) should call Step directly.
func (e *Executor) Run() error {
	for {
		finished, err := e.Step()
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
	}
}

// SyncTensor drains the pump until every operation that writes t has
// retired (spec.md §4.6 "sync(tensor)"). With wait=false it performs a
// single pump step and reports whether t's last write has already
// retired, without blocking further (the "test" variant).
func (e *Executor) SyncTensor(t *tensor.Tensor, wait bool) (bool, error) {
	writer := -1
	for i, n := range e.dag.Nodes {
		for _, w := range n.Op.WriteSet() {
			if w == t {
				writer = i
			}
		}
	}
	if writer == -1 {
		return true, nil // nothing writes t; trivially synced
	}
	for {
		if e.done[writer] {
			return true, nil
		}
		if !wait {
			if _, err := e.Step(); err != nil {
				return false, err
			}
			return e.done[writer], nil
		}
		if _, err := e.Step(); err != nil {
			return false, err
		}
	}
}

// Sync drains every remaining operation (wait=true blocks to
// completion; wait=false performs a single pump step) and, if
// cleanGarbage is set, runs the tensor garbage collector afterward
// (spec.md §4.6 "sync() with an optional clean_garbage flag").
func (e *Executor) Sync(wait, cleanGarbage bool, gc func()) error {
	if wait {
		if err := e.Run(); err != nil {
			return err
		}
	} else if _, err := e.Step(); err != nil {
		return err
	}
	if cleanGarbage && gc != nil {
		gc()
	}
	return nil
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu is the default ("default") device back-end: a pure-Go,
// dense complex128 reference implementation of the primitive opcode set
// of spec.md §4.5. It is grounded on the teacher's backend/cpu package
// shape (a struct implementing the Backend interface, a constructor, a
// Name method) but the kernels themselves are new — the teacher's CPU
// backend executes a fixed NN op set over typed dense arrays, which does
// not generalize to an index-pattern-driven, arbitrary-rank opcode set,
// so the per-op numerics here are written fresh for this domain.
package cpu

import (
	"fmt"
	"sync"

	"github.com/tnet-go/tnet/backend"
	"github.com/tnet-go/tnet/dag"
	"github.com/tnet-go/tnet/op"
	"github.com/tnet-go/tnet/tensor"
)

// CPU is the default reference back-end: every op executes synchronously
// against an in-process map of dense element buffers keyed by tensor
// hash, so Submit never actually needs to suspend and Poll always
// reports completion.
type CPU struct {
	mu    sync.Mutex
	store map[[32]byte][]complex128
}

// New constructs an empty CPU back-end.
func New() *CPU {
	return &CPU{store: make(map[[32]byte][]complex128)}
}

// Name identifies this back-end for the selector of spec.md §6.
func (c *CPU) Name() string { return "default" }

// WholeNetworkCapable reports false: the CPU back-end executes one
// primitive operation at a time.
func (c *CPU) WholeNetworkCapable() bool { return false }

// ticket is the CPU back-end's Ticket: since every op runs to completion
// inside Submit, it only ever carries a final result.
type ticket struct {
	err error
}

// Submit executes n's operation immediately against the in-memory store.
func (c *CPU) Submit(n *dag.Node) (backend.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.execute(n.Op)
	return &ticket{err: err}, nil
}

// Poll reports the ticketed operation's outcome; CPU ops are always
// already complete by the time Submit returns.
func (c *CPU) Poll(t backend.Ticket) (bool, error) {
	tk, ok := t.(*ticket)
	if !ok {
		return false, fmt.Errorf("cpu: unrecognized ticket %T", t)
	}
	return true, tk.err
}

// Fetch returns the current element buffer for t, for tests and for
// format.Write{Dense,List} callers that need to export a tensor a CPU
// run produced.
func (c *CPU) Fetch(t *tensor.Tensor) ([]complex128, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.store[t.Hash()]
	return buf, ok
}

// Seed preloads t's element buffer, for UPLOAD and for tests that need a
// fixed starting tensor.
func (c *CPU) Seed(t *tensor.Tensor, data []complex128) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[t.Hash()] = append([]complex128(nil), data...)
}

func (c *CPU) execute(o *op.Operation) error {
	switch o.Opcode {
	case op.NOOP:
		return nil
	case op.CREATE:
		return c.create(o)
	case op.DESTROY:
		return c.destroy(o)
	case op.TRANSFORM:
		return c.transform(o)
	case op.SLICE:
		return c.slice(o)
	case op.INSERT:
		return c.insert(o)
	case op.ADD:
		return c.add(o)
	case op.CONTRACT:
		return c.contract(o)
	case op.DECOMPOSE_SVD2:
		return c.decomposeSVD(o, false)
	case op.DECOMPOSE_SVD3:
		return c.decomposeSVD(o, true)
	case op.ORTHOGONALIZE_MGS:
		return c.orthogonalizeMGS(o)
	case op.ORTHOGONALIZE_SVD:
		return c.orthogonalizeSVD(o)
	case op.FETCH, op.UPLOAD:
		return nil // single-process: the operand is already locally resident.
	case op.BROADCAST, op.ALLREDUCE:
		return nil // single-process: every rank is already the same rank.
	default:
		return fmt.Errorf("cpu: unsupported opcode %v", o.Opcode)
	}
}

func (c *CPU) create(o *op.Operation) error {
	t := o.Operands[0]
	c.store[t.Hash()] = make([]complex128, t.Shape().Volume())
	return nil
}

// Prefetch implements dag.Prefetcher: a CREATE node's output buffer is
// allocated ahead of submission, so Submit only has to write into
// already-resident storage instead of allocating on the hot path. Every
// other opcode is staged lazily at Submit time — CONTRACT/TRANSFORM/etc.
// read operands that may not have been written yet, so there is nothing
// safe to pre-stage for them in a backend where every operand already
// lives in the same process.
func (c *CPU) Prefetch(n *dag.Node) error {
	if n.Op.Opcode != op.CREATE {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := n.Op.Operands[0]
	if _, ok := c.store[t.Hash()]; !ok {
		c.store[t.Hash()] = make([]complex128, t.Shape().Volume())
	}
	return nil
}

func (c *CPU) destroy(o *op.Operation) error {
	delete(c.store, o.Operands[0].Hash())
	return nil
}

// Destroy releases t's backend storage directly, without going through
// Submit/Poll. It implements dag.Destroyer for the engine's garbage
// collector (spec.md §4.6 "sync(clean_garbage)").
func (c *CPU) Destroy(t *tensor.Tensor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, t.Hash())
	return nil
}

func (c *CPU) buffer(t *tensor.Tensor) ([]complex128, error) {
	buf, ok := c.store[t.Hash()]
	if !ok {
		return nil, fmt.Errorf("cpu: tensor %q has no backend storage (missing CREATE?)", t.Name())
	}
	return buf, nil
}

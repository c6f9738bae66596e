// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package process provides the public API for the process-group and
// composite-tensor layer of spec.md §4.7.
package process

import (
	"github.com/tnet-go/tnet/internal/op"
	"github.com/tnet-go/tnet/internal/process"
	"github.com/tnet-go/tnet/tensor"
)

// Group is an ordered set of process ranks within a parent communicator.
type Group = process.Group

// NewGroup returns the root group containing ranks 0..n-1 in order.
func NewGroup(n int) *Group { return process.NewGroup(n) }

// Domain is a set of process ranks over which a tensor or operation
// exists.
type Domain = process.Domain

// NewDomain returns a Domain over the given ranks, deduplicated and
// sorted.
func NewDomain(ranks ...int) Domain { return process.NewDomain(ranks...) }

// OperandDomain pairs an operand's existence domain with its
// full-presence domain.
type OperandDomain = process.OperandDomain

// ExecutionDomain validates the nestability contract across an
// operation's operand domains and returns the smallest one.
func ExecutionDomain(operands []OperandDomain) (Domain, error) {
	return process.ExecutionDomain(operands)
}

// Split names one dimension to recursively bisect and how many times.
type Split = process.Split

// Block is one shard of a composite tensor's base tensor.
type Block = process.Block

// Composite is a block-distributed tensor.
type Composite = process.Composite

// NewComposite bisects base's shape according to splits and distributes
// the resulting blocks one-per-rank over domain.
func NewComposite(base *tensor.Tensor, splits []Split, domain Domain, present func(blockIndex int) bool) (*Composite, error) {
	return process.NewComposite(base, splits, domain, present)
}

// Registry resolves a composite tensor's per-block tensor handles.
type Registry = process.Registry

// Lowering is the block-level operation sequence a decompose pass emits.
type Lowering = process.Lowering

// Decompose lowers a primitive operation whose operand at compositeSlot
// is block-distributed into one operation per present block.
func Decompose(o *op.Operation, compositeSlot int, c *Composite, reg Registry, needsBroadcast func(blockIndex int) bool) (*Lowering, error) {
	return process.Decompose(o, compositeSlot, c, reg, needsBroadcast)
}

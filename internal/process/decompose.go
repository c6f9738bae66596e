// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package process

import (
	"fmt"

	"github.com/tnet-go/tnet/internal/op"
	"github.com/tnet-go/tnet/internal/pattern"
	"github.com/tnet-go/tnet/internal/tensor"
)

// Registry resolves a composite tensor's per-block tensor handles,
// creating them lazily the first time a block is addressed. A real
// engine backs this with the space/tensor registries; tests may use a
// plain map-backed stub.
type Registry interface {
	BlockTensor(c *Composite, blockIndex int) (*tensor.Tensor, error)
}

// Lowering is the block-level operation sequence a composite decompose
// pass emits: per-block primitive operations plus any FETCH/UPLOAD/
// BROADCAST/ALLREDUCE inserted to cross existence-domain boundaries.
type Lowering struct {
	Ops []*op.Operation
}

// Decompose lowers a primitive operation whose operand at compositeSlot
// is block-distributed into one operation per present block, skipping
// absent (block-sparse) blocks entirely, and inserting a BROADCAST
// ahead of any block whose owning rank does not already hold every
// other operand's data at that block's execution domain (spec.md §4.7:
// "Any primitive op applied to a composite tensor is lowered by
// decompose into a sequence of block-level ops with appropriate
// FETCH/UPLOAD/BROADCAST/ALLREDUCE inserted on inter-domain edges").
func Decompose(o *op.Operation, compositeSlot int, c *Composite, reg Registry, needsBroadcast func(blockIndex int) bool) (*Lowering, error) {
	if compositeSlot < 0 || compositeSlot >= len(o.Operands) {
		return nil, fmt.Errorf("process: composite slot %d out of range for %d operands", compositeSlot, len(o.Operands))
	}
	var lowering Lowering
	for _, blockIndex := range c.PresentBlocks() {
		blockTensor, err := reg.BlockTensor(c, blockIndex)
		if err != nil {
			return nil, fmt.Errorf("process: resolving block %d: %w", blockIndex, err)
		}
		if needsBroadcast != nil && needsBroadcast(blockIndex) {
			bcast, err := op.New(op.BROADCAST, []*tensor.Tensor{blockTensor}, nil, "")
			if err != nil {
				return nil, err
			}
			lowering.Ops = append(lowering.Ops, bcast)
		}
		operands := append([]*tensor.Tensor(nil), o.Operands...)
		operands[compositeSlot] = blockTensor
		blockPattern := ""
		if o.Pattern != nil {
			blockPattern = patternSource(o)
		}
		blockOp, err := op.New(o.Opcode, operands, append([]complex128(nil), o.Scalars...), blockPattern)
		if err != nil {
			return nil, fmt.Errorf("process: lowering block %d: %w", blockIndex, err)
		}
		lowering.Ops = append(lowering.Ops, blockOp)
	}
	return &lowering, nil
}

// patternSource reconstructs the index-pattern string an already-parsed
// Operation was built from, since op.Operation keeps only the parsed
// form. Block-level operands keep the same symbolic indices as the
// composite operand they replace — decomposition changes which tensor
// backs a slot, never the contraction's index structure.
func patternSource(o *op.Operation) string {
	out := termSource(o.Pattern.Output)
	if o.Pattern.Accumulate {
		out += "+="
	} else {
		out += "="
	}
	for i, in := range o.Pattern.Inputs {
		if i > 0 {
			out += "*"
		}
		out += termSource(in)
	}
	return out
}

func termSource(t pattern.Term) string {
	s := t.Name + "("
	for i, idx := range t.Indices {
		if i > 0 {
			s += ","
		}
		s += idx
	}
	s += ")"
	if t.Conjugate {
		s += "+"
	}
	return s
}

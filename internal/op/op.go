// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package op

import (
	"fmt"
	"sync/atomic"

	"github.com/tnet-go/tnet/internal/pattern"
	"github.com/tnet-go/tnet/internal/tensor"
)

var nextID uint64

// nextOperationID returns a fresh monotonically increasing operation id.
func nextOperationID() uint64 {
	return atomic.AddUint64(&nextID, 1)
}

// Operation is one node of the dependency DAG: a fixed-arity primitive
// acting on operand tensors and scalar coefficients, with an optional
// symbolic index pattern (spec.md §4.5).
type Operation struct {
	id      uint64
	Opcode  Opcode
	Operands []*tensor.Tensor
	Scalars []complex128
	Pattern *pattern.Pattern

	decompose func(Mapper) ([]*Operation, error)
}

// Mapper resolves a composite/distributed tensor operand to the
// block-level operations a decompose hook should emit (spec.md §4.7);
// internal/process supplies the concrete implementation.
type Mapper interface {
	// Blocks returns the local block tensors backing t within the given
	// execution domain, or ok=false if t is not composite.
	Blocks(t *tensor.Tensor) (blocks []*tensor.Tensor, ok bool)
}

// New builds an operation, validating arity and, when the opcode
// requires one, parsing its index pattern exactly once.
func New(opcode Opcode, operands []*tensor.Tensor, scalars []complex128, indexPattern string) (*Operation, error) {
	arity, ok := ArityOf(opcode)
	if !ok {
		return nil, fmt.Errorf("op: unknown opcode %v", opcode)
	}
	if len(operands) != arity.NumOperands {
		return nil, fmt.Errorf("op: %v requires %d operands, got %d", opcode, arity.NumOperands, len(operands))
	}
	if len(scalars) != arity.NumScalars {
		return nil, fmt.Errorf("op: %v requires %d scalars, got %d", opcode, arity.NumScalars, len(scalars))
	}
	var p *pattern.Pattern
	if arity.RequirePattern {
		if indexPattern == "" {
			return nil, fmt.Errorf("op: %v requires a non-empty index pattern", opcode)
		}
		parsed, err := pattern.Parse(indexPattern)
		if err != nil {
			return nil, fmt.Errorf("op: %v: %w", opcode, err)
		}
		p = parsed
	}
	return &Operation{
		id:       nextOperationID(),
		Opcode:   opcode,
		Operands: operands,
		Scalars:  scalars,
		Pattern:  p,
	}, nil
}

// ID returns the operation's unique, submission-order-monotonic id.
func (o *Operation) ID() uint64 { return o.id }

// IsSet reports whether the operation is fully bound: every operand slot
// holds a tensor, every scalar slot is present, and — for opcodes that
// require one — the index pattern parsed successfully (spec.md Data
// Model table).
func (o *Operation) IsSet() bool {
	arity, ok := ArityOf(o.Opcode)
	if !ok {
		return false
	}
	if len(o.Operands) != arity.NumOperands || len(o.Scalars) != arity.NumScalars {
		return false
	}
	for _, t := range o.Operands {
		if t == nil {
			return false
		}
	}
	if arity.RequirePattern && o.Pattern == nil {
		return false
	}
	return true
}

// Writes reports whether the operation writes its operand at slot.
func (o *Operation) Writes(slot int) bool {
	arity, ok := ArityOf(o.Opcode)
	return ok && arity.Writes(slot)
}

// ReadSet returns the operand tensors the operation reads (every operand
// not exclusively written, i.e. accumulate-style opcodes read operand 0
// too).
func (o *Operation) ReadSet() []*tensor.Tensor {
	arity, _ := ArityOf(o.Opcode)
	reads := make([]*tensor.Tensor, 0, len(o.Operands))
	for i, t := range o.Operands {
		// ADD/CONTRACT accumulate into operand 0: it is both read and
		// written. Pure outputs of a decomposition (SVD factors) are
		// write-only and excluded from the read set.
		if !arity.Writes(i) || i == 0 {
			reads = append(reads, t)
		}
	}
	return reads
}

// WriteSet returns the operand tensors the operation writes.
func (o *Operation) WriteSet() []*tensor.Tensor {
	arity, _ := ArityOf(o.Opcode)
	writes := make([]*tensor.Tensor, 0, len(o.Operands))
	for i, t := range o.Operands {
		if arity.Writes(i) {
			writes = append(writes, t)
		}
	}
	return writes
}

// SetDecompose installs a composite-tensor lowering hook (spec.md §4.5:
// "A higher-level composite operation may override decompose(mapper) to
// break itself into simple device-level operations").
func (o *Operation) SetDecompose(fn func(Mapper) ([]*Operation, error)) {
	o.decompose = fn
}

// Decompose lowers a composite operation into block-level operations
// using m. If no decompose hook was installed, it returns the operation
// itself unchanged — the common case for operations over plain tensors.
func (o *Operation) Decompose(m Mapper) ([]*Operation, error) {
	if o.decompose == nil {
		return []*Operation{o}, nil
	}
	return o.decompose(m)
}

// Clone returns a shallow copy of the operation with a fresh id, sharing
// the same operand slice backing array and pattern (cloning an operation
// is used by the planner to try alternative contraction orders without
// mutating the original DAG node).
func (o *Operation) Clone() *Operation {
	clone := *o
	clone.id = nextOperationID()
	clone.Operands = append([]*tensor.Tensor(nil), o.Operands...)
	clone.Scalars = append([]complex128(nil), o.Scalars...)
	return &clone
}

func (o *Operation) String() string {
	if o.Pattern != nil {
		return fmt.Sprintf("%s#%d[%s]", o.Opcode, o.id, patternString(o.Pattern))
	}
	return fmt.Sprintf("%s#%d", o.Opcode, o.id)
}

func patternString(p *pattern.Pattern) string {
	return termString(p.Output) + "=" + inputsString(p.Inputs)
}

func termString(t pattern.Term) string {
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

func inputsString(terms []pattern.Term) string {
	s := ""
	for i, t := range terms {
		if i > 0 {
			s += "*"
		}
		s += termString(t)
	}
	return s
}

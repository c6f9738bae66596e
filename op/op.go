// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package op provides the public API for the primitive tensor operation
// model of spec.md §4.5: the closed opcode set, arity table, and the
// Operation DAG node.
package op

import (
	"github.com/tnet-go/tnet/internal/op"
	"github.com/tnet-go/tnet/tensor"
)

// Opcode identifies one of the primitive tensor operations.
type Opcode = op.Opcode

// The closed set of primitive opcodes.
const (
	NOOP              = op.NOOP
	CREATE            = op.CREATE
	DESTROY           = op.DESTROY
	TRANSFORM         = op.TRANSFORM
	SLICE             = op.SLICE
	INSERT            = op.INSERT
	ADD               = op.ADD
	CONTRACT          = op.CONTRACT
	DECOMPOSE_SVD3    = op.DECOMPOSE_SVD3
	DECOMPOSE_SVD2    = op.DECOMPOSE_SVD2
	ORTHOGONALIZE_SVD = op.ORTHOGONALIZE_SVD
	ORTHOGONALIZE_MGS = op.ORTHOGONALIZE_MGS
	FETCH             = op.FETCH
	UPLOAD            = op.UPLOAD
	BROADCAST         = op.BROADCAST
	ALLREDUCE         = op.ALLREDUCE
)

// Arity describes an opcode's operand/scalar counts and output mask.
type Arity = op.Arity

// ArityOf returns the arity descriptor for an opcode.
func ArityOf(o Opcode) (Arity, bool) { return op.ArityOf(o) }

// Mapper resolves a composite tensor operand to block-level tensors
// during decomposition.
type Mapper = op.Mapper

// Operation is one primitive tensor operation DAG node.
type Operation = op.Operation

// New builds an operation, validating arity and parsing its index
// pattern when the opcode requires one.
func New(opcode Opcode, operands []*tensor.Tensor, scalars []complex128, indexPattern string) (*Operation, error) {
	return op.New(opcode, operands, scalars, indexPattern)
}

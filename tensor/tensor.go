// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the symbolic tensor data
// model of spec.md §3: shapes, signatures, isometry groups, and the
// tensor object itself. Tensors carry no element data directly — backend
// storage is created and destroyed by explicit operations dispatched
// through the dag package.
//
// Example:
//
//	reg := space.New()
//	sig := tensor.Signature{{Space: space.AnonymousSpace}, {Space: space.AnonymousSpace}}
//	t, err := tensor.New(reg, "A", tensor.Shape{2, 2}, sig, tensor.Real64)
package tensor

import (
	"github.com/tnet-go/tnet/internal/tensor"
	"github.com/tnet-go/tnet/space"
)

// Registry is the space/subspace registry every signature is validated
// against.
type Registry = space.Registry

// Shape is an ordered tuple of positive dimension extents.
type Shape = tensor.Shape

// DimSig is one dimension's entry in a tensor signature.
type DimSig = tensor.DimSig

// Signature is an ordered tuple of (space, subspace) pairs.
type Signature = tensor.Signature

// ElementType is the numeric type a tensor's elements are stored as.
type ElementType = tensor.ElementType

// Element type constants.
const (
	Real32    = tensor.Real32
	Real64    = tensor.Real64
	Complex32 = tensor.Complex32
	Complex64 = tensor.Complex64
)

// IsometryGroup is a subset of a tensor's dimension indices whose
// contraction with the tensor's conjugate yields a Kronecker delta.
type IsometryGroup = tensor.IsometryGroup

// Tensor is the symbolic tensor object.
type Tensor = tensor.Tensor

// New constructs a tensor, validating shape/signature and any isometry
// groups, and retains the signature's space references in reg.
func New(reg *Registry, name string, shape Shape, sig Signature, elemType ElementType, isometry ...IsometryGroup) (*Tensor, error) {
	return tensor.New(reg, name, shape, sig, elemType, isometry...)
}

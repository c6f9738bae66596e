// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/tnet-go/tnet/internal/space"
)

// ElementType is the numeric type a tensor's elements are stored as.
type ElementType int

const (
	// Real32 is single-precision real.
	Real32 ElementType = iota
	// Real64 is double-precision real.
	Real64
	// Complex32 is single-precision complex.
	Complex32
	// Complex64 is double-precision complex.
	Complex64
)

func (e ElementType) String() string {
	switch e {
	case Real32:
		return "REAL32"
	case Real64:
		return "REAL64"
	case Complex32:
		return "COMPLEX32"
	case Complex64:
		return "COMPLEX64"
	default:
		return "UNKNOWN"
	}
}

// IsometryGroup is a subset of a tensor's dimension indices whose
// contraction with the tensor's conjugate yields a Kronecker delta.
type IsometryGroup []int

// Tensor is the symbolic tensor object of spec.md §3: a name, a shape, a
// signature, up to two disjoint isometry groups, and an element type. It
// carries no element data; backend storage is created and destroyed by
// explicit CREATE/DESTROY operations and is looked up by the tensor's
// stable hash.
type Tensor struct {
	name      string
	shape     Shape
	signature Signature
	isometry  [2]IsometryGroup
	elemType  ElementType

	refs *int32 // shared-handle reference count
	hash [32]byte
}

// New constructs a tensor, validating the shape/signature pair and the
// disjointness of any isometry groups, and retains the signature's space
// references in reg.
func New(reg *space.Registry, name string, shape Shape, sig Signature, elemType ElementType, isometry ...IsometryGroup) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := sig.Validate(reg, shape); err != nil {
		return nil, err
	}
	if len(isometry) > 2 {
		return nil, fmt.Errorf("tensor: at most two isometry groups are allowed, got %d", len(isometry))
	}
	var groups [2]IsometryGroup
	copy(groups[:], isometry)
	if err := validateDisjoint(groups[0], groups[1]); err != nil {
		return nil, err
	}

	t := &Tensor{
		name:      name,
		shape:     shape,
		signature: sig,
		isometry:  groups,
		elemType:  elemType,
		refs:      new(int32),
	}
	*t.refs = 1
	sig.Retain(reg)
	t.hash = computeHash(name, shape, sig)
	return t, nil
}

func validateDisjoint(a, b IsometryGroup) error {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(a))
	for _, i := range a {
		seen[i] = true
	}
	for _, i := range b {
		if seen[i] {
			return fmt.Errorf("tensor: isometry groups are not disjoint at dimension %d", i)
		}
	}
	return nil
}

func computeHash(name string, shape Shape, sig Signature) [32]byte {
	h := sha256.New()
	h.Write([]byte(name))
	for _, d := range shape {
		binary.Write(h, binary.LittleEndian, d) //nolint:errcheck
	}
	for _, d := range sig {
		binary.Write(h, binary.LittleEndian, d.Space)    //nolint:errcheck
		binary.Write(h, binary.LittleEndian, d.Subspace) //nolint:errcheck
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Name returns the tensor's name.
func (t *Tensor) Name() string { return t.name }

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape { return t.shape }

// Signature returns the tensor's signature.
func (t *Tensor) Signature() Signature { return t.signature }

// Rank returns the tensor's rank.
func (t *Tensor) Rank() int { return len(t.shape) }

// ElementType returns the tensor's element type.
func (t *Tensor) ElementType() ElementType { return t.elemType }

// Isometry returns the isometry group at index 0 or 1.
func (t *Tensor) Isometry(i int) IsometryGroup { return t.isometry[i] }

// Hash returns the tensor's stable identity hash, computed from
// (name, shape, signature) as specified in spec.md §3.
func (t *Tensor) Hash() [32]byte { return t.hash }

// Retain increments the tensor's shared-handle reference count.
func (t *Tensor) Retain() { atomic.AddInt32(t.refs, 1) }

// Release decrements the tensor's shared-handle reference count and
// returns the count after release. When it reaches 1, only the registry
// holds the tensor and it becomes eligible for garbage collection at the
// next sync(clean_garbage) barrier (spec.md §4.6).
func (t *Tensor) Release(reg *space.Registry) int32 {
	n := atomic.AddInt32(t.refs, -1)
	if n == 0 {
		t.signature.Release(reg)
	}
	return n
}

// RefCount returns the current shared-handle reference count.
func (t *Tensor) RefCount() int32 { return atomic.LoadInt32(t.refs) }

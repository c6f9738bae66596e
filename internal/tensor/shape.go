// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor implements the symbolic tensor data model of spec.md §3:
// tensor shapes, signatures, isometry groups, and the tensor object itself.
// It does not hold tensor element data — that lives in backend-owned
// storage, created and destroyed by CREATE/DESTROY operations.
package tensor

import (
	"fmt"
	"strings"
)

// Shape is an ordered tuple of positive dimension extents. Length equals
// tensor rank.
type Shape []int64

// Equal reports whether two shapes have the same rank and extents.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int { return len(s) }

// Volume returns the product of all extents (1 for a rank-0 shape).
func (s Shape) Volume() int64 {
	v := int64(1)
	for _, d := range s {
		v *= d
	}
	return v
}

// Validate checks that every extent is strictly positive.
func (s Shape) Validate() error {
	for i, d := range s {
		if d <= 0 {
			return fmt.Errorf("tensor: shape dimension %d has non-positive extent %d", i, d)
		}
	}
	return nil
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

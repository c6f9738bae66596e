// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"fmt"

	"github.com/tnet-go/tnet/internal/space"
)

// DimSig is one dimension's entry in a tensor signature: the space it
// draws from, and the subspace (or, for the anonymous space, the base
// offset) within that space.
type DimSig struct {
	Space    space.ID
	Subspace space.SubspaceID
}

// IsAnonymous reports whether this dimension draws from the anonymous
// space, in which case Subspace is interpreted as a base offset rather
// than a registered subspace id.
func (d DimSig) IsAnonymous() bool { return d.Space == space.AnonymousSpace }

// Signature is an ordered tuple of (space, subspace) pairs, one per
// dimension. Its length equals tensor rank.
type Signature []DimSig

// Rank returns the number of dimensions covered by the signature.
func (s Signature) Rank() int { return len(s) }

// Validate checks the signature against a registry and a matching shape:
// ranks must agree, every named space must exist, and a dimension bound
// to a space's full subspace must have that space's dimension as its
// extent. A non-trivial subspace id is neither looked up nor checked
// against the extent.
func (s Signature) Validate(reg *space.Registry, shape Shape) error {
	if len(s) != len(shape) {
		return fmt.Errorf("tensor: signature rank %d does not match shape rank %d", len(s), len(shape))
	}
	for i, d := range s {
		if d.IsAnonymous() {
			continue // base offset into the anonymous space; no registry check.
		}
		sp, ok := reg.Space(d.Space)
		if !ok {
			return fmt.Errorf("tensor: dimension %d references unknown space id %d", i, d.Space)
		}
		if d.Subspace == space.UnregisteredSubspace {
			continue
		}
		if d.Subspace == space.FullSubspace {
			if shape[i] != sp.Dimension {
				return fmt.Errorf("tensor: dimension %d extent %d does not match full space %q dimension %d",
					i, shape[i], sp.Name, sp.Dimension)
			}
			continue
		}
	}
	return nil
}

// Retain increments the registry's live-reference count for every named
// space this signature touches. Called when a tensor is constructed.
func (s Signature) Retain(reg *space.Registry) {
	for _, d := range s {
		if !d.IsAnonymous() {
			reg.Retain(d.Space)
		}
	}
}

// Release decrements the registry's live-reference count for every named
// space this signature touches. Called when a tensor is destroyed.
func (s Signature) Release(reg *space.Registry) {
	for _, d := range s {
		if !d.IsAnonymous() {
			reg.Release(d.Space)
		}
	}
}

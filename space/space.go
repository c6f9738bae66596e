// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package space provides the public API for the vector space and subspace
// registry (spec §4.1).
//
// Example:
//
//	reg := space.New()
//	id, _ := reg.CreateSpace("spin-1/2", 2)
//	sub, _ := reg.CreateSubspace("spin-1/2", "up", 0, 0)
package space

import (
	"github.com/tnet-go/tnet/internal/space"
)

// ID identifies a registered vector space.
type ID = space.ID

// SubspaceID identifies a subspace of a space.
type SubspaceID = space.SubspaceID

// AnonymousSpace is the always-present, unnamed space (id 0).
const AnonymousSpace = space.AnonymousSpace

// FullSubspace is the subspace id every named space auto-registers.
const FullSubspace = space.FullSubspace

// UnregisteredSubspace marks a dimension with no bound subspace.
const UnregisteredSubspace = space.UnregisteredSubspace

// Subspace is a half-open basis range within a parent space.
type Subspace = space.Subspace

// Space is a registered named (or anonymous) vector space.
type Space = space.Space

// Registry is the process-wide space/subspace registry.
type Registry = space.Registry

// New creates a registry and registers the anonymous space.
func New() *Registry {
	return space.New()
}

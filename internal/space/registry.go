// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package space implements the process-wide vector space and subspace
// registry that every tensor signature is checked against.
package space

import (
	"fmt"
	"math"
	"sync"
)

// ID identifies a registered vector space. ID 0 is the anonymous space,
// which always exists and has the implementation-maximum dimension.
type ID uint64

// AnonymousSpace is the always-present, unnamed space (id 0).
const AnonymousSpace ID = 0

// SubspaceID identifies a subspace of a space. 0 means the full space,
// and the all-ones value means "unregistered" (a tensor dimension that is
// not yet bound to any named subspace).
type SubspaceID uint64

const (
	// FullSubspace is the subspace id every named space auto-registers,
	// spanning the space's entire basis range.
	FullSubspace SubspaceID = 0
	// UnregisteredSubspace marks a dimension with no bound subspace.
	UnregisteredSubspace SubspaceID = math.MaxUint64
)

// AnonymousDimension is the implementation maximum used as the dimension
// of the anonymous space.
const AnonymousDimension = int64(1) << 40

// Subspace is a half-open basis range [Lo, Hi) within a parent space.
type Subspace struct {
	ID     SubspaceID
	Parent ID
	Lo, Hi int64
}

// Range reports the subspace's extent.
func (s Subspace) Range() int64 { return s.Hi - s.Lo }

// Space is a registered named (or anonymous) vector space.
type Space struct {
	ID        ID
	Name      string
	Dimension int64

	subspaces map[SubspaceID]*Subspace
	nextSub   SubspaceID
}

// Registry is the process-wide space/subspace registry described in
// spec.md §4.1. It is single-writer: callers running outside the DAG pump
// thread must serialize their own access.
type Registry struct {
	mu        sync.Mutex
	byID      map[ID]*Space
	byName    map[string]ID
	nextID    ID
	liveRefs  map[ID]int // signatures currently referencing a space id
	subByName map[string]struct {
		space ID
		sub   SubspaceID
	}
}

// New creates a registry and registers the anonymous space.
func New() *Registry {
	r := &Registry{
		byID:   map[ID]*Space{},
		byName: map[string]ID{},
		nextID: 1,
		liveRefs: map[ID]int{
			AnonymousSpace: 0,
		},
		subByName: map[string]struct {
			space ID
			sub   SubspaceID
		}{},
	}
	r.byID[AnonymousSpace] = &Space{
		ID:        AnonymousSpace,
		Name:      "",
		Dimension: AnonymousDimension,
		subspaces: map[SubspaceID]*Subspace{
			FullSubspace: {ID: FullSubspace, Parent: AnonymousSpace, Lo: 0, Hi: AnonymousDimension},
		},
		nextSub: 1,
	}
	return r
}

// CreateSpace registers a new named space of the given dimension and
// returns its id. Creating a duplicate name is an error.
func (r *Registry) CreateSpace(name string, dimension int64) (ID, error) {
	if name == "" {
		return 0, fmt.Errorf("space: anonymous name is reserved")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return 0, fmt.Errorf("space: duplicate name %q", name)
	}
	id := r.nextID
	r.nextID++
	sp := &Space{
		ID:        id,
		Name:      name,
		Dimension: dimension,
		subspaces: map[SubspaceID]*Subspace{
			FullSubspace: {ID: FullSubspace, Parent: id, Lo: 0, Hi: dimension},
		},
		nextSub: 1,
	}
	r.byID[id] = sp
	r.byName[name] = id
	r.liveRefs[id] = 0
	return id, nil
}

// DestroyByName destroys a space by name. Fatal if the space is still
// referenced by a live tensor signature (spec.md §4.1).
func (r *Registry) DestroyByName(name string) error {
	r.mu.Lock()
	id, ok := r.byName[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("space: unknown name %q", name)
	}
	return r.DestroyByID(id)
}

// DestroyByID destroys a space by id.
func (r *Registry) DestroyByID(id ID) error {
	if id == AnonymousSpace {
		return fmt.Errorf("space: cannot destroy the anonymous space")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("space: unknown id %d", id)
	}
	if r.liveRefs[id] > 0 {
		panic(fmt.Sprintf("space: fatal: destroying space %q (id %d) with %d live signature references",
			sp.Name, id, r.liveRefs[id]))
	}
	delete(r.byID, id)
	delete(r.byName, sp.Name)
	delete(r.liveRefs, id)
	return nil
}

// CreateSubspace registers a non-trivial subspace of a named space with
// inclusive basis bounds [lo, hi]. The range must be strictly inside the
// parent's full range.
func (r *Registry) CreateSubspace(spaceName, subName string, lo, hi int64) (SubspaceID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spaceID, ok := r.byName[spaceName]
	if !ok {
		return 0, fmt.Errorf("space: unknown space %q", spaceName)
	}
	sp := r.byID[spaceID]
	if lo < 0 || hi >= sp.Dimension || lo > hi {
		return 0, fmt.Errorf("space: subspace range [%d,%d] invalid for space %q of dimension %d",
			lo, hi, spaceName, sp.Dimension)
	}
	full := sp.subspaces[FullSubspace]
	if lo == full.Lo && hi+1 == full.Hi {
		return 0, fmt.Errorf("space: subspace range equals the full range of %q; it is already registered as id 0", spaceName)
	}
	if _, exists := r.subByName[spaceName+"::"+subName]; exists {
		return 0, fmt.Errorf("space: duplicate subspace name %q in space %q", subName, spaceName)
	}
	id := sp.nextSub
	sp.nextSub++
	sp.subspaces[id] = &Subspace{ID: id, Parent: spaceID, Lo: lo, Hi: hi + 1}
	r.subByName[spaceName+"::"+subName] = struct {
		space ID
		sub   SubspaceID
	}{spaceID, id}
	return id, nil
}

// DestroySubspace removes a subspace by name.
func (r *Registry) DestroySubspace(spaceName, subName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := spaceName + "::" + subName
	ref, ok := r.subByName[key]
	if !ok {
		return fmt.Errorf("space: unknown subspace %q of %q", subName, spaceName)
	}
	sp := r.byID[ref.space]
	if sp == nil {
		return fmt.Errorf("space: parent space of subspace %q was already destroyed", subName)
	}
	delete(sp.subspaces, ref.sub)
	delete(r.subByName, key)
	return nil
}

// LookupSubspace finds a subspace by name, returning its space id,
// subspace id, and the subspace's range.
func (r *Registry) LookupSubspace(spaceName, subName string) (ID, Subspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.subByName[spaceName+"::"+subName]
	if !ok {
		return 0, Subspace{}, fmt.Errorf("space: unknown subspace %q of %q", subName, spaceName)
	}
	sp := r.byID[ref.space]
	sub := sp.subspaces[ref.sub]
	return ref.space, *sub, nil
}

// Space returns the registered space by id.
func (r *Registry) Space(id ID) (*Space, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.byID[id]
	return sp, ok
}

// SpaceByName returns the registered space id by name.
func (r *Registry) SpaceByName(name string) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	return id, ok
}

// Retain increments the live-reference count used by DestroyByID's safety
// check; called whenever a tensor signature binds a space id.
func (r *Registry) Retain(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveRefs[id]++
}

// Release decrements the live-reference count.
func (r *Registry) Release(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.liveRefs[id] > 0 {
		r.liveRefs[id]--
	}
}

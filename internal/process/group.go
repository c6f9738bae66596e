// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package process implements the process-group and composite-tensor
// layer of spec.md §4.7: process groups and their splitting, existence
// domains and the nestability contract, and block-distributed composite
// tensors lowered via decompose.
package process

import "fmt"

// Group is an ordered set of process ranks within a parent communicator
// (spec.md §4.7). Rank order is significant: Split preserves the
// parent's relative ordering in every child group it produces.
type Group struct {
	Ranks []int
}

// NewGroup returns the root group containing ranks 0..n-1 in order.
func NewGroup(n int) *Group {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i
	}
	return &Group{Ranks: ranks}
}

// Size returns the number of processes in the group.
func (g *Group) Size() int { return len(g.Ranks) }

// Contains reports whether rank belongs to the group.
func (g *Group) Contains(rank int) bool {
	for _, r := range g.Ranks {
		if r == rank {
			return true
		}
	}
	return false
}

// Split partitions g into subgroups by label: labels[i] is the subgroup
// label the process at g.Ranks[i] declared. Every returned subgroup
// preserves g's relative rank ordering (spec.md §4.7: "produce a new
// process group containing exactly those processes that declared the
// same s, preserving their ordering in the parent").
func (g *Group) Split(labels []int) (map[int]*Group, error) {
	if len(labels) != len(g.Ranks) {
		return nil, fmt.Errorf("process: Split needs one label per rank, got %d labels for %d ranks", len(labels), len(g.Ranks))
	}
	children := map[int]*Group{}
	for i, rank := range g.Ranks {
		label := labels[i]
		child, ok := children[label]
		if !ok {
			child = &Group{}
			children[label] = child
		}
		child.Ranks = append(child.Ranks, rank)
	}
	return children, nil
}

// SplitLocal is the convenience form of Split used by a single process:
// given its own rank's index within g and the full label assignment, it
// returns only the subgroup that rank itself belongs to.
func (g *Group) SplitLocal(labels []int, localIndex int) (*Group, error) {
	children, err := g.Split(labels)
	if err != nil {
		return nil, err
	}
	return children[labels[localIndex]], nil
}

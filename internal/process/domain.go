// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package process

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Domain is a set of process ranks over which a tensor or operation
// exists (spec.md §4.7). Ranks are kept sorted and unique.
type Domain struct {
	Ranks []int
}

// NewDomain returns a Domain over the given ranks, deduplicated and
// sorted. Deduplication goes through a map, so the rank order before
// sorting is otherwise unspecified (Go map iteration order is
// randomized) — maps.Keys plus an explicit slices.Sort makes that
// handoff, and the determinism it restores, explicit at the call site.
func NewDomain(ranks ...int) Domain {
	set := map[int]bool{}
	for _, r := range ranks {
		set[r] = true
	}
	out := maps.Keys(set)
	slices.Sort(out)
	return Domain{Ranks: out}
}

// Size returns the number of ranks in the domain.
func (d Domain) Size() int { return len(d.Ranks) }

// Subset reports whether d's ranks are all present in other (d ⊆ other).
func (d Domain) Subset(other Domain) bool {
	set := map[int]bool{}
	for _, r := range other.Ranks {
		set[r] = true
	}
	for _, r := range d.Ranks {
		if !set[r] {
			return false
		}
	}
	return true
}

// Equal reports whether d and other contain exactly the same ranks.
func (d Domain) Equal(other Domain) bool {
	return d.Subset(other) && other.Subset(d)
}

// OperandDomain pairs an operand's existence domain (where the op
// actually runs for it) with its full-presence domain (every rank
// holding at least one of its blocks).
type OperandDomain struct {
	Existence    Domain
	FullPresence Domain
}

// ExecutionDomain validates spec.md §4.7's nestability contract across
// an operation's operand domains and returns the smallest (innermost)
// one, which becomes the operation's execution domain:
//
//  1. The operand existence domains must be totally nestable: some
//     ordering D_i1 ⊆ D_i2 ⊆ … ⊆ D_in.
//  2. The execution domain is the smallest such D.
//  3. The execution domain must be a sub-domain of full presence for
//     every operand.
func ExecutionDomain(operands []OperandDomain) (Domain, error) {
	if len(operands) == 0 {
		return Domain{}, fmt.Errorf("process: at least one operand domain is required")
	}
	order := make([]OperandDomain, len(operands))
	copy(order, operands)
	sort.Slice(order, func(i, j int) bool { return order[i].Existence.Size() < order[j].Existence.Size() })

	for i := 0; i < len(order)-1; i++ {
		if !order[i].Existence.Subset(order[i+1].Existence) {
			return Domain{}, fmt.Errorf("process: operand existence domains are not totally nestable: %v is not a subset of %v",
				order[i].Existence.Ranks, order[i+1].Existence.Ranks)
		}
	}
	execution := order[0].Existence
	for _, od := range operands {
		if !execution.Subset(od.FullPresence) {
			return Domain{}, fmt.Errorf("process: execution domain %v exceeds full presence %v for an operand",
				execution.Ranks, od.FullPresence.Ranks)
		}
	}
	return execution, nil
}

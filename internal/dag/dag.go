// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dag builds the operation dependency graph of spec.md §4.6 and
// drives it with a single lazy cooperative pump, matching submission
// order for writes and exposing sync barriers and a tensor garbage
// collector.
package dag

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tnet-go/tnet/internal/op"
	"github.com/tnet-go/tnet/internal/tensor"
)

// Node is one operation in submission order, with the indices of every
// node it depends on. ID is a stable per-submission identifier threaded
// through structured log lines (spec.md §6) so a slow or failed
// operation can be traced back to one Node across the executor's
// out-of-order pump.
type Node struct {
	ID   uuid.UUID
	Op   *op.Operation
	Deps []int
}

// DAG is the dependency graph built from a submission-ordered operation
// list (spec.md §4.6): "op B depends on op A iff A writes some operand
// that B reads or writes, and A precedes B in submission order."
type DAG struct {
	Nodes []*Node
}

// Build constructs a DAG from ops, already in submission order.
func Build(ops []*op.Operation) (*DAG, error) {
	d := &DAG{Nodes: make([]*Node, len(ops))}
	lastWriter := map[*tensor.Tensor]int{}

	for i, o := range ops {
		if !o.IsSet() {
			return nil, fmt.Errorf("dag: operation at submission index %d is not fully bound", i)
		}
		node := &Node{ID: uuid.New(), Op: o}
		seen := map[int]bool{}
		touch := append(append([]*tensor.Tensor(nil), o.ReadSet()...), o.WriteSet()...)
		for _, t := range touch {
			if w, ok := lastWriter[t]; ok && w < i && !seen[w] {
				node.Deps = append(node.Deps, w)
				seen[w] = true
			}
		}
		d.Nodes[i] = node
		for _, t := range o.WriteSet() {
			lastWriter[t] = i
		}
	}
	return d, nil
}

// ready reports whether every dependency of node i has completed.
func (d *DAG) ready(i int, done []bool) bool {
	for _, dep := range d.Nodes[i].Deps {
		if !done[dep] {
			return false
		}
	}
	return true
}

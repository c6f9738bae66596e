// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dag provides the public API for the operation dependency DAG
// and lazy pump executor of spec.md §4.6.
package dag

import (
	"github.com/tnet-go/tnet/internal/dag"
	"github.com/tnet-go/tnet/internal/op"
	"github.com/tnet-go/tnet/tensor"
)

// Node is one operation in submission order with its dependency set.
type Node = dag.Node

// DAG is the dependency graph built from a submission-ordered operation
// list.
type DAG = dag.DAG

// Build constructs a DAG from ops, already in submission order.
func Build(ops []*op.Operation) (*DAG, error) { return dag.Build(ops) }

// Ticket is an opaque handle returned by Backend.Submit.
type Ticket = dag.Ticket

// Backend is the asynchronous device interface the executor drives.
type Backend = dag.Backend

// Prefetcher is an optional Backend capability for pre-staging a node's
// operands ahead of submission, within the pump's prefetch window.
type Prefetcher = dag.Prefetcher

// Config controls the lazy pump's pipelining.
type Config = dag.Config

// DefaultConfig returns pipeline depth 16, prefetch depth 4.
func DefaultConfig() Config { return dag.DefaultConfig() }

// Executor drives a DAG's nodes through a Backend with a single
// cooperative pump.
type Executor = dag.Executor

// NewExecutor builds an executor for d against backend.
func NewExecutor(d *DAG, backend Backend, cfg Config) *Executor {
	return dag.NewExecutor(d, backend, cfg)
}

// Destroyer releases a tensor's backend storage for the garbage
// collector.
type Destroyer = dag.Destroyer

// CollectGarbage destroys backend storage for every tracked tensor
// whose reference count has dropped to one.
func CollectGarbage(tracked []*tensor.Tensor, d Destroyer) error {
	return dag.CollectGarbage(tracked, d)
}

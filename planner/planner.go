// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package planner provides the public API for the weighted-graph
// contraction-sequence planner of spec.md §4.4.
package planner

import (
	"github.com/tnet-go/tnet/internal/network"
	"github.com/tnet-go/tnet/internal/planner"
)

// Strategy names a contraction search strategy.
type Strategy = planner.Strategy

// The four selectable search strategies.
const (
	Dummy = planner.Dummy
	Heuro = planner.Heuro
	Greed = planner.Greed
	Metis = planner.Metis
)

// Graph is the vertex-and-edge weighted multigraph projection of a
// tensor network.
type Graph = planner.Graph

// Vertex is one tensor in the graph projection.
type Vertex = planner.Vertex

// Triple is one contraction step: contract Left against Right,
// producing Result.
type Triple = planner.Triple

// Fingerprint is a stable hash of a network's topology.
type Fingerprint = planner.Fingerprint

// Cache holds previously computed contraction plans keyed by topology
// fingerprint.
type Cache = planner.Cache

// NewCache returns an empty in-memory plan cache.
func NewCache() *Cache { return planner.NewCache() }

// LoadCache reads a previously saved plan cache from path.
func LoadCache(path string) (*Cache, error) { return planner.LoadCache(path) }

// Project builds a Graph from a finalized network.
func Project(n *network.Network) *Graph { return planner.Project(n) }

// FingerprintNetwork fingerprints a network's topology.
func FingerprintNetwork(n *network.Network) Fingerprint { return planner.FingerprintNetwork(n) }

// Plan searches for a contraction sequence over n using the named
// strategy, consulting and populating cache (nil disables caching).
func Plan(n *network.Network, strategy Strategy, cache *Cache) ([]Triple, error) {
	return planner.Plan(n, strategy, cache)
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package planner implements the weighted-graph contraction-sequence
// planner of spec.md §4.4: projecting a tensor network onto a
// vertex-and-edge weighted multigraph, searching for a low-cost
// contraction order under four selectable strategies, and caching plans
// by a topology fingerprint.
package planner

import (
	"math"
	"sort"

	"github.com/tnet-go/tnet/internal/network"
)

// weight converts a dimension volume to the compact integer encoding of
// spec.md §4.4: ⌊log2(volume)⌋+1, so merge arithmetic (addition in place
// of multiplication) stays within machine integers while preserving
// ordering between candidate merges.
func weight(volume int64) int {
	if volume <= 1 {
		return 1
	}
	return int(math.Floor(math.Log2(float64(volume)))) + 1
}

// approxVolume inverts weight, recovering an order-preserving estimate
// of the original volume for cost comparisons.
func approxVolume(w int) float64 {
	if w <= 1 {
		return 1
	}
	return math.Exp2(float64(w - 1))
}

// Vertex is one input tensor projected onto the planner's graph: its
// open-dimension weight and its multigraph adjacency to other vertices.
type Vertex struct {
	ID     int
	Weight int
	Edges  map[int]int // peer vertex id -> aggregated edge weight
}

// Graph is the planner's weighted, undirected multigraph projection of
// a tensor network (spec.md §4.4).
type Graph struct {
	Vertices map[int]*Vertex
	order    []int // original input order, for the dummy strategy

	// partition caches a previously computed k-way split; mergeVertices
	// invalidates it since the graph topology it describes no longer
	// matches.
	partition []int
}

// Project builds a Graph from a finalized network: every non-output
// connection becomes a vertex, every leg connecting two input
// connections becomes (or aggregates into) a multigraph edge, and every
// leg open to the output is absorbed into its owning vertex's weight.
func Project(n *network.Network) *Graph {
	g := &Graph{Vertices: map[int]*Vertex{}}
	for _, c := range n.Connections() {
		if c.ID == network.OutputID {
			continue
		}
		v := &Vertex{ID: c.ID, Edges: map[int]int{}}
		openVolume := int64(1)
		for dim, leg := range c.Legs {
			extent := c.Tensor.Shape()[dim]
			if leg.PeerID == network.OutputID {
				openVolume *= extent
				continue
			}
			if leg.PeerID < c.ID {
				// Each internal leg is visited from both endpoints;
				// only the lower id records it, once, to avoid
				// double-aggregating the same physical edge.
				continue
			}
			v.Edges[leg.PeerID] += weight(extent)
		}
		v.Weight = weight(openVolume)
		g.Vertices[c.ID] = v
		g.order = append(g.order, c.ID)
	}
	// Second pass: mirror edges recorded from the lower-id endpoint onto
	// the higher-id endpoint so adjacency is symmetric.
	for id, v := range g.Vertices {
		for peer, w := range v.Edges {
			if peer < id {
				continue
			}
			g.Vertices[peer].Edges[id] += w
		}
	}
	sort.Ints(g.order)
	return g
}

// Triple is one step of an emitted contraction plan: contract `Left`
// against `Right`, producing a new vertex `Result` (spec.md §4.4).
type Triple struct {
	Left, Right, Result int
}

// mergeVertices fuses b into a: aggregates duplicated adjacency weights,
// deletes the self-loop the a-b edge becomes, renumbers every other
// vertex's reference to b as a, and updates a's weight to the
// contraction's estimated result volume. It invalidates any cached
// partition. Returns the estimated cost of this contraction.
func (g *Graph) mergeVertices(a, b int) float64 {
	va, vb := g.Vertices[a], g.Vertices[b]
	contrLog := 0.0 // sum of log2(contracted edge volumes)
	if w, ok := va.Edges[b]; ok {
		contrLog = float64(w - 1)
	}
	volA := approxVolume(va.Weight)
	volB := approxVolume(vb.Weight)
	resultLog := math.Log2(volA) + math.Log2(volB) - 2*contrLog
	if resultLog < 0 {
		resultLog = 0
	}
	resultWeight := int(math.Round(resultLog)) + 1

	delete(va.Edges, b)
	delete(vb.Edges, a)
	for peer, w := range vb.Edges {
		if peer == a {
			continue
		}
		va.Edges[peer] += w
		g.Vertices[peer].Edges[a] += w
		delete(g.Vertices[peer].Edges, b)
	}
	va.Weight = resultWeight
	delete(g.Vertices, b)
	for i, id := range g.order {
		if id == b {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.partition = nil

	cost := math.Sqrt(volA * volB * approxVolume(resultWeight))
	return cost
}

// cost estimates the flop cost of contracting a against b, per spec.md
// §4.4: sqrt(vol(L)·vol(R)·vol(D)), D the proposed contraction result.
func (g *Graph) cost(a, b int) float64 {
	va, vb := g.Vertices[a], g.Vertices[b]
	contrLog := 0.0
	if w, ok := va.Edges[b]; ok {
		contrLog = float64(w - 1)
	}
	volA := approxVolume(va.Weight)
	volB := approxVolume(vb.Weight)
	resultLog := math.Log2(volA) + math.Log2(volB) - 2*contrLog
	if resultLog < 0 {
		resultLog = 0
	}
	volD := math.Exp2(resultLog)
	return math.Sqrt(volA * volB * volD)
}

// connectedPairs returns every distinct vertex pair (a, b), a < b,
// joined by at least one edge.
func (g *Graph) connectedPairs() [][2]int {
	var pairs [][2]int
	for id, v := range g.Vertices {
		for peer := range v.Edges {
			if id < peer {
				pairs = append(pairs, [2]int{id, peer})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

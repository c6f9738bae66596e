// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package planner

import (
	"fmt"
	"math"
	"sort"
)

// Strategy names the four search strategies of spec.md §4.4.
type Strategy string

const (
	Dummy Strategy = "dummy"
	Heuro Strategy = "heuro"
	Greed Strategy = "greed"
	Metis Strategy = "metis"
)

// search runs the named strategy against g, mutating it via repeated
// mergeVertices calls, and returns the ordered contraction triples.
func search(g *Graph, strategy Strategy) ([]Triple, error) {
	switch strategy {
	case Dummy:
		return dummySearch(g)
	case Heuro:
		return heuroSearch(g)
	case Greed:
		return greedSearch(g)
	case Metis:
		return metisSearch(g)
	default:
		return nil, fmt.Errorf("planner: unknown strategy %q", strategy)
	}
}

// dummySearch contracts vertices strictly in input order: fold the
// first vertex against the second, the result against the third, and
// so on, regardless of connectivity cost.
func dummySearch(g *Graph) ([]Triple, error) {
	var triples []Triple
	for len(g.order) > 1 {
		a, b := g.order[0], g.order[1]
		g.mergeVertices(a, b)
		triples = append(triples, Triple{Left: a, Right: b, Result: a})
	}
	return triples, nil
}

// heuroSearch computes every connected pair's cost once up front, sorts
// ascending, and processes merges in that fixed order (skipping a pair
// if either side has already been absorbed). Left-over disconnected
// vertices are folded in input order at the end, matching dummy's
// fallback for networks with more than one component.
func heuroSearch(g *Graph) ([]Triple, error) {
	type scored struct {
		a, b int
		cost float64
	}
	var candidates []scored
	for _, pair := range g.connectedPairs() {
		candidates = append(candidates, scored{pair[0], pair[1], g.cost(pair[0], pair[1])})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].cost < candidates[j].cost })

	var triples []Triple
	for _, c := range candidates {
		if _, ok := g.Vertices[c.a]; !ok {
			continue
		}
		if _, ok := g.Vertices[c.b]; !ok {
			continue
		}
		if _, adjacent := g.Vertices[c.a].Edges[c.b]; !adjacent {
			continue // c.b was merged into a different vertex that now happens to share the id space
		}
		g.mergeVertices(c.a, c.b)
		triples = append(triples, Triple{Left: c.a, Right: c.b, Result: c.a})
	}
	rest, err := dummySearch(g)
	if err != nil {
		return nil, err
	}
	return append(triples, rest...), nil
}

// greedSearch repeatedly scans every connected pair remaining in the
// graph, picks the one with the lowest contraction cost (ties broken by
// smallest resulting intermediate volume), and merges it — spec.md
// §4.4's "greed" strategy.
func greedSearch(g *Graph) ([]Triple, error) {
	var triples []Triple
	for len(g.Vertices) > 1 {
		pairs := g.connectedPairs()
		if len(pairs) == 0 {
			// Disconnected remainder: fold in input order.
			rest, err := dummySearch(g)
			if err != nil {
				return nil, err
			}
			return append(triples, rest...), nil
		}
		bestA, bestB := pairs[0][0], pairs[0][1]
		bestCost := g.cost(bestA, bestB)
		bestVol := resultVolume(g, bestA, bestB)
		for _, p := range pairs[1:] {
			c := g.cost(p[0], p[1])
			v := resultVolume(g, p[0], p[1])
			if c < bestCost || (c == bestCost && v < bestVol) {
				bestA, bestB, bestCost, bestVol = p[0], p[1], c, v
			}
		}
		g.mergeVertices(bestA, bestB)
		triples = append(triples, Triple{Left: bestA, Right: bestB, Result: bestA})
	}
	return triples, nil
}

func resultVolume(g *Graph, a, b int) float64 {
	va, vb := g.Vertices[a], g.Vertices[b]
	contrLog := 0.0
	if w, ok := va.Edges[b]; ok {
		contrLog = float64(w - 1)
	}
	volA, volB := approxVolume(va.Weight), approxVolume(vb.Weight)
	resultLog := math.Log2(volA) + math.Log2(volB) - 2*contrLog
	if resultLog < 0 {
		resultLog = 0
	}
	return math.Exp2(resultLog)
}

// metisSearch k-way partitions the graph by greedy multilevel edge
// contraction (a pure-Go stand-in for an external METIS binding, since
// none exists anywhere in the reference corpus — see DESIGN.md),
// recurses a greedy search within each partition, and finally merges
// the partitions together with a greedy pass over the reduced graph.
func metisSearch(g *Graph) ([]Triple, error) {
	const maxPartitionSize = 4
	if len(g.Vertices) <= maxPartitionSize {
		return greedSearch(g)
	}
	parts := partitionKWay(g, (len(g.Vertices)+maxPartitionSize-1)/maxPartitionSize)

	var triples []Triple
	for _, part := range parts {
		if len(part) < 2 {
			continue
		}
		sub := subgraph(g, part)
		sub.order = append([]int(nil), part...)
		sort.Ints(sub.order)
		subTriples, err := greedSearch(sub)
		if err != nil {
			return nil, err
		}
		triples = append(triples, subTriples...)
		// Apply the same merges to the real graph so its topology stays
		// consistent for the final cross-partition pass.
		for _, tr := range subTriples {
			g.mergeVertices(tr.Left, tr.Right)
		}
	}
	rest, err := greedSearch(g)
	if err != nil {
		return nil, err
	}
	return append(triples, rest...), nil
}

// partitionKWay greedily grows k roughly equal-size partitions from
// seed vertices chosen round-robin, each subsequent vertex assigned to
// the partition it has the strongest aggregate adjacency with.
func partitionKWay(g *Graph, k int) [][]int {
	if k < 1 {
		k = 1
	}
	ids := append([]int(nil), g.order...)
	parts := make([][]int, k)
	assigned := map[int]int{}
	for i, id := range ids {
		if i >= k {
			break
		}
		parts[i] = append(parts[i], id)
		assigned[id] = i
	}
	for _, id := range ids[min(k, len(ids)):] {
		best, bestScore := 0, -1
		for pi, part := range parts {
			score := 0
			for _, member := range part {
				score += g.Vertices[id].Edges[member]
			}
			if score > bestScore {
				best, bestScore = pi, score
			}
		}
		parts[best] = append(parts[best], id)
		assigned[id] = best
	}
	return parts
}

// subgraph builds a standalone Graph containing only the given vertex
// ids and the edges between them, preserving their weights.
func subgraph(g *Graph, ids []int) *Graph {
	sub := &Graph{Vertices: map[int]*Vertex{}}
	idSet := map[int]bool{}
	for _, id := range ids {
		idSet[id] = true
	}
	for _, id := range ids {
		orig := g.Vertices[id]
		v := &Vertex{ID: id, Weight: orig.Weight, Edges: map[int]int{}}
		for peer, w := range orig.Edges {
			if idSet[peer] {
				v.Edges[peer] = w
			}
		}
		sub.Vertices[id] = v
	}
	return sub
}

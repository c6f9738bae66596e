// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package planner

import "github.com/tnet-go/tnet/internal/network"

// Plan projects n onto a weighted graph and searches for a contraction
// sequence using the named strategy, consulting cache first and
// populating it with the result. A nil cache disables caching.
func Plan(n *network.Network, strategy Strategy, cache *Cache) ([]Triple, error) {
	g := Project(n)
	fp := g.Fingerprint()
	if cache != nil {
		if plan, ok := cache.Get(fp); ok {
			return plan, nil
		}
	}
	triples, err := search(g, strategy)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Put(fp, triples)
	}
	return triples, nil
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package planner

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"os"
	"sort"

	"github.com/tnet-go/tnet/internal/network"
)

// Fingerprint is a stable hash of a network's topology — vertex ids,
// weights, and the multigraph's edge weights — used to key cached
// contraction plans (spec.md §4.4: "a fingerprint of the network
// topology keys previously computed plans").
type Fingerprint [32]byte

// Fingerprint hashes g's current topology. Two graphs with identical
// vertex weights and adjacency hash identically regardless of vertex
// insertion order, matching the teacher's checksum pattern of hashing
// structural content rather than Go map iteration order.
func (g *Graph) Fingerprint() Fingerprint {
	h := sha256.New()
	ids := append([]int(nil), g.order...)
	sort.Ints(ids)
	for _, id := range ids {
		v := g.Vertices[id]
		binary.Write(h, binary.LittleEndian, int64(id))
		binary.Write(h, binary.LittleEndian, int64(v.Weight))
		peers := make([]int, 0, len(v.Edges))
		for peer := range v.Edges {
			peers = append(peers, peer)
		}
		sort.Ints(peers)
		for _, peer := range peers {
			binary.Write(h, binary.LittleEndian, int64(peer))
			binary.Write(h, binary.LittleEndian, int64(v.Edges[peer]))
		}
	}
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// FingerprintNetwork is a convenience wrapper projecting n before
// hashing, for callers that only need the fingerprint.
func FingerprintNetwork(n *network.Network) Fingerprint {
	return Project(n).Fingerprint()
}

// Cache holds previously computed contraction plans keyed by topology
// fingerprint, with optional persistence to disk (spec.md §4.4: "cache
// entries may be persisted across runs at the user's request").
type Cache struct {
	entries map[Fingerprint][]Triple
}

// NewCache returns an empty in-memory plan cache.
func NewCache() *Cache {
	return &Cache{entries: map[Fingerprint][]Triple{}}
}

// Get returns a previously cached plan for fp, if any.
func (c *Cache) Get(fp Fingerprint) ([]Triple, bool) {
	t, ok := c.entries[fp]
	return t, ok
}

// Put stores a plan under fp.
func (c *Cache) Put(fp Fingerprint, plan []Triple) {
	c.entries[fp] = plan
}

// cacheFile is the on-disk JSON representation of a Cache, keyed by the
// fingerprint's hex encoding for a stable, human-inspectable format.
type cacheFile map[string][]Triple

// Save persists the cache to path as JSON.
func (c *Cache) Save(path string) error {
	out := make(cacheFile, len(c.entries))
	for fp, plan := range c.entries {
		out[hexKey(fp)] = plan
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCache reads a previously saved plan cache from path.
func LoadCache(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in cacheFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	c := NewCache()
	for key, plan := range in {
		fp, err := fingerprintFromHex(key)
		if err != nil {
			return nil, err
		}
		c.entries[fp] = plan
	}
	return c, nil
}

func hexKey(fp Fingerprint) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, len(fp)*2)
	for i, v := range fp {
		b[i*2] = hexDigits[v>>4]
		b[i*2+1] = hexDigits[v&0xf]
	}
	return string(b)
}

func fingerprintFromHex(s string) (Fingerprint, error) {
	var fp Fingerprint
	if len(s) != len(fp)*2 {
		return fp, errInvalidFingerprintLength
	}
	for i := range fp {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return fp, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return fp, err
		}
		fp[i] = hi<<4 | lo
	}
	return fp, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, errInvalidFingerprintLength
	}
}

var errInvalidFingerprintLength = fingerprintErr("planner: malformed fingerprint hex key")

type fingerprintErr string

func (e fingerprintErr) Error() string { return string(e) }

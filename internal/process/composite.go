// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package process

import (
	"fmt"

	"github.com/tnet-go/tnet/internal/tensor"
)

// Split names one dimension to recursively bisect and how many times
// (spec.md §4.7: "a list of (dimension, split_depth) pairs").
type Split struct {
	Dimension int
	Depth     int
}

// Block is one shard of a composite tensor's base tensor: the slice
// ranges (lo, hi) each split dimension was bisected to, and the flat
// block index.
type Block struct {
	Index  int
	Ranges map[int][2]int64 // dimension -> [lo, hi)
}

// Composite is a block-distributed tensor (spec.md §4.7): a base tensor
// recursively bisected along a chosen set of dimensions, with blocks
// distributed one-per-rank over an existence domain and an optional
// block-sparse presence predicate.
type Composite struct {
	Base     *tensor.Tensor
	Splits   []Split
	Blocks   []Block
	Domain   Domain
	Present  []bool // parallel to Blocks; false marks a block absent (block-sparse)
}

// NewComposite bisects base's shape according to splits and distributes
// the resulting 2^Σdepth blocks one-per-rank over domain, whose size
// must equal the block count (spec.md §4.7: "producing 2^Σdepth blocks
// distributed over the existence domain, whose size must therefore
// also be a power of two"). present, if non-nil, is consulted per block
// index to mark block-sparse absence; a nil present marks every block
// present.
func NewComposite(base *tensor.Tensor, splits []Split, domain Domain, present func(blockIndex int) bool) (*Composite, error) {
	totalDepth := 0
	for _, s := range splits {
		if s.Dimension < 0 || s.Dimension >= base.Rank() {
			return nil, fmt.Errorf("process: split dimension %d out of range for rank-%d tensor", s.Dimension, base.Rank())
		}
		if s.Depth < 0 {
			return nil, fmt.Errorf("process: split depth must be non-negative, got %d", s.Depth)
		}
		totalDepth += s.Depth
	}
	numBlocks := 1 << uint(totalDepth)
	if domain.Size() != numBlocks {
		return nil, fmt.Errorf("process: existence domain has %d ranks, want %d (2^%d) to match the split depth",
			domain.Size(), numBlocks, totalDepth)
	}

	blocks := bisect(base.Shape(), splits)
	present2 := make([]bool, len(blocks))
	for i := range present2 {
		if present == nil {
			present2[i] = true
		} else {
			present2[i] = present(i)
		}
	}
	return &Composite{Base: base, Splits: splits, Blocks: blocks, Domain: domain, Present: present2}, nil
}

// bisect enumerates every block produced by recursively bisecting shape
// along the named split dimensions, in a deterministic order matching
// binary block-index encoding: the first split dimension's bits are the
// least significant, and within one dimension the first bisection is
// the most significant of that dimension's bits.
func bisect(shape tensor.Shape, splits []Split) []Block {
	ranges := map[int][2]int64{}
	blocks := []Block{{Ranges: ranges}}
	for _, s := range splits {
		lo, hi := int64(0), shape[s.Dimension]
		blocks = bisectDimension(blocks, s.Dimension, lo, hi, s.Depth)
	}
	for i := range blocks {
		blocks[i].Index = i
	}
	return blocks
}

func bisectDimension(blocks []Block, dim int, lo, hi int64, depth int) []Block {
	if depth == 0 {
		out := make([]Block, len(blocks))
		for i, b := range blocks {
			r := cloneRanges(b.Ranges)
			r[dim] = [2]int64{lo, hi}
			out[i] = Block{Ranges: r}
		}
		return out
	}
	mid := lo + (hi-lo)/2
	left := bisectDimension(blocks, dim, lo, mid, depth-1)
	right := bisectDimension(blocks, dim, mid, hi, depth-1)
	return append(left, right...)
}

func cloneRanges(r map[int][2]int64) map[int][2]int64 {
	out := make(map[int][2]int64, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RankOf returns the process rank that owns block i, assuming a
// one-block-per-rank distribution in Domain's rank order.
func (c *Composite) RankOf(blockIndex int) (int, error) {
	if blockIndex < 0 || blockIndex >= len(c.Domain.Ranks) {
		return 0, fmt.Errorf("process: block index %d out of range for a %d-rank domain", blockIndex, len(c.Domain.Ranks))
	}
	return c.Domain.Ranks[blockIndex], nil
}

// PresentBlocks returns the indices of every block not marked absent.
func (c *Composite) PresentBlocks() []int {
	var out []int
	for i, p := range c.Present {
		if p {
			out = append(out, i)
		}
	}
	return out
}

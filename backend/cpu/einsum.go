// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"sort"

	"github.com/tnet-go/tnet/internal/pattern"
	"github.com/tnet-go/tnet/internal/parallel"
	"github.com/tnet-go/tnet/op"
	"github.com/tnet-go/tnet/tensor"
)

// strides returns shape's row-major (last dimension fastest) strides.
func strides(shape tensor.Shape) []int64 {
	s := make([]int64, len(shape))
	acc := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// labelExtents records, for every label appearing in term, the extent of
// the tensor dimension it names.
func labelExtents(term pattern.Term, shape tensor.Shape, into map[string]int64) error {
	if len(term.Indices) != len(shape) {
		return fmt.Errorf("cpu: term %s(%v) has %d indices, want %d (tensor rank)", term.Name, term.Indices, len(term.Indices), len(shape))
	}
	for i, label := range term.Indices {
		if existing, ok := into[label]; ok && existing != shape[i] {
			return fmt.Errorf("cpu: label %q has conflicting extents %d and %d", label, existing, shape[i])
		}
		into[label] = shape[i]
	}
	return nil
}

// orderedLabels returns extents' keys in a deterministic order, primary
// list first (to make output indices vary slowest in traces, which is
// immaterial to correctness but keeps iteration order reproducible).
func orderedLabels(primary []string, extents map[string]int64) []string {
	seen := make(map[string]bool, len(extents))
	out := make([]string, 0, len(extents))
	for _, l := range primary {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	var rest []string
	for l := range extents {
		if !seen[l] {
			seen[l] = true
			rest = append(rest, l)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// iterateAssignments enumerates every combination of values for labels
// (0..extent-1 each) and calls fn with the current assignment. The same
// backing map is reused and mutated between calls — fn must not retain it.
func iterateAssignments(labels []string, extents map[string]int64, fn func(map[string]int64)) {
	assign := make(map[string]int64, len(labels))
	var rec func(i int)
	rec = func(i int) {
		if i == len(labels) {
			fn(assign)
			return
		}
		label := labels[i]
		for v := int64(0); v < extents[label]; v++ {
			assign[label] = v
			rec(i + 1)
		}
	}
	rec(0)
}

// flatIndex computes term's tensor's flat buffer offset for the given
// label assignment. Labels named by term but absent from assign default
// to 0 (used by SLICE/INSERT for the dimension(s) one side drops).
func flatIndex(term pattern.Term, shape tensor.Shape, assign map[string]int64) int64 {
	st := strides(shape)
	var idx int64
	for i, label := range term.Indices {
		idx += assign[label] * st[i]
	}
	return idx
}

func valueAt(buf []complex128, term pattern.Term, shape tensor.Shape, assign map[string]int64) complex128 {
	v := buf[flatIndex(term, shape, assign)]
	if term.Conjugate {
		return complex(real(v), -imag(v))
	}
	return v
}

func scaleBuffer(buf []complex128, scalar complex128) {
	if scalar == 1 {
		return
	}
	for i := range buf {
		buf[i] *= scalar
	}
}

func (c *CPU) transform(o *op.Operation) error {
	p := o.Pattern
	outT, inT := o.Operands[0], o.Operands[1]
	outBuf, err := c.buffer(outT)
	if err != nil {
		return err
	}
	inBuf, err := c.buffer(inT)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, outT.Shape(), extents); err != nil {
		return err
	}
	if err := labelExtents(p.Inputs[0], inT.Shape(), extents); err != nil {
		return err
	}
	scalar := o.Scalars[0]
	iterateAssignments(p.Output.Indices, extents, func(assign map[string]int64) {
		outIdx := flatIndex(p.Output, outT.Shape(), assign)
		outBuf[outIdx] = scalar * valueAt(inBuf, p.Inputs[0], inT.Shape(), assign)
	})
	return nil
}

func (c *CPU) add(o *op.Operation) error {
	p := o.Pattern
	outT, inT := o.Operands[0], o.Operands[1]
	outBuf, err := c.buffer(outT)
	if err != nil {
		return err
	}
	inBuf, err := c.buffer(inT)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, outT.Shape(), extents); err != nil {
		return err
	}
	if err := labelExtents(p.Inputs[0], inT.Shape(), extents); err != nil {
		return err
	}
	scaleBuffer(outBuf, o.Scalars[0])
	iterateAssignments(p.Output.Indices, extents, func(assign map[string]int64) {
		outIdx := flatIndex(p.Output, outT.Shape(), assign)
		outBuf[outIdx] += valueAt(inBuf, p.Inputs[0], inT.Shape(), assign)
	})
	return nil
}

// decodeMixedRadix fills into with the per-label values the flat index
// corresponds to, treating labels as row-major dimensions (first label
// slowest-varying), the same convention strides uses for tensor buffers.
func decodeMixedRadix(flat int64, labels []string, extents map[string]int64, into map[string]int64) {
	for i := len(labels) - 1; i >= 0; i-- {
		e := extents[labels[i]]
		into[labels[i]] = flat % e
		flat /= e
	}
}

// contract computes D = weight * sum_{contracted} L*R, prefactor*D + ...
// The outer sweep is over D's own flat index space: every output element
// is written by exactly one iteration, so — unlike a single combined
// sweep over output-and-contracted labels together, which would race on
// dBuf — splitting the contracted-label sum into an inner loop makes the
// outer sweep safe to run across internal/parallel's worker pool. This
// is the one CPU kernel worth parallelizing: CONTRACT dominates a
// contraction plan's total cost (spec.md §4.4's whole cost model is
// built around it).
func (c *CPU) contract(o *op.Operation) error {
	p := o.Pattern
	d, l, r := o.Operands[0], o.Operands[1], o.Operands[2]
	dBuf, err := c.buffer(d)
	if err != nil {
		return err
	}
	lBuf, err := c.buffer(l)
	if err != nil {
		return err
	}
	rBuf, err := c.buffer(r)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, d.Shape(), extents); err != nil {
		return err
	}
	if err := labelExtents(p.Inputs[0], l.Shape(), extents); err != nil {
		return err
	}
	if err := labelExtents(p.Inputs[1], r.Shape(), extents); err != nil {
		return err
	}

	prefactor, weight := o.Scalars[0], o.Scalars[1]
	scaleBuffer(dBuf, prefactor)

	outputLabels := p.Output.Indices
	allLabels := orderedLabels(outputLabels, extents)
	contracted := allLabels[len(outputLabels):]

	outVolume := int64(1)
	for _, lb := range outputLabels {
		outVolume *= extents[lb]
	}

	parallel.For(int(outVolume), func(flat int) {
		outAssign := make(map[string]int64, len(outputLabels)+len(contracted))
		decodeMixedRadix(int64(flat), outputLabels, extents, outAssign)
		dIdx := flatIndex(p.Output, d.Shape(), outAssign)
		var sum complex128
		iterateAssignments(contracted, extents, func(innerAssign map[string]int64) {
			for k, v := range innerAssign {
				outAssign[k] = v
			}
			lVal := valueAt(lBuf, p.Inputs[0], l.Shape(), outAssign)
			rVal := valueAt(rBuf, p.Inputs[1], r.Shape(), outAssign)
			sum += lVal * rVal
		})
		dBuf[dIdx] += weight * sum
	}, parallel.DefaultConfig())
	return nil
}

func (c *CPU) slice(o *op.Operation) error {
	p := o.Pattern
	outT, inT := o.Operands[0], o.Operands[1]
	outBuf, err := c.buffer(outT)
	if err != nil {
		return err
	}
	inBuf, err := c.buffer(inT)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, outT.Shape(), extents); err != nil {
		return err
	}
	iterateAssignments(p.Output.Indices, extents, func(assign map[string]int64) {
		outIdx := flatIndex(p.Output, outT.Shape(), assign)
		// Labels named only by the input (dropped dimensions) default to
		// index 0: SLICE extracts the offset-0 sub-block.
		outBuf[outIdx] = valueAt(inBuf, p.Inputs[0], inT.Shape(), assign)
	})
	return nil
}

func (c *CPU) insert(o *op.Operation) error {
	p := o.Pattern
	outT, inT := o.Operands[0], o.Operands[1]
	outBuf, err := c.buffer(outT)
	if err != nil {
		return err
	}
	inBuf, err := c.buffer(inT)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Inputs[0], inT.Shape(), extents); err != nil {
		return err
	}
	iterateAssignments(p.Inputs[0].Indices, extents, func(assign map[string]int64) {
		inIdx := flatIndex(p.Inputs[0], inT.Shape(), assign)
		// Labels named only by the output (extra dimensions) default to
		// index 0: INSERT writes into the offset-0 sub-block, leaving the
		// rest of the output tensor untouched.
		outIdx := flatIndex(p.Output, outT.Shape(), assign)
		outBuf[outIdx] = inBuf[inIdx]
	})
	return nil
}

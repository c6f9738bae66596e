// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/tnet-go/tnet/internal/pattern"
	"github.com/tnet-go/tnet/op"
	"github.com/tnet-go/tnet/tensor"
)

// dimGroup is an ordered subset of a tensor's index labels, together with
// their extents, treated as one side of a matrix bipartition (the "row"
// or "column" space of a reshape-to-matrix view).
type dimGroup struct {
	labels  []string
	extents []int64
}

func newDimGroup(labels []string, extents map[string]int64) dimGroup {
	ext := make([]int64, len(labels))
	for i, l := range labels {
		ext[i] = extents[l]
	}
	return dimGroup{labels: labels, extents: ext}
}

func (g dimGroup) volume() int64 {
	v := int64(1)
	for _, e := range g.extents {
		v *= e
	}
	return v
}

// compose folds assign's values for g's labels into a single row- or
// column-major index, most-significant label first.
func (g dimGroup) compose(assign map[string]int64) int64 {
	var idx int64
	for i, l := range g.labels {
		idx = idx*g.extents[i] + assign[l]
	}
	return idx
}

// decompose is compose's inverse: it writes each label's value for flat
// into into.
func (g dimGroup) decompose(flat int64, into map[string]int64) {
	for i := len(g.labels) - 1; i >= 0; i-- {
		into[g.labels[i]] = flat % g.extents[i]
		flat /= g.extents[i]
	}
}

// soleComplement returns the one label in full that is absent from
// subset — used to find a factor tensor's bond label, the single index
// it carries beyond the labels it shares with the source tensor.
func soleComplement(full, subset []string) string {
	in := make(map[string]bool, len(subset))
	for _, l := range subset {
		in[l] = true
	}
	for _, l := range full {
		if !in[l] {
			return l
		}
	}
	return ""
}

// splitByIsometry partitions term's labels into the tensor's isometry-0
// group (expected to come out row-orthonormal) and its complement, by
// position: t.Isometry(0) names dimension indices, term.Indices names
// the label at each position.
func splitByIsometry(term pattern.Term, t *tensor.Tensor) (rowLabels, colLabels []string) {
	group := t.Isometry(0)
	inGroup := make(map[int]bool, len(group))
	for _, i := range group {
		inGroup[i] = true
	}
	for i, l := range term.Indices {
		if inGroup[i] {
			rowLabels = append(rowLabels, l)
		} else {
			colLabels = append(colLabels, l)
		}
	}
	return rowLabels, colLabels
}

func buildMatrix(buf []complex128, term pattern.Term, shape tensor.Shape, extents map[string]int64, rows, cols dimGroup) [][]complex128 {
	m := make([][]complex128, rows.volume())
	for i := range m {
		m[i] = make([]complex128, cols.volume())
	}
	iterateAssignments(term.Indices, extents, func(assign map[string]int64) {
		r := rows.compose(assign)
		c := cols.compose(assign)
		m[r][c] = valueAt(buf, term, shape, assign)
	})
	return m
}

func scatterMatrix(buf []complex128, term pattern.Term, shape tensor.Shape, rows, cols dimGroup, m [][]complex128) {
	assign := make(map[string]int64, len(term.Indices))
	for r := int64(0); r < rows.volume(); r++ {
		rows.decompose(r, assign)
		for c := int64(0); c < cols.volume(); c++ {
			cols.decompose(c, assign)
			buf[flatIndex(term, shape, assign)] = m[r][c]
		}
	}
}

// decomposeSVD implements DECOMPOSE_SVD2/DECOMPOSE_SVD3: T is reshaped to
// a matrix by the labels its first factor term (U) and last factor term
// (V) each share with T, factored by svdJacobi, and scattered back. For
// the two-factor form V absorbs the singular values so T = U*V
// reconstructs T exactly; for the three-factor form S carries them.
func (c *CPU) decomposeSVD(o *op.Operation, threeFactor bool) error {
	p := o.Pattern
	t := o.Operands[0]
	tBuf, err := c.buffer(t)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, t.Shape(), extents); err != nil {
		return err
	}

	uTerm, vTerm := p.Inputs[0], p.Inputs[len(p.Inputs)-1]
	rowLabels := pattern.Open(uTerm, p.Output)
	colLabels := pattern.Open(vTerm, p.Output)
	rows := newDimGroup(rowLabels, extents)
	cols := newDimGroup(colLabels, extents)

	m := buildMatrix(tBuf, p.Output, t.Shape(), extents, rows, cols)
	u, s, vh := svdJacobi(m)
	k := int64(len(s))

	uBondLabel := soleComplement(uTerm.Indices, rowLabels)
	vBondLabel := soleComplement(vTerm.Indices, colLabels)

	uTensor := o.Operands[1]
	uBuf, err := c.buffer(uTensor)
	if err != nil {
		return err
	}
	uAssign := make(map[string]int64, len(uTerm.Indices))
	for r := int64(0); r < rows.volume(); r++ {
		rows.decompose(r, uAssign)
		for j := int64(0); j < k; j++ {
			uAssign[uBondLabel] = j
			uBuf[flatIndex(uTerm, uTensor.Shape(), uAssign)] = u[r][j]
		}
	}

	if threeFactor {
		sTensor := o.Operands[2]
		sTerm := p.Inputs[1]
		sBuf, err := c.buffer(sTensor)
		if err != nil {
			return err
		}
		sAssign := make(map[string]int64, 1)
		for j := int64(0); j < k; j++ {
			sAssign[sTerm.Indices[0]] = j
			sBuf[flatIndex(sTerm, sTensor.Shape(), sAssign)] = complex(s[j], 0)
		}
	}

	vTensor := o.Operands[len(o.Operands)-1]
	vBuf, err := c.buffer(vTensor)
	if err != nil {
		return err
	}
	vAssign := make(map[string]int64, len(vTerm.Indices))
	for col := int64(0); col < cols.volume(); col++ {
		cols.decompose(col, vAssign)
		for j := int64(0); j < k; j++ {
			vAssign[vBondLabel] = j
			val := vh[j][col]
			if !threeFactor {
				val *= complex(s[j], 0)
			}
			vBuf[flatIndex(vTerm, vTensor.Shape(), vAssign)] = val
		}
	}
	return nil
}

// orthogonalizeMGS implements ORTHOGONALIZE_MGS: T's isometry-0 group
// names the dimensions expected to come out row-orthonormal; the
// remaining dimensions form the column space the rows are orthonormal
// over. Rows are orthonormalized in place by modified Gram-Schmidt.
func (c *CPU) orthogonalizeMGS(o *op.Operation) error {
	p := o.Pattern
	t, q := o.Operands[0], o.Operands[1]
	tBuf, err := c.buffer(t)
	if err != nil {
		return err
	}
	qBuf, err := c.buffer(q)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, t.Shape(), extents); err != nil {
		return err
	}

	rowLabels, colLabels := splitByIsometry(p.Output, t)
	rows := newDimGroup(rowLabels, extents)
	cols := newDimGroup(colLabels, extents)
	if rows.volume() > cols.volume() {
		return fmt.Errorf("cpu: cannot orthogonalize %q: isometry group of size %d exceeds remaining dimension of size %d", t.Name(), rows.volume(), cols.volume())
	}

	m := buildMatrix(tBuf, p.Output, t.Shape(), extents, rows, cols)
	mgsOrthonormalize(m)
	scatterMatrix(qBuf, p.Inputs[0], q.Shape(), rows, cols, m)
	return nil
}

// orthogonalizeSVD implements ORTHOGONALIZE_SVD: the same row/column
// split as orthogonalizeMGS, but the orthonormal rows are produced as
// the polar factor Q = U*V^H of T's SVD rather than by Gram-Schmidt.
func (c *CPU) orthogonalizeSVD(o *op.Operation) error {
	p := o.Pattern
	t, q := o.Operands[0], o.Operands[1]
	tBuf, err := c.buffer(t)
	if err != nil {
		return err
	}
	qBuf, err := c.buffer(q)
	if err != nil {
		return err
	}
	extents := map[string]int64{}
	if err := labelExtents(p.Output, t.Shape(), extents); err != nil {
		return err
	}

	rowLabels, colLabels := splitByIsometry(p.Output, t)
	rows := newDimGroup(rowLabels, extents)
	cols := newDimGroup(colLabels, extents)
	if rows.volume() > cols.volume() {
		return fmt.Errorf("cpu: cannot orthogonalize %q: isometry group of size %d exceeds remaining dimension of size %d", t.Name(), rows.volume(), cols.volume())
	}

	m := buildMatrix(tBuf, p.Output, t.Shape(), extents, rows, cols)
	u, _, vh := svdJacobi(m)
	polar := matMul(u, vh)
	scatterMatrix(qBuf, p.Inputs[0], q.Shape(), rows, cols, polar)
	return nil
}

// mgsOrthonormalize orthonormalizes m's rows in place by modified
// Gram-Schmidt, under the inner product sum_c conj(a[c])*b[c].
func mgsOrthonormalize(m [][]complex128) {
	for i := range m {
		for k := 0; k < i; k++ {
			proj := complexDot(m[k], m[i])
			for c := range m[i] {
				m[i][c] -= proj * m[k][c]
			}
		}
		n := vectorNorm(m[i])
		if n > 1e-14 {
			inv := complex(1/n, 0)
			for c := range m[i] {
				m[i][c] *= inv
			}
		}
	}
}

func complexDot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return sum
}

func vectorNorm(a []complex128) float64 {
	var sum float64
	for _, v := range a {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

func matMul(a, b [][]complex128) [][]complex128 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inner, cols := len(b), len(b[0])
	out := make([][]complex128, len(a))
	for i := range out {
		out[i] = make([]complex128, cols)
		for k := 0; k < inner; k++ {
			if a[i][k] == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

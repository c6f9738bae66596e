// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnet-go/tnet/op"
	"github.com/tnet-go/tnet/space"
	"github.com/tnet-go/tnet/tensor"
)

// TestDecomposeSVD3ReconstructsOriginalWithSingularValues exercises the
// three-factor form (DECOMPOSE_SVD3), which TestDecomposeSVD2ReconstructsOriginal
// does not cover: here the singular values land in their own tensor S
// rather than being absorbed into V, so T(a,b) = U(a,k)*S(k)*V(k,b) must
// hold with S read back explicitly. On a 2x2 identity input the Gram
// matrix svdJacobi works from is already diagonal (off-diagonal column
// inner products are zero), so every sweep finds gamma ~ 0 and performs
// no rotations: u and vh come back as the identity and s as [1,1],
// exactly as in the two-factor test.
func TestDecomposeSVD3ReconstructsOriginalWithSingularValues(t *testing.T) {
	reg := space.New()
	c := New()
	tt := mustTensor(t, reg, "T", tensor.Shape{2, 2})
	u := mustTensor(t, reg, "U", tensor.Shape{2, 2})
	s := mustTensor(t, reg, "S", tensor.Shape{2})
	v := mustTensor(t, reg, "V", tensor.Shape{2, 2})
	c.Seed(tt, []complex128{1, 0, 0, 1})
	submit(t, c, mustOp(t, op.CREATE, []*tensor.Tensor{u}, nil, ""))
	submit(t, c, mustOp(t, op.CREATE, []*tensor.Tensor{s}, nil, ""))
	submit(t, c, mustOp(t, op.CREATE, []*tensor.Tensor{v}, nil, ""))

	o := mustOp(t, op.DECOMPOSE_SVD3, []*tensor.Tensor{tt, u, s, v}, nil, "T(a,b)=U(a,k)*S(k)*V(k,b)")
	submit(t, c, o)

	uBuf, ok := c.Fetch(u)
	require.True(t, ok, "U has no backend storage after DECOMPOSE_SVD3")
	sBuf, ok := c.Fetch(s)
	require.True(t, ok, "S has no backend storage after DECOMPOSE_SVD3")
	vBuf, ok := c.Fetch(v)
	require.True(t, ok, "V has no backend storage after DECOMPOSE_SVD3")

	wantS := []complex128{1, 1}
	for i, w := range wantS {
		assert.InDeltaf(t, real(w), real(sBuf[i]), 1e-9, "s[%d]", i)
	}

	recon := make([]complex128, 4)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			var sum complex128
			for k := 0; k < 2; k++ {
				sum += uBuf[a*2+k] * sBuf[k] * vBuf[k*2+b]
			}
			recon[a*2+b] = sum
		}
	}
	want := []complex128{1, 0, 0, 1}
	for i, w := range want {
		assert.LessOrEqualf(t, cmplx.Abs(recon[i]-w), 1e-9, "reconstructed[%d] = %v, want %v", i, recon[i], w)
	}
}

// TestOrthogonalizeSVDProducesRowOrthonormalResult mirrors
// TestOrthogonalizeMGSProducesRowOrthonormalResult but through the polar
// decomposition path (Q = U*Vh of T's SVD) rather than Gram-Schmidt:
// T = diag(2,3), so svdJacobi sees an already-diagonal Gram matrix with
// a different scale on each axis, and this checks the polar factor
// comes back as the identity regardless of T's own scale.
func TestOrthogonalizeSVDProducesRowOrthonormalResult(t *testing.T) {
	reg := space.New()
	c := New()
	tt := mustTensor(t, reg, "T", tensor.Shape{2, 2}, tensor.IsometryGroup{0})
	q := mustTensor(t, reg, "Q", tensor.Shape{2, 2}, tensor.IsometryGroup{0})
	c.Seed(tt, []complex128{2, 0, 0, 3}) // diagonal, unequal scale on each row
	submit(t, c, mustOp(t, op.CREATE, []*tensor.Tensor{q}, nil, ""))

	o := mustOp(t, op.ORTHOGONALIZE_SVD, []*tensor.Tensor{tt, q}, nil, "T(r,c)=Q(r,c)")
	submit(t, c, o)

	buf, _ := c.Fetch(q)
	want := []complex128{1, 0, 0, 1} // polar factor of a positive diagonal matrix is the identity
	for i, w := range want {
		if cmplx.Abs(buf[i]-w) > 1e-9 {
			t.Errorf("q[%d] = %v, want %v", i, buf[i], w)
		}
	}
}

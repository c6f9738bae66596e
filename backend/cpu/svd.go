// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"math"
	"math/cmplx"
)

// svdJacobi computes a full SVD of the rows x cols matrix a via one-sided
// complex Jacobi rotations (Hestenes' method): a = u * diag(s) * vh, with
// u (rows x k), s (length k), vh (k x cols), k = min(rows, cols).
func svdJacobi(a [][]complex128) (u [][]complex128, s []float64, vh [][]complex128) {
	rows := len(a)
	if rows == 0 {
		return nil, nil, nil
	}
	cols := len(a[0])
	transposed := rows < cols
	if transposed {
		a = transposeMatrix(a)
		rows, cols = cols, rows
	}

	m := make([][]complex128, rows)
	for i := range a {
		m[i] = append([]complex128(nil), a[i]...)
	}
	v := identityMatrix(cols)

	const maxSweeps = 60
	const tol = 1e-12
	for sweep := 0; sweep < maxSweeps; sweep++ {
		offDiag := 0.0
		for p := 0; p < cols-1; p++ {
			for q := p + 1; q < cols; q++ {
				var alpha, beta float64
				var gamma complex128
				for i := 0; i < rows; i++ {
					alpha += real(m[i][p])*real(m[i][p]) + imag(m[i][p])*imag(m[i][p])
					beta += real(m[i][q])*real(m[i][q]) + imag(m[i][q])*imag(m[i][q])
					gamma += cmplx.Conj(m[i][p]) * m[i][q]
				}
				absGamma := cmplx.Abs(gamma)
				offDiag += absGamma * absGamma
				if absGamma < tol {
					continue
				}
				phase := gamma / complex(absGamma, 0)
				for i := 0; i < rows; i++ {
					m[i][q] /= phase
				}
				for i := 0; i < cols; i++ {
					v[i][q] /= phase
				}
				zeta := 0.0
				if alpha != beta {
					zeta = (beta - alpha) / (2 * absGamma)
				}
				t := sign(zeta) / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				cch := 1 / math.Sqrt(1+t*t)
				sch := cch * t
				for i := 0; i < rows; i++ {
					mp, mq := m[i][p], m[i][q]
					m[i][p] = complex(cch, 0)*mp - complex(sch, 0)*mq
					m[i][q] = complex(sch, 0)*mp + complex(cch, 0)*mq
				}
				for i := 0; i < cols; i++ {
					vp, vq := v[i][p], v[i][q]
					v[i][p] = complex(cch, 0)*vp - complex(sch, 0)*vq
					v[i][q] = complex(sch, 0)*vp + complex(cch, 0)*vq
				}
			}
		}
		if offDiag < tol*tol {
			break
		}
	}

	k := cols
	s = make([]float64, k)
	u = make([][]complex128, rows)
	for i := range u {
		u[i] = make([]complex128, k)
	}
	for j := 0; j < k; j++ {
		var norm float64
		for i := 0; i < rows; i++ {
			norm += real(m[i][j])*real(m[i][j]) + imag(m[i][j])*imag(m[i][j])
		}
		norm = math.Sqrt(norm)
		s[j] = norm
		if norm > tol {
			for i := 0; i < rows; i++ {
				u[i][j] = m[i][j] / complex(norm, 0)
			}
		}
	}
	vh = make([][]complex128, k)
	for j := 0; j < k; j++ {
		vh[j] = make([]complex128, cols)
		for i := 0; i < cols; i++ {
			vh[j][i] = cmplx.Conj(v[i][j])
		}
	}
	if transposed {
		// a_orig = transpose(a) = transpose(vh) * diag(s) * transpose(u).
		return transposeMatrix(vh), s, transposeMatrix(u)
	}
	return u, s, vh
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func identityMatrix(n int) [][]complex128 {
	m := make([][]complex128, n)
	for i := range m {
		m[i] = make([]complex128, n)
		m[i][i] = 1
	}
	return m
}

func transposeMatrix(a [][]complex128) [][]complex128 {
	rows := len(a)
	if rows == 0 {
		return nil
	}
	cols := len(a[0])
	out := make([][]complex128, cols)
	for j := range out {
		out[j] = make([]complex128, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package reconstruct

import (
	"math"
	"testing"

	"github.com/tnet-go/tnet/backend/cpu"
	"github.com/tnet-go/tnet/engine"
	"github.com/tnet-go/tnet/network"
	"github.com/tnet-go/tnet/space"
	"github.com/tnet-go/tnet/tensor"
)

func vectorTensor(t *testing.T, reg *tensor.Registry, name string, dim int64) *tensor.Tensor {
	t.Helper()
	sig := tensor.Signature{{Space: space.AnonymousSpace}}
	tn, err := tensor.New(reg, name, tensor.Shape{dim}, sig, tensor.Complex64)
	if err != nil {
		t.Fatal(err)
	}
	return tn
}

// TestReconstructResidualMonotonicallyDecreasesAndConverges covers
// spec.md §8 scenario 6: a rank-1 approximant ϕ=A(i) gradient-descending
// against a fixed target ψ=B(i) is exactly the least-squares problem
// R(a) = ||a-b||², whose gradient step a ← a - η(a-b) is a contraction
// toward b for any learning rate in (0,2) — the residual (and every
// component of the error) shrinks by the same factor every iteration,
// so this case gives a hand-traceable, strictly monotonic sequence to
// assert against.
func TestReconstructResidualMonotonicallyDecreasesAndConverges(t *testing.T) {
	reg := space.New()
	target := vectorTensor(t, reg, "psi", 3)
	approx := vectorTensor(t, reg, "phi", 3)

	psiNet := network.NewNetwork("psi-net", nil)
	if _, err := psiNet.PlaceTensor(target, []network.LegRef{{Open: true}}, false, false); err != nil {
		t.Fatal(err)
	}
	phiNet := network.NewNetwork("phi-net", nil)
	if _, err := phiNet.PlaceTensor(approx, []network.LegRef{{Open: true}}, true, true); err != nil {
		t.Fatal(err)
	}

	targetExp := &network.Expansion{Components: []network.Component{{Network: psiNet, Coeff: 1}}}
	approxExp := &network.Expansion{IsBra: true, Components: []network.Component{{Network: phiNet, Coeff: 1}}}

	eng := engine.New()
	backendCPU := eng.ActiveBackend().(*cpu.CPU)
	targetValues := []complex128{complex(1, 0), complex(0, 1), complex(-1, 0.5)}
	backendCPU.Seed(target, targetValues)
	backendCPU.Seed(approx, []complex128{complex(0.1, 0), complex(0.2, 0), complex(-0.3, 0)})

	r, err := New(eng, targetExp, approxExp, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	r.ResetMaxIterations(2000)
	r.ResetLearnRate(0.3)

	residuals, err := r.Reconstruct()
	if err != nil {
		t.Fatal(err)
	}
	if len(residuals) < 2 {
		t.Fatalf("len(residuals) = %d, want at least 2 gradient-descent steps to compare", len(residuals))
	}
	for i := 1; i < len(residuals); i++ {
		if residuals[i] > residuals[i-1]+1e-9 {
			t.Errorf("residual increased at step %d: %v -> %v", i, residuals[i-1], residuals[i])
		}
	}

	resNorm, fidelity := r.Residual()
	if resNorm > 1e-6 {
		t.Errorf("final residual = %v, want near 0 (approximant should have converged onto the target)", resNorm)
	}

	var wantNormSq float64
	for _, v := range targetValues {
		wantNormSq += real(v)*real(v) + imag(v)*imag(v)
	}
	wantFidelity := wantNormSq * wantNormSq // |<target|target>|^2, since the converged approximant equals the target
	if math.Abs(fidelity-wantFidelity) > 1e-4 {
		t.Errorf("final fidelity = %v, want %v", fidelity, wantFidelity)
	}
}

// TestNewRejectsMismatchedBraKetTags covers reconstructor.cpp's
// constructor validation: the target must be a ket and the approximant
// a bra, regardless of what shapes they carry.
func TestNewRejectsMismatchedBraKetTags(t *testing.T) {
	reg := space.New()
	a := vectorTensor(t, reg, "a", 2)
	n := network.NewNetwork("n", nil)
	if _, err := n.PlaceTensor(a, []network.LegRef{{Open: true}}, false, true); err != nil {
		t.Fatal(err)
	}
	ket := &network.Expansion{Components: []network.Component{{Network: n, Coeff: 1}}}
	bra := &network.Expansion{IsBra: true, Components: []network.Component{{Network: n, Coeff: 1}}}

	eng := engine.New()
	if _, err := New(eng, bra, bra, 1e-6); err == nil {
		t.Error("New with a bra-tagged target expansion should have failed")
	}
	if _, err := New(eng, ket, ket, 1e-6); err == nil {
		t.Error("New with a ket-tagged approximant expansion should have failed")
	}
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package engine

import (
	"math/cmplx"
	"testing"

	"github.com/tnet-go/tnet/backend/cpu"
	"github.com/tnet-go/tnet/network"
	"github.com/tnet-go/tnet/space"
	"github.com/tnet-go/tnet/tensor"
)

func anonSig(rank int) tensor.Signature {
	sig := make(tensor.Signature, rank)
	for i := range sig {
		sig[i] = tensor.DimSig{Space: space.AnonymousSpace}
	}
	return sig
}

func mustTensor(t *testing.T, reg *tensor.Registry, name string, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	tn, err := tensor.New(reg, name, shape, anonSig(len(shape)), tensor.Complex64)
	if err != nil {
		t.Fatal(err)
	}
	return tn
}

func allOnes(n int64) []complex128 {
	buf := make([]complex128, n)
	for i := range buf {
		buf[i] = 1
	}
	return buf
}

// closureNetwork builds the seven-tensor scalar closure of spec.md §8's
// "3-site MPS closure" scenario: three MPS sites T0,T1,T2 and a
// four-index Hamiltonian-like tensor H0 contracted against a three-site
// boundary/environment chain S0,S1,S2, all bond and physical extents 2.
// Every one of its nine distinct labels (a,b,c,d,e,f,g,h,i) appears in
// exactly two terms, so BuildFromPattern fully contracts to a scalar.
func closureNetwork(t *testing.T) (*network.Network, map[string]*tensor.Tensor) {
	t.Helper()
	reg := space.New()
	bindings := map[string]*tensor.Tensor{
		"T0": mustTensor(t, reg, "T0", tensor.Shape{2, 2}),
		"T1": mustTensor(t, reg, "T1", tensor.Shape{2, 2, 2}),
		"T2": mustTensor(t, reg, "T2", tensor.Shape{2, 2}),
		"H0": mustTensor(t, reg, "H0", tensor.Shape{2, 2, 2, 2}),
		"S0": mustTensor(t, reg, "S0", tensor.Shape{2, 2}),
		"S1": mustTensor(t, reg, "S1", tensor.Shape{2, 2, 2}),
		"S2": mustTensor(t, reg, "S2", tensor.Shape{2, 2}),
	}
	n, err := network.BuildFromPattern("Z", "Z()=T0(a,b)*T1(b,c,d)*T2(d,e)*H0(a,c,f,g)*S0(f,h)*S1(h,g,i)*S2(i,e)", bindings)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Finalize(); err != nil {
		t.Fatal(err)
	}
	return n, bindings
}

// TestThreeSiteMPSClosureEvaluatesToExpectedUnitContraction covers
// spec.md §8's first end-to-end scenario: contracting an all-ones,
// all-extent-2 closure over nine distinct summed indices sums 2^9
// equally-weighted terms, so the scalar result must be exactly 512
// regardless of which contraction order the engine's default planner
// strategy picks (full scalar contraction is associative and
// commutative).
func TestThreeSiteMPSClosureEvaluatesToExpectedUnitContraction(t *testing.T) {
	n, bindings := closureNetwork(t)
	eng := New()
	backendCPU := eng.ActiveBackend().(*cpu.CPU)
	for _, tn := range bindings {
		backendCPU.Seed(tn, allOnes(tn.Shape().Volume()))
	}

	result, err := eng.Execute(n)
	if err != nil {
		t.Fatal(err)
	}
	buf, ok := backendCPU.Fetch(result)
	if !ok {
		t.Fatal("result tensor has no backend storage after Execute")
	}
	if len(buf) != 1 {
		t.Fatalf("len(buf) = %d, want 1 (scalar result)", len(buf))
	}
	want := complex(512, 0)
	if cmplx.Abs(buf[0]-want) > 1e-9 {
		t.Errorf("Z = %v, want %v", buf[0], want)
	}
}

// TestDeleteTensorPromotesContractedLegsToOutput covers spec.md §8's
// "environment extraction" scenario: deleting the connection for S1
// (bound to h, g, i) from the otherwise-scalar closure above must
// promote all three of its legs to new open output legs, since none of
// them were already open. BuildFromPattern numbers connections ti+1 in
// term-appearance order (T0=1,T1=2,T2=3,H0=4,S0=5,S1=6,S2=7), so S1 is
// connection id 6.
func TestDeleteTensorPromotesContractedLegsToOutput(t *testing.T) {
	n, _ := closureNetwork(t)

	const s1ConnID = 6
	s1, ok := n.Connection(s1ConnID)
	if !ok {
		t.Fatalf("connection %d not found", s1ConnID)
	}
	if s1.Tensor.Name() != "S1" {
		t.Fatalf("connection %d is %q, want S1", s1ConnID, s1.Tensor.Name())
	}

	if err := n.DeleteTensor(s1ConnID); err != nil {
		t.Fatal(err)
	}
	if len(n.Output().Legs) != 3 {
		t.Fatalf("output has %d open legs after deleting a 3-leg tensor from a scalar network, want 3", len(n.Output().Legs))
	}
	for _, leg := range n.Output().Legs {
		if leg.PeerID == s1ConnID {
			t.Errorf("output leg still references deleted connection %d", s1ConnID)
		}
	}
}

package pattern

import "testing"

func TestParseContractPattern(t *testing.T) {
	p, err := Parse("D(a,b,c)+=L(a,k)*R(k,b,c)")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Accumulate {
		t.Error("expected accumulate (+=) pattern")
	}
	if p.Output.Name != "D" || len(p.Output.Indices) != 3 {
		t.Errorf("output = %+v", p.Output)
	}
	if len(p.Inputs) != 2 || p.Inputs[0].Name != "L" || p.Inputs[1].Name != "R" {
		t.Errorf("inputs = %+v", p.Inputs)
	}
	shared := Contracted(p.Inputs[0], p.Inputs[1])
	if len(shared) != 1 || shared[0] != "k" {
		t.Errorf("contracted = %v, want [k]", shared)
	}
}

func TestParseConjugateMarker(t *testing.T) {
	p, err := Parse("Z()=A(i,k)+*B(k,i)")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Inputs[0].Conjugate {
		t.Error("expected A to be marked conjugate")
	}
	if p.Inputs[1].Conjugate {
		t.Error("B should not be conjugate")
	}
}

func TestParseMissingEquals(t *testing.T) {
	if _, err := Parse("D(a,b) L(a,k)*R(k,b)"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTracedIndex(t *testing.T) {
	p, err := Parse("D(a)+=L(a,k)*R(b)")
	if err != nil {
		t.Fatal(err)
	}
	traced := Traced(p.Inputs[0], p.Inputs[1], p.Output)
	if len(traced) != 1 || traced[0] != "k" {
		t.Errorf("traced = %v, want [k]", traced)
	}
}

package op

import (
	"testing"

	"github.com/tnet-go/tnet/internal/space"
	"github.com/tnet-go/tnet/internal/tensor"
)

func anonSig(rank int) tensor.Signature {
	sig := make(tensor.Signature, rank)
	for i := range sig {
		sig[i] = tensor.DimSig{Space: space.AnonymousSpace}
	}
	return sig
}

func mustTensor(t *testing.T, reg *space.Registry, name string, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	tn, err := tensor.New(reg, name, shape, anonSig(len(shape)), tensor.Real64)
	if err != nil {
		t.Fatal(err)
	}
	return tn
}

func TestNewRejectsWrongArity(t *testing.T) {
	reg := space.New()
	a := mustTensor(t, reg, "A", tensor.Shape{2})
	if _, err := New(CREATE, []*tensor.Tensor{a, a}, nil, ""); err == nil {
		t.Fatal("expected arity error for CREATE with 2 operands")
	}
}

func TestNewRequiresPatternForContract(t *testing.T) {
	reg := space.New()
	d := mustTensor(t, reg, "D", tensor.Shape{2, 3})
	l := mustTensor(t, reg, "L", tensor.Shape{2, 4})
	r := mustTensor(t, reg, "R", tensor.Shape{4, 3})
	if _, err := New(CONTRACT, []*tensor.Tensor{d, l, r}, []complex128{1, 1}, ""); err == nil {
		t.Fatal("expected error: CONTRACT requires an index pattern")
	}
	o, err := New(CONTRACT, []*tensor.Tensor{d, l, r}, []complex128{1, 1}, "D(a,b)+=L(a,k)*R(k,b)")
	if err != nil {
		t.Fatal(err)
	}
	if !o.IsSet() {
		t.Fatal("expected fully bound operation")
	}
}

func TestWritesAndReadSets(t *testing.T) {
	reg := space.New()
	d := mustTensor(t, reg, "D", tensor.Shape{2, 3})
	l := mustTensor(t, reg, "L", tensor.Shape{2, 4})
	r := mustTensor(t, reg, "R", tensor.Shape{4, 3})
	o, err := New(CONTRACT, []*tensor.Tensor{d, l, r}, []complex128{1, 1}, "D(a,b)+=L(a,k)*R(k,b)")
	if err != nil {
		t.Fatal(err)
	}
	if !o.Writes(0) {
		t.Error("CONTRACT must write operand 0")
	}
	if o.Writes(1) || o.Writes(2) {
		t.Error("CONTRACT must not write operands 1 or 2")
	}
	reads := o.ReadSet()
	if len(reads) != 3 {
		t.Fatalf("expected 3 reads (accumulator + 2 inputs), got %d", len(reads))
	}
	writes := o.WriteSet()
	if len(writes) != 1 || writes[0] != d {
		t.Fatalf("expected write set [D], got %v", writes)
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	reg := space.New()
	a := mustTensor(t, reg, "A", tensor.Shape{2})
	o1, err := New(CREATE, []*tensor.Tensor{a}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	o2, err := New(CREATE, []*tensor.Tensor{a}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if o2.ID() <= o1.ID() {
		t.Errorf("expected o2.ID() > o1.ID(), got %d <= %d", o2.ID(), o1.ID())
	}
}

func TestDecomposeDefaultsToSelf(t *testing.T) {
	reg := space.New()
	a := mustTensor(t, reg, "A", tensor.Shape{2})
	o, err := New(CREATE, []*tensor.Tensor{a}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := o.Decompose(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != o {
		t.Fatal("expected Decompose with no hook installed to return the operation unchanged")
	}
}

func TestCloneGetsFreshID(t *testing.T) {
	reg := space.New()
	a := mustTensor(t, reg, "A", tensor.Shape{2})
	o, err := New(CREATE, []*tensor.Tensor{a}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	clone := o.Clone()
	if clone.ID() == o.ID() {
		t.Error("clone should receive a fresh id")
	}
	if clone.Opcode != o.Opcode {
		t.Error("clone should preserve the opcode")
	}
}

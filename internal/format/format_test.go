package format

import (
	"bytes"
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

func TestDenseRoundTrip(t *testing.T) {
	reg := space.New()
	shape := tensor.Shape{2, 3}
	orig, err := tensor.New(reg, "A", shape, anonSig(2), tensor.Complex64)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]complex128, 6)
	for i := range data {
		data[i] = complex(float64(i), float64(-i))
	}

	var buf bytes.Buffer
	if err := WriteDense(&buf, orig, data); err != nil {
		t.Fatal(err)
	}

	got, gotData, err := ReadDense(&buf, space.New())
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "A" || !got.Shape().Equal(shape) {
		t.Fatalf("got name=%q shape=%v, want A %v", got.Name(), got.Shape(), shape)
	}
	if len(gotData) != len(data) {
		t.Fatalf("got %d elements, want %d", len(gotData), len(data))
	}
	for i := range data {
		if gotData[i] != data[i] {
			t.Errorf("element %d = %v, want %v", i, gotData[i], data[i])
		}
	}
}

func TestWriteDenseRejectsElementCountMismatch(t *testing.T) {
	reg := space.New()
	orig, err := tensor.New(reg, "A", tensor.Shape{2, 2}, anonSig(2), tensor.Complex64)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteDense(&buf, orig, []complex128{1}); err == nil {
		t.Fatal("expected element-count validation error")
	}
}

func TestListRoundTripIsBlockSparse(t *testing.T) {
	reg := space.New()
	shape := tensor.Shape{4, 4}
	orig, err := tensor.New(reg, "B", shape, anonSig(2), tensor.Complex64)
	if err != nil {
		t.Fatal(err)
	}
	entries := []Entry{
		{Value: complex(1, 0), Indices: []int64{0, 0}},
		{Value: complex(0, 2), Indices: []int64{3, 1}},
	}
	var buf bytes.Buffer
	if err := WriteList(&buf, orig, entries); err != nil {
		t.Fatal(err)
	}

	got, gotEntries, err := ReadList(&buf, space.New())
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "B" {
		t.Fatalf("got name %q, want B", got.Name())
	}
	if len(gotEntries) != 2 {
		t.Fatalf("got %d entries, want 2", len(gotEntries))
	}
	for i, e := range entries {
		if gotEntries[i].Value != e.Value {
			t.Errorf("entry %d value = %v, want %v", i, gotEntries[i].Value, e.Value)
		}
		for j := range e.Indices {
			if gotEntries[i].Indices[j] != e.Indices[j] {
				t.Errorf("entry %d index %d = %d, want %d", i, j, gotEntries[i].Indices[j], e.Indices[j])
			}
		}
	}
}

func TestReadRejectsWrongStorageMode(t *testing.T) {
	reg := space.New()
	orig, err := tensor.New(reg, "C", tensor.Shape{2}, anonSig(1), tensor.Complex64)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteDense(&buf, orig, []complex128{1, 1}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadList(&buf, space.New()); err == nil {
		t.Fatal("expected storage-mode mismatch error reading a dense file as list")
	}
}

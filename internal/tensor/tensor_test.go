package tensor

import (
	"testing"

	"github.com/tnet-go/tnet/internal/space"
)

func TestNewTensorValidatesShape(t *testing.T) {
	reg := space.New()
	sig := Signature{{Space: space.AnonymousSpace, Subspace: 0}, {Space: space.AnonymousSpace, Subspace: 0}}
	if _, err := New(reg, "T", Shape{2, 0}, sig, Real64); err == nil {
		t.Fatal("expected error for non-positive extent")
	}
}

func TestIsometryGroupsMustBeDisjoint(t *testing.T) {
	reg := space.New()
	sig := Signature{{Space: space.AnonymousSpace}, {Space: space.AnonymousSpace}, {Space: space.AnonymousSpace}}
	_, err := New(reg, "U", Shape{2, 2, 2}, sig, Real64, IsometryGroup{0, 1}, IsometryGroup{1, 2})
	if err == nil {
		t.Fatal("expected disjointness error")
	}
}

func TestHashStableForSameIdentity(t *testing.T) {
	reg := space.New()
	sig := Signature{{Space: space.AnonymousSpace}, {Space: space.AnonymousSpace}}
	a, err := New(reg, "T", Shape{2, 3}, sig, Real64)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(reg, "T", Shape{2, 3}, sig, Real64)
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash() != b.Hash() {
		t.Error("two tensors with identical (name, shape, signature) must hash equal")
	}

	c, _ := New(reg, "T", Shape{2, 4}, Signature{{Space: space.AnonymousSpace}, {Space: space.AnonymousSpace}}, Real64)
	if a.Hash() == c.Hash() {
		t.Error("tensors with different shapes must not collide")
	}
}

func TestRetainAndReleaseAdjustRefCount(t *testing.T) {
	reg := space.New()
	spID, _ := reg.CreateSpace("spin", 2)
	sig := Signature{{Space: spID, Subspace: space.FullSubspace}}
	tn, err := New(reg, "T", Shape{2}, sig, Real64)
	if err != nil {
		t.Fatal(err)
	}
	tn.Retain()
	if got := tn.RefCount(); got != 2 {
		t.Fatalf("refcount = %d, want 2", got)
	}
	tn.Release(reg)
	if got := tn.RefCount(); got != 1 {
		t.Fatalf("refcount after one release = %d, want 1", got)
	}
}

package document

import (
	"testing"

	"github.com/cabewaldrop/docdb/internal/objectid"
)

func TestDocumentSetGet(t *testing.T) {
	doc := New()
	doc.Set("name", String("Alice"))
	doc.Set("age", I32(28))

	v, ok := doc.Get("name")
	if !ok {
		t.Fatal("expected name field to be present")
	}
	if s, _ := v.AsString(); s != "Alice" {
		t.Errorf("expected Alice, got %s", s)
	}

	if doc.Len() != 2 {
		t.Errorf("expected 2 fields, got %d", doc.Len())
	}
}

func TestDocumentKeysInSortedOrder(t *testing.T) {
	doc := New()
	doc.Set("z", I32(1))
	doc.Set("a", I32(2))
	doc.Set("m", I32(3))

	keys := doc.Keys()
	want := []string{"a", "m", "z"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("expected key order %v, got %v", want, keys)
			break
		}
	}
}

func TestDocumentRemove(t *testing.T) {
	doc := New()
	doc.Set("a", I32(1))
	if !doc.Remove("a") {
		t.Error("expected Remove to report true for existing field")
	}
	if doc.Remove("a") {
		t.Error("expected Remove to report false for missing field")
	}
	if _, ok := doc.Get("a"); ok {
		t.Error("expected field to be gone after Remove")
	}
}

func TestDocumentGetPath(t *testing.T) {
	doc := New()
	addr := NewObject()
	addr.Set("city", String("Springfield"))
	doc.Set("address", Obj(addr))

	v, ok := doc.GetPath("address.city")
	if !ok {
		t.Fatal("expected address.city to resolve")
	}
	if s, _ := v.AsString(); s != "Springfield" {
		t.Errorf("expected Springfield, got %s", s)
	}

	if _, ok := doc.GetPath("address.zip"); ok {
		t.Error("expected missing nested field to fail")
	}
	if _, ok := doc.GetPath("missing.nested"); ok {
		t.Error("expected missing top-level field to fail")
	}
}

func TestDocumentEnsureIDRepairsZero(t *testing.T) {
	doc := WithID(objectid.ObjectId{})
	if !doc.ID().IsZero() {
		t.Fatal("expected zero id before EnsureID")
	}
	id := doc.EnsureID()
	if id.IsZero() {
		t.Error("expected EnsureID to repair a zero id")
	}
	if doc.ID() != id {
		t.Error("expected ID() to reflect the repaired id")
	}
}

func TestDocumentEqualIgnoresID(t *testing.T) {
	a := New()
	a.Set("x", I32(1))
	b := WithID(objectid.New())
	b.Set("x", I32(1))

	if !a.Equal(b) {
		t.Error("expected documents with equal field data but different ids to be Equal")
	}
}

func TestDocumentClone(t *testing.T) {
	a := New()
	a.Set("x", I32(1))
	b := a.Clone()
	b.Set("y", I32(2))

	if a.Len() != 1 {
		t.Errorf("expected original to be unaffected by clone mutation, got %d fields", a.Len())
	}
}

func TestValueEqualArraysAndObjects(t *testing.T) {
	a := Array([]Value{I32(1), String("x")})
	b := Array([]Value{I32(1), String("x")})
	c := Array([]Value{I32(1), String("y")})

	if !a.Equal(b) {
		t.Error("expected equal arrays to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing arrays to compare unequal")
	}
}

func TestCoercionHelpers(t *testing.T) {
	if b, ok := String("true").CoerceBool(); !ok || !b {
		t.Error("expected \"true\" to coerce to bool true")
	}
	if n, ok := String("42").CoerceI64(); !ok || n != 42 {
		t.Error("expected \"42\" to coerce to int64 42")
	}
	if f, ok := I32(7).CoerceF64(); !ok || f != 7.0 {
		t.Error("expected I32(7) to coerce to float64 7.0")
	}
}

package storage

import (
	"bytes"
	"testing"
)

// TestInsertReusesTombstonedSlot checks that insert first tries to reuse a
// tombstoned or empty slot, only growing the directory when none is free.
func TestInsertReusesTombstonedSlot(t *testing.T) {
	page := NewPage(0, PageTypeData)
	if err := InitializePage(page); err != nil {
		t.Fatalf("InitializePage: %v", err)
	}

	slot0, err := InsertDocument(page, []byte("first"))
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}
	slot1, err := InsertDocument(page, []byte("second"))
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}
	if slot1 != slot0+1 {
		t.Fatalf("expected sequential slot ids, got %d then %d", slot0, slot1)
	}

	if err := DeleteDocument(page, slot1); err != nil {
		t.Fatalf("delete slot %d: %v", slot1, err)
	}

	reused, err := InsertDocument(page, []byte("third"))
	if err != nil {
		t.Fatalf("insert third: %v", err)
	}
	if reused != slot1 {
		t.Errorf("expected insert to reuse tombstoned slot %d, got new slot %d", slot1, reused)
	}

	header := readSlotDirHeader(page)
	if header.slotCount != 2 {
		t.Errorf("expected slot directory to stay at 2 slots after reuse, got %d", header.slotCount)
	}
}

// TestUpdateDocumentReclaimsTailSlotSpace checks that growing the document
// stored in the last slot of the heap can reuse that slot's own freed bytes
// as part of the contiguous space available for the relocated copy, rather
// than only ever appending past the old heap end.
func TestUpdateDocumentReclaimsTailSlotSpace(t *testing.T) {
	page := NewPage(0, PageTypeData)
	if err := InitializePage(page); err != nil {
		t.Fatalf("InitializePage: %v", err)
	}

	slotA, err := InsertDocument(page, bytes.Repeat([]byte("a"), 3000))
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	slotB, err := InsertDocument(page, bytes.Repeat([]byte("b"), 3000))
	if err != nil {
		t.Fatalf("insert b: %v", err)
	}

	grown := bytes.Repeat([]byte("c"), 5000)
	fits, err := UpdateDocument(page, slotB, grown)
	if err != nil {
		t.Fatalf("update slotB: %v", err)
	}
	if !fits {
		t.Fatalf("expected growing the tail slot to fit by reclaiming its own freed space")
	}

	got, err := GetDocument(page, slotB)
	if err != nil {
		t.Fatalf("get slotB: %v", err)
	}
	if !bytes.Equal(got, grown) {
		t.Errorf("slotB content mismatch after update")
	}

	// slotA must still read back untouched.
	gotA, err := GetDocument(page, slotA)
	if err != nil {
		t.Fatalf("get slotA: %v", err)
	}
	if !bytes.Equal(gotA, bytes.Repeat([]byte("a"), 3000)) {
		t.Errorf("slotA content was corrupted by the update to slotB")
	}
}

// TestUpdateDocumentSignalsNoFitWithoutError checks that growing a
// non-tail slot past the page's remaining contiguous space returns the
// non-error "doesn't fit" result the engine relies on to fall through to
// cross-page relocation, instead of surfacing ErrInsufficientSpace.
func TestUpdateDocumentSignalsNoFitWithoutError(t *testing.T) {
	page := NewPage(0, PageTypeData)
	if err := InitializePage(page); err != nil {
		t.Fatalf("InitializePage: %v", err)
	}

	slotA, err := InsertDocument(page, bytes.Repeat([]byte("a"), 3000))
	if err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if _, err := InsertDocument(page, bytes.Repeat([]byte("b"), 3000)); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	fits, err := UpdateDocument(page, slotA, bytes.Repeat([]byte("z"), 6000))
	if err != nil {
		t.Fatalf("expected a non-error no-fit result, got error: %v", err)
	}
	if fits {
		t.Fatalf("expected growing the non-tail slot past the page's free space to not fit")
	}

	// The original content must be left untouched when the update declines.
	got, err := GetDocument(page, slotA)
	if err != nil {
		t.Fatalf("get slotA: %v", err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte("a"), 3000)) {
		t.Errorf("slotA content was modified despite the update not fitting")
	}
}

package engine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cabewaldrop/docdb/internal/document"
	"github.com/cabewaldrop/docdb/internal/storage"
)

func openTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	e, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func personDoc(name string, age int32, active bool) *document.Document {
	d := document.New()
	d.Set("name", document.String(name))
	d.Set("age", document.I32(age))
	d.Set("active", document.Bool(active))
	return d
}

func TestInsertGetRoundTrip(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4))

	doc := personDoc("Alice", 28, true)
	id, err := e.Insert(doc)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id.PageID != 0 || id.SlotID != 0 {
		t.Fatalf("expected DocumentID (0,0), got %s", id)
	}

	got, err := e.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if name, _ := got.Get("name"); fieldString(name) != "Alice" {
		t.Errorf("unexpected name: %v", name)
	}
	if age, _ := got.Get("age"); fieldI32(age) != 28 {
		t.Errorf("unexpected age: %v", age)
	}
	if active, _ := got.Get("active"); fieldBool(active) != true {
		t.Errorf("unexpected active: %v", active)
	}
}

func fieldString(v document.Value) string { s, _ := v.AsString(); return s }
func fieldI32(v document.Value) int32     { n, _ := v.AsI32(); return n }
func fieldBool(v document.Value) bool     { b, _ := v.AsBool(); return b }

func TestSlotReuseAfterDelete(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4))

	d1, err := e.Insert(personDoc("d1", 1, true))
	if err != nil {
		t.Fatalf("Insert d1: %v", err)
	}
	d2, err := e.Insert(personDoc("d2", 2, true))
	if err != nil {
		t.Fatalf("Insert d2: %v", err)
	}
	d3, err := e.Insert(personDoc("d3", 3, true))
	if err != nil {
		t.Fatalf("Insert d3: %v", err)
	}
	if d1.SlotID != 0 || d2.SlotID != 1 || d3.SlotID != 2 {
		t.Fatalf("unexpected initial slots: %s %s %s", d1, d2, d3)
	}

	if err := e.Delete(d2); err != nil {
		t.Fatalf("Delete d2: %v", err)
	}

	d4, err := e.Insert(personDoc("d4", 4, true))
	if err != nil {
		t.Fatalf("Insert d4: %v", err)
	}
	if d4.SlotID != 1 || d4.PageID != d1.PageID {
		t.Fatalf("expected d4 to reuse slot 1 on page %d, got %s", d1.PageID, d4)
	}

	count, _, err := e.PageStats(d1.PageID)
	if err != nil {
		t.Fatalf("PageStats: %v", err)
	}
	if count != 3 {
		t.Errorf("expected document_count=3, got %d", count)
	}

	if got, err := e.Get(d1); err != nil || fieldString(mustGet(got, "name")) != "d1" {
		t.Errorf("Get(d1) mismatch: %v %v", got, err)
	}
	if got, err := e.Get(d3); err != nil || fieldString(mustGet(got, "name")) != "d3" {
		t.Errorf("Get(d3) mismatch: %v %v", got, err)
	}
	if got, err := e.Get(d4); err != nil || fieldString(mustGet(got, "name")) != "d4" {
		t.Errorf("Get(d4) mismatch: %v %v", got, err)
	}
}

func mustGet(d *document.Document, name string) document.Value {
	v, _ := d.Get(name)
	return v
}

func TestUpdateInPlaceThenRelocatesCrossPage(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4))

	base := document.New()
	base.Set("blob", document.Binary(make([]byte, 100)))
	id, err := e.Insert(base)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id.PageID != 0 || id.SlotID != 0 {
		t.Fatalf("expected (0,0), got %s", id)
	}

	small := document.New()
	small.Set("blob", document.Binary(make([]byte, 50)))
	id2, err := e.Update(id, small)
	if err != nil {
		t.Fatalf("Update (smaller, in-place): %v", err)
	}
	if id2 != id {
		t.Fatalf("expected same id for in-place update, got %s vs %s", id2, id)
	}

	mid := document.New()
	mid.Set("blob", document.Binary(make([]byte, 4000)))
	id3, err := e.Update(id, mid)
	if err != nil {
		t.Fatalf("Update (same-page relocation): %v", err)
	}
	if id3.PageID != id.PageID || id3.SlotID != id.SlotID {
		t.Fatalf("expected same page+slot for same-page relocation, got %s vs %s", id3, id)
	}

	// Consume most of the page's remaining free space with filler
	// documents so the next update genuinely cannot relocate in place,
	// forcing the engine onto the cross-page path.
	for i := 0; i < 3; i++ {
		filler := document.New()
		filler.Set("blob", document.Binary(make([]byte, 1280)))
		if _, err := e.Insert(filler); err != nil {
			t.Fatalf("Insert filler %d: %v", i, err)
		}
	}

	huge := document.New()
	huge.Set("blob", document.Binary(make([]byte, 8100)))
	id4, err := e.Update(id3, huge)
	if err != nil {
		t.Fatalf("Update (cross-page relocation): %v", err)
	}
	if id4.PageID == id3.PageID {
		t.Fatalf("expected cross-page relocation to land on a different page, got same page %d", id4.PageID)
	}

	if _, err := e.Get(id3); !errors.Is(err, storage.ErrDocumentDeleted) {
		t.Errorf("expected old slot to be tombstoned, got %v", err)
	}
	got, err := e.Get(id4)
	if err != nil {
		t.Fatalf("Get(id4): %v", err)
	}
	blob, _ := mustGet(got, "blob").AsBinary()
	if len(blob) != 8100 {
		t.Errorf("expected relocated blob of 8100 bytes, got %d", len(blob))
	}
}

func TestCompactionPreservesLiveDataAndTombstones(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4))

	var ids []DocumentID
	for i := 0; i < 10; i++ {
		d := document.New()
		d.Set("blob", document.Binary(make([]byte, 200)))
		id, err := e.Insert(d)
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	for _, i := range []int{0, 3, 6} {
		if err := e.Delete(ids[i]); err != nil {
			t.Fatalf("Delete %d: %v", i, err)
		}
	}

	if err := e.Compact(ids[0].PageID); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	count, _, err := e.PageStats(ids[0].PageID)
	if err != nil {
		t.Fatalf("PageStats: %v", err)
	}
	if count != 7 {
		t.Errorf("expected document_count=7 after compaction, got %d", count)
	}

	for _, i := range []int{1, 2, 4, 5, 7, 8, 9} {
		if _, err := e.Get(ids[i]); err != nil {
			t.Errorf("Get(%d) after compaction: %v", i, err)
		}
	}
	for _, i := range []int{0, 3, 6} {
		if _, err := e.Get(ids[i]); !errors.Is(err, storage.ErrDocumentDeleted) {
			t.Errorf("Get(%d) after compaction should still be tombstoned, got %v", i, err)
		}
	}
}

func TestInsertRejectsOversizedDocument(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4))

	d := document.New()
	d.Set("blob", document.Binary(make([]byte, 20000)))
	if _, err := e.Insert(d); !errors.Is(err, ErrDocumentExceedsPageBudget) {
		t.Fatalf("expected ErrDocumentExceedsPageBudget, got %v", err)
	}
}

func TestValidationRejectsReservedFieldName(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4))

	d := document.New()
	d.Set("_version", document.I32(1))
	if _, err := e.Insert(d); err == nil {
		t.Fatal("expected validation error for reserved field name")
	}
}

func TestSkipValidationBypassesValidator(t *testing.T) {
	e := openTestEngine(t, WithBufferCapacity(4), WithSkipValidation(true))

	d := document.New()
	d.Set("_version", document.I32(1))
	if _, err := e.Insert(d); err != nil {
		t.Fatalf("expected skip-validation insert to succeed, got %v", err)
	}
}

func TestReopenPersistsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	e, err := Open(path, WithBufferCapacity(2))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := e.Insert(personDoc("persisted", 42, false))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(path, WithBufferCapacity(2))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	got, err := e2.Get(id)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if fieldString(mustGet(got, "name")) != "persisted" {
		t.Errorf("unexpected value after reopen: %v", got)
	}
}

func TestCompactionWithArchiveSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	e, err := Open(path, WithBufferCapacity(4), WithCompression(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	var ids []DocumentID
	for i := 0; i < 20; i++ {
		d := document.New()
		d.Set("blob", document.Binary(make([]byte, 300)))
		id, err := e.Insert(d)
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	// Delete three quarters of the documents on page 0 so compaction
	// shrinks the heap's high-water mark by more than half, triggering the
	// archive snapshot.
	for _, id := range ids {
		if id.PageID != 0 {
			continue
		}
		if id.SlotID%4 == 0 {
			continue
		}
		e.Delete(id)
	}
	if err := e.Compact(0); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	raw, err := e.RestoreSnapshot(0)
	if err != nil {
		t.Fatalf("RestoreSnapshot: %v", err)
	}
	if len(raw) != storage.PageSize {
		t.Errorf("expected restored snapshot of %d bytes, got %d", storage.PageSize, len(raw))
	}
}

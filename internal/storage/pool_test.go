package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestFileWithPages(t *testing.T, n int) (*DatabaseFile, []uint64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.db")
	df, err := CreateDatabaseFile(path)
	if err != nil {
		t.Fatalf("CreateDatabaseFile: %v", err)
	}
	t.Cleanup(func() { df.Close() })

	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		id, err := df.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage: %v", err)
		}
		page := NewPage(id, PageTypeData)
		if err := df.WritePage(id, page); err != nil {
			t.Fatalf("WritePage: %v", err)
		}
		ids[i] = id
	}
	return df, ids
}

func TestNewPoolRejectsZeroCapacity(t *testing.T) {
	if _, err := NewPool(0); !errors.Is(err, ErrResizeToZero) {
		t.Fatalf("expected ErrResizeToZero, got %v", err)
	}
}

func TestPinCachesAndMovesToFront(t *testing.T) {
	df, ids := newTestFileWithPages(t, 3)
	pool, err := NewPool(4)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	for _, id := range ids {
		if _, err := pool.Pin(id, df); err != nil {
			t.Fatalf("Pin(%d): %v", id, err)
		}
		pool.Unpin(id, false)
	}
	if !pool.Contains(ids[0]) || !pool.Contains(ids[2]) {
		t.Fatal("expected all pinned-then-unpinned pages resident")
	}
	if err := pool.ValidateConsistency(); err != nil {
		t.Fatalf("ValidateConsistency: %v", err)
	}
}

func TestUnpinDirtyMarksDirty(t *testing.T) {
	df, ids := newTestFileWithPages(t, 1)
	pool, _ := NewPool(2)

	if _, err := pool.Pin(ids[0], df); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	pool.Unpin(ids[0], true)
	if !pool.IsDirty(ids[0]) {
		t.Fatal("expected page to be dirty after Unpin(dirty=true)")
	}
	if pool.IsPinned(ids[0]) {
		t.Fatal("expected pin count to reach zero after single Unpin")
	}
}

func TestLRUEvictionWritesBackDirtyPage(t *testing.T) {
	df, ids := newTestFileWithPages(t, 3)
	pool, err := NewPool(2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	page0, err := pool.Pin(ids[0], df)
	if err != nil {
		t.Fatalf("Pin(0): %v", err)
	}
	copy(page0.Content(), []byte("page-zero-data"))
	page0.RecomputeChecksum()
	pool.Unpin(ids[0], true)

	if _, err := pool.Pin(ids[1], df); err != nil {
		t.Fatalf("Pin(1): %v", err)
	}
	pool.Unpin(ids[1], false)

	// ids[0] is now LRU (tail); pinning a third page must evict it.
	if _, err := pool.Pin(ids[2], df); err != nil {
		t.Fatalf("Pin(2): %v", err)
	}
	pool.Unpin(ids[2], false)

	if pool.Contains(ids[0]) {
		t.Fatal("expected page 0 to have been evicted")
	}

	readBack, err := df.ReadPage(ids[0])
	if err != nil {
		t.Fatalf("ReadPage after eviction: %v", err)
	}
	if string(readBack.Content()[:14]) != "page-zero-data" {
		t.Errorf("eviction did not write back dirty content, got %q", readBack.Content()[:14])
	}
}

func TestEvictionSkipsPinnedPages(t *testing.T) {
	df, ids := newTestFileWithPages(t, 3)
	pool, _ := NewPool(2)

	if _, err := pool.Pin(ids[0], df); err != nil {
		t.Fatalf("Pin(0): %v", err)
	}
	// ids[0] stays pinned.
	if _, err := pool.Pin(ids[1], df); err != nil {
		t.Fatalf("Pin(1): %v", err)
	}
	pool.Unpin(ids[1], false)

	if _, err := pool.Pin(ids[2], df); err != nil {
		t.Fatalf("Pin(2) should evict unpinned page 1: %v", err)
	}
	pool.Unpin(ids[2], false)

	if !pool.Contains(ids[0]) {
		t.Fatal("pinned page 0 must not be evicted")
	}
	if pool.Contains(ids[1]) {
		t.Fatal("expected unpinned page 1 to be evicted instead")
	}
}

func TestNoEvictionCandidateWhenAllPinned(t *testing.T) {
	df, ids := newTestFileWithPages(t, 3)
	pool, _ := NewPool(2)

	if _, err := pool.Pin(ids[0], df); err != nil {
		t.Fatalf("Pin(0): %v", err)
	}
	if _, err := pool.Pin(ids[1], df); err != nil {
		t.Fatalf("Pin(1): %v", err)
	}

	if _, err := pool.Pin(ids[2], df); !errors.Is(err, ErrNoEvictionCandidate) {
		t.Fatalf("expected ErrNoEvictionCandidate, got %v", err)
	}
}

func TestForceEvictRefusesPinned(t *testing.T) {
	df, ids := newTestFileWithPages(t, 1)
	pool, _ := NewPool(2)

	if _, err := pool.Pin(ids[0], df); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if err := pool.ForceEvict(ids[0], df); !errors.Is(err, ErrCannotEvictPinned) {
		t.Fatalf("expected ErrCannotEvictPinned, got %v", err)
	}
	pool.Unpin(ids[0], false)
	if err := pool.ForceEvict(ids[0], df); err != nil {
		t.Fatalf("ForceEvict after unpin: %v", err)
	}
	if pool.Contains(ids[0]) {
		t.Fatal("expected page to be evicted")
	}
}

func TestResizeRejectsZero(t *testing.T) {
	pool, _ := NewPool(2)
	df, _ := newTestFileWithPages(t, 0)
	if err := pool.Resize(0, df); !errors.Is(err, ErrResizeToZero) {
		t.Fatalf("expected ErrResizeToZero, got %v", err)
	}
}

func TestResizeShrinksByEvicting(t *testing.T) {
	df, ids := newTestFileWithPages(t, 3)
	pool, _ := NewPool(3)

	for _, id := range ids {
		if _, err := pool.Pin(id, df); err != nil {
			t.Fatalf("Pin(%d): %v", id, err)
		}
		pool.Unpin(id, false)
	}

	if err := pool.Resize(1, df); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if pool.Stats().Resident != 1 {
		t.Fatalf("expected 1 resident page after shrink, got %d", pool.Stats().Resident)
	}
	if err := pool.ValidateConsistency(); err != nil {
		t.Fatalf("ValidateConsistency: %v", err)
	}
}

func TestClearFlushesAndResetsState(t *testing.T) {
	df, ids := newTestFileWithPages(t, 2)
	pool, _ := NewPool(2)

	page, err := pool.Pin(ids[0], df)
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	copy(page.Content(), []byte("clear-me"))
	page.RecomputeChecksum()
	pool.Unpin(ids[0], true)

	if err := pool.Clear(df); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if pool.Stats().Resident != 0 {
		t.Fatal("expected empty pool after Clear")
	}

	readBack, err := df.ReadPage(ids[0])
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(readBack.Content()[:8]) != "clear-me" {
		t.Error("Clear did not flush dirty page before resetting")
	}
}

func TestPageIDMismatchDoesNotCorruptResidency(t *testing.T) {
	df, ids := newTestFileWithPages(t, 1)
	pool, _ := NewPool(2)

	// Corrupt the on-disk page_id field so it no longer matches its slot.
	page, err := df.ReadPage(ids[0])
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	page.setPageID(999)
	page.RecomputeChecksum()
	if err := df.WritePage(ids[0], page); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	if _, err := pool.Pin(ids[0], df); err == nil {
		t.Fatal("expected page id mismatch error")
	}
	if pool.Contains(ids[0]) {
		t.Fatal("residency must not be modified on a failed load")
	}
}

func TestValidateConsistencyDetectsNothingOnEmptyPool(t *testing.T) {
	pool, _ := NewPool(4)
	if err := pool.ValidateConsistency(); err != nil {
		t.Fatalf("ValidateConsistency on empty pool: %v", err)
	}
}

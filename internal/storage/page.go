// Package storage implements the on-disk page format, slotted-page layout
// manager, buffer pool, and database file abstraction.
package storage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// PageSize is the fixed size of every page on disk.
const PageSize = 8192

// HeaderSize is the fixed size of a page's header: page_id (u64), page_type
// (u8) plus one byte of alignment padding, free_space (u16), checksum
// (u32), giving a 16-byte header with the checksum at byte offset 12.
const HeaderSize = 16

const checksumOffset = 12

// PageType identifies the kind of content a page stores.
type PageType uint8

const (
	PageTypeData PageType = iota
	PageTypeIndex
	PageTypeMetadata
	PageTypeFree
)

func (t PageType) String() string {
	switch t {
	case PageTypeData:
		return "Data"
	case PageTypeIndex:
		return "Index"
	case PageTypeMetadata:
		return "Metadata"
	case PageTypeFree:
		return "Free"
	default:
		return fmt.Sprintf("PageType(%d)", uint8(t))
	}
}

// ErrInvalidChecksum indicates a page read from disk failed its checksum
// check, meaning its content is corrupt or was truncated.
var ErrInvalidChecksum = fmt.Errorf("storage: invalid page checksum")

// Page is a fixed-size block of bytes as it is stored on disk: a 16-byte
// header followed by PageSize-HeaderSize bytes of content. The slotted-page
// functions in layout.go interpret the content area as a slotted page.
type Page struct {
	data [PageSize]byte
}

// NewPage allocates a fresh in-memory page of the given id and type, with
// free_space initialized to the whole content area and a valid checksum.
func NewPage(pageID uint64, pageType PageType) *Page {
	p := &Page{}
	p.setPageID(pageID)
	p.data[8] = byte(pageType)
	p.setFreeSpaceRaw(uint16(PageSize - HeaderSize))
	p.updateChecksum()
	return p
}

// PageFromBytes wraps a raw PageSize-byte buffer as a Page, verifying its
// checksum. data must be exactly PageSize bytes.
func PageFromBytes(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("storage: page data must be %d bytes, got %d", PageSize, len(data))
	}
	p := &Page{}
	copy(p.data[:], data)
	if !p.VerifyChecksum() {
		return nil, ErrInvalidChecksum
	}
	return p, nil
}

// ToBytes returns the page's raw on-disk representation.
func (p *Page) ToBytes() []byte {
	out := make([]byte, PageSize)
	copy(out, p.data[:])
	return out
}

// PageID returns the page's identifier.
func (p *Page) PageID() uint64 {
	return binary.LittleEndian.Uint64(p.data[0:8])
}

func (p *Page) setPageID(id uint64) {
	binary.LittleEndian.PutUint64(p.data[0:8], id)
}

// Type returns the page's type.
func (p *Page) Type() PageType {
	return PageType(p.data[8])
}

// SetType updates the page's type and recomputes its checksum.
func (p *Page) SetType(t PageType) {
	p.data[8] = byte(t)
	p.updateChecksum()
}

// FreeSpace returns the free_space field from the header.
func (p *Page) FreeSpace() uint16 {
	return binary.LittleEndian.Uint16(p.data[10:12])
}

func (p *Page) setFreeSpaceRaw(v uint16) {
	binary.LittleEndian.PutUint16(p.data[10:12], v)
}

// SetFreeSpace updates the free_space counter and recomputes the checksum.
// Callers mutating the content area must call this afterward.
func (p *Page) SetFreeSpace(v uint16) {
	p.setFreeSpaceRaw(v)
	p.updateChecksum()
}

// Checksum returns the stored checksum field.
func (p *Page) Checksum() uint32 {
	return binary.LittleEndian.Uint32(p.data[checksumOffset : checksumOffset+4])
}

// Content returns a mutable slice over the page's content area, i.e.
// everything after the header. Mutating it requires a subsequent call to
// updateChecksum (via SetFreeSpace or RecomputeChecksum) to keep the stored
// checksum consistent.
func (p *Page) Content() []byte {
	return p.data[HeaderSize:]
}

// RecomputeChecksum recalculates and stores the checksum. Call this after any
// direct mutation of Content() that isn't already followed by SetFreeSpace.
func (p *Page) RecomputeChecksum() {
	p.updateChecksum()
}

func (p *Page) calculateChecksum() uint32 {
	h := crc32.NewIEEE()
	h.Write(p.data[:checksumOffset])
	h.Write([]byte{0, 0, 0, 0})
	h.Write(p.data[checksumOffset+4 : HeaderSize])
	h.Write(p.data[HeaderSize:])
	return h.Sum32()
}

func (p *Page) updateChecksum() {
	binary.LittleEndian.PutUint32(p.data[checksumOffset:checksumOffset+4], p.calculateChecksum())
}

// VerifyChecksum recomputes the checksum and compares it against the stored
// value, detecting disk corruption or truncation.
func (p *Page) VerifyChecksum() bool {
	return p.calculateChecksum() == p.Checksum()
}

// DebugString renders a short human-readable summary of the page header, for
// use in CLI stats output and debugging.
func (p *Page) DebugString() string {
	return fmt.Sprintf("Page{id=%d type=%s free_space=%d checksum=0x%08x}",
		p.PageID(), p.Type(), p.FreeSpace(), p.Checksum())
}

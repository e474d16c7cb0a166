package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// DatabaseVersion is the on-disk format version this build writes and
// expects to read.
const DatabaseVersion uint8 = 1

// ErrOutOfRangePage is returned by ReadPage/WritePage when pageID is not
// less than the file's current page count.
var ErrOutOfRangePage = errors.New("storage: page id out of range")

// fileHeaderSize is the fixed size of the serialized FileHeader: 1 byte
// version + 8 byte page_count + 64 bytes reserved metadata.
const fileHeaderSize = 1 + 8 + 64

// fileHeader is the database file's leading metadata block, using a fixed,
// explicit byte layout rather than a general-purpose serializer.
type fileHeader struct {
	version   uint8
	pageCount uint64
	metadata  [64]byte
}

func (h *fileHeader) encode() []byte {
	buf := make([]byte, fileHeaderSize)
	buf[0] = h.version
	binary.LittleEndian.PutUint64(buf[1:9], h.pageCount)
	copy(buf[9:73], h.metadata[:])
	return buf
}

func (h *fileHeader) decode(buf []byte) {
	h.version = buf[0]
	h.pageCount = binary.LittleEndian.Uint64(buf[1:9])
	copy(h.metadata[:], buf[9:73])
}

// ErrIncompatibleVersion is returned by Open when the file's on-disk version
// doesn't match DatabaseVersion.
type ErrIncompatibleVersion struct {
	Expected, Found uint8
}

func (e *ErrIncompatibleVersion) Error() string {
	return fmt.Sprintf("storage: incompatible database version: expected %d, found %d", e.Expected, e.Found)
}

// DatabaseFile is the page-addressable backing file for the storage engine.
// It holds an exclusive advisory lock for as long as it is open, preventing
// two processes from touching the same file concurrently.
type DatabaseFile struct {
	file   *os.File
	header fileHeader
}

// CreateDatabaseFile creates a brand-new database file at path, failing if
// one already exists there. It locks the file exclusively and writes an
// initial zero-page header.
func CreateDatabaseFile(path string) (*DatabaseFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: create database file: %w", err)
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return nil, err
	}

	df := &DatabaseFile{
		file:   f,
		header: fileHeader{version: DatabaseVersion},
	}
	if err := df.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if err := df.Sync(); err != nil {
		f.Close()
		return nil, err
	}
	return df, nil
}

// OpenDatabaseFile opens an existing database file, acquiring an exclusive
// lock and validating its header version.
func OpenDatabaseFile(path string) (*DatabaseFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open database file: %w", err)
	}
	if err := lockExclusive(f); err != nil {
		f.Close()
		return nil, err
	}

	df := &DatabaseFile{file: f}
	if err := df.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if df.header.version != DatabaseVersion {
		f.Close()
		return nil, &ErrIncompatibleVersion{Expected: DatabaseVersion, Found: df.header.version}
	}
	return df, nil
}

func lockExclusive(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return fmt.Errorf("storage: acquire exclusive lock on %s: %w", f.Name(), err)
	}
	return nil
}

func (df *DatabaseFile) readHeader() error {
	buf := make([]byte, fileHeaderSize)
	if _, err := df.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("storage: read file header: %w", err)
	}
	df.header.decode(buf)
	return nil
}

func (df *DatabaseFile) writeHeader() error {
	if _, err := df.file.WriteAt(df.header.encode(), 0); err != nil {
		return fmt.Errorf("storage: write file header: %w", err)
	}
	return nil
}

func (df *DatabaseFile) pageOffset(pageID uint64) int64 {
	return int64(fileHeaderSize) + int64(pageID)*PageSize
}

// ReadPage reads and checksum-verifies the page at pageID.
func (df *DatabaseFile) ReadPage(pageID uint64) (*Page, error) {
	if pageID >= df.header.pageCount {
		return nil, fmt.Errorf("storage: read page %d (have %d pages): %w", pageID, df.header.pageCount, ErrOutOfRangePage)
	}
	buf := make([]byte, PageSize)
	if _, err := df.file.ReadAt(buf, df.pageOffset(pageID)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("storage: read page %d: %w", pageID, err)
	}
	return PageFromBytes(buf)
}

// WritePage writes page at pageID, which must already be allocated.
func (df *DatabaseFile) WritePage(pageID uint64, page *Page) error {
	if pageID >= df.header.pageCount {
		return fmt.Errorf("storage: write page %d (have %d pages): %w", pageID, df.header.pageCount, ErrOutOfRangePage)
	}
	if _, err := df.file.WriteAt(page.ToBytes(), df.pageOffset(pageID)); err != nil {
		return fmt.Errorf("storage: write page %d: %w", pageID, err)
	}
	return nil
}

// AllocatePage grows the file by one page and returns its new id.
func (df *DatabaseFile) AllocatePage() (uint64, error) {
	newPageID := df.header.pageCount
	newPageCount := newPageID + 1
	newFileSize := int64(fileHeaderSize) + int64(newPageCount)*PageSize

	if err := df.file.Truncate(newFileSize); err != nil {
		return 0, fmt.Errorf("storage: extend file for new page: %w", err)
	}
	df.header.pageCount = newPageCount
	if err := df.writeHeader(); err != nil {
		return 0, err
	}
	return newPageID, nil
}

// Sync flushes the file to stable storage.
func (df *DatabaseFile) Sync() error {
	if err := df.file.Sync(); err != nil {
		return fmt.Errorf("storage: sync database file: %w", err)
	}
	return nil
}

// PageCount returns the number of pages currently allocated.
func (df *DatabaseFile) PageCount() uint64 {
	return df.header.pageCount
}

// Close releases the file's lock and closes the underlying descriptor.
func (df *DatabaseFile) Close() error {
	return df.file.Close()
}

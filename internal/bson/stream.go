package bson

import (
	"encoding/binary"
	"io"

	"github.com/cabewaldrop/docdb/internal/document"
)

// StreamDecoder lazily decodes a sequence of length-prefixed documents from
// an io.Reader, reading only one document's worth of bytes at a time rather
// than buffering the whole stream.
type StreamDecoder struct {
	r io.Reader
}

// NewStreamDecoder wraps r for sequential document decoding.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	return &StreamDecoder{r: r}
}

// Next decodes the next document, returning io.EOF once the stream is
// exhausted cleanly (i.e. at a document boundary).
func (d *StreamDecoder) Next() (*document.Document, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, eof(4, 0)
		}
		return nil, err
	}
	total := int(binary.LittleEndian.Uint32(lenBuf[:]))
	if total > MaxDocumentSize {
		return nil, tooLarge(total, MaxDocumentSize)
	}
	if total < 5 {
		return nil, invalidLength(5, total)
	}

	buf := make([]byte, total)
	copy(buf[0:4], lenBuf[:])
	if _, err := io.ReadFull(d.r, buf[4:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, eof(total-4, 0)
		}
		return nil, err
	}
	return DecodeDocument(buf)
}

// DecodeDocuments decodes every document from r until EOF, returning them in
// order. Intended for smaller streams (e.g. export files); large data sets
// should use StreamDecoder directly to avoid buffering every result.
func DecodeDocuments(r io.Reader) ([]*document.Document, error) {
	dec := NewStreamDecoder(r)
	var docs []*document.Document
	for {
		doc, err := dec.Next()
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
}

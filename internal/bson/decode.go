package bson

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/cabewaldrop/docdb/internal/document"
	"github.com/cabewaldrop/docdb/internal/objectid"
)

// msToTime converts a millisecond Unix timestamp to UTC, the inverse of
// EncodeDocument's t.UnixMilli().
func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// minTimestampMillis/maxTimestampMillis bound the millisecond timestamps
// this codec accepts to the range representable as a civil date (roughly
// +/-100,000,000 days from the epoch), matching what ms-resolution
// timestamps can meaningfully express.
const (
	minTimestampMillis = -8_640_000_000_000_000
	maxTimestampMillis = 8_640_000_000_000_000
)

type fieldEntry struct {
	name string
	val  document.Value
}

// DecodeDocument parses a complete, length-prefixed document from data. The
// returned Document's id is always freshly generated: the wire format never
// carries the id field (see EncodeDocument).
func DecodeDocument(data []byte) (*document.Document, error) {
	return DecodeDocumentProgress(data, nil)
}

// DecodeDocumentProgress is DecodeDocument with an optional progress callback.
func DecodeDocumentProgress(data []byte, progress ProgressFunc) (*document.Document, error) {
	if len(data) < 4 {
		return nil, eof(4, len(data))
	}
	total := int(binary.LittleEndian.Uint32(data[0:4]))
	if total > MaxDocumentSize {
		return nil, tooLarge(total, MaxDocumentSize)
	}
	if total != len(data) {
		return nil, invalidLength(total, len(data))
	}
	if total < 5 {
		return nil, invalidLength(5, total)
	}

	entries, err := decodeFields(data[4:total], progress)
	if err != nil {
		return nil, err
	}

	doc := document.New()
	for _, e := range entries {
		doc.Set(e.name, e.val)
	}
	return doc, nil
}

// DecodePartialDocument decodes only the fields whose names appear in names,
// but still parses over every field to advance the cursor correctly.
func DecodePartialDocument(data []byte, names []string) (*document.Document, error) {
	if len(data) < 4 {
		return nil, eof(4, len(data))
	}
	total := int(binary.LittleEndian.Uint32(data[0:4]))
	if total > MaxDocumentSize {
		return nil, tooLarge(total, MaxDocumentSize)
	}
	if total != len(data) {
		return nil, invalidLength(total, len(data))
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	entries, err := decodeFields(data[4:total], nil)
	if err != nil {
		return nil, err
	}

	doc := document.New()
	for _, e := range entries {
		if _, ok := wanted[e.name]; ok {
			doc.Set(e.name, e.val)
		}
	}
	return doc, nil
}

// GetFieldNames returns the top-level field names of an encoded document
// without constructing a Document.
func GetFieldNames(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, eof(4, len(data))
	}
	total := int(binary.LittleEndian.Uint32(data[0:4]))
	if total > MaxDocumentSize {
		return nil, tooLarge(total, MaxDocumentSize)
	}
	if total != len(data) {
		return nil, invalidLength(total, len(data))
	}

	entries, err := decodeFields(data[4:total], nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

// decodeFields parses a sequence of tag/cstring-key/value fields terminated
// by a single 0x00 byte. buf must include that trailing terminator.
func decodeFields(buf []byte, progress ProgressFunc) ([]fieldEntry, error) {
	pos := 0
	var entries []fieldEntry
	for pos < len(buf) {
		tag := buf[pos]
		if tag == 0x00 {
			return entries, nil
		}
		pos++

		name, n, err := readCString(buf[pos:])
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, ErrMalformedFieldName
		}
		pos += n

		val, consumed, err := decodeValue(tag, buf[pos:])
		if err != nil {
			return nil, err
		}
		pos += consumed

		entries = append(entries, fieldEntry{name, val})
		if progress != nil {
			progress(pos)
		}
	}
	return nil, eof(1, 0)
}

// readCString reads a NUL-terminated UTF-8 string, capped at 1024 bytes of
// scan before giving up with ErrMissingNullTerminator.
func readCString(b []byte) (string, int, error) {
	for i := 0; i < len(b); i++ {
		if i > maxCStringLength {
			return "", 0, ErrMissingNullTerminator
		}
		if b[i] == 0 {
			s := string(b[:i])
			if !utf8.ValidString(s) {
				return "", 0, ErrInvalidString
			}
			return s, i + 1, nil
		}
	}
	return "", 0, eof(1, len(b))
}

func decodeValue(tag byte, b []byte) (document.Value, int, error) {
	switch tag {
	case TagNull:
		return document.Null(), 0, nil
	case TagBool:
		if len(b) < 1 {
			return document.Value{}, 0, eof(1, len(b))
		}
		return document.Bool(b[0] != 0), 1, nil
	case TagInt32:
		if len(b) < 4 {
			return document.Value{}, 0, eof(4, len(b))
		}
		v := int32(binary.LittleEndian.Uint32(b[:4]))
		return document.I32(v), 4, nil
	case TagInt64:
		if len(b) < 8 {
			return document.Value{}, 0, eof(8, len(b))
		}
		v := int64(binary.LittleEndian.Uint64(b[:8]))
		return document.I64(v), 8, nil
	case TagDouble:
		if len(b) < 8 {
			return document.Value{}, 0, eof(8, len(b))
		}
		bits := binary.LittleEndian.Uint64(b[:8])
		return document.F64(math.Float64frombits(bits)), 8, nil
	case TagDateTime:
		if len(b) < 8 {
			return document.Value{}, 0, eof(8, len(b))
		}
		ms := int64(binary.LittleEndian.Uint64(b[:8]))
		if ms < minTimestampMillis || ms > maxTimestampMillis {
			return document.Value{}, 0, invalidTimestamp(ms)
		}
		return document.DateTime(msToTime(ms)), 8, nil
	case TagString:
		if len(b) < 4 {
			return document.Value{}, 0, eof(4, len(b))
		}
		n := int32(binary.LittleEndian.Uint32(b[:4]))
		if n <= 0 {
			return document.Value{}, 0, invalidStringLength(n)
		}
		need := 4 + int(n)
		if len(b) < need {
			return document.Value{}, 0, eof(need, len(b))
		}
		payload := b[4 : 4+int(n)-1]
		if b[4+int(n)-1] != 0x00 {
			return document.Value{}, 0, ErrInvalidString
		}
		if !utf8.Valid(payload) {
			return document.Value{}, 0, ErrInvalidString
		}
		return document.String(string(payload)), need, nil
	case TagObjectId:
		if len(b) < objectid.Size {
			return document.Value{}, 0, eof(objectid.Size, len(b))
		}
		id, err := objectid.FromBytes(b[:objectid.Size])
		if err != nil {
			return document.Value{}, 0, err
		}
		return document.OID(id), objectid.Size, nil
	case TagBinary:
		if len(b) < 4 {
			return document.Value{}, 0, eof(4, len(b))
		}
		n := int32(binary.LittleEndian.Uint32(b[:4]))
		if n < 0 {
			return document.Value{}, 0, invalidBinaryLength(n)
		}
		need := 4 + 1 + int(n)
		if len(b) < need {
			return document.Value{}, 0, eof(need, len(b))
		}
		payload := b[5:need]
		return document.Binary(payload), need, nil
	case TagObject, TagArray:
		if len(b) < 4 {
			return document.Value{}, 0, eof(4, len(b))
		}
		l := int32(binary.LittleEndian.Uint32(b[:4]))
		if l < 4 {
			return document.Value{}, 0, invalidEmbedded(l)
		}
		if len(b) < int(l) {
			return document.Value{}, 0, eof(int(l), len(b))
		}
		nested := b[4:l]
		entries, err := decodeFields(nested, nil)
		if err != nil {
			return document.Value{}, 0, err
		}
		if tag == TagObject {
			obj := document.NewObject()
			for _, e := range entries {
				obj.Set(e.name, e.val)
			}
			return document.Obj(obj), int(l), nil
		}
		return document.Array(entriesToArray(entries)), int(l), nil
	default:
		return document.Value{}, 0, invalidType(tag)
	}
}

// entriesToArray converts decimal-indexed field entries into a dense slice,
// filling any gaps with Null.
func entriesToArray(entries []fieldEntry) []document.Value {
	maxIdx := -1
	indices := make([]int, len(entries))
	for i, e := range entries {
		idx, err := strconv.Atoi(e.name)
		if err != nil {
			idx = i
		}
		indices[i] = idx
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	out := make([]document.Value, maxIdx+1)
	for i := range out {
		out[i] = document.Null()
	}
	for i, e := range entries {
		out[indices[i]] = e.val
	}
	return out
}

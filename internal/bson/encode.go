package bson

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cabewaldrop/docdb/internal/document"
)

// ProgressFunc is an optional observer invoked with the cumulative number of
// bytes processed so far, for both encode and decode.
type ProgressFunc func(bytesProcessed int)

// EncodeDocument serializes a Document's field data to the wire format. The
// document's dedicated id field is intentionally not emitted: only Data()
// fields are walked. Callers that need id persistence must track it
// separately (the storage engine does this via DocumentId locators, not
// via the wire format).
func EncodeDocument(doc *document.Document) ([]byte, error) {
	return EncodeDocumentProgress(doc, nil)
}

// EncodeDocumentProgress is EncodeDocument with an optional progress
// callback. Fields are walked in doc.Each's order, which is sorted by key
// (document.Object's iteration order), so the encoded byte layout is
// sorted-key order rather than insertion order.
func EncodeDocumentProgress(doc *document.Document, progress ProgressFunc) ([]byte, error) {
	var body bytes.Buffer
	var encErr error
	doc.Each(func(name string, v document.Value) {
		if encErr != nil {
			return
		}
		if name == "" {
			encErr = ErrMalformedFieldName
			return
		}
		if err := encodeField(&body, name, v); err != nil {
			encErr = err
			return
		}
		if progress != nil {
			progress(body.Len())
		}
	})
	if encErr != nil {
		return nil, encErr
	}
	body.WriteByte(0x00)

	total := 4 + body.Len()
	if total > MaxDocumentSize {
		return nil, tooLarge(total, MaxDocumentSize)
	}

	out := make([]byte, 4, total)
	binary.LittleEndian.PutUint32(out, uint32(total))
	out = append(out, body.Bytes()...)
	return out, nil
}

func encodeField(buf *bytes.Buffer, name string, v document.Value) error {
	tag, err := valueTag(v)
	if err != nil {
		return err
	}
	buf.WriteByte(tag)
	buf.WriteString(name)
	buf.WriteByte(0x00)
	return encodeValueBody(buf, v)
}

func valueTag(v document.Value) (byte, error) {
	switch v.Kind {
	case document.KindNull:
		return TagNull, nil
	case document.KindBool:
		return TagBool, nil
	case document.KindI32:
		return TagInt32, nil
	case document.KindI64:
		return TagInt64, nil
	case document.KindF64:
		return TagDouble, nil
	case document.KindString:
		return TagString, nil
	case document.KindObjectId:
		return TagObjectId, nil
	case document.KindArray:
		return TagArray, nil
	case document.KindObject:
		return TagObject, nil
	case document.KindDateTime:
		return TagDateTime, nil
	case document.KindBinary:
		return TagBinary, nil
	default:
		return 0, invalidType(0xFF)
	}
}

func encodeValueBody(buf *bytes.Buffer, v document.Value) error {
	switch v.Kind {
	case document.KindNull:
		return nil
	case document.KindBool:
		b, _ := v.AsBool()
		if b {
			buf.WriteByte(0x01)
		} else {
			buf.WriteByte(0x00)
		}
		return nil
	case document.KindI32:
		n, _ := v.AsI32()
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(n))
		buf.Write(tmp[:])
		return nil
	case document.KindI64:
		n, _ := v.AsI64()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(n))
		buf.Write(tmp[:])
		return nil
	case document.KindF64:
		f, _ := v.AsF64()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		buf.Write(tmp[:])
		return nil
	case document.KindDateTime:
		t, _ := v.AsDateTime()
		ms := t.UnixMilli()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(ms))
		buf.Write(tmp[:])
		return nil
	case document.KindString:
		s, _ := v.AsString()
		n := int32(len(s) + 1)
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(n))
		buf.Write(tmp[:])
		buf.WriteString(s)
		buf.WriteByte(0x00)
		return nil
	case document.KindObjectId:
		id, _ := v.AsObjectId()
		buf.Write(id.Bytes())
		return nil
	case document.KindBinary:
		b, _ := v.AsBinary()
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(b)))
		buf.Write(tmp[:])
		buf.WriteByte(binarySubtype)
		buf.Write(b)
		return nil
	case document.KindObject:
		obj, _ := v.AsObject()
		return encodeNested(buf, func(nested *bytes.Buffer) error {
			var err error
			obj.Each(func(k string, ev document.Value) {
				if err != nil {
					return
				}
				err = encodeField(nested, k, ev)
			})
			return err
		})
	case document.KindArray:
		arr, _ := v.AsArray()
		return encodeNested(buf, func(nested *bytes.Buffer) error {
			for i, ev := range arr {
				if err := encodeField(nested, itoa(i), ev); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return invalidType(0xFF)
}

// encodeNested writes a length-prefixed, NUL-terminated nested body (shared
// by Object and Array), backpatching the 4-byte length once the body is known.
func encodeNested(buf *bytes.Buffer, writeFields func(*bytes.Buffer) error) error {
	var nested bytes.Buffer
	if err := writeFields(&nested); err != nil {
		return err
	}
	nested.WriteByte(0x00)

	total := int32(4 + nested.Len())
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(total))
	buf.Write(tmp[:])
	buf.Write(nested.Bytes())
	return nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits [20]byte
	pos := len(digits)
	for i > 0 {
		pos--
		digits[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		digits[pos] = '-'
	}
	return string(digits[pos:])
}

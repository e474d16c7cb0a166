// Package bson implements a self-describing, length-prefixed binary
// document codec: encode/decode of documents and individual values,
// partial decode, and field-name extraction without a full decode.
package bson

import (
	"errors"
	"fmt"
)

// Sentinel errors for the codec.
var (
	ErrIo                      = errors.New("bson: io error")
	ErrInvalidType             = errors.New("bson: invalid type tag")
	ErrInvalidString           = errors.New("bson: invalid utf-8 string")
	ErrDocumentTooLarge        = errors.New("bson: document too large")
	ErrInvalidLength           = errors.New("bson: invalid length")
	ErrUnexpectedEOF           = errors.New("bson: unexpected end of data")
	ErrInvalidStringLength     = errors.New("bson: invalid string length")
	ErrInvalidBinaryLength     = errors.New("bson: invalid binary length")
	ErrInvalidTimestamp        = errors.New("bson: invalid timestamp")
	ErrMalformedFieldName      = errors.New("bson: malformed field name")
	ErrMissingNullTerminator   = errors.New("bson: missing null terminator")
	ErrInvalidEmbeddedDocument = errors.New("bson: invalid embedded document length")
)

// eof wraps ErrUnexpectedEOF with expected/actual byte counts for diagnostics.
func eof(expected, actual int) error {
	return fmt.Errorf("%w: expected %d bytes, got %d", ErrUnexpectedEOF, expected, actual)
}

func invalidLength(expected, actual int) error {
	return fmt.Errorf("%w: expected %d, actual %d", ErrInvalidLength, expected, actual)
}

func invalidType(tag byte) error {
	return fmt.Errorf("%w: 0x%02x", ErrInvalidType, tag)
}

func tooLarge(size, max int) error {
	return fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, size, max)
}

func invalidStringLength(n int32) error {
	return fmt.Errorf("%w: %d", ErrInvalidStringLength, n)
}

func invalidBinaryLength(n int32) error {
	return fmt.Errorf("%w: %d", ErrInvalidBinaryLength, n)
}

func invalidTimestamp(ms int64) error {
	return fmt.Errorf("%w: %d", ErrInvalidTimestamp, ms)
}

func invalidEmbedded(n int32) error {
	return fmt.Errorf("%w: declared length %d", ErrInvalidEmbeddedDocument, n)
}

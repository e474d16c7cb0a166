package bson

// Type tags for the wire format, compatible with a subset of the BSON
// element type byte values.
const (
	TagDouble   byte = 0x01
	TagString   byte = 0x02
	TagObject   byte = 0x03
	TagArray    byte = 0x04
	TagBinary   byte = 0x05
	TagObjectId byte = 0x07
	TagBool     byte = 0x08
	TagDateTime byte = 0x09
	TagNull     byte = 0x0A
	TagInt32    byte = 0x10
	TagInt64    byte = 0x12
)

// MaxDocumentSize is the 16 MiB wire-format ceiling on an encoded document.
const MaxDocumentSize = 16 * 1024 * 1024

// maxCStringLength bounds a field-name C-string scan before giving up with
// ErrMissingNullTerminator.
const maxCStringLength = 1024

// binarySubtype is the only binary subtype this format emits.
const binarySubtype byte = 0x00

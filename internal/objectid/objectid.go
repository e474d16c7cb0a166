// Package objectid implements the 12-byte document identifier used as the
// dedicated id field on every Document.
package objectid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"
)

// Size is the fixed byte length of an ObjectId.
const Size = 12

// ErrInvalidLength is returned when decoding bytes that are not exactly Size long.
var ErrInvalidLength = errors.New("objectid: input must be exactly 12 bytes")

// ErrInvalidHex is returned when decoding a hex string that is malformed or
// the wrong length.
var ErrInvalidHex = errors.New("objectid: invalid hex string")

// ObjectId is an immutable 12-byte identifier: a 4-byte big-endian seconds
// count since the Unix epoch followed by 8 random bytes. It is orderable
// lexicographically (byte comparison) and hex-printable.
type ObjectId [Size]byte

// New generates a fresh ObjectId using the current time and a random tail.
func New() ObjectId {
	var id ObjectId
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(id[4:12]); err != nil {
		// crypto/rand.Read on the standard reader does not fail in practice;
		// fall back to a zeroed tail rather than panicking.
	}
	return id
}

// FromBytes constructs an ObjectId from a 12-byte slice, copying the input.
func FromBytes(b []byte) (ObjectId, error) {
	var id ObjectId
	if len(b) != Size {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns a copy of the underlying 12 bytes.
func (id ObjectId) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// Hex renders the ObjectId as a 24-character lowercase hex string.
func (id ObjectId) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer by returning the hex encoding.
func (id ObjectId) String() string {
	return id.Hex()
}

// FromHex parses a 24-character hex string into an ObjectId.
func FromHex(s string) (ObjectId, error) {
	var id ObjectId
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != Size {
		return id, ErrInvalidHex
	}
	copy(id[:], b)
	return id, nil
}

// Timestamp returns the seconds-since-epoch component as a time.Time.
func (id ObjectId) Timestamp() time.Time {
	secs := binary.BigEndian.Uint32(id[0:4])
	return time.Unix(int64(secs), 0).UTC()
}

// Compare returns -1, 0, or 1 depending on the lexicographic byte ordering
// of id relative to other.
func (id ObjectId) Compare(other ObjectId) int {
	for i := 0; i < Size; i++ {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether the ObjectId is the all-zero value.
func (id ObjectId) IsZero() bool {
	return id == ObjectId{}
}

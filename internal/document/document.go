package document

import (
	"strings"

	"github.com/cabewaldrop/docdb/internal/objectid"
)

// MaxDocumentSize is the serialized size limit for a single document (16 MiB).
const MaxDocumentSize = 16 * 1024 * 1024

// MaxNameLength is the maximum allowed field name length.
const MaxNameLength = 100

// Document is an ordered mapping from field name to Value, plus a dedicated
// id field that is always an ObjectId. The id is tracked separately from the
// field map: it is not a regular entry in data, and (per the wire format's
// key decision, see the bson package) is never emitted by the codec.
type Document struct {
	data *Object
	id   objectid.ObjectId
}

// New returns an empty Document with a freshly generated id.
func New() *Document {
	return &Document{data: NewObject(), id: objectid.New()}
}

// WithID returns an empty Document using the given id instead of generating one.
func WithID(id objectid.ObjectId) *Document {
	return &Document{data: NewObject(), id: id}
}

// ID returns the document's dedicated ObjectId.
func (d *Document) ID() objectid.ObjectId {
	return d.id
}

// SetID replaces the document's id.
func (d *Document) SetID(id objectid.ObjectId) {
	d.id = id
}

// EnsureID regenerates the id if it was ever left at the zero value, e.g.
// after a decode of a document that never reported one, so the id is
// treated as always-present without forcing eager regeneration at every
// access.
func (d *Document) EnsureID() objectid.ObjectId {
	if d.id.IsZero() {
		d.id = objectid.New()
	}
	return d.id
}

// Set assigns a field, keeping the field map's sorted key order.
func (d *Document) Set(name string, v Value) {
	d.data.Set(name, v)
}

// Get returns the value of a top-level field.
func (d *Document) Get(name string) (Value, bool) {
	return d.data.Get(name)
}

// Remove deletes a top-level field.
func (d *Document) Remove(name string) bool {
	return d.data.Remove(name)
}

// Keys returns the top-level field names in sorted key order.
func (d *Document) Keys() []string {
	return d.data.Keys()
}

// Len returns the number of top-level fields (excluding id).
func (d *Document) Len() int {
	return d.data.Len()
}

// IsEmpty reports whether the document has no fields.
func (d *Document) IsEmpty() bool {
	return d.data.Len() == 0
}

// Each iterates over top-level fields in order.
func (d *Document) Each(fn func(name string, v Value)) {
	d.data.Each(fn)
}

// Data returns the underlying field map, for codec and validator use.
func (d *Document) Data() *Object {
	return d.data
}

// GetPath traverses dot-separated nested Object fields, e.g. "address.city".
// Array segments are not indexed by this accessor; a path segment that would
// need to descend into an Array returns (Value{}, false).
func (d *Document) GetPath(path string) (Value, bool) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 {
		return Value{}, false
	}
	current, ok := d.Get(segments[0])
	if !ok {
		return Value{}, false
	}
	for _, seg := range segments[1:] {
		obj, isObj := current.AsObject()
		if !isObj {
			return Value{}, false
		}
		current, ok = obj.Get(seg)
		if !ok {
			return Value{}, false
		}
	}
	return current, true
}

// Equal compares two documents' field data. The id is not part of the
// comparison since it is not part of the wire format's identity contract.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.data.Equal(other.data)
}

// Clone returns a deep-enough copy sharing no Object/key-order state.
func (d *Document) Clone() *Document {
	return &Document{data: d.data.Clone(), id: d.id}
}

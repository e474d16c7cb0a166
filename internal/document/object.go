package document

import "sort"

// Object is an ordered mapping from string keys to Values. Key order is
// sorted lexicographically by key, not insertion order, matching the
// BTreeMap<String, Value> the wire format's field iteration order is
// defined against.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set assigns value to key, inserting key into its sorted position if it
// didn't already exist.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.values[key]; !exists {
		i := sort.SearchStrings(o.keys, key)
		o.keys = append(o.keys, "")
		copy(o.keys[i+1:], o.keys[i:])
		o.keys[i] = key
	}
	o.values[key] = v
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Remove deletes key, returning whether it was present.
func (o *Object) Remove(key string) bool {
	if _, ok := o.values[key]; !ok {
		return false
	}
	delete(o.values, key)
	i := sort.SearchStrings(o.keys, key)
	if i < len(o.keys) && o.keys[i] == key {
		o.keys = append(o.keys[:i], o.keys[i+1:]...)
	}
	return true
}

// Keys returns the keys in sorted order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of entries.
func (o *Object) Len() int {
	return len(o.keys)
}

// Each calls fn for every entry in key order.
func (o *Object) Each(fn func(key string, v Value)) {
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}

// Equal compares two Objects key-by-key in order.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	if len(o.keys) != len(other.keys) {
		return false
	}
	for i, k := range o.keys {
		if other.keys[i] != k {
			return false
		}
		if !o.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy with an independent key ordering slice.
func (o *Object) Clone() *Object {
	clone := NewObject()
	o.Each(func(k string, v Value) {
		clone.Set(k, v)
	})
	return clone
}

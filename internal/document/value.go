// Package document implements the tagged Value union and the ordered
// Document type that the BSON codec and storage engine operate on.
package document

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cabewaldrop/docdb/internal/objectid"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI32
	KindI64
	KindF64
	KindString
	KindObjectId
	KindArray
	KindObject
	KindDateTime
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindI32:
		return "I32"
	case KindI64:
		return "I64"
	case KindF64:
		return "F64"
	case KindString:
		return "String"
	case KindObjectId:
		return "ObjectId"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindDateTime:
		return "DateTime"
	case KindBinary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// Value is a tagged union over the document value types: Null, Bool, I32,
// I64, F64, String, ObjectId, Array, Object, DateTime, and Binary. Only the
// field matching Kind is meaningful.
type Value struct {
	Kind     Kind
	boolVal  bool
	i32Val   int32
	i64Val   int64
	f64Val   float64
	strVal   string
	oidVal   objectid.ObjectId
	arrVal   []Value
	objVal   *Object
	timeVal  time.Time
	binVal   []byte
}

// Null returns the Null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, boolVal: b} }

// I32 wraps a 32-bit signed integer.
func I32(v int32) Value { return Value{Kind: KindI32, i32Val: v} }

// I64 wraps a 64-bit signed integer.
func I64(v int64) Value { return Value{Kind: KindI64, i64Val: v} }

// F64 wraps an IEEE 754 double.
func F64(v float64) Value { return Value{Kind: KindF64, f64Val: v} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{Kind: KindString, strVal: s} }

// OID wraps an ObjectId.
func OID(id objectid.ObjectId) Value { return Value{Kind: KindObjectId, oidVal: id} }

// Array wraps an ordered sequence of Values.
func Array(vs []Value) Value { return Value{Kind: KindArray, arrVal: vs} }

// Obj wraps an Object (ordered string-keyed map).
func Obj(o *Object) Value { return Value{Kind: KindObject, objVal: o} }

// DateTime wraps a millisecond-resolution timestamp.
func DateTime(t time.Time) Value { return Value{Kind: KindDateTime, timeVal: t} }

// Binary wraps an opaque byte sequence (subtype is always 0x00 on the wire).
func Binary(b []byte) Value { return Value{Kind: KindBinary, binVal: append([]byte(nil), b...)} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsBool returns the boolean value if Kind == KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

func (v Value) AsI32() (int32, bool) {
	if v.Kind != KindI32 {
		return 0, false
	}
	return v.i32Val, true
}

func (v Value) AsI64() (int64, bool) {
	if v.Kind != KindI64 {
		return 0, false
	}
	return v.i64Val, true
}

func (v Value) AsF64() (float64, bool) {
	if v.Kind != KindF64 {
		return 0, false
	}
	return v.f64Val, true
}

func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.strVal, true
}

func (v Value) AsObjectId() (objectid.ObjectId, bool) {
	if v.Kind != KindObjectId {
		return objectid.ObjectId{}, false
	}
	return v.oidVal, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.arrVal, true
}

func (v Value) AsObject() (*Object, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	return v.objVal, true
}

func (v Value) AsDateTime() (time.Time, bool) {
	if v.Kind != KindDateTime {
		return time.Time{}, false
	}
	return v.timeVal, true
}

func (v Value) AsBinary() ([]byte, bool) {
	if v.Kind != KindBinary {
		return nil, false
	}
	return v.binVal, true
}

// CoerceBool permissively coerces scalar kinds to a bool: any nonzero number
// is true and zero is false, and the strings "true"/"1" and "false"/"0" are
// accepted. Not used by the codec or
// validator, which remain strict; this is an ergonomic helper for callers
// that want loose coercion.
func (v Value) CoerceBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.boolVal, true
	case KindI32:
		return v.i32Val != 0, true
	case KindI64:
		return v.i64Val != 0, true
	case KindF64:
		return v.f64Val != 0, true
	case KindString:
		switch v.strVal {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

// CoerceI64 permissively coerces scalar kinds to an int64.
func (v Value) CoerceI64() (int64, bool) {
	switch v.Kind {
	case KindI32:
		return int64(v.i32Val), true
	case KindI64:
		return v.i64Val, true
	case KindF64:
		return int64(v.f64Val), true
	case KindString:
		n, err := strconv.ParseInt(v.strVal, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case KindBool:
		if v.boolVal {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// CoerceF64 permissively coerces scalar kinds to a float64.
func (v Value) CoerceF64() (float64, bool) {
	switch v.Kind {
	case KindI32:
		return float64(v.i32Val), true
	case KindI64:
		return float64(v.i64Val), true
	case KindF64:
		return v.f64Val, true
	case KindString:
		f, err := strconv.ParseFloat(v.strVal, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// CoerceString renders any scalar value as a display string.
func (v Value) CoerceString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.strVal, true
	case KindI32:
		return strconv.FormatInt(int64(v.i32Val), 10), true
	case KindI64:
		return strconv.FormatInt(v.i64Val, 10), true
	case KindF64:
		return strconv.FormatFloat(v.f64Val, 'g', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.boolVal), true
	case KindObjectId:
		return v.oidVal.Hex(), true
	case KindNull:
		return "null", true
	}
	return "", false
}

// Equal reports structural equality between two Values. Arrays and Objects
// compare element-wise / key-wise; no total ordering is implied.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindI32:
		return v.i32Val == other.i32Val
	case KindI64:
		return v.i64Val == other.i64Val
	case KindF64:
		return v.f64Val == other.f64Val
	case KindString:
		return v.strVal == other.strVal
	case KindObjectId:
		return v.oidVal == other.oidVal
	case KindDateTime:
		return v.timeVal.UnixMilli() == other.timeVal.UnixMilli()
	case KindBinary:
		if len(v.binVal) != len(other.binVal) {
			return false
		}
		for i := range v.binVal {
			if v.binVal[i] != other.binVal[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.arrVal) != len(other.arrVal) {
			return false
		}
		for i := range v.arrVal {
			if !v.arrVal[i].Equal(other.arrVal[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.objVal.Equal(other.objVal)
	}
	return false
}

// String renders a debug representation of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindI32:
		return strconv.FormatInt(int64(v.i32Val), 10)
	case KindI64:
		return strconv.FormatInt(v.i64Val, 10)
	case KindF64:
		return strconv.FormatFloat(v.f64Val, 'g', -1, 64)
	case KindString:
		return v.strVal
	case KindObjectId:
		return v.oidVal.Hex()
	case KindDateTime:
		return v.timeVal.UTC().Format(time.RFC3339Nano)
	case KindBinary:
		return fmt.Sprintf("Binary(%d bytes)", len(v.binVal))
	case KindArray:
		return fmt.Sprintf("Array(%d)", len(v.arrVal))
	case KindObject:
		return fmt.Sprintf("Object(%d)", v.objVal.Len())
	default:
		return "?"
	}
}

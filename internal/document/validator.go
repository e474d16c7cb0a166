package document

import (
	"fmt"
	"math"
)

// ValidationKind identifies the category of a ValidationError.
type ValidationKind uint8

const (
	ValidationSizeLimit ValidationKind = iota
	ValidationEmptyName
	ValidationNameTooLong
	ValidationInvalidName
	ValidationNameContainsNUL
	ValidationReservedName
	ValidationDepthLimit
	ValidationFieldCountLimit
	ValidationNumericRange
	ValidationStringInvalid
)

// ValidationError reports a document validation failure with a dotted field
// path (array indices rendered as "[i]") for diagnostics.
type ValidationError struct {
	Kind    ValidationKind
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator enforces size, depth, fan-out, name, and value-range limits on
// Documents before they are handed to the codec for persistence.
type Validator struct {
	maxSize     int
	maxDepth    int
	maxFields   int
	reservedSet map[string]struct{}
}

// DefaultMaxDepth and DefaultMaxFields bound nesting and root field count:
// 100 levels of nesting, 1000 fields at the document root.
const (
	DefaultMaxDepth  = 100
	DefaultMaxFields = 1000
)

// NewValidator returns a Validator configured with the default limits and
// reserved field names.
func NewValidator() *Validator {
	reserved := map[string]struct{}{
		"_id": {}, "_type": {}, "_version": {}, "_created": {}, "_updated": {},
	}
	return &Validator{
		maxSize:     MaxDocumentSize,
		maxDepth:    DefaultMaxDepth,
		maxFields:   DefaultMaxFields,
		reservedSet: reserved,
	}
}

// SetMaxSize overrides the document size limit ValidateSize enforces,
// letting callers configure a stricter or looser cap than MaxDocumentSize.
func (val *Validator) SetMaxSize(n int) {
	val.maxSize = n
}

// EstimatedSize computes the approximate encoded size of a document using
// the per-type body-size table from the wire format.
func EstimatedSize(d *Document) int {
	total := 4 + 1 // length prefix + terminator
	d.Each(func(name string, v Value) {
		total += 1 + len(name) + 1 // tag + cstring key + NUL
		total += estimatedValueSize(v)
	})
	return total
}

func estimatedValueSize(v Value) int {
	switch v.Kind {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindI32:
		return 4
	case KindI64, KindDateTime, KindF64:
		return 8
	case KindString:
		s, _ := v.AsString()
		return 4 + len(s) + 1
	case KindObjectId:
		return 12
	case KindBinary:
		b, _ := v.AsBinary()
		return 5 + len(b)
	case KindArray:
		arr, _ := v.AsArray()
		size := 4 + 1
		for i, elem := range arr {
			idx := fmt.Sprintf("%d", i)
			size += 1 + len(idx) + 1 + estimatedValueSize(elem)
		}
		return size
	case KindObject:
		obj, _ := v.AsObject()
		size := 4 + 1
		obj.Each(func(k string, ev Value) {
			size += 1 + len(k) + 1 + estimatedValueSize(ev)
		})
		return size
	}
	return 0
}

// ValidateSize rejects documents whose estimated encoded size exceeds the
// configured maximum.
func (val *Validator) ValidateSize(d *Document) error {
	size := EstimatedSize(d)
	if size > val.maxSize {
		return &ValidationError{
			Kind:    ValidationSizeLimit,
			Message: fmt.Sprintf("document size %d bytes exceeds limit %d", size, val.maxSize),
		}
	}
	return nil
}

// ValidateFieldName enforces the field-name rules: non-empty, <=100 chars,
// ASCII alphanumeric/underscore, no NUL bytes, not a reserved name.
func (val *Validator) ValidateFieldName(name string) error {
	if name == "" {
		return &ValidationError{Kind: ValidationEmptyName, Message: "field name must not be empty"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Kind: ValidationNameTooLong, Message: fmt.Sprintf("field name too long: %d characters", len(name))}
	}
	for _, r := range name {
		if r == 0 {
			return &ValidationError{Kind: ValidationNameContainsNUL, Message: "field name contains a NUL byte"}
		}
	}
	for _, r := range name {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if !isAlnum {
			return &ValidationError{Kind: ValidationInvalidName, Message: fmt.Sprintf("invalid field name: %s", name)}
		}
	}
	if _, reserved := val.reservedSet[name]; reserved {
		return &ValidationError{Kind: ValidationReservedName, Message: fmt.Sprintf("reserved field name: %s", name)}
	}
	return nil
}

// ValidateFieldCount rejects documents with more than maxFields root fields.
func (val *Validator) ValidateFieldCount(d *Document) error {
	if d.Len() > val.maxFields {
		return &ValidationError{
			Kind:    ValidationFieldCountLimit,
			Message: fmt.Sprintf("field count %d exceeds limit %d", d.Len(), val.maxFields),
		}
	}
	return nil
}

// ValidateNestingDepth performs a depth-first search to find the maximum
// nesting depth, rejecting documents that exceed maxDepth.
func (val *Validator) ValidateNestingDepth(d *Document) error {
	maxDepth := 0
	d.Each(func(_ string, v Value) {
		depth := valueDepth(v, 1)
		if depth > maxDepth {
			maxDepth = depth
		}
	})
	if maxDepth > val.maxDepth {
		return &ValidationError{
			Kind:    ValidationDepthLimit,
			Message: fmt.Sprintf("nesting depth %d exceeds limit %d", maxDepth, val.maxDepth),
		}
	}
	return nil
}

func valueDepth(v Value, current int) int {
	switch v.Kind {
	case KindObject:
		obj, _ := v.AsObject()
		maxDepth := current
		obj.Each(func(_ string, ev Value) {
			d := valueDepth(ev, current+1)
			if d > maxDepth {
				maxDepth = d
			}
		})
		return maxDepth
	case KindArray:
		arr, _ := v.AsArray()
		maxDepth := current
		for _, ev := range arr {
			d := valueDepth(ev, current+1)
			if d > maxDepth {
				maxDepth = d
			}
		}
		return maxDepth
	default:
		return current
	}
}

// ValidateStringField rejects non-ASCII strings. Only invoked during full
// document validation; the codec itself accepts any valid UTF-8.
func (val *Validator) ValidateStringField(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return &ValidationError{Kind: ValidationStringInvalid, Message: fmt.Sprintf("non-ASCII string field: %q", s)}
		}
	}
	return nil
}

// ValidateNumericRange rejects NaN and infinite float values.
func (val *Validator) ValidateNumericRange(v Value) error {
	if v.Kind == KindF64 {
		f, _ := v.AsF64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &ValidationError{Kind: ValidationNumericRange, Message: fmt.Sprintf("numeric value out of range: %v", f)}
		}
	}
	return nil
}

// Validate performs the full validation pass: size, field count, nesting
// depth, then a recursive per-field walk enforcing name rules, ASCII-only
// strings, and finite floats, with dotted-path error context.
func (val *Validator) Validate(d *Document) error {
	if err := val.ValidateSize(d); err != nil {
		return err
	}
	if err := val.ValidateFieldCount(d); err != nil {
		return err
	}
	if err := val.ValidateNestingDepth(d); err != nil {
		return err
	}
	return val.validateFieldsRecursive(d, "")
}

func (val *Validator) validateFieldsRecursive(d *Document, path string) error {
	var outer error
	d.Each(func(name string, v Value) {
		if outer != nil {
			return
		}
		fieldPath := name
		if path != "" {
			fieldPath = path + "." + name
		}
		if err := val.ValidateFieldName(name); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Path = fieldPath
			}
			outer = err
			return
		}
		if err := val.validateValueRecursive(v, fieldPath); err != nil {
			outer = err
		}
	})
	return outer
}

func (val *Validator) validateValueRecursive(v Value, path string) error {
	switch v.Kind {
	case KindString:
		s, _ := v.AsString()
		if err := val.ValidateStringField(s); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Path = path
			}
			return err
		}
	case KindF64:
		if err := val.ValidateNumericRange(v); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Path = path
			}
			return err
		}
	case KindObject:
		obj, _ := v.AsObject()
		var outer error
		obj.Each(func(k string, ev Value) {
			if outer != nil {
				return
			}
			fieldPath := path + "." + k
			if err := val.ValidateFieldName(k); err != nil {
				if ve, ok := err.(*ValidationError); ok {
					ve.Path = fieldPath
				}
				outer = err
				return
			}
			if err := val.validateValueRecursive(ev, fieldPath); err != nil {
				outer = err
			}
		})
		return outer
	case KindArray:
		arr, _ := v.AsArray()
		for i, ev := range arr {
			fieldPath := fmt.Sprintf("%s[%d]", path, i)
			if err := val.validateValueRecursive(ev, fieldPath); err != nil {
				return err
			}
		}
	}
	return nil
}

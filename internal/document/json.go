package document

import (
	"encoding/json"
	"fmt"

	"github.com/cabewaldrop/docdb/internal/objectid"
)

// ToJSON renders the document's fields as a JSON object. This is a thin,
// interface-level conversion, not part of the wire-format codec; the id
// field is included under "_id" as a hex string for readability.
func (d *Document) ToJSON() ([]byte, error) {
	return json.Marshal(valueToJSONObject(d))
}

func valueToJSONObject(d *Document) map[string]any {
	m := make(map[string]any, d.Len()+1)
	d.Each(func(name string, v Value) {
		m[name] = valueToJSON(v)
	})
	m["_id"] = d.ID().Hex()
	return m
}

func valueToJSON(v Value) any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindI32:
		n, _ := v.AsI32()
		return n
	case KindI64:
		n, _ := v.AsI64()
		return n
	case KindF64:
		f, _ := v.AsF64()
		return f
	case KindString:
		s, _ := v.AsString()
		return s
	case KindObjectId:
		id, _ := v.AsObjectId()
		return id.Hex()
	case KindDateTime:
		t, _ := v.AsDateTime()
		return t.UTC().Format("2006-01-02T15:04:05.000Z")
	case KindBinary:
		b, _ := v.AsBinary()
		return b
	case KindArray:
		arr, _ := v.AsArray()
		out := make([]any, len(arr))
		for i, ev := range arr {
			out[i] = valueToJSON(ev)
		}
		return out
	case KindObject:
		obj, _ := v.AsObject()
		m := make(map[string]any, obj.Len())
		obj.Each(func(k string, ev Value) {
			m[k] = valueToJSON(ev)
		})
		return m
	}
	return nil
}

// FromJSON parses a JSON object into a Document. Numbers decode to F64
// (JSON has no integer/float distinction); a top-level "_id" key, if
// present and a valid 24-character hex ObjectId, seeds the document's id.
func FromJSON(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("document: invalid JSON: %w", err)
	}
	doc := New()
	for k, v := range raw {
		if k == "_id" {
			if s, ok := v.(string); ok {
				if id, err := objectid.FromHex(s); err == nil {
					doc.SetID(id)
					continue
				}
			}
		}
		doc.Set(k, jsonToValue(v))
	}
	return doc, nil
}

func jsonToValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return F64(t)
	case string:
		return String(t)
	case []any:
		out := make([]Value, len(t))
		for i, ev := range t {
			out[i] = jsonToValue(ev)
		}
		return Array(out)
	case map[string]any:
		obj := NewObject()
		for k, ev := range t {
			obj.Set(k, jsonToValue(ev))
		}
		return Obj(obj)
	default:
		return Null()
	}
}

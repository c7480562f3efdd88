// Package normalize renders decoded documents into plain JSON-compatible
// values: map[string]any, []any, string, int64, float64, bool and nil.
//
// ObjectIDs become their hex form, datetimes the UTC ISO-8601 form produced
// by document.FormatTime, decimals their exact string and binary payloads
// UTF-8 text with undecodable bytes dropped. Anything else fails with a
// *NotSerializableError.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
)

// NotSerializableError reports a value with no JSON rendering.
type NotSerializableError struct {
	Type string // document type name, e.g. "regex"
	Path string // dotted path from the document root; empty for the root value
}

func (e *NotSerializableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("normalize: value of type %s is not JSON serializable", e.Type)
	}
	return fmt.Sprintf("normalize: value of type %s at %q is not JSON serializable", e.Type, e.Path)
}

// Document normalizes d into a map. Duplicate keys resolve to the last
// occurrence.
func Document(d document.Document) (map[string]any, error) {
	o, err := normalizeDocument(d, "")
	if err != nil {
		return nil, err
	}
	return plain(o).(map[string]any), nil
}

// Value normalizes a single value.
func Value(v document.Value) (any, error) {
	out, err := normalize(v, "")
	if err != nil {
		return nil, err
	}
	return plain(out), nil
}

func normalize(v document.Value, path string) (any, error) {
	switch x := v.(type) {
	case nil, document.Null:
		return nil, nil
	case document.Bool:
		return bool(x), nil
	case document.Int:
		return int64(x), nil
	case document.Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &NotSerializableError{Type: x.TypeName(), Path: path}
		}
		return f, nil
	case document.String:
		return string(x), nil
	case document.ObjectID:
		return x.Hex(), nil
	case document.DateTime:
		return document.FormatTime(x.Time()), nil
	case document.Decimal:
		return string(x), nil
	case document.Binary:
		return strings.ToValidUTF8(string(x.Data), ""), nil
	case document.Array:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := normalize(item, join(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case document.Document:
		return normalizeDocument(x, path)
	default:
		return nil, &NotSerializableError{Type: v.TypeName(), Path: path}
	}
}

func normalizeDocument(d document.Document, path string) (*object, error) {
	o := &object{keys: make([]string, 0, len(d)), vals: make(map[string]any, len(d))}
	for _, e := range d {
		n, err := normalize(e.Value, join(path, e.Key))
		if err != nil {
			return nil, err
		}
		if _, dup := o.vals[e.Key]; !dup {
			o.keys = append(o.keys, e.Key)
		}
		o.vals[e.Key] = n
	}
	return o, nil
}

// plain replaces ordered objects with their maps, recursively.
func plain(v any) any {
	switch x := v.(type) {
	case *object:
		for k, item := range x.vals {
			x.vals[k] = plain(item)
		}
		return x.vals
	case []any:
		for i, item := range x {
			x[i] = plain(item)
		}
		return x
	default:
		return v
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

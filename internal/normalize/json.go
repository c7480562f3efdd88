package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
)

// JSON renders d as compact JSON. Keys keep their first-seen document order
// and HTML characters are not escaped.
func JSON(d document.Document) (json.RawMessage, error) {
	o, err := normalizeDocument(d, "")
	if err != nil {
		return nil, err
	}
	return encode(o)
}

// ValueJSON renders a single value as compact JSON.
func ValueJSON(v document.Value) (json.RawMessage, error) {
	n, err := normalize(v, "")
	if err != nil {
		return nil, err
	}
	return encode(n)
}

// object is a normalized document that marshals in key order.
type object struct {
	keys []string
	vals map[string]any
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := encode(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

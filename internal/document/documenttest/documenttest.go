// Package documenttest builds document fixtures for tests.
package documenttest

import "github.com/gazihan02-sys/sis-tekniktr/internal/document"

// D builds a Document from alternating keys and values:
//
//	documenttest.D("a", document.Int(1), "b", document.String("x"))
//
// A nil value becomes document.Null. It panics on an odd argument count or a
// non-string key.
func D(kv ...any) document.Document {
	if len(kv)%2 != 0 {
		panic("documenttest.D: odd argument count")
	}
	d := make(document.Document, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("documenttest.D: key must be a string")
		}
		v, _ := kv[i+1].(document.Value)
		if v == nil {
			v = document.Null{}
		}
		d = append(d, document.Element{Key: k, Value: v})
	}
	return d
}

// Package document models a decoded BSON document as a closed set of value
// variants. Consumers (coercion, normalization, mapping) switch over the
// concrete types and always keep a default arm for Unsupported values.
//
// The model is deliberately smaller than BSON: int32 and int64 collapse into
// Int, undefined collapses into Null, JavaScript code and symbols collapse
// into String. Types without a JSON-compatible rendering are kept as
// Unsupported so that normalization can refuse them explicitly.
package document

import (
	"encoding/hex"
	"strconv"
	"time"
)

// Value is one of Null, Bool, Int, Float, String, Array, Document, ObjectID,
// DateTime, Decimal, Binary or Unsupported.
type Value interface {
	// TypeName names the variant for diagnostics ("objectId", "regex", ...).
	TypeName() string

	isValue()
}

// Null is an explicit BSON null (or undefined). Document.Get also returns
// Null for absent keys.
type Null struct{}

// Bool is a BSON boolean.
type Bool bool

// Int is a BSON int32 or int64.
type Int int64

// Float is a BSON double.
type Float float64

// String is a BSON string, symbol or JavaScript code value.
type String string

// Array is an ordered BSON array.
type Array []Value

// ObjectID is the 12-byte BSON object identifier.
type ObjectID [12]byte

// DateTime is a BSON UTC datetime in milliseconds since the Unix epoch.
type DateTime int64

// Decimal is a BSON decimal128 kept as its exact decimal string.
type Decimal string

// Binary is a BSON binary payload of any subtype.
type Binary struct {
	Subtype byte
	Data    []byte
}

// Unsupported is a BSON value with no JSON-compatible rendering.
type Unsupported struct {
	Type string
}

func (Null) TypeName() string     { return "null" }
func (Bool) TypeName() string     { return "bool" }
func (Int) TypeName() string      { return "int" }
func (Float) TypeName() string    { return "double" }
func (String) TypeName() string   { return "string" }
func (Array) TypeName() string    { return "array" }
func (ObjectID) TypeName() string { return "objectId" }
func (DateTime) TypeName() string { return "date" }
func (Decimal) TypeName() string  { return "decimal" }
func (Binary) TypeName() string   { return "binData" }

func (u Unsupported) TypeName() string { return u.Type }

func (Null) isValue()        {}
func (Bool) isValue()        {}
func (Int) isValue()         {}
func (Float) isValue()       {}
func (String) isValue()      {}
func (Array) isValue()       {}
func (ObjectID) isValue()    {}
func (DateTime) isValue()    {}
func (Decimal) isValue()     {}
func (Binary) isValue()      {}
func (Unsupported) isValue() {}

// Hex returns the canonical 24-character lower-case hex form.
func (id ObjectID) Hex() string { return hex.EncodeToString(id[:]) }

// ObjectIDFromHex parses a 24-character hex identifier.
func ObjectIDFromHex(s string) (ObjectID, bool) {
	var id ObjectID
	if len(s) != 2*len(id) {
		return id, false
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, false
	}
	return id, true
}

// Time returns the instant in UTC.
func (d DateTime) Time() time.Time { return time.UnixMilli(int64(d)).UTC() }

// DateTimeOf truncates t to millisecond precision.
func DateTimeOf(t time.Time) DateTime { return DateTime(t.UnixMilli()) }

// FormatTime renders t in UTC as 2006-01-02T15:04:05+00:00. A fraction of
// exactly six digits is added only when the microsecond part is non-zero;
// sub-microsecond precision is dropped.
func FormatTime(t time.Time) string {
	t = t.UTC()
	b := make([]byte, 0, 32)
	b = t.AppendFormat(b, "2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		b = append(b, '.')
		frac := strconv.Itoa(us)
		for i := len(frac); i < 6; i++ {
			b = append(b, '0')
		}
		b = append(b, frac...)
	}
	return string(append(b, "+00:00"...))
}

// Element is a single key/value pair of a Document.
type Element struct {
	Key   string
	Value Value
}

// Document is an ordered list of elements. Keys are not required to be
// unique; lookups resolve to the last occurrence.
type Document []Element

func (Document) TypeName() string { return "object" }
func (Document) isValue()         {}

// Lookup returns the value stored under key and whether the key is present.
func (d Document) Lookup(key string) (Value, bool) {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].Key == key {
			return d[i].Value, true
		}
	}
	return nil, false
}

// Get returns the value stored under key, or Null when the key is absent.
func (d Document) Get(key string) Value {
	if v, ok := d.Lookup(key); ok && v != nil {
		return v
	}
	return Null{}
}

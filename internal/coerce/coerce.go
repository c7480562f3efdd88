// Package coerce converts loosely typed document values into fixed column
// types. Coercers never fail: a value that cannot be converted yields the
// caller's default.
package coerce

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
	"github.com/gazihan02-sys/sis-tekniktr/internal/normalize"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "yes": true, "y": true}
	falsy  = map[string]bool{"0": true, "false": true, "no": true, "n": true}
)

// Bool reads v as a boolean. Numbers are true when non-zero; strings match
// 1/true/yes/y and 0/false/no/n after trimming and case folding.
func Bool(v document.Value, def bool) bool {
	switch x := v.(type) {
	case document.Bool:
		return bool(x)
	case document.Int:
		return x != 0
	case document.Float:
		return x != 0
	case document.String:
		// cases.Caser is stateful; build one per call.
		tok := cases.Fold().String(strings.TrimSpace(string(x)))
		switch {
		case truthy[tok]:
			return true
		case falsy[tok]:
			return false
		}
	}
	return def
}

// Int reads v as a 64-bit integer. Floats truncate toward zero; strings are
// parsed as base-10 after trimming.
func Int(v document.Value, def int64) int64 {
	switch x := v.(type) {
	case document.Int:
		return int64(x)
	case document.Bool:
		if x {
			return 1
		}
		return 0
	case document.Float:
		f := math.Trunc(float64(x))
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return def
		}
		return int64(f)
	case document.String:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return def
		}
		return n
	}
	return def
}

// Text renders v as text. Null yields def; strings pass unchanged; other
// values use their canonical textual form.
func Text(v document.Value, def string) string {
	switch x := v.(type) {
	case nil, document.Null:
		return def
	case document.String:
		return string(x)
	case document.ObjectID:
		return x.Hex()
	case document.DateTime:
		return document.FormatTime(x.Time())
	case document.Decimal:
		return string(x)
	case document.Int:
		return strconv.FormatInt(int64(x), 10)
	case document.Float:
		return formatFloat(float64(x))
	case document.Bool:
		return strconv.FormatBool(bool(x))
	case document.Binary:
		return strings.ToValidUTF8(string(x.Data), "")
	case document.Array, document.Document:
		b, err := normalize.ValueJSON(x)
		if err != nil {
			return def
		}
		return string(b)
	default:
		return v.TypeName()
	}
}

// formatFloat renders the shortest round-trip decimal. Integral values keep a
// ".0" suffix and magnitudes outside [1e-4, 1e16) use exponent form, so 3.0
// renders as "3.0" and 1e20 as "1e+20".
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if a := math.Abs(f); a >= 1e16 || (a != 0 && a < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// OptionalText is Text with "no value" for null or absent fields.
func OptionalText(v document.Value) (string, bool) {
	switch v.(type) {
	case nil, document.Null:
		return "", false
	}
	return Text(v, ""), true
}

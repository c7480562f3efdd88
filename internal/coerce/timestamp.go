package coerce

import (
	"strings"
	"time"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
)

// timestampLayouts covers ISO-8601 date, date-time and offset shapes.
// Fractional seconds are accepted after the seconds field by time.Parse.
var timestampLayouts = func() []string {
	var out []string
	for _, zone := range []string{"", "-07:00", "-0700", "-07"} {
		for _, sep := range []string{"T", " "} {
			for _, clock := range []string{"15:04:05", "15:04", "15"} {
				out = append(out, "2006-01-02"+sep+clock+zone)
			}
		}
	}
	return append(out, "2006-01-02")
}()

// Time reads v as an instant in UTC. Datetimes convert directly; strings go
// through ParseTimestamp. Anything else has no value.
func Time(v document.Value) (time.Time, bool) {
	switch x := v.(type) {
	case document.DateTime:
		return x.Time(), true
	case document.String:
		return ParseTimestamp(string(x))
	}
	return time.Time{}, false
}

// Timestamp is Time rendered with document.FormatTime.
func Timestamp(v document.Value) (string, bool) {
	t, ok := Time(v)
	if !ok {
		return "", false
	}
	return document.FormatTime(t), true
}

// ParseTimestamp parses an ISO-8601 string. A trailing Z means UTC and
// values without an offset are taken as UTC. Empty or malformed input has
// no value.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

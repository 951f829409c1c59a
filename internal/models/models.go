// Package models defines the data structures exchanged with the idea backend.
package models

import (
	"strings"
	"time"
)

// timestampLayouts covers the formats the backend emits: RFC 3339 from clients and
// naive ISO-8601 with optional microseconds from the server clock.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Mon, 02 Jan 2006 15:04:05 GMT",
	"2006-01-02",
}

// ParseTimestamp parses a backend timestamp string. The zero time is returned for
// empty or unrecognised input.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DateOnly returns the YYYY-MM-DD prefix of a timestamp, or the input unchanged when it
// cannot be parsed.
func DateOnly(s string) string {
	t := ParseTimestamp(s)
	if t.IsZero() {
		return s
	}
	return t.Format("2006-01-02")
}

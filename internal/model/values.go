package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an identifier the backend sends either as a string or as a number.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

// String returns the identifier.
func (id ID) String() string { return string(id) }

// secondsDigits is the longest unix timestamp, in digits, treated as seconds.
const secondsDigits = 10

// FromUnix converts a unix timestamp of unknown precision. Values with at most
// ten digits are seconds, longer values are milliseconds. Zero yields the zero time.
func FromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if len(strconv.FormatInt(abs, 10)) <= secondsDigits {
		return time.UnixMilli(v * 1000)
	}
	return time.UnixMilli(v)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a numeric (seconds or milliseconds) or ISO timestamp.
// Layouts without a zone are read in local time, like the backend writes them.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromUnix(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromUnix(int64(f)), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Timestamp is a point in time decoded from any of the backend's encodings:
// unix seconds, unix milliseconds, numeric strings or ISO strings.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON decodes numbers, strings and null. Values that do not parse
// leave the time unset.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
		t.Time = lenientTimestamp(s)
		return nil
	}
	t.Time = lenientTimestamp(string(b))
	return nil
}

// lenientTimestamp maps unrecognised values to the zero time so one odd
// record does not fail a whole list.
func lenientTimestamp(s string) time.Time {
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// MarshalJSON encodes the time as unix seconds, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.Unix(), 10)), nil
}

// Format renders the timestamp for display, or "-" when unset.
func (t Timestamp) Format(layout string) string {
	if t.IsZero() {
		return "-"
	}
	return t.Time.Format(layout)
}

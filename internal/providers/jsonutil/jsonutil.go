// Package jsonutil holds small duck-typed extraction helpers for reading
// vendor JSON payloads decoded into map[string]any. Vendor responses are
// never unmarshaled directly into normalized structs; they pass through
// these helpers so a missing or oddly-typed field degrades gracefully
// instead of failing decode.
package jsonutil

import "strings"

// String extracts a string field, returning "" if absent or mistyped.
func String(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Float extracts a numeric field as float64. JSON numbers decode to
// float64 by default; this also accepts int/int64 for values built up
// in Go code rather than decoded from the wire.
func Float(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int extracts an integer field, truncating any fractional JSON number.
func Int(m map[string]any, key string) (int, bool) {
	f, ok := Float(m, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool extracts a boolean field.
func Bool(m map[string]any, key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

// Slice extracts a []any field, returning nil if absent or mistyped.
func Slice(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

// Map extracts a map[string]any field, returning nil if absent or
// mistyped.
func Map(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// MapSlice extracts a []map[string]any field from a []any of maps,
// skipping any element that isn't itself a map.
func MapSlice(m map[string]any, key string) []map[string]any {
	raw := Slice(m, key)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if asMap, ok := item.(map[string]any); ok {
			out = append(out, asMap)
		}
	}
	return out
}

// CollapseWhitespace collapses runs of whitespace into single spaces and
// trims the result, used to normalize vendor error messages onto one line.
func CollapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// Truncate trims s to at most n runes, following the "≤300 chars" rule
// applied to Gemini error details.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

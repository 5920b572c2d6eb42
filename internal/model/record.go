package model

import (
	"fmt"
	"strings"
)

// Record is a single source row keyed by field name.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether v counts as absent: nil or an empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// NormalizeValue returns the case-insensitive comparison form of v.
func NormalizeValue(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

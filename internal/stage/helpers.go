package stage

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StringField reads a string-valued payload field, tolerating numeric values
// by formatting them. Missing or unusable fields return the empty string.
func StringField(p Payload, key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// IntField reads an integer payload field, tolerating the float64 values
// JSON round-trips produce and numeric strings.
func IntField(p Payload, key string) (int, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed), true
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// MapField reads a nested object field. JSON unmarshaling yields
// map[string]any; payloads built in-process may already hold a Payload.
func MapField(p Payload, key string) Payload {
	if p == nil {
		return nil
	}
	switch v := p[key].(type) {
	case Payload:
		return v
	case map[string]any:
		return Payload(v)
	default:
		return nil
	}
}

// SliceField reads an array-valued field as []any.
func SliceField(p Payload, key string) []any {
	if p == nil {
		return nil
	}
	if v, ok := p[key].([]any); ok {
		return v
	}
	return nil
}

// Package triage defines the validated request/response contracts exchanged
// with the remote email classifier.
package triage

import (
	"fmt"
	"time"
)

// SchemaError reports a malformed triage payload: a missing required field,
// a type mismatch, or a value outside its allowed range.
type SchemaError struct {
	msg string
}

func (e *SchemaError) Error() string { return e.msg }

func schemaErrorf(format string, args ...any) *SchemaError {
	return &SchemaError{msg: fmt.Sprintf(format, args...)}
}

func requireString(data map[string]any, key string, allowEmpty bool) (string, error) {
	value, ok := data[key]
	if !ok || value == nil {
		return "", schemaErrorf("missing required field: %s", key)
	}
	s, ok := value.(string)
	if !ok {
		return "", schemaErrorf("field %s must be a string", key)
	}
	if !allowEmpty && s == "" {
		return "", schemaErrorf("field %s must not be empty", key)
	}
	return s, nil
}

func stringOrDefault(data map[string]any, key, def string) (string, error) {
	value, ok := data[key]
	if !ok || value == nil {
		return def, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", schemaErrorf("field %s must be a string", key)
	}
	return s, nil
}

func optionalString(data map[string]any, key string) (string, error) {
	value, ok := data[key]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", schemaErrorf("field %s must be a string", key)
	}
	return s, nil
}

func stringList(data map[string]any, key string) ([]string, error) {
	value, ok := data[key]
	if !ok || value == nil {
		return []string{}, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, schemaErrorf("field %s must be an array of strings", key)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, schemaErrorf("field %s must be an array of strings", key)
		}
		out[i] = s
	}
	return out, nil
}

func boolField(data map[string]any, key string, def bool) (bool, error) {
	value, ok := data[key]
	if !ok || value == nil {
		return def, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, schemaErrorf("field %s must be a boolean", key)
	}
	return b, nil
}

// naiveLayouts are accepted for timestamps without a zone; they are treated
// as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(value any, field string) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, schemaErrorf("field %s must be an ISO datetime string", field)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, schemaErrorf("field %s is not a valid ISO datetime", field)
}

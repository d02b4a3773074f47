package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateFormats are tried in order when parsing date values
var dateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AsNumber converts a raw value to a finite float64. NaN and infinities
// are rejected since they cannot be stored as JSON.
func AsNumber(v interface{}) (float64, bool) {
	n, ok := asNumber(v)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// AsTime converts a raw value (time.Time or ISO-8601 string) to a time
func AsTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, format := range dateFormats {
			if parsed, err := time.Parse(format, s); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// AsStrings converts a raw list value to a string slice.
// A bare string is treated as a single-element list.
func AsStrings(v interface{}) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []interface{}:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{l}, true
	}
	return nil, false
}

// AsBool converts a raw value to a bool
func AsBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

// AsString renders a scalar value the way search and grouping see it
func AsString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	case []string:
		return strings.Join(s, ",")
	}
	if n, ok := AsNumber(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// IsEmpty reports whether a raw value counts as "no value"
func IsEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	}
	return false
}

// Normalize coerces a raw value into the canonical representation of the
// field type: string, float64, []string, bool, or the ISO string for dates.
// nil stays nil.
func (f Field) Normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return AsString(v), nil
	case Number:
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		n, ok := AsNumber(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q expects a number, got %v", ErrInvalidRecord, f.Name, v)
		}
		return n, nil
	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q expects one of %v, got %v", ErrInvalidRecord, f.Name, f.Values, v)
		}
		if s == "" {
			return nil, nil
		}
		if !f.HasValue(s) {
			return nil, fmt.Errorf("%w: field %q expects one of %v, got %q", ErrInvalidRecord, f.Name, f.Values, s)
		}
		return s, nil
	case List:
		l, ok := AsStrings(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q expects a list of strings, got %v", ErrInvalidRecord, f.Name, v)
		}
		return append([]string{}, l...), nil
	case Date:
		if t, ok := v.(time.Time); ok {
			if t.IsZero() {
				return nil, nil
			}
			return t.Format(time.RFC3339Nano), nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q expects an ISO-8601 date, got %v", ErrInvalidRecord, f.Name, v)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		if _, ok := AsTime(s); !ok {
			return nil, fmt.Errorf("%w: field %q expects an ISO-8601 date, got %q", ErrInvalidRecord, f.Name, s)
		}
		return s, nil
	case Bool:
		b, ok := AsBool(v)
		if !ok {
			return nil, fmt.Errorf("%w: field %q expects true or false, got %v", ErrInvalidRecord, f.Name, v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, f.Name, f.Type)
}

// NormalizeRecord coerces every value of rec to its canonical representation
// and rejects keys that are not schema fields. Empty values are dropped.
func (s *Schema) NormalizeRecord(rec Record) (Record, error) {
	out := make(Record, len(rec))
	for key, raw := range rec {
		field, err := s.MustField(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		v, err := field.Normalize(raw)
		if err != nil {
			return nil, err
		}
		if !IsEmpty(v) {
			out[key] = v
		}
	}
	return out, nil
}

// ApplyDefaults fills fields missing from rec with their declared defaults
func (s *Schema) ApplyDefaults(rec Record) Record {
	for _, f := range s.Fields {
		if f.Default == nil {
			continue
		}
		if _, ok := rec[f.Name]; ok {
			continue
		}
		if v, err := f.Normalize(f.Default); err == nil && !IsEmpty(v) {
			rec[f.Name] = v
		}
	}
	return rec
}

// Validate checks a normalized record: it must carry an identifier and every
// required field.
func (s *Schema) Validate(rec Record) error {
	if rec.ID(s.IDField) == "" {
		return fmt.Errorf("%w: missing %q", ErrInvalidRecord, s.IDField)
	}
	for _, f := range s.Fields {
		if f.Required && IsEmpty(rec[f.Name]) {
			return fmt.Errorf("%w: field %q is required", ErrInvalidRecord, f.Name)
		}
	}
	return nil
}

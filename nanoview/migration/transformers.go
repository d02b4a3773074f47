package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

// Transformer is a function that transforms a value
type Transformer func(value interface{}) (interface{}, error)

// TransformerRegistry maps transformer names to their implementations
var TransformerRegistry = map[string]Transformer{
	"toString":    ToString,
	"toNumber":    ToNumber,
	"toBool":      ToBool,
	"toDate":      ToDate,
	"toList":      ToList,
	"toLowerCase": ToLowerCase,
	"toUpperCase": ToUpperCase,
	"trim":        Trim,
}

// TransformerNames lists the registered transformers in a stable order
func TransformerNames() []string {
	return []string{"toString", "toNumber", "toBool", "toDate", "toList", "toLowerCase", "toUpperCase", "trim"}
}

// ToString converts any value to string. Lists are joined with commas.
func ToString(value interface{}) (interface{}, error) {
	if value == nil {
		return "", nil
	}
	if l, ok := types.AsStrings(value); ok {
		return strings.Join(l, ","), nil
	}
	return types.AsString(value), nil
}

// ToNumber converts a value to float64
func ToNumber(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.(bool); ok {
		if b {
			return 1.0, nil
		}
		return 0.0, nil
	}
	n, ok := types.AsNumber(value)
	if !ok {
		return nil, fmt.Errorf("cannot convert %v to number", value)
	}
	return n, nil
}

// ToBool converts a value to boolean
func ToBool(value interface{}) (interface{}, error) {
	if value == nil {
		return false, nil
	}

	if s, ok := value.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1", "on", "y":
			return true, nil
		case "false", "no", "0", "off", "n", "":
			return false, nil
		}
		return nil, fmt.Errorf("cannot convert %q to bool", s)
	}
	if b, ok := types.AsBool(value); ok {
		return b, nil
	}
	if n, ok := types.AsNumber(value); ok {
		return n != 0, nil
	}
	return nil, fmt.Errorf("cannot convert %T to bool", value)
}

// ToDate converts a date string or time to its RFC 3339 form
func ToDate(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	t, ok := types.AsTime(value)
	if !ok {
		return nil, fmt.Errorf("cannot convert %v to date", value)
	}
	return t.Format(time.RFC3339), nil
}

// ToList splits a comma or semicolon separated string into a list
func ToList(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		parts := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' })
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	if l, ok := types.AsStrings(value); ok {
		return append([]string{}, l...), nil
	}
	return nil, fmt.Errorf("cannot convert %T to list", value)
}

// ToLowerCase converts a string to lowercase
func ToLowerCase(value interface{}) (interface{}, error) {
	return mapString(value, strings.ToLower), nil
}

// ToUpperCase converts a string to uppercase
func ToUpperCase(value interface{}) (interface{}, error) {
	return mapString(value, strings.ToUpper), nil
}

// Trim removes leading and trailing whitespace from a string
func Trim(value interface{}) (interface{}, error) {
	return mapString(value, strings.TrimSpace), nil
}

// mapString applies fn to a string, or to each element of a list
func mapString(value interface{}, fn func(string) string) interface{} {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return fn(v)
	case []string, []interface{}:
		if l, ok := types.AsStrings(v); ok {
			out := make([]string, len(l))
			for i, s := range l {
				out[i] = fn(s)
			}
			return out
		}
	}
	return fn(types.AsString(value))
}

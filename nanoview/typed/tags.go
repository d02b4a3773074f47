package typed

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

var timeType = reflect.TypeOf(time.Time{})

// fieldMeta holds parsed metadata for a struct field
type fieldMeta struct {
	index  []int
	goType reflect.Type
	field  types.Field
	isID   bool
}

// parseStructTags analyzes a struct type and extracts the record fields from
// its tags:
//
//	json:"name"                       field name (default: snake_case of the Go name)
//	view:"id,searchable,ci,ordered,required,date"
//	values:"a,b,c"                    enum values, in display order
//	default:"x"                       default value
//
// A "-" in either the json or the view tag skips the field.
func parseStructTags(t reflect.Type) ([]fieldMeta, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct type, got %s", t.Kind())
	}

	var metas []fieldMeta
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		// Embedded structs contribute their own fields
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && sf.Type != timeType {
			inner, err := parseStructTags(sf.Type)
			if err != nil {
				return nil, err
			}
			for _, m := range inner {
				m.index = append([]int{i}, m.index...)
				metas = append(metas, m)
			}
			continue
		}

		meta, skip, err := parseField(sf)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		meta.index = []int{i}
		metas = append(metas, meta)
	}

	seen := make(map[string]bool, len(metas))
	ids := 0
	for _, m := range metas {
		if seen[m.field.Name] {
			return nil, fmt.Errorf("duplicate field name: %s", m.field.Name)
		}
		seen[m.field.Name] = true
		if m.isID {
			ids++
		}
	}
	if ids > 1 {
		return nil, fmt.Errorf("%s: more than one field tagged as id", t.Name())
	}
	return metas, nil
}

func parseField(sf reflect.StructField) (fieldMeta, bool, error) {
	name := ""
	if jsonTag := sf.Tag.Get("json"); jsonTag != "" {
		name = strings.Split(jsonTag, ",")[0]
		if name == "-" {
			return fieldMeta{}, true, nil
		}
	}
	if name == "" {
		name = toSnakeCase(sf.Name)
	}

	meta := fieldMeta{
		goType: sf.Type,
		field:  types.Field{Name: name},
	}

	isDate := false
	for _, opt := range strings.Split(sf.Tag.Get("view"), ",") {
		switch strings.TrimSpace(opt) {
		case "":
		case "-":
			return fieldMeta{}, true, nil
		case "id":
			meta.isID = true
		case "searchable":
			meta.field.Searchable = true
		case "ci":
			meta.field.CaseInsensitive = true
		case "ordered":
			meta.field.Ordered = true
		case "required":
			meta.field.Required = true
		case "date":
			isDate = true
		default:
			return fieldMeta{}, false, fmt.Errorf("field %s: unknown view option %q", sf.Name, opt)
		}
	}

	if valuesTag := sf.Tag.Get("values"); valuesTag != "" {
		for _, v := range strings.Split(valuesTag, ",") {
			if v = strings.TrimSpace(v); v != "" {
				meta.field.Values = append(meta.field.Values, v)
			}
		}
	}

	if defaultTag, ok := sf.Tag.Lookup("default"); ok {
		meta.field.Default = defaultTag
	}

	ft, err := fieldType(sf.Type, isDate, len(meta.field.Values) > 0)
	if err != nil {
		return fieldMeta{}, false, fmt.Errorf("field %s: %w", sf.Name, err)
	}
	meta.field.Type = ft

	if meta.isID && ft != types.String {
		return fieldMeta{}, false, fmt.Errorf("field %s: id must be a string", sf.Name)
	}
	return meta, false, nil
}

// fieldType maps a Go type to the record field type
func fieldType(t reflect.Type, isDate, hasValues bool) (types.FieldType, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return types.Date, nil
	}

	switch t.Kind() {
	case reflect.String:
		switch {
		case isDate:
			return types.Date, nil
		case hasValues:
			return types.Enum, nil
		}
		return types.String, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return types.Number, nil
	case reflect.Bool:
		return types.Bool, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return types.List, nil
		}
	}
	return "", fmt.Errorf("unsupported type %s", t)
}

// toSnakeCase converts a CamelCase string to snake_case
func toSnakeCase(s string) string {
	var result strings.Builder
	result.Grow(len(s) + 10)

	for i, r := range s {
		if i > 0 && isUpper(r) {
			// Check if previous rune is lowercase or next rune is lowercase
			prevIsLower := isLower(rune(s[i-1]))
			nextIsLower := i+1 < len(s) && isLower(rune(s[i+1]))

			if prevIsLower || nextIsLower {
				result.WriteRune('_')
			}
		}
		result.WriteRune(toLower(r))
	}

	return result.String()
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func toLower(r rune) rune {
	if isUpper(r) {
		return r + ('a' - 'A')
	}
	return r
}

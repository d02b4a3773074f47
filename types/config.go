package types

import (
	"fmt"
	"strings"
)

// FieldType defines how a field is compared, coerced and aggregated
type FieldType string

const (
	// String fields compare lexicographically on the raw value
	String FieldType = "string"
	// Number fields compare numerically
	Number FieldType = "number"
	// Enum fields hold one of a declared set of strings
	Enum FieldType = "enum"
	// List fields hold a string array (tags, permissions, ...)
	List FieldType = "list"
	// Date fields hold ISO-8601 strings and compare chronologically
	Date FieldType = "date"
	// Bool fields hold true/false
	Bool FieldType = "bool"
)

// Valid reports whether ft is one of the known field types
func (ft FieldType) Valid() bool {
	switch ft {
	case String, Number, Enum, List, Date, Bool:
		return true
	}
	return false
}

// Textual reports whether values of this type take part in free-text search
// when a schema designates no searchable field.
func (ft FieldType) Textual() bool {
	return ft == String || ft == Enum || ft == List
}

// Field describes one typed field of a record schema
type Field struct {
	// Name is the record key
	Name string `json:"name" yaml:"name"`

	// Type selects comparison and coercion rules
	Type FieldType `json:"type" yaml:"type"`

	// Values lists the valid values for enum fields
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`

	// Searchable marks the field as a free-text query target
	Searchable bool `json:"searchable,omitempty" yaml:"searchable,omitempty"`

	// CaseInsensitive folds case when sorting string fields
	CaseInsensitive bool `json:"case_insensitive,omitempty" yaml:"case_insensitive,omitempty"`

	// Ordered sorts enum fields by declaration order instead of lexicographically
	Ordered bool `json:"ordered,omitempty" yaml:"ordered,omitempty"`

	// Required rejects records without a value for this field
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Default is applied to new and imported records missing the field
	Default interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// HasValue reports whether v is one of the declared enum values
func (f Field) HasValue(v string) bool {
	for _, allowed := range f.Values {
		if allowed == v {
			return true
		}
	}
	return false
}

// ValueIndex returns the declaration index of an enum value, or -1
func (f Field) ValueIndex(v string) int {
	for i, allowed := range f.Values {
		if allowed == v {
			return i
		}
	}
	return -1
}

// DefaultIDField is used when a schema does not name its identifier field
const DefaultIDField = "id"

// Schema defines the shape shared by every record of a collection
type Schema struct {
	// Name identifies the schema (e.g. "team", "inventory")
	Name string `json:"name" yaml:"name"`

	// IDField names the identifier field. Defaults to "id".
	IDField string `json:"id_field,omitempty" yaml:"id_field,omitempty"`

	// Fields lists the record fields in display order
	Fields []Field `json:"fields" yaml:"fields"`

	index map[string]int
}

// NewSchema creates a schema and builds its field index.
// The ID field is added as a required string if not declared.
func NewSchema(name, idField string, fields ...Field) *Schema {
	s := &Schema{Name: name, IDField: idField, Fields: fields}
	s.Init()
	return s
}

// Init normalizes the schema after decoding: it defaults the ID field,
// declares it if missing and rebuilds the lookup index.
func (s *Schema) Init() {
	if s.IDField == "" {
		s.IDField = DefaultIDField
	}
	found := false
	for _, f := range s.Fields {
		if f.Name == s.IDField {
			found = true
			break
		}
	}
	if !found {
		s.Fields = append([]Field{{Name: s.IDField, Type: String}}, s.Fields...)
	}
	s.index = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		s.index[f.Name] = i
	}
}

// Field returns the named field. A schema that was never initialized is
// searched in declaration order and left untouched.
func (s *Schema) Field(name string) (Field, bool) {
	if s.index == nil {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return Field{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// MustField returns the named field or an ErrUnknownField error
func (s *Schema) MustField(name string) (Field, error) {
	f, ok := s.Field(name)
	if !ok {
		return Field{}, fmt.Errorf("%w: %q is not a field of %s (fields: %s)",
			ErrUnknownField, name, s.Name, strings.Join(s.FieldNames(), ", "))
	}
	return f, nil
}

// FieldNames returns the field names in declaration order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// SearchFields returns the fields targeted by free-text queries.
// If none is marked searchable, every textual field is searched.
func (s *Schema) SearchFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Searchable {
			out = append(out, f)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, f := range s.Fields {
		if f.Type.Textual() && f.Name != s.IDField {
			out = append(out, f)
		}
	}
	return out
}

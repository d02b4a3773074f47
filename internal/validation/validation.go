package validation

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/nanoview/types"
)

// maxFields bounds schema size; the largest built-in app uses a dozen
const maxFields = 64

// Validate checks the schema for consistency
func Validate(s *types.Schema) error {
	if s == nil {
		return fmt.Errorf("%w: schema is nil", types.ErrInvalidSchema)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: schema name cannot be empty", types.ErrInvalidSchema)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: schema %s: at least one field must be configured", types.ErrInvalidSchema, s.Name)
	}
	if len(s.Fields) > maxFields {
		return fmt.Errorf("%w: schema %s: too many fields: %d (maximum %d)", types.ErrInvalidSchema, s.Name, len(s.Fields), maxFields)
	}

	// Check for duplicate names
	seen := make(map[string]bool)
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: schema %s: field name cannot be empty", types.ErrInvalidSchema, s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: schema %s: duplicate field name: %s", types.ErrInvalidSchema, s.Name, f.Name)
		}
		seen[f.Name] = true
	}

	idField, ok := s.Field(s.IDField)
	if !ok {
		return fmt.Errorf("%w: schema %s: id field %q is not declared", types.ErrInvalidSchema, s.Name, s.IDField)
	}
	if idField.Type != types.String {
		return fmt.Errorf("%w: schema %s: id field %q must be a string, got %s", types.ErrInvalidSchema, s.Name, s.IDField, idField.Type)
	}

	for i := range s.Fields {
		if err := validateField(&s.Fields[i]); err != nil {
			return fmt.Errorf("%w: schema %s: %v", types.ErrInvalidSchema, s.Name, err)
		}
	}

	return nil
}

// validateField validates one field declaration
func validateField(f *types.Field) error {
	if !f.Type.Valid() {
		return fmt.Errorf("field %s: invalid type %q", f.Name, f.Type)
	}

	if f.Type == types.Enum {
		if len(f.Values) == 0 {
			return fmt.Errorf("field %s: enum fields must declare values", f.Name)
		}
		valuesSeen := make(map[string]bool)
		for _, value := range f.Values {
			if value == "" {
				return fmt.Errorf("field %s: values cannot be empty", f.Name)
			}
			if value == types.Any {
				return fmt.Errorf("field %s: %q is reserved as the any-value filter", f.Name, types.Any)
			}
			if valuesSeen[value] {
				return fmt.Errorf("field %s: duplicate value '%s'", f.Name, value)
			}
			valuesSeen[value] = true
		}
	} else {
		if len(f.Values) > 0 {
			return fmt.Errorf("field %s: only enum fields can declare values", f.Name)
		}
		if f.Ordered {
			return fmt.Errorf("field %s: only enum fields can be ordered", f.Name)
		}
	}

	if f.CaseInsensitive && f.Type != types.String && f.Type != types.Enum {
		return fmt.Errorf("field %s: case_insensitive only applies to string and enum fields", f.Name)
	}

	if f.Default != nil {
		if _, err := f.Normalize(f.Default); err != nil {
			return fmt.Errorf("field %s: default value: %v", f.Name, err)
		}
	}

	return nil
}

// ValidateAggregate checks an aggregate spec against the schema
func ValidateAggregate(s *types.Schema, spec types.AggregateSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: aggregate name cannot be empty", types.ErrInvalidAggregate)
	}

	numeric := func(name string) error {
		f, err := s.MustField(name)
		if err != nil {
			return fmt.Errorf("%w: aggregate %s: %w", types.ErrInvalidAggregate, spec.Name, err)
		}
		if f.Type != types.Number {
			return fmt.Errorf("%w: aggregate %s: field %q must be a number, got %s", types.ErrInvalidAggregate, spec.Name, name, f.Type)
		}
		return nil
	}
	groupable := func(name string) error {
		f, err := s.MustField(name)
		if err != nil {
			return fmt.Errorf("%w: aggregate %s: %w", types.ErrInvalidAggregate, spec.Name, err)
		}
		if f.Type == types.Number {
			return fmt.Errorf("%w: aggregate %s: cannot group by numeric field %q", types.ErrInvalidAggregate, spec.Name, name)
		}
		return nil
	}

	switch spec.Kind {
	case types.Count:
		return nil
	case types.Sum, types.Average, types.Min, types.Max:
		return numeric(spec.Field)
	case types.CountBy:
		return groupable(spec.Field)
	case types.SumBy:
		if err := numeric(spec.Field); err != nil {
			return err
		}
		if spec.GroupBy == "" {
			return fmt.Errorf("%w: aggregate %s: sum_by requires group_by", types.ErrInvalidAggregate, spec.Name)
		}
		return groupable(spec.GroupBy)
	}
	return fmt.Errorf("%w: aggregate %s: unknown kind %q", types.ErrInvalidAggregate, spec.Name, spec.Kind)
}

package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/nanoview/types"
)

// matcher decides whether a raw field value satisfies a filter
type matcher func(value interface{}) bool

type compiledFilter struct {
	field string
	match matcher
}

// compileFilters resolves every filter entry against the schema.
// Entries holding the no-constraint sentinel are dropped.
func (e *Engine) compileFilters(params types.ViewParams) ([]compiledFilter, error) {
	if len(params.Filters) == 0 {
		return nil, nil
	}

	// Map iteration order is random; compile in name order so the first
	// reported error is stable
	names := make([]string, 0, len(params.Filters))
	for name := range params.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []compiledFilter
	for _, name := range names {
		field, err := e.schema.MustField(name)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		m, err := compileFilter(field, params.Filters[name], params)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		out = append(out, compiledFilter{field: name, match: m})
	}
	return out, nil
}

// isNoConstraint reports whether a filter value is the "any" sentinel
func isNoConstraint(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == types.Any
	case []string:
		for _, s := range t {
			if s == types.Any {
				return true
			}
		}
		return len(t) == 0
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == types.Any {
				return true
			}
		}
		return len(t) == 0
	}
	return false
}

// compileFilter builds the matcher for one field. It returns a nil matcher
// for the no-constraint sentinel.
func compileFilter(field types.Field, raw interface{}, params types.ViewParams) (matcher, error) {
	if isNoConstraint(raw) {
		return nil, nil
	}

	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: field %q (%s): %s", types.ErrInvalidFilter, field.Name, field.Type, fmt.Sprintf(format, args...))
	}

	switch fv := raw.(type) {
	case types.PredicateFunc:
		return matcher(fv), nil
	case func(interface{}) bool:
		return matcher(fv), nil

	case types.Range:
		if field.Type != types.Number {
			return nil, invalid("numeric range on a non-numeric field")
		}
		return func(v interface{}) bool {
			n, ok := types.AsNumber(v)
			return ok && fv.Contains(n)
		}, nil
	case *types.Range:
		if fv == nil {
			return nil, nil
		}
		return compileFilter(field, *fv, params)

	case types.DateRange:
		if field.Type != types.Date {
			return nil, invalid("date range on a non-date field")
		}
		return dateRangeMatcher(fv), nil
	case types.RelativeDateRange:
		if field.Type != types.Date {
			return nil, invalid("relative date range on a non-date field")
		}
		if params.Now.IsZero() {
			return nil, fmt.Errorf("field %q: %w", field.Name, types.ErrMissingNow)
		}
		return dateRangeMatcher(fv.Resolve(params.Now)), nil

	case []string:
		items := make([]interface{}, len(fv))
		for i, s := range fv {
			items[i] = s
		}
		return membershipMatcher(field, items, invalid)
	case []interface{}:
		return membershipMatcher(field, fv, invalid)
	}

	return equalityMatcher(field, raw, invalid)
}

func dateRangeMatcher(r types.DateRange) matcher {
	return func(v interface{}) bool {
		t, ok := types.AsTime(v)
		return ok && r.Contains(t)
	}
}

// membershipMatcher matches if the value equals any of the items.
// For list fields it matches if the lists intersect.
func membershipMatcher(field types.Field, items []interface{}, invalid func(string, ...interface{}) error) (matcher, error) {
	matchers := make([]matcher, 0, len(items))
	for _, item := range items {
		m, err := equalityMatcher(field, item, invalid)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return func(v interface{}) bool {
		for _, m := range matchers {
			if m(v) {
				return true
			}
		}
		return false
	}, nil
}

// equalityMatcher compares using the field type's notion of equality
func equalityMatcher(field types.Field, want interface{}, invalid func(string, ...interface{}) error) (matcher, error) {
	switch field.Type {
	case types.String:
		s, ok := want.(string)
		if !ok {
			s = types.AsString(want)
		}
		if field.CaseInsensitive {
			return func(v interface{}) bool {
				got, ok := v.(string)
				return ok && strings.EqualFold(got, s)
			}, nil
		}
		return func(v interface{}) bool {
			got, ok := v.(string)
			return ok && got == s
		}, nil

	case types.Enum:
		s, ok := want.(string)
		if !ok || !field.HasValue(s) {
			return nil, invalid("%v is not one of %v", want, field.Values)
		}
		return func(v interface{}) bool {
			got, ok := v.(string)
			return ok && got == s
		}, nil

	case types.Number:
		n, ok := types.AsNumber(want)
		if !ok {
			return nil, invalid("%v is not a number", want)
		}
		return func(v interface{}) bool {
			got, ok := types.AsNumber(v)
			return ok && got == n
		}, nil

	case types.Date:
		t, ok := types.AsTime(want)
		if !ok {
			return nil, invalid("%v is not an ISO-8601 date", want)
		}
		// A date-only filter matches the whole calendar day
		if s, isString := want.(string); isString && len(strings.TrimSpace(s)) == len("2006-01-02") {
			day := t.Format("2006-01-02")
			return func(v interface{}) bool {
				got, ok := types.AsTime(v)
				return ok && got.Format("2006-01-02") == day
			}, nil
		}
		return func(v interface{}) bool {
			got, ok := types.AsTime(v)
			return ok && got.Equal(t)
		}, nil

	case types.Bool:
		b, ok := types.AsBool(want)
		if !ok {
			return nil, invalid("%v is not a bool", want)
		}
		return func(v interface{}) bool {
			got, ok := types.AsBool(v)
			return ok && got == b
		}, nil

	case types.List:
		s, ok := want.(string)
		if !ok {
			return nil, invalid("%v is not a string", want)
		}
		return func(v interface{}) bool {
			items, ok := types.AsStrings(v)
			if !ok {
				return false
			}
			for _, item := range items {
				if item == s {
					return true
				}
			}
			return false
		}, nil
	}

	return nil, invalid("unsupported field type")
}

// matchesFilters checks if a record satisfies all compiled filters
func matchesFilters(rec types.Record, filters []compiledFilter) bool {
	for _, f := range filters {
		if !f.match(rec[f.field]) {
			return false
		}
	}
	return true
}

// matchesQuery does a case-folded substring search across the search fields.
// needle is already folded; an empty needle matches everything.
func matchesQuery(rec types.Record, needle string, fields []types.Field) bool {
	if needle == "" {
		return true
	}
	for _, field := range fields {
		raw, ok := rec[field.Name]
		if !ok || raw == nil {
			continue
		}
		if field.Type == types.List {
			items, _ := types.AsStrings(raw)
			for _, item := range items {
				if strings.Contains(strings.ToLower(item), needle) {
					return true
				}
			}
			continue
		}
		if strings.Contains(strings.ToLower(types.AsString(raw)), needle) {
			return true
		}
	}
	return false
}

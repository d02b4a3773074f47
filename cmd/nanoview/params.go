package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/nanoview/catalog"
	"github.com/arthur-debert/nanoview/formats"
	"github.com/arthur-debert/nanoview/types"
	"github.com/spf13/cobra"
)

// Range and membership separators for --filter values
const (
	rangeSeparator  = ".."
	memberSeparator = "|"
)

const day = 24 * time.Hour

// viewFlags holds the flags that turn into ViewParams
type viewFlags struct {
	query   string
	filters []string
	within  []string
	sorts   []string
	page    int
	now     string
}

// addViewFlags registers the view flags on cmd. Only paged commands get
// --page and --size.
func addViewFlags(cmd *cobra.Command, vf *viewFlags, paged bool) {
	flags := cmd.Flags()
	flags.StringVarP(&vf.query, "query", "q", "", "Free-text search over the searchable fields")
	flags.StringArrayVar(&vf.filters, "filter", nil, "Filter as field=value, field=a|b or field=min..max (repeatable)")
	flags.StringArrayVar(&vf.within, "within", nil, "Relative date filter as field=-7d..0d (repeatable)")
	flags.StringArrayVar(&vf.sorts, "sort", nil, "Sort as field or field:desc, most significant first (repeatable)")
	flags.StringVar(&vf.now, "now", "", "Reference time for --within (default: current time)")
	if paged {
		flags.IntVar(&vf.page, "page", 1, "Page number, starting at 1")
		flags.Int("size", 0, "Page size, 0 shows everything (default: the app's page size)")
	}
}

// pageOverride is the --size value when one was given through a flag,
// the environment or the config file
type pageOverride struct {
	set  bool
	size int
}

// buildParams turns view flags into engine parameters, starting from the
// app's default sort and page size
func buildParams(app *catalog.App, vf viewFlags, paged bool, override pageOverride) (types.ViewParams, error) {
	schema := app.Schema
	params := app.DefaultParams()
	params.Query = vf.query

	for _, expr := range vf.filters {
		name, value, err := parseFilter(schema, expr)
		if err != nil {
			return params, NewFilterError("build view", expr, err)
		}
		if err := setFilter(params, name, value); err != nil {
			return params, NewFilterError("build view", expr, err)
		}
	}
	for _, expr := range vf.within {
		name, value, err := parseWithin(schema, expr)
		if err != nil {
			return params, NewFilterError("build view", expr, err)
		}
		if err := setFilter(params, name, value); err != nil {
			return params, NewFilterError("build view", expr, err)
		}
	}

	if len(vf.sorts) > 0 {
		params.Sort = make([]types.SortClause, 0, len(vf.sorts))
		for _, expr := range vf.sorts {
			clause, err := parseSort(schema, expr)
			if err != nil {
				return params, NewFilterError("build view", expr, err)
			}
			params.Sort = append(params.Sort, clause)
		}
	}

	switch {
	case !paged:
		params.Page = types.Page{}
	case override.set:
		params.Page = types.Page{Index: vf.page, Size: override.size}
	case params.Page.Size > 0:
		params.Page.Index = vf.page
	}
	if params.Page.Size == 0 {
		params.Page = types.Page{}
	}

	params.Now = time.Now()
	if vf.now != "" {
		now, ok := types.AsTime(vf.now)
		if !ok {
			return params, NewValidationError("build view", "--now", vf.now, "Use an ISO-8601 date such as 2024-06-30 or 2024-06-30T12:00:00Z")
		}
		params.Now = now
	}
	return params, nil
}

func setFilter(params types.ViewParams, name string, value interface{}) error {
	if _, exists := params.Filters[name]; exists {
		return fmt.Errorf("%w: field %q is filtered more than once", types.ErrInvalidFilter, name)
	}
	params.Filters[name] = value
	return nil
}

// parseFilter reads field=value. A value with | is a membership test, one
// with .. is an inclusive range on number and date fields, and * matches
// anything.
func parseFilter(schema *types.Schema, expr string) (string, interface{}, error) {
	field, raw, err := splitAssignment(schema, expr)
	if err != nil {
		return "", nil, err
	}

	switch {
	case raw == types.Any:
		return field.Name, types.Any, nil
	case strings.Contains(raw, memberSeparator):
		var members []string
		for _, part := range strings.Split(raw, memberSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				members = append(members, part)
			}
		}
		if len(members) == 0 {
			return "", nil, fmt.Errorf("%w: field %q: empty membership list", types.ErrInvalidFilter, field.Name)
		}
		return field.Name, members, nil
	case strings.Contains(raw, rangeSeparator) && field.Type == types.Number:
		r, err := parseNumberRange(raw)
		if err != nil {
			return "", nil, fmt.Errorf("%w: field %q: %v", types.ErrInvalidFilter, field.Name, err)
		}
		return field.Name, r, nil
	case strings.Contains(raw, rangeSeparator) && field.Type == types.Date:
		r, err := parseDateRange(raw)
		if err != nil {
			return "", nil, fmt.Errorf("%w: field %q: %v", types.ErrInvalidFilter, field.Name, err)
		}
		return field.Name, r, nil
	}
	return field.Name, raw, nil
}

func parseNumberRange(raw string) (types.Range, error) {
	lo, hi, _ := strings.Cut(raw, rangeSeparator)
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return types.Range{}, fmt.Errorf("range %q has no bounds", raw)
	}

	var r types.Range
	if lo != "" {
		n, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return r, fmt.Errorf("lower bound %q is not a number", lo)
		}
		r.Min = &n
	}
	if hi != "" {
		n, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return r, fmt.Errorf("upper bound %q is not a number", hi)
		}
		r.Max = &n
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return r, fmt.Errorf("range %q is empty", raw)
	}
	return r, nil
}

// parseDateRange reads from..to. A date-only upper bound covers its whole day.
func parseDateRange(raw string) (types.DateRange, error) {
	lo, hi, _ := strings.Cut(raw, rangeSeparator)
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return types.DateRange{}, fmt.Errorf("range %q has no bounds", raw)
	}

	var r types.DateRange
	if lo != "" {
		t, ok := types.AsTime(lo)
		if !ok {
			return r, fmt.Errorf("lower bound %q is not an ISO-8601 date", lo)
		}
		r.From = t
	}
	if hi != "" {
		t, ok := types.AsTime(hi)
		if !ok {
			return r, fmt.Errorf("upper bound %q is not an ISO-8601 date", hi)
		}
		if len(hi) == len("2006-01-02") {
			t = t.Add(day - time.Nanosecond)
		}
		r.To = t
	}
	return r, nil
}

// parseWithin reads field=from..to where the bounds are offsets from now
// such as -7d, 2w or 36h. An empty bound is open.
func parseWithin(schema *types.Schema, expr string) (string, interface{}, error) {
	field, raw, err := splitAssignment(schema, expr)
	if err != nil {
		return "", nil, err
	}
	if field.Type != types.Date {
		return "", nil, fmt.Errorf("%w: field %q is not a date", types.ErrInvalidFilter, field.Name)
	}

	lo, hi, ok := strings.Cut(raw, rangeSeparator)
	if !ok {
		return "", nil, fmt.Errorf("%w: field %q: expected from..to, got %q", types.ErrInvalidFilter, field.Name, raw)
	}

	var r types.RelativeDateRange
	if r.From, err = parseOffset(lo); err != nil {
		return "", nil, fmt.Errorf("%w: field %q: %v", types.ErrInvalidFilter, field.Name, err)
	}
	if r.To, err = parseOffset(hi); err != nil {
		return "", nil, fmt.Errorf("%w: field %q: %v", types.ErrInvalidFilter, field.Name, err)
	}
	if r.From == nil && r.To == nil {
		return "", nil, fmt.Errorf("%w: field %q: range %q has no bounds", types.ErrInvalidFilter, field.Name, raw)
	}
	return field.Name, r, nil
}

// parseOffset reads a signed offset in days (d), weeks (w) or any unit
// time.ParseDuration accepts
func parseOffset(s string) (*time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = day
	case strings.HasSuffix(s, "w"):
		unit = 7 * day
	}
	if unit == 0 {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("bad offset %q", s)
		}
		return &d, nil
	}

	n, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil {
		return nil, fmt.Errorf("bad offset %q", s)
	}
	d := time.Duration(n * float64(unit))
	return &d, nil
}

// parseSort reads field, field:asc or field:desc
func parseSort(schema *types.Schema, expr string) (types.SortClause, error) {
	name, dir, _ := strings.Cut(expr, ":")
	field, err := schema.MustField(strings.TrimSpace(name))
	if err != nil {
		return types.SortClause{}, err
	}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return types.SortClause{Field: field.Name}, nil
	case "desc":
		return types.SortClause{Field: field.Name, Descending: true}, nil
	}
	return types.SortClause{}, fmt.Errorf("unknown sort direction %q (use asc or desc)", dir)
}

// parseAssignments reads repeated field=value flags into a record patch.
// List values split on commas or semicolons. Empty values are kept so an
// update can clear a field.
func parseAssignments(schema *types.Schema, sets []string) (types.Record, error) {
	rec := make(types.Record, len(sets))
	for _, expr := range sets {
		field, value, err := splitAssignment(schema, expr)
		if err != nil {
			return nil, err
		}
		if _, exists := rec[field.Name]; exists {
			return nil, fmt.Errorf("%w: field %q is set more than once", types.ErrInvalidRecord, field.Name)
		}
		if field.Type == types.List && value != "" {
			rec[field.Name] = formats.SplitList(strings.ReplaceAll(value, ",", formats.ListSeparator))
			continue
		}
		rec[field.Name] = value
	}
	return rec, nil
}

func splitAssignment(schema *types.Schema, expr string) (types.Field, string, error) {
	name, raw, ok := strings.Cut(expr, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return types.Field{}, "", fmt.Errorf("%w: expected field=value, got %q", types.ErrInvalidFilter, expr)
	}
	field, err := schema.MustField(name)
	if err != nil {
		return types.Field{}, "", err
	}
	return field, strings.TrimSpace(raw), nil
}

package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

type sortKey struct {
	field      types.Field
	descending bool
}

// resolveSort looks up every order clause in the schema
func (e *Engine) resolveSort(clauses []types.SortClause) ([]sortKey, error) {
	keys := make([]sortKey, 0, len(clauses))
	for _, clause := range clauses {
		field, err := e.schema.MustField(clause.Field)
		if err != nil {
			return nil, fmt.Errorf("sort: %w", err)
		}
		keys = append(keys, sortKey{field: field, descending: clause.Descending})
	}
	return keys, nil
}

// sortValue is a pre-parsed comparison key. present is false when the record
// has no usable value for the field.
type sortValue struct {
	present bool
	str     string
	num     float64
	when    time.Time
}

// sortRecords stable-sorts records by the keys. Each clause's direction flips
// only that clause's comparison; records equal on every clause keep their
// input order in both directions.
func sortRecords(records []types.Record, keys []sortKey) {
	// Parse every key once instead of on each comparison
	values := make([][]sortValue, len(records))
	for i, rec := range records {
		row := make([]sortValue, len(keys))
		for k, key := range keys {
			row[k] = keyFor(key.field, rec[key.field.Name])
		}
		values[i] = row
	}

	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := values[idx[a]], values[idx[b]]
		for k, key := range keys {
			c := compareValues(key.field, va[k], vb[k])
			if c == 0 {
				continue
			}
			if key.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	sorted := make([]types.Record, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

// keyFor converts a raw value into its comparison key
func keyFor(field types.Field, raw interface{}) sortValue {
	if types.IsEmpty(raw) {
		return sortValue{}
	}
	switch field.Type {
	case types.Number:
		n, ok := types.AsNumber(raw)
		return sortValue{present: ok, num: n}
	case types.Date:
		t, ok := types.AsTime(raw)
		return sortValue{present: ok, when: t}
	case types.Bool:
		b, ok := types.AsBool(raw)
		if b {
			return sortValue{present: ok, num: 1}
		}
		return sortValue{present: ok}
	case types.Enum:
		s, _ := raw.(string)
		if field.Ordered {
			i := field.ValueIndex(s)
			return sortValue{present: i >= 0, num: float64(i)}
		}
		if field.CaseInsensitive {
			s = strings.ToLower(s)
		}
		return sortValue{present: true, str: s}
	case types.List:
		items, ok := types.AsStrings(raw)
		return sortValue{present: ok, str: strings.Join(items, ",")}
	default:
		s, ok := raw.(string)
		if !ok {
			s = types.AsString(raw)
		}
		if field.CaseInsensitive {
			s = strings.ToLower(s)
		}
		return sortValue{present: true, str: s}
	}
}

// compareValues returns -1, 0 or 1. Missing values sort before present ones.
func compareValues(field types.Field, a, b sortValue) int {
	switch {
	case !a.present && !b.present:
		return 0
	case !a.present:
		return -1
	case !b.present:
		return 1
	}

	switch field.Type {
	case types.Number, types.Bool:
		return compareFloat(a.num, b.num)
	case types.Date:
		return a.when.Compare(b.when)
	case types.Enum:
		if field.Ordered {
			return compareFloat(a.num, b.num)
		}
	}
	return strings.Compare(a.str, b.str)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

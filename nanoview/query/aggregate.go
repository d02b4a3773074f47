package query

import (
	"sort"
	"strconv"

	"github.com/arthur-debert/nanoview/types"
)

// aggregate computes every configured aggregate over the filtered records.
// The record count is always present under types.CountAggregate.
func (e *Engine) aggregate(visible []types.Record) map[string]types.AggregateValue {
	out := make(map[string]types.AggregateValue, len(e.aggregates)+1)
	out[types.CountAggregate] = types.AggregateValue{Scalar: float64(len(visible))}

	for _, spec := range e.aggregates {
		switch spec.Kind {
		case types.Count:
			out[spec.Name] = types.AggregateValue{Scalar: float64(len(visible))}
		case types.Sum, types.Average, types.Min, types.Max:
			out[spec.Name] = types.AggregateValue{Scalar: reduce(spec.Kind, numbers(visible, spec.Field))}
		case types.CountBy:
			field, _ := e.schema.Field(spec.Field)
			groups := seedGroups(field)
			for _, rec := range visible {
				for _, key := range groupKeys(field, rec[field.Name], spec.Bucket) {
					groups[key]++
				}
			}
			out[spec.Name] = types.AggregateValue{
				Scalar: float64(len(visible)),
				Groups: groups,
				Keys:   orderedKeys(field, groups),
			}
		case types.SumBy:
			field, _ := e.schema.Field(spec.GroupBy)
			groups := seedGroups(field)
			total := 0.0
			for _, rec := range visible {
				n, ok := types.AsNumber(rec[spec.Field])
				if !ok {
					continue
				}
				total += n
				for _, key := range groupKeys(field, rec[field.Name], spec.Bucket) {
					groups[key] += n
				}
			}
			out[spec.Name] = types.AggregateValue{
				Scalar: total,
				Groups: groups,
				Keys:   orderedKeys(field, groups),
			}
		}
	}
	return out
}

// numbers collects the numeric values of a field, skipping records without one
func numbers(records []types.Record, field string) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if n, ok := types.AsNumber(rec[field]); ok {
			out = append(out, n)
		}
	}
	return out
}

// reduce folds values into a scalar. Empty input reduces to 0 for every kind.
func reduce(kind types.AggregateKind, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch kind {
	case types.Sum, types.Average:
		total := 0.0
		for _, v := range values {
			total += v
		}
		if kind == types.Average {
			return total / float64(len(values))
		}
		return total
	case types.Min:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case types.Max:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	}
	return 0
}

// seedGroups starts enum and bool groupings with every possible key at zero
// so charts keep a stable set of categories.
func seedGroups(field types.Field) map[string]float64 {
	groups := make(map[string]float64)
	switch field.Type {
	case types.Enum:
		for _, v := range field.Values {
			groups[v] = 0
		}
	case types.Bool:
		groups["false"] = 0
		groups["true"] = 0
	}
	return groups
}

// groupKeys returns the group keys a value contributes to. List values
// contribute one key per element.
func groupKeys(field types.Field, raw interface{}, bucket types.DateBucket) []string {
	if types.IsEmpty(raw) {
		return []string{types.NoValue}
	}
	switch field.Type {
	case types.List:
		items, ok := types.AsStrings(raw)
		if !ok || len(items) == 0 {
			return []string{types.NoValue}
		}
		return items
	case types.Date:
		t, ok := types.AsTime(raw)
		if !ok {
			return []string{types.NoValue}
		}
		return []string{t.Format(bucket.Layout())}
	case types.Bool:
		b, ok := types.AsBool(raw)
		if !ok {
			return []string{types.NoValue}
		}
		return []string{strconv.FormatBool(b)}
	}
	return []string{types.AsString(raw)}
}

// orderedKeys lists group keys for display: enum declaration order first,
// then any other key lexicographically, with the no-value key last.
func orderedKeys(field types.Field, groups map[string]float64) []string {
	keys := make([]string, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	if field.Type == types.Enum {
		for _, v := range field.Values {
			keys = append(keys, v)
			seen[v] = true
		}
	}

	var rest []string
	for k := range groups {
		if seen[k] || k == types.NoValue {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	if _, ok := groups[types.NoValue]; ok {
		keys = append(keys, types.NoValue)
	}
	return keys
}

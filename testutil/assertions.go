package testutil

import (
	"reflect"
	"testing"

	"github.com/arthur-debert/nanoview/types"
)

// AssertRecordCount checks that the slice contains the expected number of records
func AssertRecordCount(t testing.TB, records []types.Record, expected int, context ...string) {
	t.Helper()
	if len(records) != expected {
		ctx := ""
		if len(context) > 0 {
			ctx = " " + context[0]
		}
		t.Errorf("expected %d records%s, got %d (%v)", expected, ctx, len(records), IDs(records))
	}
}

// AssertIDs checks the identifiers of records, in order
func AssertIDs(t testing.TB, records []types.Record, expected ...string) {
	t.Helper()
	AssertIDsOf(t, types.DefaultIDField, records, expected...)
}

// AssertIDsOf checks the identifiers stored under idField, in order
func AssertIDsOf(t testing.TB, idField string, records []types.Record, expected ...string) {
	t.Helper()
	got := IDsOf(records, idField)
	if len(expected) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected ids %v, got %v", expected, got)
	}
}

// AssertRecordExists verifies that a record with the given id is in the slice
func AssertRecordExists(t testing.TB, records []types.Record, idField, id string) {
	t.Helper()
	for _, rec := range records {
		if rec.ID(idField) == id {
			return
		}
	}
	t.Errorf("record %s not found in results", id)
}

// AssertRecordNotExists verifies that no record with the given id is in the slice
func AssertRecordNotExists(t testing.TB, records []types.Record, idField, id string) {
	t.Helper()
	for _, rec := range records {
		if rec.ID(idField) == id {
			t.Errorf("record %s should not be in results", id)
			return
		}
	}
}

// AssertScalar checks a scalar aggregate of a view
func AssertScalar(t testing.TB, view types.DerivedView, name string, expected float64) {
	t.Helper()
	agg, ok := view.Aggregates[name]
	if !ok {
		t.Errorf("aggregate %q missing from view", name)
		return
	}
	if agg.Scalar != expected {
		t.Errorf("aggregate %q: expected %v, got %v", name, expected, agg.Scalar)
	}
}

// AssertGroups checks the group mapping and key order of a grouped aggregate
func AssertGroups(t testing.TB, view types.DerivedView, name string, expected map[string]float64, keys ...string) {
	t.Helper()
	agg, ok := view.Aggregates[name]
	if !ok {
		t.Errorf("aggregate %q missing from view", name)
		return
	}
	if !reflect.DeepEqual(agg.Groups, expected) {
		t.Errorf("aggregate %q: expected groups %v, got %v", name, expected, agg.Groups)
	}
	if len(keys) > 0 && !reflect.DeepEqual(agg.Keys, keys) {
		t.Errorf("aggregate %q: expected keys %v, got %v", name, keys, agg.Keys)
	}
}

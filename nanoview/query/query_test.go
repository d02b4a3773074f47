package query_test

import (
	"errors"
	"testing"
	"time"

	"github.com/arthur-debert/nanoview/nanoview/query"
	"github.com/arthur-debert/nanoview/testutil"
	"github.com/arthur-debert/nanoview/types"
)

func peopleSchema() *types.Schema {
	return types.NewSchema("people", "id",
		types.Field{Name: "name", Type: types.String, Searchable: true},
		types.Field{Name: "age", Type: types.Number},
	)
}

func people() []types.Record {
	return []types.Record{
		{"name": "B", "age": 30.0},
		{"name": "A", "age": 25.0},
		{"name": "A", "age": 40.0},
	}
}

func ages(records []types.Record) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i], _ = types.AsNumber(rec["age"])
	}
	return out
}

func TestDeriveScenarios(t *testing.T) {
	t.Run("stable sort keeps input order of equal keys", func(t *testing.T) {
		params := types.NewViewParams()
		params.Sort = []types.SortClause{{Field: "name"}}

		view, err := query.Derive(peopleSchema(), people(), params)
		if err != nil {
			t.Fatal(err)
		}

		got := ages(view.Visible)
		want := []float64{25, 40, 30}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected ages %v, got %v", want, got)
			}
		}
	})

	t.Run("filter narrows visible and count", func(t *testing.T) {
		params := types.NewViewParams()
		params.Filters["name"] = "A"

		view, err := query.Derive(peopleSchema(), people(), params)
		if err != nil {
			t.Fatal(err)
		}

		testutil.AssertRecordCount(t, view.Visible, 2)
		testutil.AssertScalar(t, view, types.CountAggregate, 2)
	})

	t.Run("second page holds positions four to seven", func(t *testing.T) {
		params := types.NewViewParams()
		params.Page = types.Page{Index: 2, Size: 4}

		view, err := query.Derive(testutil.NumberedSchema(), testutil.Numbered(10), params)
		if err != nil {
			t.Fatal(err)
		}

		testutil.AssertIDs(t, view.Page, "r04", "r05", "r06", "r07")
		testutil.AssertRecordCount(t, view.Visible, 10)
	})

	t.Run("out of range page is empty", func(t *testing.T) {
		params := types.NewViewParams()
		params.Page = types.Page{Index: 5, Size: 4}

		view, err := query.Derive(testutil.NumberedSchema(), testutil.Numbered(10), params)
		if err != nil {
			t.Fatalf("out of range page should not error: %v", err)
		}

		if view.Page == nil {
			t.Error("page should be an empty slice, not nil")
		}
		testutil.AssertRecordCount(t, view.Page, 0)
		if view.PageInfo.TotalPages != 3 {
			t.Errorf("expected 3 total pages, got %d", view.PageInfo.TotalPages)
		}
	})

	t.Run("unknown sort field is an error", func(t *testing.T) {
		params := types.NewViewParams()
		params.Sort = []types.SortClause{{Field: "nonexistent"}}

		_, err := query.Derive(peopleSchema(), people(), params)
		if !errors.Is(err, types.ErrUnknownField) {
			t.Fatalf("expected ErrUnknownField, got %v", err)
		}
	})
}

func TestDeriveErrorsBeforeData(t *testing.T) {
	team := testutil.LoadTeam(t)
	engine, err := query.NewEngine(team.Schema)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		params func(p *types.ViewParams)
		want   error
	}{
		{
			name:   "unknown filter field",
			params: func(p *types.ViewParams) { p.Filters["nope"] = "x" },
			want:   types.ErrUnknownField,
		},
		{
			name:   "unknown sort field",
			params: func(p *types.ViewParams) { p.Sort = []types.SortClause{{Field: "nope"}} },
			want:   types.ErrUnknownField,
		},
		{
			name:   "undeclared enum value",
			params: func(p *types.ViewParams) { p.Filters["department"] = "marketing" },
			want:   types.ErrInvalidFilter,
		},
		{
			name:   "numeric range on string field",
			params: func(p *types.ViewParams) { p.Filters["name"] = types.Between(1, 2) },
			want:   types.ErrInvalidFilter,
		},
		{
			name:   "date range on number field",
			params: func(p *types.ViewParams) { p.Filters["salary"] = types.DateRange{} },
			want:   types.ErrInvalidFilter,
		},
		{
			name:   "non numeric value for number field",
			params: func(p *types.ViewParams) { p.Filters["salary"] = "lots" },
			want:   types.ErrInvalidFilter,
		},
		{
			name:   "relative date without now",
			params: func(p *types.ViewParams) { p.Filters["hired"] = types.Within(-24*time.Hour, 0) },
			want:   types.ErrMissingNow,
		},
		{
			name:   "negative page size",
			params: func(p *types.ViewParams) { p.Page = types.Page{Index: 1, Size: -1} },
			want:   types.ErrInvalidPage,
		},
		{
			name:   "zero page index",
			params: func(p *types.ViewParams) { p.Page = types.Page{Index: 0, Size: 5} },
			want:   types.ErrInvalidPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := types.NewViewParams()
			tt.params(&params)

			// Errors surface even when there is nothing to filter
			for _, records := range [][]types.Record{nil, team.Records} {
				_, err := engine.Derive(records, params)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v with %d records, got %v", tt.want, len(records), err)
				}
			}
		})
	}
}

func TestNewEngine(t *testing.T) {
	schema := testutil.TeamSchema()

	t.Run("accepts valid aggregates", func(t *testing.T) {
		engine, err := query.NewEngine(schema,
			types.AggregateSpec{Name: "payroll", Kind: types.Sum, Field: "salary"},
			types.AggregateSpec{Name: "by_department", Kind: types.CountBy, Field: "department"},
		)
		if err != nil {
			t.Fatal(err)
		}
		if len(engine.Aggregates()) != 2 {
			t.Errorf("expected 2 aggregates, got %d", len(engine.Aggregates()))
		}
		if engine.Schema() != schema {
			t.Error("engine should keep the schema it was built with")
		}
	})

	t.Run("rejects sum over a string field", func(t *testing.T) {
		_, err := query.NewEngine(schema, types.AggregateSpec{Name: "bad", Kind: types.Sum, Field: "name"})
		if !errors.Is(err, types.ErrInvalidAggregate) {
			t.Errorf("expected ErrInvalidAggregate, got %v", err)
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := query.NewEngine(schema,
			types.AggregateSpec{Name: "x", Kind: types.Sum, Field: "salary"},
			types.AggregateSpec{Name: "x", Kind: types.Max, Field: "salary"},
		)
		if !errors.Is(err, types.ErrInvalidAggregate) {
			t.Errorf("expected ErrInvalidAggregate, got %v", err)
		}
	})

	t.Run("reserves the count name", func(t *testing.T) {
		_, err := query.NewEngine(schema, types.AggregateSpec{Name: "count", Kind: types.Sum, Field: "salary"})
		if !errors.Is(err, types.ErrInvalidAggregate) {
			t.Errorf("expected ErrInvalidAggregate, got %v", err)
		}
	})

	t.Run("rejects invalid schema", func(t *testing.T) {
		_, err := query.NewEngine(&types.Schema{})
		if !errors.Is(err, types.ErrInvalidSchema) {
			t.Errorf("expected ErrInvalidSchema, got %v", err)
		}
	})
}

func TestDeriveDoesNotShareRecords(t *testing.T) {
	team := testutil.LoadTeam(t)

	params := types.NewViewParams()
	params.Sort = []types.SortClause{{Field: "salary", Descending: true}}

	view, err := query.Derive(team.Schema, team.Records, params)
	if err != nil {
		t.Fatal(err)
	}

	// Input order is untouched by sorting
	testutil.AssertIDs(t, team.Records, "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8")

	// Mutating the view leaves the collection alone
	view.Visible[0]["name"] = "changed"
	view.Visible[0]["skills"].([]string)[0] = "changed"
	if team.Ada["name"] != "Ada Lovelace" {
		t.Errorf("collection record was mutated through the view: %v", team.Ada["name"])
	}
	if team.Ada["skills"].([]string)[0] != "go" {
		t.Errorf("collection list was mutated through the view: %v", team.Ada["skills"])
	}
}

package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/nanoview/catalog"
	"github.com/arthur-debert/nanoview/testutil"
	"github.com/arthur-debert/nanoview/types"
)

func TestBuiltins(t *testing.T) {
	want := "events,inventory,invoices,portfolio,rbac,shipments,team"
	if got := strings.Join(catalog.Names(), ","); got != want {
		t.Fatalf("Names() = %s, want %s", got, want)
	}

	for _, name := range catalog.Names() {
		t.Run(name, func(t *testing.T) {
			app, err := catalog.Get(name)
			if err != nil {
				t.Fatal(err)
			}
			if app.Title == "" || len(app.Seeds) == 0 {
				t.Errorf("app %s should have a title and seeds", name)
			}

			view, err := app.Engine().Derive(app.SeedRecords(), app.DefaultParams())
			if err != nil {
				t.Fatalf("default view failed: %v", err)
			}
			if view.PageInfo.TotalItems != len(app.Seeds) {
				t.Errorf("expected %d visible seeds, got %d", len(app.Seeds), view.PageInfo.TotalItems)
			}
			testutil.AssertScalar(t, view, types.CountAggregate, float64(len(app.Seeds)))
			for _, spec := range app.Aggregates {
				if _, ok := view.Aggregates[spec.Name]; !ok {
					t.Errorf("aggregate %s missing from view", spec.Name)
				}
			}
		})
	}
}

func TestTeamApp(t *testing.T) {
	app, err := catalog.Get("team")
	if err != nil {
		t.Fatal(err)
	}

	params := app.DefaultParams()
	if params.Page.Size != 10 || params.Page.Index != 1 {
		t.Errorf("unexpected default page %+v", params.Page)
	}

	view, err := app.Engine().Derive(app.SeedRecords(), params)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertScalar(t, view, "payroll", 740000)
	testutil.AssertGroups(t, view, "headcount_by_department",
		map[string]float64{"engineering": 3, "design": 2, "sales": 2, "support": 1},
		"engineering", "design", "sales", "support")

	if view.Page[0]["name"] != "Ada Lovelace" {
		t.Errorf("default sort is by name, got %v first", view.Page[0]["name"])
	}
}

func TestInventoryApp(t *testing.T) {
	app, err := catalog.Get("inventory")
	if err != nil {
		t.Fatal(err)
	}
	if app.Schema.IDField != "sku" {
		t.Errorf("expected sku id field, got %s", app.Schema.IDField)
	}
	if f, ok := app.Schema.Field("sku"); !ok || f.Type != types.String {
		t.Errorf("id field should be declared on the initialized schema, got %+v, %v", f, ok)
	}

	view, err := app.Engine().Derive(app.SeedRecords(), app.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertGroups(t, view, "by_status",
		map[string]float64{"in_stock": 3, "low": 2, "out_of_stock": 1, "discontinued": 1},
		"in_stock", "low", "out_of_stock", "discontinued")

	// Ordered status first, then name
	testutil.AssertIDsOf(t, app.Schema.IDField, view.Visible[:3], "HW-001", "OF-201", "EL-101")
}

func TestSeedRecordsAreCopies(t *testing.T) {
	app, err := catalog.Get("rbac")
	if err != nil {
		t.Fatal(err)
	}
	seeds := app.SeedRecords()
	seeds[0]["user"] = "mallory"
	seeds[0]["permissions"].([]string)[0] = "root"

	again := app.SeedRecords()
	if again[0]["user"] != "alice" || again[0]["permissions"].([]string)[0] != "read" {
		t.Errorf("seed records were mutated through a copy: %v", again[0])
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := catalog.Get("crm")
	if err == nil || !strings.Contains(err.Error(), "available: events") {
		t.Errorf("expected unknown app error listing apps, got %v", err)
	}
}

const minimalApp = `
name: notes
schema:
  fields:
    - {name: title, type: string, required: true}
    - {name: pinned, type: bool, default: false}
sort:
  - {field: title}
seeds:
  - {id: n1, title: First}
`

func TestParse(t *testing.T) {
	app, err := catalog.Parse([]byte(minimalApp))
	if err != nil {
		t.Fatal(err)
	}
	if app.Schema.Name != "notes" || app.Schema.IDField != "id" {
		t.Errorf("schema defaults not applied: %s/%s", app.Schema.Name, app.Schema.IDField)
	}
	if app.Seeds[0]["pinned"] != false {
		t.Errorf("seed defaults not applied: %v", app.Seeds[0])
	}
	if app.DefaultParams().Page.Size != 0 {
		t.Error("no page size means no pagination")
	}

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"missing name", "schema: {fields: [{name: a, type: string}]}", types.ErrInvalidSchema},
		{"missing schema", "name: x", types.ErrInvalidSchema},
		{"bad field type", "name: x\nschema: {fields: [{name: a, type: money}]}", types.ErrInvalidSchema},
		{"unknown sort field", "name: x\nschema: {fields: [{name: a, type: string}]}\nsort: [{field: b}]", types.ErrUnknownField},
		{"bad aggregate", "name: x\nschema: {fields: [{name: a, type: string}]}\naggregates: [{name: s, kind: sum, field: a}]", types.ErrInvalidAggregate},
		{"negative page size", "name: x\nschema: {fields: [{name: a, type: string}]}\npage_size: -1", types.ErrInvalidPage},
		{"seed without id", "name: x\nschema: {fields: [{name: a, type: string}]}\nseeds: [{a: b}]", types.ErrInvalidRecord},
		{"seed with unknown field", "name: x\nschema: {fields: [{name: a, type: string}]}\nseeds: [{id: '1', z: b}]", types.ErrInvalidRecord},
		{"duplicate seed", "name: x\nschema: {fields: [{name: a, type: string}]}\nseeds: [{id: '1'}, {id: '1'}]", types.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("not yaml", func(t *testing.T) {
		if _, err := catalog.Parse([]byte("name: [unclosed")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	if err := os.WriteFile(path, []byte(minimalApp), 0644); err != nil {
		t.Fatal(err)
	}

	app, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertIDs(t, app.SeedRecords(), "n1")

	if _, err := catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

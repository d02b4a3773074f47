package testutil

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/arthur-debert/nanoview/types"
)

//go:embed testdata/team.json
var teamJSON []byte

// TeamData provides typed access to the team fixture
type TeamData struct {
	Schema  *types.Schema
	Records []types.Record

	// Named members, useful when a test cares about one record
	Ada   types.Record // t1 - lead, engineering, hired 2019
	Bob   types.Record // t2 - mid, engineering, lowercase name
	Carla types.Record // t3 - senior, design
	Dan   types.Record // t4 - junior, sales, no skills, inactive
	Eve   types.Record // t5 - senior, engineering, lowercase name
	Frank types.Record // t6 - mid, sales
	Gus   types.Record // t7 - junior, design, no salary
	Hana  types.Record // t8 - lead, sales, inactive

	// All records by id
	ByID map[string]types.Record
}

type fixtureData struct {
	Records []map[string]interface{} `json:"records"`
}

// TeamSchema returns the schema of the team fixture
func TeamSchema() *types.Schema {
	return types.NewSchema("team", "id",
		types.Field{Name: "id", Type: types.String},
		types.Field{Name: "name", Type: types.String, Searchable: true, CaseInsensitive: true, Required: true},
		types.Field{Name: "role", Type: types.Enum, Values: []string{"junior", "mid", "senior", "lead"}, Ordered: true},
		types.Field{Name: "department", Type: types.Enum, Values: []string{"engineering", "design", "sales"}},
		types.Field{Name: "salary", Type: types.Number},
		types.Field{Name: "skills", Type: types.List, Searchable: true},
		types.Field{Name: "hired", Type: types.Date},
		types.Field{Name: "active", Type: types.Bool, Default: true},
	)
}

// LoadTeam decodes and normalizes the team fixture. Records keep the
// fixture's order.
func LoadTeam(t testing.TB) *TeamData {
	t.Helper()

	schema := TeamSchema()

	var fixture fixtureData
	if err := json.Unmarshal(teamJSON, &fixture); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}

	team := &TeamData{
		Schema: schema,
		ByID:   make(map[string]types.Record),
	}
	for _, raw := range fixture.Records {
		rec, err := schema.NormalizeRecord(types.Record(raw))
		if err != nil {
			t.Fatalf("failed to normalize fixture record %v: %v", raw["id"], err)
		}
		team.Records = append(team.Records, rec)
		team.ByID[rec.ID(schema.IDField)] = rec
	}

	team.Ada = team.ByID["t1"]
	team.Bob = team.ByID["t2"]
	team.Carla = team.ByID["t3"]
	team.Dan = team.ByID["t4"]
	team.Eve = team.ByID["t5"]
	team.Frank = team.ByID["t6"]
	team.Gus = team.ByID["t7"]
	team.Hana = team.ByID["t8"]

	return team
}

// Where returns the fixture records matching pred, in fixture order
func (d *TeamData) Where(pred func(types.Record) bool) []types.Record {
	var out []types.Record
	for _, rec := range d.Records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// NumberedSchema is a minimal schema with an id and a sequence number
func NumberedSchema() *types.Schema {
	return types.NewSchema("numbered", "id",
		types.Field{Name: "seq", Type: types.Number},
		types.Field{Name: "label", Type: types.String, Searchable: true},
	)
}

// Numbered returns n records with ids r00, r01, ... and seq 0..n-1
func Numbered(n int) []types.Record {
	out := make([]types.Record, n)
	for i := range out {
		out[i] = types.Record{
			"id":    fmt.Sprintf("r%02d", i),
			"seq":   float64(i),
			"label": fmt.Sprintf("item %d", i),
		}
	}
	return out
}

// IDs returns the identifiers of records in order, read from the default
// id field
func IDs(records []types.Record) []string {
	return IDsOf(records, types.DefaultIDField)
}

// IDsOf returns the identifiers of records in order, read from idField
func IDsOf(records []types.Record, idField string) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID(idField)
	}
	return ids
}

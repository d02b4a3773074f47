package migration

import (
	"reflect"
	"testing"

	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/arthur-debert/nanoview/types"
)

func testSchema() *types.Schema {
	return types.NewSchema("tasks", "id",
		types.Field{Name: "id", Type: types.String, Required: true},
		types.Field{Name: "title", Type: types.String, Required: true},
		types.Field{Name: "status", Type: types.Enum, Values: []string{"open", "done"}},
		types.Field{Name: "points", Type: types.Number},
		types.Field{Name: "tags", Type: types.List},
		types.Field{Name: "archived", Type: types.Bool},
	)
}

func testRecords() []types.Record {
	return []types.Record{
		{"id": "t1", "title": "Write docs", "state": "open", "points": "3"},
		{"id": "t2", "title": "Fix bug", "state": "done", "points": 5.0},
		{"id": "t3", "title": "Ship it"},
	}
}

func TestRenameField(t *testing.T) {
	api := NewAPI()

	t.Run("renames in place", func(t *testing.T) {
		input := testRecords()
		out, result := api.RenameField(input, testSchema(), "state", "status", Options{})
		if !result.Success || result.Code != CodeSuccess {
			t.Fatalf("expected success, got %+v", result.Messages)
		}
		if result.Stats.ModifiedRecords != 2 || result.Stats.TotalRecords != 3 {
			t.Errorf("unexpected stats %+v", result.Stats)
		}
		if !reflect.DeepEqual(result.ModifiedIDs, []string{"t1", "t2"}) {
			t.Errorf("unexpected modified ids %v", result.ModifiedIDs)
		}
		if out[0]["status"] != "open" || out[1]["status"] != "done" {
			t.Errorf("rename did not move values: %v", out)
		}
		if _, ok := out[0]["state"]; ok {
			t.Error("old field should be gone")
		}
		if _, ok := input[0]["status"]; ok {
			t.Error("input records must not be modified")
		}
	})

	t.Run("dry run", func(t *testing.T) {
		out, result := api.RenameField(testRecords(), testSchema(), "state", "status", Options{DryRun: true})
		if !result.Success || result.Stats.ModifiedRecords != 2 {
			t.Fatalf("unexpected result %+v", result)
		}
		if _, ok := out[0]["status"]; ok {
			t.Error("dry run must not apply changes")
		}
		last := result.Messages[len(result.Messages)-1]
		if last.Text != "(DRY RUN - no changes applied)" {
			t.Errorf("expected dry run notice, got %q", last.Text)
		}
	})

	t.Run("missing field warns", func(t *testing.T) {
		_, result := api.RenameField(testRecords(), testSchema(), "owner", "status", Options{})
		if !result.Success || result.Stats.ModifiedRecords != 0 {
			t.Fatalf("unexpected result %+v", result)
		}
		if result.Messages[0].Level != LevelWarning {
			t.Errorf("expected a warning, got %+v", result.Messages)
		}
	})

	t.Run("undeclared target warns", func(t *testing.T) {
		_, result := api.RenameField(testRecords(), testSchema(), "state", "phase", Options{})
		found := false
		for _, msg := range result.Messages {
			if msg.Level == LevelWarning {
				found = true
			}
		}
		if !result.Success || !found {
			t.Errorf("expected success with a warning, got %+v", result.Messages)
		}
	})

	errorTests := []struct {
		name     string
		from, to string
	}{
		{"empty name", "", "status"},
		{"same name", "state", "state"},
		{"id field", "id", "key"},
		{"conflict", "title", "state"},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			out, result := api.RenameField(testRecords(), testSchema(), tt.from, tt.to, Options{})
			if result.Success || result.Code != CodeValidationError || !result.HasErrors() {
				t.Errorf("expected validation error, got %+v", result)
			}
			if !reflect.DeepEqual(out, testRecords()) {
				t.Error("failed validation must leave records unchanged")
			}
		})
	}
}

func TestRemoveField(t *testing.T) {
	api := NewAPI()

	out, result := api.RemoveField(testRecords(), testSchema(), "points", Options{})
	if !result.Success || result.Stats.ModifiedRecords != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	for _, rec := range out {
		if _, ok := rec["points"]; ok {
			t.Errorf("points not removed from %v", rec)
		}
	}

	_, result = api.RemoveField(testRecords(), testSchema(), "title", Options{DryRun: true})
	warned := false
	for _, msg := range result.Messages {
		if msg.Level == LevelWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("removing a required field should warn")
	}

	if _, result = api.RemoveField(testRecords(), testSchema(), "id", Options{}); result.Success {
		t.Error("removing the id field should fail")
	}
}

func TestAddField(t *testing.T) {
	api := NewAPI()

	out, result := api.AddField(testRecords(), testSchema(), "points", "1", Options{})
	if !result.Success {
		t.Fatalf("unexpected failure %+v", result.Messages)
	}
	if result.Stats.ModifiedRecords != 1 || result.Stats.SkippedRecords != 2 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if out[2]["points"] != 1.0 {
		t.Errorf("default should be normalized to a number, got %#v", out[2]["points"])
	}
	if out[0]["points"] != "3" {
		t.Errorf("existing values must be kept, got %#v", out[0]["points"])
	}

	out, _ = api.AddField(testRecords(), testSchema(), "tags", []string{"backlog"}, Options{})
	out[0]["tags"].([]string)[0] = "changed"
	if out[1]["tags"].([]string)[0] != "backlog" {
		t.Error("list defaults must not be shared between records")
	}

	errorTests := []struct {
		name  string
		field string
		value interface{}
	}{
		{"invalid enum", "status", "blocked"},
		{"invalid number", "points", "many"},
		{"empty default", "status", ""},
		{"id field", "id", "x"},
		{"empty name", " ", "x"},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			if _, result := api.AddField(testRecords(), testSchema(), tt.field, tt.value, Options{}); result.Success {
				t.Errorf("expected failure, got %+v", result)
			}
		})
	}
}

func TestTransformField(t *testing.T) {
	api := NewAPI()

	out, result := api.TransformField(testRecords(), testSchema(), "points", "toNumber", Options{})
	if !result.Success || result.Code != CodeSuccess {
		t.Fatalf("unexpected result %+v", result)
	}
	if out[0]["points"] != 3.0 {
		t.Errorf("expected 3.0, got %#v", out[0]["points"])
	}

	records := testRecords()
	records[1]["points"] = "lots"
	out, result = api.TransformField(records, testSchema(), "points", "toNumber", Options{})
	if !result.Success || result.Code != CodePartialFailure {
		t.Fatalf("expected partial failure, got %+v", result)
	}
	if result.Stats.ModifiedRecords != 1 || result.Stats.SkippedRecords != 1 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if out[1]["points"] != "lots" {
		t.Errorf("failed values must be left unchanged, got %#v", out[1]["points"])
	}

	if _, result = api.TransformField(testRecords(), testSchema(), "points", "toRoman", Options{}); result.Code != CodeValidationError {
		t.Errorf("unknown transformer should fail validation, got %+v", result)
	}
	if _, result = api.TransformField(testRecords(), testSchema(), "id", "toUpperCase", Options{}); result.Success {
		t.Error("transforming the id field should fail")
	}
}

func TestTransformers(t *testing.T) {
	tests := []struct {
		name  string
		fn    Transformer
		input interface{}
		want  interface{}
	}{
		{"string from number", ToString, 3.5, "3.5"},
		{"string from list", ToString, []interface{}{"a", "b"}, "a,b"},
		{"number from string", ToNumber, " 42 ", 42.0},
		{"number from bool", ToNumber, true, 1.0},
		{"bool from yes", ToBool, "Yes", true},
		{"bool from zero", ToBool, 0.0, false},
		{"date from day", ToDate, "2024-03-01", "2024-03-01T00:00:00Z"},
		{"list from string", ToList, "go, sql;;rust", []string{"go", "sql", "rust"}},
		{"list from json list", ToList, []interface{}{"a"}, []string{"a"}},
		{"lower case list", ToLowerCase, []interface{}{"Go", "SQL"}, []string{"go", "sql"}},
		{"upper case", ToUpperCase, "sku-1", "SKU-1"},
		{"trim", Trim, "  padded ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}

	for name, input := range map[string]interface{}{"toNumber": "abc", "toBool": "maybe", "toDate": "someday"} {
		if _, err := TransformerRegistry[name](input); err == nil {
			t.Errorf("%s(%v) should fail", name, input)
		}
	}
	for _, name := range TransformerNames() {
		if _, ok := TransformerRegistry[name]; !ok {
			t.Errorf("transformer %s is listed but not registered", name)
		}
	}
}

func TestValidateSchema(t *testing.T) {
	api := NewAPI()

	valid := []types.Record{
		{"id": "t1", "title": "Write docs", "status": "open", "tags": []interface{}{"docs"}},
		{"id": "t2", "title": "Fix bug", "points": 5.0},
	}
	if result := api.ValidateSchema(valid, testSchema()); !result.Success {
		t.Fatalf("expected valid records, got %+v", result.Messages)
	}

	invalid := append(valid,
		types.Record{"id": "t3", "title": "Ship", "state": "done"},
		types.Record{"id": "t4"},
		types.Record{"id": "t1", "title": "Duplicate"},
		types.Record{"title": "No id"},
	)
	result := api.ValidateSchema(invalid, testSchema())
	if result.Success || result.Code != CodeValidationError {
		t.Fatalf("expected validation failure, got %+v", result)
	}
	if result.Stats.SkippedRecords != 4 {
		t.Errorf("expected 4 failing records, got %d", result.Stats.SkippedRecords)
	}
	if result.Stats.ModifiedRecords != 0 {
		t.Error("validation never modifies records")
	}

	if result := api.ValidateSchema(valid, nil); result.Success {
		t.Error("validation without a schema should fail")
	}
}

func TestLoadSave(t *testing.T) {
	store := storage.NewMemoryStore()

	records, ok, err := Load(store, "tasks")
	if err != nil || ok || records != nil {
		t.Fatalf("expected no records for an unsaved key, got %v %v %v", records, ok, err)
	}

	if err := Save(store, "tasks", testRecords()); err != nil {
		t.Fatal(err)
	}
	records, ok, err = Load(store, "tasks")
	if err != nil || !ok {
		t.Fatalf("load failed: %v %v", ok, err)
	}
	if len(records) != 3 || records[0]["state"] != "open" {
		t.Errorf("unexpected records %v", records)
	}

	if err := store.Save("broken", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(store, "broken"); err == nil {
		t.Error("expected an error for a corrupt blob")
	}
}

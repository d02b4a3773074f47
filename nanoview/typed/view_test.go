package typed_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/nanoview/nanoview/typed"
	"github.com/arthur-debert/nanoview/types"
)

type Role string

type Member struct {
	ID         string    `json:"id" view:"id"`
	Name       string    `json:"name" view:"searchable,ci,required"`
	Role       Role      `json:"role" values:"junior,mid,senior,lead" view:"ordered"`
	Department string    `values:"engineering,design,sales"`
	Salary     *float64  `json:"salary"`
	Skills     []string  `json:"skills" view:"searchable"`
	Hired      time.Time `json:"hired"`
	Active     bool      `json:"active"`
	Note       string    `json:"-"`
}

func salary(n float64) *float64 { return &n }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func members() []Member {
	return []Member{
		{ID: "m1", Name: "Ada", Role: "lead", Department: "engineering", Salary: salary(150000), Skills: []string{"go"}, Hired: day("2019-03-01"), Active: true},
		{ID: "m2", Name: "bob", Role: "mid", Department: "engineering", Salary: salary(95000), Skills: []string{"go", "sql"}, Hired: day("2021-06-15"), Active: true},
		{ID: "m3", Name: "Carla", Role: "senior", Department: "design", Salary: salary(110000), Hired: day("2020-01-10")},
		{ID: "m4", Name: "Gus", Role: "junior", Department: "design", Skills: []string{"css"}, Note: "not stored"},
	}
}

func TestNewView(t *testing.T) {
	view, err := typed.NewView[Member]()
	if err != nil {
		t.Fatal(err)
	}

	schema := view.Schema()
	if schema.Name != "member" || schema.IDField != "id" {
		t.Errorf("unexpected schema identity %s/%s", schema.Name, schema.IDField)
	}
	want := "id,name,role,department,salary,skills,hired,active"
	if got := strings.Join(schema.FieldNames(), ","); got != want {
		t.Errorf("fields = %s, want %s", got, want)
	}

	expectTypes := map[string]types.FieldType{
		"name":       types.String,
		"role":       types.Enum,
		"department": types.Enum,
		"salary":     types.Number,
		"skills":     types.List,
		"hired":      types.Date,
		"active":     types.Bool,
	}
	for name, ft := range expectTypes {
		f, _ := schema.Field(name)
		if f.Type != ft {
			t.Errorf("field %s has type %s, want %s", name, f.Type, ft)
		}
	}
	if f, _ := schema.Field("name"); !f.Searchable || !f.CaseInsensitive || !f.Required {
		t.Errorf("name options not parsed: %+v", f)
	}
	if f, _ := schema.Field("role"); !f.Ordered || len(f.Values) != 4 {
		t.Errorf("role options not parsed: %+v", f)
	}
}

func TestDerive(t *testing.T) {
	view, err := typed.NewView[Member](
		types.AggregateSpec{Name: "payroll", Kind: types.Sum, Field: "salary"},
		types.AggregateSpec{Name: "by_department", Kind: types.CountBy, Field: "department"},
	)
	if err != nil {
		t.Fatal(err)
	}

	params := types.NewViewParams()
	params.Query = "GO"
	params.Sort = []types.SortClause{{Field: "role", Descending: true}}
	result, err := view.Derive(members(), params)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Visible) != 2 || result.Visible[0].ID != "m1" || result.Visible[1].ID != "m2" {
		t.Errorf("unexpected visible %+v", result.Visible)
	}
	if result.Aggregates["payroll"].Scalar != 245000 {
		t.Errorf("payroll = %v", result.Aggregates["payroll"].Scalar)
	}
	if groups := result.Aggregates["by_department"].Groups; groups["engineering"] != 2 || groups["design"] != 0 {
		t.Errorf("unexpected groups %v", groups)
	}

	t.Run("pagination", func(t *testing.T) {
		params := types.NewViewParams()
		params.Sort = []types.SortClause{{Field: "hired"}}
		params.Page = types.Page{Index: 2, Size: 3}

		result, err := view.Derive(members(), params)
		if err != nil {
			t.Fatal(err)
		}
		// Gus has no hire date and sorts first
		if len(result.Page) != 1 || result.Page[0].ID != "m2" {
			t.Errorf("unexpected page %+v", result.Page)
		}
		if result.PageInfo.TotalPages != 2 || result.PageInfo.TotalItems != 4 {
			t.Errorf("unexpected page info %+v", result.PageInfo)
		}
	})

	t.Run("engine errors surface", func(t *testing.T) {
		params := types.NewViewParams()
		params.Filters["nickname"] = "x"
		if _, err := view.Derive(members(), params); !errors.Is(err, types.ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, got %v", err)
		}
	})
}

func TestConversion(t *testing.T) {
	view, err := typed.NewView[Member]()
	if err != nil {
		t.Fatal(err)
	}

	items := members()
	rec, err := view.ToRecord(items[3])
	if err != nil {
		t.Fatal(err)
	}
	want := types.Record{
		"id":         "m4",
		"name":       "Gus",
		"role":       "junior",
		"department": "design",
		"skills":     []string{"css"},
		"active":     false,
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("ToRecord = %#v, want %#v", rec, want)
	}

	back, err := view.FromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	items[3].Note = ""
	if !reflect.DeepEqual(back, items[3]) {
		t.Errorf("FromRecord = %+v, want %+v", back, items[3])
	}

	rec, err = view.ToRecord(items[0])
	if err != nil {
		t.Fatal(err)
	}
	if rec["salary"] != 150000.0 || rec["hired"] != "2019-03-01T00:00:00Z" {
		t.Errorf("unexpected converted values %#v", rec)
	}
	back, err = view.FromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	if *back.Salary != 150000 || !back.Hired.Equal(items[0].Hired) {
		t.Errorf("unexpected round trip %+v", back)
	}

	if _, err := view.FromRecord(types.Record{"salary": "lots"}); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
	if _, err := view.ToRecord(Member{ID: "x", Name: "X", Role: "ceo"}); !errors.Is(err, types.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for undeclared enum value, got %v", err)
	}
}

type defaulted struct {
	ID     string  `json:"id"`
	Status string  `json:"status" values:"open,closed" default:"open"`
	Weight float64 `json:"weight"`
}

func TestDefaults(t *testing.T) {
	view, err := typed.NewView[defaulted]()
	if err != nil {
		t.Fatal(err)
	}
	rec, err := view.ToRecord(defaulted{ID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if rec["status"] != "open" {
		t.Errorf("default not applied: %#v", rec)
	}
	if rec["weight"] != 0.0 {
		t.Errorf("zero numbers are values, got %#v", rec["weight"])
	}
}

type twoIDs struct {
	A string `view:"id"`
	B string `view:"id"`
}

type unsupported struct {
	Tags map[string]string
}

type badOption struct {
	Name string `view:"sortable"`
}

type orderedString struct {
	Name string `view:"ordered"`
}

func TestNewViewErrors(t *testing.T) {
	if _, err := typed.NewView[int](); err == nil {
		t.Error("expected error for non-struct type")
	}
	if _, err := typed.NewView[twoIDs](); err == nil {
		t.Error("expected error for two id fields")
	}
	if _, err := typed.NewView[unsupported](); err == nil {
		t.Error("expected error for map field")
	}
	if _, err := typed.NewView[badOption](); err == nil {
		t.Error("expected error for unknown view option")
	}
	if _, err := typed.NewView[orderedString](); !errors.Is(err, types.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema for ordered string, got %v", err)
	}
	_, err := typed.NewView[Member](types.AggregateSpec{Name: "x", Kind: types.Sum, Field: "name"})
	if !errors.Is(err, types.ErrInvalidAggregate) {
		t.Errorf("expected ErrInvalidAggregate, got %v", err)
	}
}

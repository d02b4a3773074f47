package validation_test

import (
	"errors"
	"testing"

	"github.com/arthur-debert/nanoview/internal/validation"
	"github.com/arthur-debert/nanoview/types"
)

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		schema  *types.Schema
		wantErr bool
	}{
		{
			name:    "nil schema",
			schema:  nil,
			wantErr: true,
		},
		{
			name: "valid enum field",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "status", Type: types.Enum, Values: []string{"todo", "done"}, Default: "todo"},
			),
		},
		{
			name: "enum without values",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "status", Type: types.Enum},
			),
			wantErr: true,
		},
		{
			name: "duplicate enum value",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "status", Type: types.Enum, Values: []string{"todo", "todo"}},
			),
			wantErr: true,
		},
		{
			name: "enum value collides with any sentinel",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "status", Type: types.Enum, Values: []string{"*"}},
			),
			wantErr: true,
		},
		{
			name: "default outside enum values",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "status", Type: types.Enum, Values: []string{"todo"}, Default: "done"},
			),
			wantErr: true,
		},
		{
			name: "duplicate field",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "title", Type: types.String},
				types.Field{Name: "title", Type: types.String},
			),
			wantErr: true,
		},
		{
			name: "numeric id field",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "id", Type: types.Number},
			),
			wantErr: true,
		},
		{
			name: "ordered on a string field",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "title", Type: types.String, Ordered: true},
			),
			wantErr: true,
		},
		{
			name: "unknown type",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "title", Type: types.FieldType("blob")},
			),
			wantErr: true,
		},
		{
			name: "number default that does not parse",
			schema: types.NewSchema("tasks", "",
				types.Field{Name: "qty", Type: types.Number, Default: "many"},
			),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.schema)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidSchema) {
				t.Errorf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestValidateAggregate(t *testing.T) {
	schema := types.NewSchema("items", "",
		types.Field{Name: "name", Type: types.String},
		types.Field{Name: "qty", Type: types.Number},
		types.Field{Name: "category", Type: types.Enum, Values: []string{"a", "b"}},
	)

	tests := []struct {
		name    string
		spec    types.AggregateSpec
		wantErr bool
	}{
		{"count", types.AggregateSpec{Name: "n", Kind: types.Count}, false},
		{"sum of number", types.AggregateSpec{Name: "total", Kind: types.Sum, Field: "qty"}, false},
		{"sum of string", types.AggregateSpec{Name: "total", Kind: types.Sum, Field: "name"}, true},
		{"sum of missing field", types.AggregateSpec{Name: "total", Kind: types.Sum, Field: "price"}, true},
		{"count by enum", types.AggregateSpec{Name: "by_cat", Kind: types.CountBy, Field: "category"}, false},
		{"count by number", types.AggregateSpec{Name: "by_qty", Kind: types.CountBy, Field: "qty"}, true},
		{"sum by without group", types.AggregateSpec{Name: "qty_by", Kind: types.SumBy, Field: "qty"}, true},
		{"sum by category", types.AggregateSpec{Name: "qty_by", Kind: types.SumBy, Field: "qty", GroupBy: "category"}, false},
		{"unnamed", types.AggregateSpec{Kind: types.Count}, true},
		{"unknown kind", types.AggregateSpec{Name: "x", Kind: "median", Field: "qty"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateAggregate(schema, tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAggregate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidAggregate) {
				t.Errorf("expected ErrInvalidAggregate, got %v", err)
			}
		})
	}
}

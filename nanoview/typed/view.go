// Package typed runs the collection view engine over slices of Go structs.
//
// The record schema is derived from struct tags once, in NewView:
//
//	type Member struct {
//	    ID     string   `json:"id" view:"id"`
//	    Name   string   `json:"name" view:"searchable,ci,required"`
//	    Role   string   `json:"role" values:"junior,mid,senior" view:"ordered"`
//	    Salary *float64 `json:"salary"`
//	    Skills []string `json:"skills" view:"searchable"`
//	    Active bool     `json:"active" default:"true"`
//	}
//
//	view, err := typed.NewView[Member](types.AggregateSpec{Name: "payroll", Kind: types.Sum, Field: "salary"})
//	result, err := view.Derive(members, params)
//
// Pointer fields that are nil and zero times count as missing values.
package typed

import (
	"fmt"
	"reflect"
	"time"

	"github.com/arthur-debert/nanoview/nanoview/query"
	"github.com/arthur-debert/nanoview/types"
)

// View derives views over []T
type View[T any] struct {
	schema *types.Schema
	engine *query.Engine
	metas  []fieldMeta
}

// Result is a DerivedView with typed records
type Result[T any] struct {
	Visible    []T
	Page       []T
	PageInfo   types.PageInfo
	Aggregates map[string]types.AggregateValue
}

// NewView derives the schema of T and validates the aggregate specs against it
func NewView[T any](aggregates ...types.AggregateSpec) (*View[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("typed: %s is not a struct type", t)
	}

	metas, err := parseStructTags(t)
	if err != nil {
		return nil, fmt.Errorf("typed: %s: %w", t.Name(), err)
	}

	idField := types.DefaultIDField
	fields := make([]types.Field, len(metas))
	for i, m := range metas {
		fields[i] = m.field
		if m.isID {
			idField = m.field.Name
		}
	}
	schema := types.NewSchema(toSnakeCase(t.Name()), idField, fields...)

	engine, err := query.NewEngine(schema, aggregates...)
	if err != nil {
		return nil, fmt.Errorf("typed: %s: %w", t.Name(), err)
	}
	return &View[T]{schema: schema, engine: engine, metas: metas}, nil
}

// Schema returns the derived schema
func (v *View[T]) Schema() *types.Schema {
	return v.schema
}

// Derive converts items to records, derives the view and converts the
// visible and page records back
func (v *View[T]) Derive(items []T, params types.ViewParams) (Result[T], error) {
	records, err := v.Records(items)
	if err != nil {
		return Result[T]{}, err
	}

	view, err := v.engine.Derive(records, params)
	if err != nil {
		return Result[T]{}, err
	}

	result := Result[T]{PageInfo: view.PageInfo, Aggregates: view.Aggregates}
	if result.Visible, err = v.Items(view.Visible); err != nil {
		return Result[T]{}, err
	}
	if result.Page, err = v.Items(view.Page); err != nil {
		return Result[T]{}, err
	}
	return result, nil
}

// Records converts items to normalized records with defaults applied
func (v *View[T]) Records(items []T) ([]types.Record, error) {
	records := make([]types.Record, len(items))
	for i, item := range items {
		rec, err := v.ToRecord(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records[i] = rec
	}
	return records, nil
}

// Items converts records back to T
func (v *View[T]) Items(records []types.Record) ([]T, error) {
	items := make([]T, len(records))
	for i, rec := range records {
		item, err := v.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// ToRecord converts one item to a record
func (v *View[T]) ToRecord(item T) (types.Record, error) {
	rv := reflect.ValueOf(item)
	raw := make(types.Record, len(v.metas))
	for _, m := range v.metas {
		if val := plainValue(rv.FieldByIndex(m.index)); val != nil {
			raw[m.field.Name] = val
		}
	}

	rec, err := v.schema.NormalizeRecord(raw)
	if err != nil {
		return nil, err
	}
	return v.schema.ApplyDefaults(rec), nil
}

// FromRecord converts one record to an item. Keys without a struct field
// are ignored.
func (v *View[T]) FromRecord(rec types.Record) (T, error) {
	var item T
	rv := reflect.ValueOf(&item).Elem()
	for _, m := range v.metas {
		raw, ok := rec[m.field.Name]
		if !ok || raw == nil {
			continue
		}
		if err := setValue(rv.FieldByIndex(m.index), raw); err != nil {
			return item, fmt.Errorf("%w: field %q: %v", types.ErrInvalidRecord, m.field.Name, err)
		}
	}
	return item, nil
}

// plainValue unwraps a struct field into the untyped value records hold,
// or nil when it is missing
func plainValue(fv reflect.Value) interface{} {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	if fv.Type() == timeType {
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return nil
		}
		return t
	}

	switch fv.Kind() {
	case reflect.String:
		return fv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(fv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(fv.Uint())
	case reflect.Float32, reflect.Float64:
		return fv.Float()
	case reflect.Bool:
		return fv.Bool()
	case reflect.Slice:
		if fv.IsNil() {
			return nil
		}
		out := make([]string, fv.Len())
		for i := range out {
			out[i] = fv.Index(i).String()
		}
		return out
	}
	return nil
}

func setValue(fv reflect.Value, raw interface{}) error {
	if fv.Kind() == reflect.Ptr {
		p := reflect.New(fv.Type().Elem())
		if err := setValue(p.Elem(), raw); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}
	if fv.Type() == timeType {
		t, ok := types.AsTime(raw)
		if !ok {
			return fmt.Errorf("not a date: %v", raw)
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(types.AsString(raw))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := types.AsNumber(raw)
		if !ok {
			return fmt.Errorf("not a number: %v", raw)
		}
		fv.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := types.AsNumber(raw)
		if !ok || n < 0 {
			return fmt.Errorf("not an unsigned number: %v", raw)
		}
		fv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, ok := types.AsNumber(raw)
		if !ok {
			return fmt.Errorf("not a number: %v", raw)
		}
		fv.SetFloat(n)
	case reflect.Bool:
		b, ok := types.AsBool(raw)
		if !ok {
			return fmt.Errorf("not a bool: %v", raw)
		}
		fv.SetBool(b)
	case reflect.Slice:
		strs, ok := types.AsStrings(raw)
		if !ok {
			return fmt.Errorf("not a list: %v", raw)
		}
		s := reflect.MakeSlice(fv.Type(), len(strs), len(strs))
		for i, str := range strs {
			s.Index(i).SetString(str)
		}
		fv.Set(s)
	default:
		return fmt.Errorf("unsupported type %s", fv.Type())
	}
	return nil
}

// Package query implements the collection view engine: it derives the
// filtered, sorted, paginated and aggregated view of an in-memory record set.
//
// Derive is a pure function of its inputs. The steps always run in the same
// order: query search, field predicates, stable sort, pagination, and
// aggregation over the filtered pre-pagination sequence.
package query

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/nanoview/internal/validation"
	"github.com/arthur-debert/nanoview/types"
)

// Engine derives views for one record schema and a fixed set of aggregates
type Engine struct {
	schema     *types.Schema
	aggregates []types.AggregateSpec
}

// NewEngine validates the schema and aggregate specs and returns an engine
func NewEngine(schema *types.Schema, aggregates ...types.AggregateSpec) (*Engine, error) {
	if err := validation.Validate(schema); err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(aggregates))
	for _, spec := range aggregates {
		if err := validation.ValidateAggregate(schema, spec); err != nil {
			return nil, err
		}
		if names[spec.Name] {
			return nil, fmt.Errorf("%w: duplicate aggregate name %q", types.ErrInvalidAggregate, spec.Name)
		}
		if spec.Name == types.CountAggregate && spec.Kind != types.Count {
			return nil, fmt.Errorf("%w: %q is reserved for the record count", types.ErrInvalidAggregate, types.CountAggregate)
		}
		names[spec.Name] = true
	}

	return &Engine{
		schema:     schema,
		aggregates: append([]types.AggregateSpec(nil), aggregates...),
	}, nil
}

// Schema returns the engine's record schema
func (e *Engine) Schema() *types.Schema {
	return e.schema
}

// Aggregates returns the configured aggregate specs
func (e *Engine) Aggregates() []types.AggregateSpec {
	return append([]types.AggregateSpec(nil), e.aggregates...)
}

// Derive computes the view of records under params.
//
// Unknown sort or filter fields, malformed filter values and invalid pages
// are programmer errors and are returned before any record is looked at, so
// they surface even against an empty collection. An out-of-range page is not
// an error: it yields an empty Page.
func (e *Engine) Derive(records []types.Record, params types.ViewParams) (types.DerivedView, error) {
	filters, err := e.compileFilters(params)
	if err != nil {
		return types.DerivedView{}, err
	}
	sortKeys, err := e.resolveSort(params.Sort)
	if err != nil {
		return types.DerivedView{}, err
	}
	if err := validatePage(params.Page); err != nil {
		return types.DerivedView{}, err
	}

	// Filter by query, then by predicates
	needle := strings.ToLower(params.Query)
	searchFields := e.schema.SearchFields()
	visible := make([]types.Record, 0, len(records))
	for _, rec := range records {
		if !matchesQuery(rec, needle, searchFields) {
			continue
		}
		if !matchesFilters(rec, filters) {
			continue
		}
		// Copy so callers can't mutate the collection through the view
		visible = append(visible, rec.Clone())
	}

	if len(sortKeys) > 0 {
		sortRecords(visible, sortKeys)
	}

	aggregates := e.aggregate(visible)

	page, info := paginate(visible, params.Page)

	return types.DerivedView{
		Visible:    visible,
		Page:       page,
		PageInfo:   info,
		Aggregates: aggregates,
	}, nil
}

// Derive is a convenience wrapper building a one-off engine
func Derive(schema *types.Schema, records []types.Record, params types.ViewParams, aggregates ...types.AggregateSpec) (types.DerivedView, error) {
	engine, err := NewEngine(schema, aggregates...)
	if err != nil {
		return types.DerivedView{}, err
	}
	return engine.Derive(records, params)
}

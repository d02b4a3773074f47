package types

import "time"

// Record is a single flat, JSON-serializable business entity.
// Keys are schema field names; the identifier lives under Schema.IDField.
type Record map[string]interface{}

// ID returns the record identifier stored under idField, or "" if absent.
func (r Record) ID(idField string) string {
	if v, ok := r[idField].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy of the record. List values are copied too so
// callers can't reach back into the original through a shared slice.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		switch tv := v.(type) {
		case []string:
			out[k] = append([]string(nil), tv...)
		case []interface{}:
			out[k] = append([]interface{}(nil), tv...)
		default:
			out[k] = v
		}
	}
	return out
}

// Any is the filter sentinel meaning "no constraint on this field".
// It mirrors the "all" option of a filter dropdown.
const Any = "*"

// ViewParams is the user-controlled input to the view engine
type ViewParams struct {
	// Query is a free-text search over the searchable fields.
	// Empty string matches everything.
	Query string

	// Filters maps field name to an accepted value or predicate.
	// Accepted value shapes:
	//   nil, "" or Any          no constraint
	//   scalar                  typed equality (list fields: contains)
	//   []string, []interface{} membership (list fields: intersects)
	//   Range                   inclusive numeric range
	//   DateRange               inclusive chronological range
	//   RelativeDateRange       range relative to Now
	//   PredicateFunc           custom predicate over the raw value
	Filters map[string]interface{}

	// Sort lists the order clauses, most significant first.
	// Empty keeps input order.
	Sort []SortClause

	// Page selects the visible page. The zero value disables pagination.
	Page Page

	// Now anchors relative date filters. The engine never reads the clock.
	Now time.Time
}

// SortClause represents a single ORDER BY clause
type SortClause struct {
	Field      string `json:"field" yaml:"field"`
	Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty"`
}

// Page is a 1-based page index plus page size.
// Size 0 means a single page containing everything.
type Page struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// PageInfo describes the page returned in a DerivedView
type PageInfo struct {
	Index      int `json:"index"`
	Size       int `json:"size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// DerivedView is the engine output. It is recomputed in full on every call
// and never shares record maps with the input collection.
type DerivedView struct {
	// Visible is the filtered and sorted sequence
	Visible []Record `json:"visible"`

	// Page is the paginated slice of Visible
	Page []Record `json:"page"`

	PageInfo PageInfo `json:"page_info"`

	// Aggregates are computed over Visible, never over Page or the full collection
	Aggregates map[string]AggregateValue `json:"aggregates"`
}

// NewViewParams creates ViewParams with empty filters
func NewViewParams() ViewParams {
	return ViewParams{
		Filters: make(map[string]interface{}),
	}
}

package types

import (
	"fmt"
	"time"
)

// Range is an inclusive numeric range. A nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Between builds a closed numeric range
func Between(min, max float64) Range {
	return Range{Min: &min, Max: &max}
}

// AtLeast builds a range with only a lower bound
func AtLeast(min float64) Range {
	return Range{Min: &min}
}

// AtMost builds a range with only an upper bound
func AtMost(max float64) Range {
	return Range{Max: &max}
}

// Contains reports whether v falls inside the range
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) String() string {
	lo, hi := "", ""
	if r.Min != nil {
		lo = fmt.Sprintf("%g", *r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprintf("%g", *r.Max)
	}
	return lo + ".." + hi
}

// DateRange is an inclusive chronological range. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To   time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// RelativeDateRange is a date range expressed as offsets from ViewParams.Now,
// e.g. {From: -7 * 24h, To: 0} for "in the last week". A nil bound is open.
type RelativeDateRange struct {
	From *time.Duration `json:"from,omitempty" yaml:"from,omitempty"`
	To   *time.Duration `json:"to,omitempty" yaml:"to,omitempty"`
}

// Within builds a closed relative range
func Within(from, to time.Duration) RelativeDateRange {
	return RelativeDateRange{From: &from, To: &to}
}

// Resolve anchors the relative range at now
func (r RelativeDateRange) Resolve(now time.Time) DateRange {
	var out DateRange
	if r.From != nil {
		out.From = now.Add(*r.From)
	}
	if r.To != nil {
		out.To = now.Add(*r.To)
	}
	return out
}

// PredicateFunc is a caller-supplied filter over a field's raw value.
// The value is nil when the record has no value for the field.
type PredicateFunc func(value interface{}) bool

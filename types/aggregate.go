package types

// AggregateKind selects the reduction an AggregateSpec computes
type AggregateKind string

const (
	Count   AggregateKind = "count"
	Sum     AggregateKind = "sum"
	Average AggregateKind = "avg"
	Min     AggregateKind = "min"
	Max     AggregateKind = "max"
	// CountBy counts records per value of an enum, string, list, bool or date field
	CountBy AggregateKind = "count_by"
	// SumBy sums a numeric field per value of GroupBy
	SumBy AggregateKind = "sum_by"
)

// Grouped reports whether the kind produces a group mapping
func (k AggregateKind) Grouped() bool {
	return k == CountBy || k == SumBy
}

// DateBucket truncates date group keys
type DateBucket string

const (
	BucketDay   DateBucket = "day"
	BucketMonth DateBucket = "month"
	BucketYear  DateBucket = "year"
)

// Layout returns the time layout producing the bucket key
func (b DateBucket) Layout() string {
	switch b {
	case BucketMonth:
		return "2006-01"
	case BucketYear:
		return "2006"
	default:
		return "2006-01-02"
	}
}

// NoValue is the group key used for records missing the group field
const NoValue = "(none)"

// CountAggregate is always present in a DerivedView under this name
const CountAggregate = "count"

// AggregateSpec names one aggregate computed for dashboard display
type AggregateSpec struct {
	// Name is the key in DerivedView.Aggregates
	Name string `json:"name" yaml:"name"`

	Kind AggregateKind `json:"kind" yaml:"kind"`

	// Field is the reduced field: numeric for sum/avg/min/max/sum_by,
	// the grouping field for count_by. Unused for count.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	// GroupBy is the grouping field for sum_by
	GroupBy string `json:"group_by,omitempty" yaml:"group_by,omitempty"`

	// Bucket truncates date grouping keys. Defaults to day.
	Bucket DateBucket `json:"bucket,omitempty" yaml:"bucket,omitempty"`
}

// AggregateValue is either a scalar or a group mapping
type AggregateValue struct {
	Scalar float64            `json:"scalar"`
	Groups map[string]float64 `json:"groups,omitempty"`
	// Keys lists group keys in display order
	Keys []string `json:"keys,omitempty"`
}

package collection

import (
	"log/slog"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

// Option configures a Collection at Open
type Option func(*Collection)

// WithSeeds sets the records used when the store has nothing under the key,
// or when what it has cannot be read
func WithSeeds(records ...types.Record) Option {
	return func(c *Collection) {
		c.seeds = records
	}
}

// WithAggregates sets the aggregates computed by View
func WithAggregates(specs ...types.AggregateSpec) Option {
	return func(c *Collection) {
		c.aggregates = specs
	}
}

// WithNoticeHandler receives recovery and save-failure notices
func WithNoticeHandler(fn NoticeHandler) Option {
	return func(c *Collection) {
		c.onNotice = fn
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collection) {
		c.logger = logger
	}
}

// WithTimeFunc sets the clock used for created_at/updated_at fields
func WithTimeFunc(fn func() time.Time) Option {
	return func(c *Collection) {
		c.timeFunc = fn
	}
}

// WithIDFunc sets the identifier generator. Defaults to random UUIDs.
func WithIDFunc(fn func() string) Option {
	return func(c *Collection) {
		c.newID = fn
	}
}

package types

import "errors"

// Programmer errors. The view engine returns these wrapped with context and
// never degrades silently when it sees one.
var (
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidAggregate = errors.New("invalid aggregate")
	ErrMissingNow       = errors.New("relative date filter requires ViewParams.Now")
	ErrInvalidSchema    = errors.New("invalid schema")
)

// Data errors raised by collection and import code.
var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrDuplicateID   = errors.New("duplicate id")
	ErrImmutableID   = errors.New("id is immutable")
	ErrNotFound      = errors.New("record not found")
)

package imports

import (
	"fmt"
	"log/slog"
)

// IDPolicy decides what happens to the identifiers found in imported rows
type IDPolicy string

const (
	// IDPreserve keeps the incoming ids and generates one only where a row
	// has none
	IDPreserve IDPolicy = "preserve"
	// IDRegenerate gives every imported row a fresh id
	IDRegenerate IDPolicy = "regenerate"
)

// ParseIDPolicy parses a policy name. Empty means IDPreserve.
func ParseIDPolicy(s string) (IDPolicy, error) {
	switch IDPolicy(s) {
	case "", IDPreserve:
		return IDPreserve, nil
	case IDRegenerate:
		return IDRegenerate, nil
	}
	return "", fmt.Errorf("unknown id policy %q (available: %s, %s)", s, IDPreserve, IDRegenerate)
}

// Options configures the import behavior
type Options struct {
	// IDs is the identifier policy. Defaults to IDPreserve.
	IDs IDPolicy `json:"ids,omitempty"`

	// IDFunc generates identifiers. Defaults to random UUIDs.
	IDFunc func() string `json:"-"`

	// Logger receives per-row diagnostics. Defaults to slog.Default().
	Logger *slog.Logger `json:"-"`
}

// DefaultOptions returns the default import options
func DefaultOptions() Options {
	return Options{IDs: IDPreserve}
}

// Result contains the results of an import operation
type Result struct {
	// Imported lists the rows that became records
	Imported []ImportedRow `json:"imported"`

	// Failed lists the rows that were skipped with the reason
	Failed []FailedRow `json:"failed"`

	// Warnings contains non-fatal issues encountered during import
	Warnings []string `json:"warnings"`

	// Summary statistics
	Summary Summary `json:"summary"`
}

// ImportedRow is a row that became a record
type ImportedRow struct {
	Line       int    `json:"line"`
	OriginalID string `json:"original_id,omitempty"` // id found in the row, if any
	ID         string `json:"id"`
}

// FailedRow is a row that was skipped
type FailedRow struct {
	Line  int    `json:"line"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// Summary provides statistics about the import operation
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Warnings  int `json:"warnings"`
}

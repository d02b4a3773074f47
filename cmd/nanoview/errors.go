package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/arthur-debert/nanoview/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "list", "import")
	Cause       string   // The underlying cause (e.g., "record not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for errors.Is
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}
	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}
	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for a bad flag or argument value
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError creates an error for a missing record
func NewNotFoundError(operation, id string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("record with ID %q not found", id),
		Suggestions: suggestions,
		Underlying:  types.ErrNotFound,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewAppError creates an error for an unknown application name
func NewAppError(operation, name string, available []string) *CLIError {
	suggestions := []string{
		"Use --app to pick a built-in application",
		CommonSuggestions.CheckApp,
	}
	if len(available) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Available apps: %s", strings.Join(available, ", ")))
	}

	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("unknown application %q", name),
		Suggestions: suggestions,
	}
}

// NewStoreError creates an error for store-related issues
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "store operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()
		switch {
		case errors.Is(underlying, fs.ErrNotExist):
			cause = "store file not found"
		case errors.Is(underlying, fs.ErrPermission):
			cause = "insufficient permissions to access the store"
		case errors.Is(underlying, storage.ErrCorrupt):
			cause = "store file is corrupt"
		case errors.Is(underlying, storage.ErrClosed):
			cause = "store is closed"
		case strings.Contains(strings.ToLower(details), "database is locked"):
			cause = "store is currently locked by another process"
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// NewFilterError creates an error for a --filter, --within or --sort value
// the schema rejects
func NewFilterError(operation, filter string, underlying error) *CLIError {
	cause := "invalid view parameters"
	if filter != "" {
		cause = fmt.Sprintf("invalid view parameter %q", filter)
	}
	return &CLIError{
		Operation: operation,
		Cause:     cause,
		Details:   underlying.Error(),
		Suggestions: []string{
			"Use format: --filter field=value, --filter field=a|b or --filter field=min..max",
			"Use format: --within field=-7d..0d for dates relative to --now",
			"Use format: --sort field or --sort field:desc",
			CommonSuggestions.CheckFields,
		},
		Underlying: underlying,
	}
}

// WrapError converts library errors into CLIErrors
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	switch {
	case errors.Is(err, types.ErrNotFound):
		return &CLIError{
			Operation:   operation,
			Cause:       "record not found",
			Details:     err.Error(),
			Suggestions: append(suggestions, CommonSuggestions.CheckID),
			Underlying:  err,
		}
	case errors.Is(err, types.ErrUnknownField), errors.Is(err, types.ErrInvalidFilter),
		errors.Is(err, types.ErrInvalidPage), errors.Is(err, types.ErrMissingNow):
		return NewFilterError(operation, "", err)
	case errors.Is(err, types.ErrInvalidRecord), errors.Is(err, types.ErrDuplicateID),
		errors.Is(err, types.ErrImmutableID):
		return &CLIError{
			Operation:   operation,
			Cause:       "invalid record",
			Details:     err.Error(),
			Suggestions: append(suggestions, CommonSuggestions.CheckFields),
			Underlying:  err,
		}
	}
	return NewStoreError(operation, err, suggestions...)
}

// CommonSuggestions are shared across commands
var CommonSuggestions = struct {
	CheckApp     string
	CheckAppFile string
	CheckStore   string
	CheckID      string
	CheckConfig  string
	CheckFields  string
	CheckPerms   string
	TryDryRun    string
}{
	CheckApp:     "Run 'nanoview apps' to see the built-in applications",
	CheckAppFile: "Verify --app-file points to a valid application definition",
	CheckStore:   "Verify --store and --backend point to a valid store",
	CheckID:      "Verify the record ID exists (try 'list' command first)",
	CheckConfig:  "Check your configuration file or environment variables",
	CheckFields:  "Run 'nanoview apps <name>' to see the application's fields",
	CheckPerms:   "Check file permissions and directory access",
	TryDryRun:    "Use --dry-run to preview the changes",
}

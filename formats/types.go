// Package formats holds the exchange formats records are imported from and
// exported to. A format encodes rows of values under a fixed column order and
// decodes text back into raw rows, one per record, so a malformed record is
// isolated instead of failing the whole document.
package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMalformedRow marks a single row that could not be decoded
var ErrMalformedRow = errors.New("malformed row")

// Format defines how rows are serialized and deserialized
type Format struct {
	// Name is the format identifier (alphanumeric, dashes, underscores, lowercase)
	Name string

	// Extension is the file extension including the dot (e.g., ".csv")
	Extension string

	// Encode writes rows, each a field name to value map, with the given
	// column order
	Encode func(columns []string, rows []map[string]interface{}) ([]byte, error)

	// Decode splits a document into raw rows. It fails only when the document
	// as a whole is unreadable; row level problems are reported per row.
	Decode func(text string) ([]RawRow, error)
}

// RawRow is one decoded record before any schema is applied
type RawRow struct {
	// Line is the 1-based line the row starts on
	Line int

	// Values maps column name to the decoded value. CSV values are always
	// strings; JSON and YAML keep their native scalar types.
	Values map[string]interface{}

	// Err is set when the row could not be decoded; Values is nil then
	Err error
}

// registry holds all available formats
var registry = make(map[string]*Format)

// Register adds a new format to the registry
func Register(format *Format) error {
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}
	if format.Encode == nil || format.Decode == nil {
		return fmt.Errorf("format %q must provide Encode and Decode", format.Name)
	}

	// Normalize extension
	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns a format by name
func Get(name string) (*Format, error) {
	format, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown format %q (available: %s)", name, strings.Join(List(), ", "))
	}
	return format, nil
}

// ForPath returns the format whose extension matches the file at path
func ForPath(path string) (*Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yml" {
		ext = ".yaml"
	}
	for _, name := range List() {
		if registry[name].Extension == ext {
			return registry[name], nil
		}
	}
	return nil, fmt.Errorf("no format for extension %q of %s", ext, path)
}

// List returns all registered format names, sorted
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustRegister(format *Format) {
	if err := Register(format); err != nil {
		panic(err)
	}
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// lineAt returns the 1-based line of byte offset in text
func lineAt(text string, offset int) int {
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}

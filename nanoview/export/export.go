// Package export renders a record set as exchange text (csv, json or yaml).
//
// Columns follow the schema's field order so the output is stable between
// runs and readable next to the application that produced it.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/nanoview/formats"
	"github.com/arthur-debert/nanoview/types"
)

// Text renders records in the named format
func Text(schema *types.Schema, records []types.Record, format string) (string, error) {
	f, err := formats.Get(format)
	if err != nil {
		return "", err
	}
	data, err := encode(schema, records, f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToFile writes records to path. An empty format is taken from the file
// extension.
func ToFile(path string, schema *types.Schema, records []types.Record, format string) error {
	f, err := resolve(path, format)
	if err != nil {
		return err
	}
	data, err := encode(schema, records, f)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func resolve(path, format string) (*formats.Format, error) {
	if format == "" {
		return formats.ForPath(path)
	}
	return formats.Get(format)
}

func encode(schema *types.Schema, records []types.Record, f *formats.Format) ([]byte, error) {
	rows := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		rows[i] = rec
	}
	data, err := f.Encode(schema.FieldNames(), rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s as %s: %w", schema.Name, f.Name, err)
	}
	return data, nil
}

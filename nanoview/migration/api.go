package migration

import (
	"fmt"

	"github.com/arthur-debert/nanoview/nanoview/collection"
	"github.com/arthur-debert/nanoview/nanoview/storage"
	"github.com/arthur-debert/nanoview/types"
)

// API provides the public interface for migrations. Every method works on a
// deep copy, so the input records are never modified.
type API struct{}

// NewAPI creates a new migration API instance
func NewAPI() *API {
	return &API{}
}

// Run executes cmd over a copy of records
func (a *API) Run(records []types.Record, schema *types.Schema, cmd Command, opts Options) ([]types.Record, *Result) {
	ctx := &MigrationContext{
		Records: copyRecords(records),
		Schema:  schema,
		DryRun:  opts.DryRun,
	}
	result := cmd.Execute(ctx)
	if opts.Verbose {
		result.Messages = append([]Message{{Level: LevelDebug, Text: cmd.Description()}}, result.Messages...)
	}
	return ctx.Records, result
}

// RenameField renames a field across all records
func (a *API) RenameField(records []types.Record, schema *types.Schema, oldName, newName string, opts Options) ([]types.Record, *Result) {
	return a.Run(records, schema, &RenameField{OldName: oldName, NewName: newName}, opts)
}

// RemoveField removes a field from all records
func (a *API) RemoveField(records []types.Record, schema *types.Schema, fieldName string, opts Options) ([]types.Record, *Result) {
	return a.Run(records, schema, &RemoveField{FieldName: fieldName}, opts)
}

// AddField adds a field with a default value to the records lacking it
func (a *API) AddField(records []types.Record, schema *types.Schema, fieldName string, defaultValue interface{}, opts Options) ([]types.Record, *Result) {
	return a.Run(records, schema, &AddField{FieldName: fieldName, DefaultValue: defaultValue}, opts)
}

// TransformField applies a named transformer to a field in all records
func (a *API) TransformField(records []types.Record, schema *types.Schema, fieldName, transformerName string, opts Options) ([]types.Record, *Result) {
	return a.Run(records, schema, &TransformField{FieldName: fieldName, TransformerName: transformerName}, opts)
}

// ValidateSchema reports the records the collection would drop on load
func (a *API) ValidateSchema(records []types.Record, schema *types.Schema) *Result {
	_, result := a.Run(records, schema, &ValidateSchema{}, Options{})
	return result
}

// Load reads the raw records stored under key. A key that was never saved
// yields no records and ok=false.
func Load(store storage.Store, key string) (records []types.Record, ok bool, err error) {
	data, ok, err := store.Load(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err = collection.DecodeBlob(data)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s: %v", storage.ErrCorrupt, key, err)
	}
	return records, true, nil
}

// Save replaces the records stored under key
func Save(store storage.Store, key string, records []types.Record) error {
	data, err := collection.EncodeBlob(records)
	if err != nil {
		return err
	}
	return store.Save(key, data)
}

func copyRecords(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
		if out[i] == nil {
			out[i] = types.Record{}
		}
	}
	return out
}

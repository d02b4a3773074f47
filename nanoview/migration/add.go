package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

// AddField sets a default value on every record that lacks the field.
// Records that already carry a value are skipped.
type AddField struct {
	FieldName    string
	DefaultValue interface{}
}

// Description returns a human-readable description of the command
func (a *AddField) Description() string {
	return fmt.Sprintf("Add field '%s' with default value", a.FieldName)
}

// value returns the default normalized for the field's declared type
func (a *AddField) value(ctx *MigrationContext) (interface{}, error) {
	if ctx.Schema == nil {
		return a.DefaultValue, nil
	}
	f, ok := ctx.Schema.Field(a.FieldName)
	if !ok {
		return a.DefaultValue, nil
	}
	return f.Normalize(a.DefaultValue)
}

// Validate checks if the add can be executed
func (a *AddField) Validate(ctx *MigrationContext) []Message {
	var messages []Message

	if strings.TrimSpace(a.FieldName) == "" {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Field name cannot be empty",
		})
	}
	if a.FieldName == ctx.idField() {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Cannot add a default to the id field; ids must be unique",
		})
	}

	v, err := a.value(ctx)
	if err != nil {
		return append(messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("Invalid default value: %v", err),
		})
	}
	if types.IsEmpty(v) {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Default value cannot be empty",
		})
	}

	if !ctx.declared(a.FieldName) {
		messages = append(messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Field '%s' is not declared by the schema; records carrying it will be dropped on load", a.FieldName),
		})
	}

	existing := 0
	for _, rec := range ctx.Records {
		if !types.IsEmpty(rec[a.FieldName]) {
			existing++
		}
	}
	if existing > 0 {
		messages = append(messages, Message{
			Level: LevelInfo,
			Text:  fmt.Sprintf("Field '%s' already set in %d records, they will be kept", a.FieldName, existing),
		})
	}
	return messages
}

// Execute performs the add operation
func (a *AddField) Execute(ctx *MigrationContext) *Result {
	start := time.Now()
	result, ok := begin(ctx, a.Validate)
	if !ok {
		return result
	}

	v, _ := a.value(ctx)
	var modified []string
	for i, rec := range ctx.Records {
		if !types.IsEmpty(rec[a.FieldName]) {
			result.Stats.SkippedRecords++
			continue
		}
		if !ctx.DryRun {
			rec[a.FieldName] = cloneValue(v)
		}
		modified = append(modified, ctx.recordID(i))
	}

	if len(modified) > 0 {
		result.Messages = append(result.Messages, Message{
			Level: LevelInfo,
			Text:  fmt.Sprintf("Added field '%s' to %d records", a.FieldName, len(modified)),
		})
	}
	return finish(ctx, result, modified, start)
}

func cloneValue(v interface{}) interface{} {
	if l, ok := v.([]string); ok {
		return append([]string{}, l...)
	}
	return v
}

package migration

import (
	"fmt"
	"strings"
	"time"
)

// RemoveField deletes a field from every record
type RemoveField struct {
	FieldName string
}

// Description returns a human-readable description of the command
func (r *RemoveField) Description() string {
	return fmt.Sprintf("Remove field '%s'", r.FieldName)
}

// Validate checks if the removal can be executed
func (r *RemoveField) Validate(ctx *MigrationContext) []Message {
	var messages []Message

	if strings.TrimSpace(r.FieldName) == "" {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Field name cannot be empty",
		})
	}
	if r.FieldName == ctx.idField() {
		return append(messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("Cannot remove the id field '%s'", r.FieldName),
		})
	}

	count := 0
	for _, rec := range ctx.Records {
		if _, ok := rec[r.FieldName]; ok {
			count++
		}
	}
	if count == 0 {
		messages = append(messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Field '%s' not found in any record", r.FieldName),
		})
		return messages
	}

	messages = append(messages, Message{
		Level: LevelInfo,
		Text:  fmt.Sprintf("Found field '%s' in %d records", r.FieldName, count),
	})
	if ctx.Schema != nil {
		if f, ok := ctx.Schema.Field(r.FieldName); ok && f.Required {
			messages = append(messages, Message{
				Level: LevelWarning,
				Text:  fmt.Sprintf("Field '%s' is required; records without it will be dropped on load", r.FieldName),
			})
		}
	}
	return messages
}

// Execute performs the removal
func (r *RemoveField) Execute(ctx *MigrationContext) *Result {
	start := time.Now()
	result, ok := begin(ctx, r.Validate)
	if !ok {
		return result
	}

	var modified []string
	for i, rec := range ctx.Records {
		if _, exists := rec[r.FieldName]; !exists {
			continue
		}
		if !ctx.DryRun {
			delete(rec, r.FieldName)
		}
		modified = append(modified, ctx.recordID(i))
	}

	if len(modified) > 0 {
		result.Messages = append(result.Messages, Message{
			Level: LevelInfo,
			Text:  fmt.Sprintf("Removed field '%s' from %d records", r.FieldName, len(modified)),
		})
	}
	return finish(ctx, result, modified, start)
}

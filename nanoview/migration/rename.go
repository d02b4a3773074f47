package migration

import (
	"fmt"
	"strings"
	"time"
)

// RenameField moves a field's values to a new name in every record
type RenameField struct {
	OldName string
	NewName string
}

// Description returns a human-readable description of the command
func (r *RenameField) Description() string {
	return fmt.Sprintf("Rename field '%s' to '%s'", r.OldName, r.NewName)
}

// Validate checks if the rename can be executed
func (r *RenameField) Validate(ctx *MigrationContext) []Message {
	var messages []Message

	if strings.TrimSpace(r.OldName) == "" || strings.TrimSpace(r.NewName) == "" {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Field names cannot be empty",
		})
	}
	if r.OldName == r.NewName {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Old and new field names are the same",
		})
	}
	if r.OldName == ctx.idField() || r.NewName == ctx.idField() {
		return append(messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("Cannot rename to or from the id field '%s'", ctx.idField()),
		})
	}

	found := 0
	var conflictIDs []string
	conflicts := 0
	for i, rec := range ctx.Records {
		if _, ok := rec[r.OldName]; !ok {
			continue
		}
		found++
		if _, ok := rec[r.NewName]; ok {
			conflicts++
			if len(conflictIDs) < maxSamples {
				conflictIDs = append(conflictIDs, ctx.recordID(i))
			}
		}
	}

	if found == 0 {
		messages = append(messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Field '%s' not found in any record", r.OldName),
		})
	}
	if conflicts > 0 {
		messages = append(messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("Field '%s' already exists in %d records", r.NewName, conflicts),
			Details: map[string]interface{}{
				"record_ids": conflictIDs,
				"total":      conflicts,
			},
		})
	}
	if !ctx.declared(r.NewName) {
		messages = append(messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Field '%s' is not declared by the schema; records carrying it will be dropped on load", r.NewName),
		})
	}

	return messages
}

// Execute performs the rename operation
func (r *RenameField) Execute(ctx *MigrationContext) *Result {
	start := time.Now()
	result, ok := begin(ctx, r.Validate)
	if !ok {
		return result
	}

	var modified []string
	for i, rec := range ctx.Records {
		val, exists := rec[r.OldName]
		if !exists {
			continue
		}
		if !ctx.DryRun {
			rec[r.NewName] = val
			delete(rec, r.OldName)
		}
		modified = append(modified, ctx.recordID(i))
	}

	if len(modified) > 0 {
		result.Messages = append(result.Messages, Message{
			Level: LevelInfo,
			Text:  fmt.Sprintf("Renamed field '%s' to '%s' in %d records", r.OldName, r.NewName, len(modified)),
		})
	}
	return finish(ctx, result, modified, start)
}

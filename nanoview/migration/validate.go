package migration

import (
	"fmt"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

// ValidateSchema checks every stored record the way the collection does at
// load time and reports the records it would drop. It never modifies them.
type ValidateSchema struct{}

// Description returns a human-readable description of the command
func (v *ValidateSchema) Description() string {
	return "Validate all records against the schema"
}

// Validate checks if validation can be executed
func (v *ValidateSchema) Validate(ctx *MigrationContext) []Message {
	if ctx.Schema == nil {
		return []Message{{
			Level: LevelError,
			Text:  "No schema to validate against",
		}}
	}
	return []Message{{
		Level: LevelInfo,
		Text:  fmt.Sprintf("Will validate %d records against schema '%s'", len(ctx.Records), ctx.Schema.Name),
		Details: map[string]interface{}{
			"field_count": len(ctx.Schema.Fields),
		},
	}}
}

// Execute performs the validation
func (v *ValidateSchema) Execute(ctx *MigrationContext) *Result {
	start := time.Now()
	result, ok := begin(ctx, v.Validate)
	if !ok {
		return result
	}

	seen := make(map[string]bool, len(ctx.Records))
	var samples []map[string]interface{}
	failed := 0
	for i, raw := range ctx.Records {
		rec, err := ctx.Schema.NormalizeRecord(raw)
		if err == nil {
			err = ctx.Schema.Validate(rec)
		}
		if err == nil {
			id := rec.ID(ctx.Schema.IDField)
			if seen[id] {
				err = fmt.Errorf("%w: %s", types.ErrDuplicateID, id)
			}
			seen[id] = true
		}
		if err == nil {
			continue
		}

		failed++
		if len(samples) < maxSamples {
			samples = append(samples, map[string]interface{}{
				"record_id": ctx.recordID(i),
				"error":     err.Error(),
			})
		}
	}

	result.Stats.SkippedRecords = failed
	result.Stats.Duration = time.Since(start)

	if failed > 0 {
		result.Success = false
		result.Code = CodeValidationError
		result.Messages = append(result.Messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("%d of %d records would be dropped on load", failed, len(ctx.Records)),
			Details: map[string]interface{}{
				"failed_records": failed,
				"error_samples":  samples,
			},
		})
		return result
	}

	result.Messages = append(result.Messages, Message{
		Level: LevelInfo,
		Text:  fmt.Sprintf("All %d records passed validation", len(ctx.Records)),
	})
	return result
}

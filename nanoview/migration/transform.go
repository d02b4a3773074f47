package migration

import (
	"fmt"
	"strings"
	"time"
)

// TransformField rewrites a field's values through a named transformer.
// Values the transformer rejects are left unchanged and reported.
type TransformField struct {
	FieldName       string
	TransformerName string
}

// Description returns a human-readable description of the command
func (t *TransformField) Description() string {
	return fmt.Sprintf("Transform field '%s' using %s", t.FieldName, t.TransformerName)
}

// Validate checks if the transform can be executed
func (t *TransformField) Validate(ctx *MigrationContext) []Message {
	var messages []Message

	if strings.TrimSpace(t.FieldName) == "" {
		return append(messages, Message{
			Level: LevelError,
			Text:  "Field name cannot be empty",
		})
	}
	if t.FieldName == ctx.idField() {
		return append(messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("Cannot transform the id field '%s'", t.FieldName),
		})
	}
	transformer, ok := TransformerRegistry[t.TransformerName]
	if !ok {
		return append(messages, Message{
			Level: LevelError,
			Text:  fmt.Sprintf("Unknown transformer '%s'", t.TransformerName),
			Details: map[string]interface{}{
				"available": TransformerNames(),
			},
		})
	}

	count := 0
	failures := 0
	var samples []string
	for i, rec := range ctx.Records {
		val, exists := rec[t.FieldName]
		if !exists {
			continue
		}
		count++
		if _, err := transformer(val); err != nil {
			failures++
			if len(samples) < maxSamples {
				samples = append(samples, fmt.Sprintf("record %s: %v", ctx.recordID(i), err))
			}
		}
	}

	if count == 0 {
		messages = append(messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Field '%s' not found in any record", t.FieldName),
		})
		return messages
	}

	messages = append(messages, Message{
		Level: LevelInfo,
		Text:  fmt.Sprintf("Found field '%s' in %d records", t.FieldName, count),
	})
	if failures > 0 {
		messages = append(messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Transformation will fail for %d values", failures),
			Details: map[string]interface{}{
				"sample_errors": samples,
				"total_errors":  failures,
			},
		})
	}
	return messages
}

// Execute performs the transform operation
func (t *TransformField) Execute(ctx *MigrationContext) *Result {
	start := time.Now()
	result, ok := begin(ctx, t.Validate)
	if !ok {
		return result
	}

	transformer := TransformerRegistry[t.TransformerName]
	var modified []string
	var errorDetails []map[string]interface{}
	failures := 0

	for i, rec := range ctx.Records {
		val, exists := rec[t.FieldName]
		if !exists {
			continue
		}
		newVal, err := transformer(val)
		if err != nil {
			failures++
			result.Stats.SkippedRecords++
			if len(errorDetails) < maxSamples {
				errorDetails = append(errorDetails, map[string]interface{}{
					"record_id": ctx.recordID(i),
					"old_value": val,
					"error":     err.Error(),
				})
			}
			continue
		}
		if !ctx.DryRun {
			rec[t.FieldName] = newVal
		}
		modified = append(modified, ctx.recordID(i))
	}

	if failures > 0 {
		result.Code = CodePartialFailure
		result.Messages = append(result.Messages, Message{
			Level: LevelWarning,
			Text:  fmt.Sprintf("Failed to transform %d values, they were left unchanged", failures),
			Details: map[string]interface{}{
				"errors": errorDetails,
			},
		})
	}
	if len(modified) > 0 {
		result.Messages = append(result.Messages, Message{
			Level: LevelInfo,
			Text:  fmt.Sprintf("Transformed field '%s' in %d records using %s", t.FieldName, len(modified), t.TransformerName),
		})
	}
	return finish(ctx, result, modified, start)
}

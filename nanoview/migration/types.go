// Package migration rewrites the records stored for an application when its
// schema evolves. Commands operate on the raw stored records, before the
// collection normalizes them, so records that would otherwise be dropped at
// load time can be repaired.
package migration

import (
	"fmt"
	"time"

	"github.com/arthur-debert/nanoview/types"
)

// MessageLevel represents the severity of a message
type MessageLevel int

const (
	LevelDebug MessageLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l MessageLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// MarshalText renders the level by name in structured output
func (l MessageLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Message represents a single output message from a migration
type Message struct {
	Level   MessageLevel           `json:"level" yaml:"level"`
	Text    string                 `json:"text" yaml:"text"`
	Details map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Result encapsulates the outcome of a migration operation
type Result struct {
	Success     bool      `json:"success" yaml:"success"`
	Code        int       `json:"code" yaml:"code"` // 0 = success, >0 = specific error codes
	Messages    []Message `json:"messages" yaml:"messages"`
	ModifiedIDs []string  `json:"modified_ids,omitempty" yaml:"modified_ids,omitempty"`
	Stats       Stats     `json:"stats" yaml:"stats"`
}

// HasErrors reports whether any message is an error
func (r *Result) HasErrors() bool {
	return hasErrors(r.Messages)
}

// Stats provides migration statistics
type Stats struct {
	TotalRecords    int           `json:"total_records" yaml:"total_records"`
	ModifiedRecords int           `json:"modified_records" yaml:"modified_records"`
	SkippedRecords  int           `json:"skipped_records" yaml:"skipped_records"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
}

// MigrationContext holds the state for a migration operation
type MigrationContext struct {
	Records []types.Record
	Schema  *types.Schema
	DryRun  bool
}

// Options configures migration behavior
type Options struct {
	DryRun  bool
	Verbose bool
}

// Command is one migration step
type Command interface {
	Description() string
	Validate(ctx *MigrationContext) []Message
	Execute(ctx *MigrationContext) *Result
}

// Error codes
const (
	CodeSuccess = iota
	CodeValidationError
	CodeExecutionError
	CodePartialFailure
)

// maxSamples bounds the ids and errors listed in message details
const maxSamples = 5

func hasErrors(messages []Message) bool {
	for _, msg := range messages {
		if msg.Level == LevelError {
			return true
		}
	}
	return false
}

// begin starts a result for ctx and runs the command's validation. It
// returns false when validation reported an error.
func begin(ctx *MigrationContext, validate func(*MigrationContext) []Message) (*Result, bool) {
	result := &Result{
		Success:  true,
		Code:     CodeSuccess,
		Messages: []Message{},
		Stats: Stats{
			TotalRecords: len(ctx.Records),
		},
	}
	messages := validate(ctx)
	result.Messages = append(result.Messages, messages...)
	if hasErrors(messages) {
		result.Success = false
		result.Code = CodeValidationError
		return result, false
	}
	return result, true
}

// finish records the modified ids, the duration and the dry run notice
func finish(ctx *MigrationContext, result *Result, modified []string, start time.Time) *Result {
	result.ModifiedIDs = modified
	result.Stats.ModifiedRecords = len(modified)
	result.Stats.Duration = time.Since(start)
	if ctx.DryRun {
		result.Messages = append(result.Messages, Message{
			Level: LevelInfo,
			Text:  "(DRY RUN - no changes applied)",
		})
	}
	return result
}

func (ctx *MigrationContext) idField() string {
	if ctx.Schema == nil || ctx.Schema.IDField == "" {
		return "id"
	}
	return ctx.Schema.IDField
}

// recordID names a record in messages, falling back to its position
func (ctx *MigrationContext) recordID(i int) string {
	if id := ctx.Records[i].ID(ctx.idField()); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", i+1)
}

func (ctx *MigrationContext) declared(name string) bool {
	if ctx.Schema == nil {
		return true
	}
	_, ok := ctx.Schema.Field(name)
	return ok
}

// Package imports turns exchange text (csv, json or yaml) into records of a
// schema. Rows are coerced to the field types and validated one by one; a row
// that does not fit is skipped and reported, never failing the whole import.
package imports

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/arthur-debert/nanoview/formats"
	"github.com/arthur-debert/nanoview/types"
	"github.com/google/uuid"
)

// Text imports records from text in the named format. The error is non-nil
// only when the document as a whole cannot be read.
func Text(schema *types.Schema, text, format string, options Options) ([]types.Record, *Result, error) {
	f, err := formats.Get(format)
	if err != nil {
		return nil, nil, err
	}
	return process(schema, text, f, options)
}

// FromFile imports records from the file at path. An empty format is taken
// from the file extension.
func FromFile(schema *types.Schema, path, format string, options Options) ([]types.Record, *Result, error) {
	var (
		f   *formats.Format
		err error
	)
	if format == "" {
		f, err = formats.ForPath(path)
	} else {
		f, err = formats.Get(format)
	}
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return process(schema, string(data), f, options)
}

func process(schema *types.Schema, text string, f *formats.Format, options Options) ([]types.Record, *Result, error) {
	policy, err := ParseIDPolicy(string(options.IDs))
	if err != nil {
		return nil, nil, err
	}
	newID := options.IDFunc
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rows, err := f.Decode(text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", f.Name, err)
	}

	result := &Result{
		Imported: make([]ImportedRow, 0),
		Failed:   make([]FailedRow, 0),
		Warnings: make([]string, 0),
		Summary:  Summary{Total: len(rows)},
	}

	p := &processor{
		schema:  schema,
		policy:  policy,
		newID:   newID,
		seen:    make(map[string]bool, len(rows)),
		ignored: make(map[string]bool),
	}

	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := p.record(row)
		if err != nil {
			logger.Debug("skipping import row", "schema", schema.Name, "line", row.Line, "error", err)
			result.Failed = append(result.Failed, FailedRow{
				Line:  row.Line,
				ID:    types.AsString(row.Values[schema.IDField]),
				Error: err.Error(),
			})
			continue
		}
		records = append(records, rec)
		result.Imported = append(result.Imported, ImportedRow{
			Line:       row.Line,
			OriginalID: types.AsString(row.Values[schema.IDField]),
			ID:         rec.ID(schema.IDField),
		})
	}

	result.Warnings = append(result.Warnings, p.warnings()...)
	result.Summary.Succeeded = len(result.Imported)
	result.Summary.Failed = len(result.Failed)
	result.Summary.Warnings = len(result.Warnings)

	logger.Info("imported records", "schema", schema.Name, "format", f.Name,
		"total", result.Summary.Total, "succeeded", result.Summary.Succeeded, "failed", result.Summary.Failed)
	return records, result, nil
}

// processor carries the state shared across the rows of one import
type processor struct {
	schema  *types.Schema
	policy  IDPolicy
	newID   func() string
	seen    map[string]bool
	ignored map[string]bool
}

func (p *processor) record(row formats.RawRow) (types.Record, error) {
	if row.Err != nil {
		return nil, row.Err
	}

	raw := make(types.Record, len(row.Values))
	for key, v := range row.Values {
		field, ok := p.schema.Field(key)
		if !ok {
			p.ignored[key] = true
			continue
		}
		s, isString := v.(string)
		switch {
		case isString && strings.TrimSpace(s) == "":
			continue
		case isString && field.Type == types.List:
			raw[key] = formats.SplitList(s)
		default:
			raw[key] = v
		}
	}

	rec, err := p.schema.NormalizeRecord(raw)
	if err != nil {
		return nil, err
	}
	rec = p.schema.ApplyDefaults(rec)

	idField := p.schema.IDField
	id := rec.ID(idField)
	switch {
	case p.policy == IDRegenerate || id == "":
		id = p.newID()
	case p.seen[id]:
		return nil, fmt.Errorf("%w: %s appears more than once", types.ErrDuplicateID, id)
	}
	rec[idField] = id

	if err := p.schema.Validate(rec); err != nil {
		return nil, err
	}
	p.seen[id] = true
	return rec, nil
}

func (p *processor) warnings() []string {
	columns := make([]string, 0, len(p.ignored))
	for col := range p.ignored {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = fmt.Sprintf("column %q is not a field of %s and was ignored", col, p.schema.Name)
	}
	return out
}

package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ListSeparator joins list values inside a single CSV cell
const ListSeparator = ";"

// CSV is a header row of column names followed by one row per record
var CSV = &Format{
	Name:      "csv",
	Extension: ".csv",
	Encode:    encodeCSV,
	Decode:    decodeCSV,
}

func init() {
	mustRegister(CSV)
}

func encodeCSV(columns []string, rows []map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = Cell(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// Cell renders a value as CSV text: numbers in shortest form, lists joined
// with ListSeparator, nil as the empty string
func Cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ListSeparator)
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = Cell(item)
		}
		return strings.Join(parts, ListSeparator)
	}
	return fmt.Sprint(v)
}

// SplitList splits a CSV cell back into list elements, dropping blanks
func SplitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ListSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func decodeCSV(text string) ([]RawRow, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("csv header: column %d has no name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("csv header: duplicate column %q", name)
		}
		seen[name] = true
		header[i] = name
	}

	var rows []RawRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rows = append(rows, RawRow{Line: parseErr.StartLine, Err: fmt.Errorf("%w: %v", ErrMalformedRow, parseErr.Err)})
				continue
			}
			return rows, err
		}

		line, _ := r.FieldPos(0)
		if len(record) != len(header) {
			rows = append(rows, RawRow{
				Line: line,
				Err:  fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRow, len(header), len(record)),
			})
			continue
		}

		values := make(map[string]interface{}, len(header))
		for i, name := range header {
			values[name] = record[i]
		}
		rows = append(rows, RawRow{Line: line, Values: values})
	}
	return rows, nil
}

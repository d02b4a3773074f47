package formats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// JSON is an indented array of objects
var JSON = &Format{
	Name:      "json",
	Extension: ".json",
	Encode:    encodeJSON,
	Decode:    decodeJSON,
}

func init() {
	mustRegister(JSON)
}

// encodeJSON writes object keys in column order; encoding/json would sort them
func encodeJSON(columns []string, rows []map[string]interface{}) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		first := true
		for _, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			if !first {
				compact.WriteByte(',')
			}
			first = false
			compact.Write(key)
			compact.WriteByte(':')
			compact.Write(val)
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func decodeJSON(text string) ([]RawRow, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(text))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, errors.New("json: expected an array of records")
	}

	var rows []RawRow
	for dec.More() {
		line := lineAt(text, skipSeparators(text, int(dec.InputOffset())))

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return rows, fmt.Errorf("json: line %d: %w", line, err)
		}

		var values map[string]interface{}
		if err := json.Unmarshal(raw, &values); err != nil || values == nil {
			rows = append(rows, RawRow{Line: line, Err: fmt.Errorf("%w: expected an object, got %s", ErrMalformedRow, abbreviate(raw))})
			continue
		}
		rows = append(rows, RawRow{Line: line, Values: values})
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return rows, fmt.Errorf("json: %w", err)
	}
	return rows, nil
}

// skipSeparators advances offset past whitespace and the comma between
// array elements
func skipSeparators(text string, offset int) int {
	for offset < len(text) && strings.IndexByte(" \t\r\n,", text[offset]) >= 0 {
		offset++
	}
	return offset
}

func abbreviate(raw []byte) string {
	const limit = 40
	s := string(raw)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

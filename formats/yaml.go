package formats

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAML is a sequence of mappings
var YAML = &Format{
	Name:      "yaml",
	Extension: ".yaml",
	Encode:    encodeYAML,
	Decode:    decodeYAML,
}

func init() {
	mustRegister(YAML)
}

func encodeYAML(columns []string, rows []map[string]interface{}) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, row := range rows {
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			value := &yaml.Node{}
			if err := value.Encode(v); err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col}, value)
		}
		seq.Content = append(seq.Content, mapping)
	}
	if len(rows) == 0 {
		seq.Style = yaml.FlowStyle
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeYAML(text string) ([]RawRow, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, errors.New("yaml: expected a sequence of records")
	}

	rows := make([]RawRow, 0, len(root.Content))
	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			rows = append(rows, RawRow{Line: item.Line, Err: fmt.Errorf("%w: expected a mapping", ErrMalformedRow)})
			continue
		}
		var values map[string]interface{}
		if err := item.Decode(&values); err != nil {
			rows = append(rows, RawRow{Line: item.Line, Err: fmt.Errorf("%w: %v", ErrMalformedRow, err)})
			continue
		}
		rows = append(rows, RawRow{Line: item.Line, Values: values})
	}
	return rows, nil
}

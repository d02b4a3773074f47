package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/arthur-debert/nanoview/formats"
	"github.com/arthur-debert/nanoview/types"
	"gopkg.in/yaml.v3"
)

var outputFormats = []string{"table", "json", "yaml"}

func isOutputFormat(format string) bool {
	for _, f := range outputFormats {
		if f == format {
			return true
		}
	}
	return false
}

// printer writes command results in the configured output format
type printer struct {
	w      io.Writer
	format string
}

// structured writes data as json or yaml. It reports false for table output.
func (p *printer) structured(data interface{}) (bool, error) {
	switch p.format {
	case "json":
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to format output: %w", err)
		}
		_, err = fmt.Fprintln(p.w, string(out))
		return true, err
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return true, fmt.Errorf("failed to format output: %w", err)
		}
		return true, enc.Close()
	}
	return false, nil
}

// listOutput is the structured form of a list result
type listOutput struct {
	PageInfo types.PageInfo `json:"page_info" yaml:"page_info"`
	Records  []types.Record `json:"records" yaml:"records"`
}

// Records prints one page of records with a page footer
func (p *printer) Records(schema *types.Schema, records []types.Record, info types.PageInfo) error {
	if done, err := p.structured(listOutput{PageInfo: info, Records: nonNil(records)}); done {
		return err
	}

	columns := schema.FieldNames()
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, rec := range records {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = displayValue(rec[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if info.TotalItems == 0 {
		_, err := fmt.Fprintln(p.w, "\nNo records match.")
		return err
	}
	_, err := fmt.Fprintf(p.w, "\nPage %d of %d (%d records)\n", info.Index, info.TotalPages, info.TotalItems)
	return err
}

// Record prints a single record as field: value lines
func (p *printer) Record(schema *types.Schema, rec types.Record) error {
	if done, err := p.structured(rec); done {
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, name := range schema.FieldNames() {
		fmt.Fprintf(tw, "%s:\t%s\n", name, displayValue(rec[name]))
	}
	return tw.Flush()
}

// statOutput is the structured form of one aggregate
type statOutput struct {
	Name   string              `json:"name" yaml:"name"`
	Kind   types.AggregateKind `json:"kind" yaml:"kind"`
	Field  string              `json:"field,omitempty" yaml:"field,omitempty"`
	Value  float64             `json:"value" yaml:"value"`
	Groups []groupOutput       `json:"groups,omitempty" yaml:"groups,omitempty"`
}

type groupOutput struct {
	Key   string  `json:"key" yaml:"key"`
	Value float64 `json:"value" yaml:"value"`
}

// Stats prints the count followed by the aggregates in declaration order
func (p *printer) Stats(specs []types.AggregateSpec, values map[string]types.AggregateValue) error {
	stats := []statOutput{{Name: types.CountAggregate, Kind: types.Count, Value: values[types.CountAggregate].Scalar}}
	for _, spec := range specs {
		if spec.Name == types.CountAggregate {
			continue
		}
		value := values[spec.Name]
		stat := statOutput{Name: spec.Name, Kind: spec.Kind, Field: spec.Field, Value: value.Scalar}
		for _, key := range value.Keys {
			stat.Groups = append(stat.Groups, groupOutput{Key: key, Value: value.Groups[key]})
		}
		stats = append(stats, stat)
	}

	if done, err := p.structured(stats); done {
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	for _, stat := range stats {
		if stat.Kind.Grouped() {
			fmt.Fprintf(tw, "%s\t\n", stat.Name)
			for _, g := range stat.Groups {
				fmt.Fprintf(tw, "  %s\t%s\n", g.Key, formatNumber(g.Value))
			}
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", stat.Name, formatNumber(stat.Value))
	}
	return tw.Flush()
}

// displayValue renders a record value for a table cell
func displayValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		return formatNumber(t)
	case []string:
		return strings.Join(t, ", ")
	}
	return formats.Cell(v)
}

// formatNumber rounds to two decimals and drops trailing zeros
func formatNumber(n float64) string {
	return strconv.FormatFloat(math.Round(n*100)/100, 'f', -1, 64)
}

func nonNil(records []types.Record) []types.Record {
	if records == nil {
		return []types.Record{}
	}
	return records
}

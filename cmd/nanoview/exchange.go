package main

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/nanoview/formats"
	"github.com/arthur-debert/nanoview/nanoview/collection"
	"github.com/arthur-debert/nanoview/nanoview/export"
	imports "github.com/arthur-debert/nanoview/nanoview/import"
	"github.com/arthur-debert/nanoview/types"
	"github.com/spf13/cobra"
)

func (cli *CLI) addExportCommand() {
	var (
		vf         viewFlags
		fileFormat string
	)
	exportCmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export records to csv, json or yaml",
		Long: fmt.Sprintf(`Export the records matching the query and filters, in view order. Without
a path the export is written to standard output. The file format is taken
from --file-format or, failing that, the path's extension.

Available file formats: %s

Examples:
  nanoview export team.csv
  nanoview export --filter department=sales --file-format yaml
  nanoview export --app inventory --sort price:desc inventory.json`, strings.Join(formats.List(), ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runView("export records", vf, false, func(s *session, p *printer, view types.DerivedView) error {
				if len(args) == 0 {
					format := fileFormat
					if format == "" {
						format = formats.CSV.Name
					}
					text, err := export.Text(s.app.Schema, view.Visible, format)
					if err != nil {
						return NewValidationError("export records", "--file-format", format,
							fmt.Sprintf("Use one of: %s", strings.Join(formats.List(), ", ")))
					}
					_, err = fmt.Fprint(cli.out, text)
					return err
				}

				if err := export.ToFile(args[0], s.app.Schema, view.Visible, fileFormat); err != nil {
					return NewStoreError("export records", err, CommonSuggestions.CheckPerms)
				}
				_, err := fmt.Fprintf(cli.out, "Exported %d records to %s\n", len(view.Visible), args[0])
				return err
			})
		},
	}
	addViewFlags(exportCmd, &vf, false)
	exportCmd.Flags().StringVar(&fileFormat, "file-format", "", "File format (default: from the path extension, csv on stdout)")
	cli.rootCmd.AddCommand(exportCmd)
}

// importOutput is the structured form of an import
type importOutput struct {
	Import *imports.Result         `json:"import" yaml:"import"`
	Merge  *collection.MergeResult `json:"merge" yaml:"merge"`
}

func (cli *CLI) addImportCommand() {
	var (
		fileFormat string
		ids        string
		conflict   string
		mergeKey   string
		dryRun     bool
	)
	importCmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import records from csv, json or yaml",
		Long: `Import records into the application's collection. Rows that cannot be
read or fail validation are reported with their line number and skipped;
the rest are merged. An incoming record matching an existing one, by id or
by --merge-key, is handled by the --conflict policy:

  skip         keep the existing record and report the incoming one (default)
  regenerate   add the incoming record under a fresh id
  overwrite    replace the existing record, keeping its id

Examples:
  nanoview import team.csv
  nanoview import --ids regenerate --dry-run team.json
  nanoview import --merge-key name --conflict overwrite team.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.newPrinter("import records")
			if err != nil {
				return err
			}
			idPolicy, err := imports.ParseIDPolicy(ids)
			if err != nil {
				return NewValidationError("import records", "--ids", ids, "Use preserve or regenerate")
			}
			policy, err := collection.ParseConflictPolicy(conflict)
			if err != nil {
				return NewValidationError("import records", "--conflict", conflict, "Use skip, regenerate or overwrite")
			}

			s, err := cli.openSession("import records")
			if err != nil {
				return err
			}
			defer s.Close()

			options := imports.DefaultOptions()
			options.IDs = idPolicy
			options.Logger = cli.logger
			records, result, err := imports.FromFile(s.app.Schema, args[0], fileFormat, options)
			if err != nil {
				return WrapError("import records", err, CommonSuggestions.CheckPerms)
			}

			merged, err := s.collection.Merge(records, collection.MergeOptions{
				Conflict: policy,
				Key:      mergeKey,
				DryRun:   dryRun,
			})
			if err != nil {
				return WrapError("import records", err, CommonSuggestions.CheckFields)
			}

			if done, err := p.structured(importOutput{Import: result, Merge: merged}); done {
				return err
			}
			return printImport(p, result, merged, dryRun)
		},
	}

	flags := importCmd.Flags()
	flags.StringVar(&fileFormat, "file-format", "", "File format (default: from the path extension)")
	flags.StringVar(&ids, "ids", string(imports.IDPreserve), "Id handling: preserve or regenerate")
	flags.StringVar(&conflict, "conflict", string(collection.ConflictSkip), "Conflict policy: skip, regenerate or overwrite")
	flags.StringVar(&mergeKey, "merge-key", "", "Match existing records by this field instead of the id")
	flags.BoolVar(&dryRun, "dry-run", false, "Report what would change without saving")
	cli.rootCmd.AddCommand(importCmd)
}

func printImport(p *printer, result *imports.Result, merged *collection.MergeResult, dryRun bool) error {
	prefix := ""
	if dryRun {
		prefix = "[dry run] "
	}

	fmt.Fprintf(p.w, "%sRead %d rows: %d valid, %d failed\n", prefix,
		result.Summary.Total, result.Summary.Succeeded, result.Summary.Failed)
	for _, f := range result.Failed {
		fmt.Fprintf(p.w, "  line %d: %s\n", f.Line, f.Error)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(p.w, "  warning: %s\n", w)
	}

	fmt.Fprintf(p.w, "%sAdded %d, updated %d, rejected %d\n", prefix,
		len(merged.Added), len(merged.Updated), len(merged.Failed))
	for _, f := range merged.Failed {
		fmt.Fprintf(p.w, "  %s: %s\n", f.ID, f.Error)
	}
	for _, w := range merged.Warnings {
		if _, err := fmt.Fprintf(p.w, "  warning: %s\n", w); err != nil {
			return err
		}
	}
	return nil
}

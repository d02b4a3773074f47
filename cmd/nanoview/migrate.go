package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/nanoview/nanoview/migration"
	"github.com/arthur-debert/nanoview/types"
	"github.com/spf13/cobra"
)

// migrationFunc runs one migration over the stored records
type migrationFunc func(api *migration.API, records []types.Record, schema *types.Schema, opts migration.Options) ([]types.Record, *migration.Result)

func (cli *CLI) addMigrateCommand() {
	var dryRun bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration tools for stored records",
		Long: `Rename, remove, add or transform fields of the records stored for an
application, or validate them against its schema. Migrations work on the
stored records directly, so records the collection would drop on load can
be repaired.

Examples:
  nanoview migrate validate
  nanoview migrate rename-field title name --dry-run
  nanoview migrate transform-field salary toNumber
  nanoview migrate add-field active true`,
	}
	migrateCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Preview changes without applying them")

	renameCmd := &cobra.Command{
		Use:   "rename-field <old-name> <new-name>",
		Short: "Rename a field in every record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runMigration("rename field", dryRun, func(api *migration.API, records []types.Record, schema *types.Schema, opts migration.Options) ([]types.Record, *migration.Result) {
				return api.RenameField(records, schema, args[0], args[1], opts)
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove-field <field>",
		Short: "Remove a field from every record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runMigration("remove field", dryRun, func(api *migration.API, records []types.Record, schema *types.Schema, opts migration.Options) ([]types.Record, *migration.Result) {
				return api.RemoveField(records, schema, args[0], opts)
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add-field <field> <default-value>",
		Short: "Set a default value on records lacking a field",
		Long: `Set a default value on every record that has no value for the field.
The value is converted to the field's declared type; list values take
comma or semicolon separated items.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runMigration("add field", dryRun, func(api *migration.API, records []types.Record, schema *types.Schema, opts migration.Options) ([]types.Record, *migration.Result) {
				var value interface{} = args[1]
				if f, ok := schema.Field(args[0]); ok && f.Type == types.List {
					value, _ = migration.ToList(args[1])
				}
				return api.AddField(records, schema, args[0], value, opts)
			})
		},
	}

	transformCmd := &cobra.Command{
		Use:   "transform-field <field> <transformer>",
		Short: "Rewrite a field's values through a transformer",
		Long: fmt.Sprintf(`Rewrite a field's values through a transformer. Values the transformer
rejects are left unchanged and reported.

Available transformers: %s`, strings.Join(migration.TransformerNames(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runMigration("transform field", dryRun, func(api *migration.API, records []types.Record, schema *types.Schema, opts migration.Options) ([]types.Record, *migration.Result) {
				return api.TransformField(records, schema, args[0], args[1], opts)
			})
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Report stored records that do not match the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runMigration("validate records", true, func(api *migration.API, records []types.Record, schema *types.Schema, opts migration.Options) ([]types.Record, *migration.Result) {
				return records, api.ValidateSchema(records, schema)
			})
		},
	}

	migrateCmd.AddCommand(renameCmd, removeCmd, addCmd, transformCmd, validateCmd)
	cli.rootCmd.AddCommand(migrateCmd)
}

// runMigration loads the stored records, applies fn and saves the result
// unless dryRun is set or nothing changed
func (cli *CLI) runMigration(operation string, dryRun bool, fn migrationFunc) error {
	p, err := cli.newPrinter(operation)
	if err != nil {
		return err
	}
	app, err := cli.loadApp(operation)
	if err != nil {
		return err
	}
	store, key, err := cli.openStore(operation, app)
	if err != nil {
		return err
	}
	defer store.Close()

	records, ok, err := migration.Load(store, key)
	if err != nil {
		return NewStoreError(operation, err, CommonSuggestions.CheckStore)
	}
	if !ok {
		return &CLIError{
			Operation:   operation,
			Cause:       fmt.Sprintf("no records stored under key %q", key),
			Suggestions: []string{"Run 'nanoview list' once to store the application's seed records", CommonSuggestions.CheckStore},
		}
	}

	opts := migration.Options{DryRun: dryRun, Verbose: cli.viperInst.GetBool("verbose")}
	migrated, result := fn(migration.NewAPI(), records, app.Schema, opts)

	saved := result.Success && !dryRun && result.Stats.ModifiedRecords > 0
	if saved {
		if err := migration.Save(store, key, migrated); err != nil {
			return NewStoreError(operation, err, CommonSuggestions.CheckPerms)
		}
	}
	cli.logger.Info("migration finished", "operation", operation, "key", key, "success", result.Success,
		"modified", result.Stats.ModifiedRecords, "saved", saved)

	if done, err := p.structured(result); done {
		if err != nil {
			return err
		}
	} else if err := cli.printMigration(result, opts); err != nil {
		return err
	}

	if !result.Success {
		return &CLIError{
			Operation:   operation,
			Cause:       "migration failed",
			Details:     firstError(result),
			Suggestions: []string{CommonSuggestions.CheckFields, CommonSuggestions.TryDryRun},
		}
	}
	return nil
}

// printMigration writes info messages to stdout and problems to stderr
func (cli *CLI) printMigration(result *migration.Result, opts migration.Options) error {
	for _, msg := range result.Messages {
		switch msg.Level {
		case migration.LevelError:
			fmt.Fprintf(cli.errOut, "ERROR: %s\n", msg.Text)
		case migration.LevelWarning:
			fmt.Fprintf(cli.errOut, "WARN: %s\n", msg.Text)
		case migration.LevelInfo:
			fmt.Fprintln(cli.out, msg.Text)
		case migration.LevelDebug:
			if opts.Verbose {
				fmt.Fprintf(cli.out, "DEBUG: %s\n", msg.Text)
			}
		}
		if opts.Verbose && len(msg.Details) > 0 {
			keys := make([]string, 0, len(msg.Details))
			for k := range msg.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cli.out, "  %s: %v\n", k, msg.Details[k])
			}
		}
	}

	if !result.Success {
		return nil
	}
	_, err := fmt.Fprintf(cli.out, "\nMigration completed: %d/%d records modified\n",
		result.Stats.ModifiedRecords, result.Stats.TotalRecords)
	return err
}

func firstError(result *migration.Result) string {
	for _, msg := range result.Messages {
		if msg.Level == migration.LevelError {
			return msg.Text
		}
	}
	return ""
}

package main

import (
	"errors"
	"fmt"

	"github.com/arthur-debert/nanoview/types"
	"github.com/spf13/cobra"
)

func (cli *CLI) addAddCommand() {
	var sets []string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Long: `Add a record built from --set field=value pairs. A missing id is
generated and schema defaults are applied. List fields take comma or
semicolon separated values.

Examples:
  nanoview add --set name="Ida Wells" --set role=mid --set department=sales
  nanoview add --app inventory --set sku=HW-900 --set name=Hammer --set price=12.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runMutation("add record", func(s *session) (types.Record, error) {
				rec, err := parseAssignments(s.app.Schema, sets)
				if err != nil {
					return nil, NewValidationError("add record", "--set", err.Error(), CommonSuggestions.CheckFields)
				}
				return s.collection.Add(rec)
			})
		},
	}
	addCmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as field=value (repeatable)")
	cli.rootCmd.AddCommand(addCmd)
}

func (cli *CLI) addUpdateCommand() {
	var sets []string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a record",
		Long: `Update fields of a record. An empty value clears the field. The id
cannot change.

Examples:
  nanoview update tm-2 --set role=senior --set salary=105000
  nanoview update tm-2 --set skills=`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return cli.runMutation("update record", func(s *session) (types.Record, error) {
				if len(sets) == 0 {
					return nil, NewValidationError("update record", "--set", "", "Give at least one --set field=value")
				}
				patch, err := parseAssignments(s.app.Schema, sets)
				if err != nil {
					return nil, NewValidationError("update record", "--set", err.Error(), CommonSuggestions.CheckFields)
				}
				rec, err := s.collection.Update(id, patch)
				if errors.Is(err, types.ErrNotFound) {
					return nil, NewNotFoundError("update record", id, CommonSuggestions.CheckID)
				}
				return rec, err
			})
		},
	}
	updateCmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as field=value, empty to clear (repeatable)")
	cli.rootCmd.AddCommand(updateCmd)
}

func (cli *CLI) addDeleteCommand() {
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			s, err := cli.openSession("delete record")
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.collection.Delete(id); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return NewNotFoundError("delete record", id, CommonSuggestions.CheckID)
				}
				return WrapError("delete record", err)
			}
			_, err = fmt.Fprintf(cli.out, "Deleted %s\n", id)
			return err
		},
	}
	cli.rootCmd.AddCommand(deleteCmd)
}

// runMutation opens the collection, applies fn and prints the resulting record
func (cli *CLI) runMutation(operation string, fn func(*session) (types.Record, error)) error {
	p, err := cli.newPrinter(operation)
	if err != nil {
		return err
	}

	s, err := cli.openSession(operation)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := fn(s)
	if err != nil {
		return WrapError(operation, err)
	}
	cli.logger.Info("record changed", "operation", operation, "app", s.app.Name, "id", rec.ID(s.app.Schema.IDField))
	return p.Record(s.app.Schema, rec)
}

package main

import (
	"github.com/arthur-debert/nanoview/types"
	"github.com/spf13/cobra"
)

func (cli *CLI) addListCommand() {
	var vf viewFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records through search, filters, sort and pagination",
		Long: `List one page of the application's records.

The query searches every searchable field, case-insensitively. Filters are
combined with AND; a value with | matches any of its parts, a value with ..
is an inclusive range on number and date fields, and * matches anything.

Examples:
  nanoview list --query go
  nanoview list --filter "department=engineering|design" --sort salary:desc
  nanoview list --filter salary=100000.. --filter hired=2020-01-01..2022-12-31
  nanoview list --app events --within starts=0d..14d --now 2024-06-01
  nanoview list --page 2 --size 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runView("list records", vf, true, func(s *session, p *printer, view types.DerivedView) error {
				return p.Records(s.app.Schema, view.Page, view.PageInfo)
			})
		},
	}
	addViewFlags(listCmd, &vf, true)
	cli.rootCmd.AddCommand(listCmd)
}

func (cli *CLI) addStatsCommand() {
	var vf viewFlags
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the application's aggregates over the visible records",
		Long: `Show the count and the application's aggregates. They are computed over
every record matching the query and filters, regardless of pagination.

Examples:
  nanoview stats
  nanoview stats --filter active=true
  nanoview stats --app invoices --within issued=-90d..0d --now 2024-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runView("compute stats", vf, false, func(s *session, p *printer, view types.DerivedView) error {
				return p.Stats(s.app.Aggregates, view.Aggregates)
			})
		},
	}
	addViewFlags(statsCmd, &vf, false)
	cli.rootCmd.AddCommand(statsCmd)
}

// runView opens the collection, derives the view described by the flags and
// hands it to show
func (cli *CLI) runView(operation string, vf viewFlags, paged bool, show func(*session, *printer, types.DerivedView) error) error {
	p, err := cli.newPrinter(operation)
	if err != nil {
		return err
	}

	s, err := cli.openSession(operation)
	if err != nil {
		return err
	}
	defer s.Close()

	params, err := buildParams(s.app, vf, paged, cli.pageOverride())
	if err != nil {
		return WrapError(operation, err)
	}
	view, err := s.collection.View(params)
	if err != nil {
		return WrapError(operation, err)
	}

	cli.logger.Debug("derived view", "app", s.app.Name, "query", params.Query,
		"filters", len(params.Filters), "visible", view.PageInfo.TotalItems)
	return show(s, p, view)
}

// pageOverride reads --size from flags, environment or config
func (cli *CLI) pageOverride() pageOverride {
	return pageOverride{
		set:  cli.viperInst.IsSet("size"),
		size: cli.viperInst.GetInt("size"),
	}
}

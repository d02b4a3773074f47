package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/arthur-debert/nanoview/catalog"
	"github.com/spf13/cobra"
)

func (cli *CLI) addAppsCommand() {
	appsCmd := &cobra.Command{
		Use:   "apps [app-name]",
		Short: "List the built-in applications or show one application's schema",
		Long: `List the built-in applications, or show the fields, aggregates and default
view of one of them.

Examples:
  nanoview apps              # List the built-in applications
  nanoview apps inventory    # Show the inventory schema`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.newPrinter("list apps")
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return cli.printApps(p)
			}

			app, err := catalog.Get(args[0])
			if err != nil {
				return NewAppError("show app", args[0], catalog.Names())
			}
			return cli.printApp(p, app)
		},
	}
	cli.rootCmd.AddCommand(appsCmd)
}

type appSummary struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Records     int    `json:"records" yaml:"records"`
}

func (cli *CLI) printApps(p *printer) error {
	var apps []appSummary
	for _, name := range catalog.Names() {
		app, err := catalog.Get(name)
		if err != nil {
			return err
		}
		apps = append(apps, appSummary{Name: app.Name, Title: app.Title, Description: app.Description, Records: len(app.Seeds)})
	}
	if done, err := p.structured(apps); done {
		return err
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tSEEDS\tDESCRIPTION")
	for _, a := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.Name, a.Title, a.Records, a.Description)
	}
	return tw.Flush()
}

func (cli *CLI) printApp(p *printer, app *catalog.App) error {
	if done, err := p.structured(app); done {
		return err
	}

	fmt.Fprintf(p.w, "%s (%s)\n", app.Title, app.Name)
	if app.Description != "" {
		fmt.Fprintln(p.w, app.Description)
	}
	fmt.Fprintf(p.w, "\nFields (id: %s):\n", app.Schema.IDField)

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tTYPE\tOPTIONS\tVALUES")
	for _, f := range app.Schema.Fields {
		var options []string
		if f.Required {
			options = append(options, "required")
		}
		if f.Searchable {
			options = append(options, "searchable")
		}
		if f.CaseInsensitive {
			options = append(options, "ci")
		}
		if f.Ordered {
			options = append(options, "ordered")
		}
		if f.Default != nil {
			options = append(options, fmt.Sprintf("default=%v", f.Default))
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.Name, f.Type, strings.Join(options, ","), strings.Join(f.Values, "|"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(app.Aggregates) > 0 {
		fmt.Fprintln(p.w, "\nAggregates:")
		for _, spec := range app.Aggregates {
			target := spec.Field
			if spec.GroupBy != "" {
				target = fmt.Sprintf("%s by %s", spec.Field, spec.GroupBy)
			}
			fmt.Fprintf(p.w, "  %s: %s %s\n", spec.Name, spec.Kind, target)
		}
	}

	var sorts []string
	for _, clause := range app.Sort {
		s := clause.Field
		if clause.Descending {
			s += ":desc"
		}
		sorts = append(sorts, s)
	}
	_, err := fmt.Fprintf(p.w, "\nDefault sort: %s, page size: %d\n", strings.Join(sorts, ", "), app.PageSize)
	return err
}

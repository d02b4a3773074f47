// Command nanoview is a terminal dashboard for the built-in applications:
// it lists, searches, filters, sorts and pages their records, shows their
// aggregates, edits records and moves them in and out of csv, json and yaml.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI(os.Stdout, os.Stderr)
	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

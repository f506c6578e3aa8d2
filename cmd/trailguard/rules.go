package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List detection rules in evaluation order",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RULE\tCATEGORY\tSEVERITY\tSCORE")
		for _, r := range rules.Table() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Name, r.Category, r.Severity, r.Score)
		}
		w.Flush()
	},
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/playbook"
)

var playbookCmd = &cobra.Command{
	Use:   "playbook [rule]",
	Short: "Show the response playbook for a rule, or list all rules with playbooks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, name := range playbook.Rules() {
				fmt.Println(name)
			}
			return nil
		}

		e, ok := playbook.Lookup(args[0])
		if !ok {
			return fmt.Errorf("no playbook for rule %q", args[0])
		}
		printEntry(e)
		return nil
	},
}

func printEntry(e playbook.Entry) {
	fmt.Fprintf(os.Stdout, "%s\n\n", e.Title)
	if e.Risk != "" {
		fmt.Fprintf(os.Stdout, "Risk: %s\n\n", e.Risk)
	}
	fmt.Fprintln(os.Stdout, "Actions:")
	for i, a := range e.Actions {
		fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, a)
	}
}

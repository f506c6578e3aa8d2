package main

import (
	"github.com/spf13/cobra"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/query"
)

var (
	alertsFlagHoursBack int
	alertsOpts          query.AlertsOptions
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List stored alerts with their response playbooks",
	Long: `Alerts queries the configured alert store (or previously exported NDJSON
files given with --input) and writes matching alerts, newest first, as NDJSON.

Filters are ANDed. --summary prints counts by severity, rule, category and scan
to stderr. --seal hash-chains the written alerts so the export can later be
checked with "trailguard verify".`,
	RunE: runAlerts,
}

func init() {
	f := alertsCmd.Flags()
	f.StringVar(&alertsOpts.Severity, "severity", "", "only alerts of this severity (Low, Medium, High, Critical)")
	f.StringVar(&alertsOpts.Rule, "rule", "", "only alerts of this rule name")
	f.StringVar(&alertsOpts.ScanID, "scan-id", "", "only alerts of this scan")
	f.IntVar(&alertsFlagHoursBack, "hours-back", 0, "only alerts ingested in the last N hours")
	f.IntVar(&alertsOpts.Limit, "limit", 0, "maximum number of alerts (0 = all)")
	f.StringSliceVar(&alertsOpts.InputFiles, "input", nil, "read alerts from exported NDJSON files instead of the store")
	f.StringVar(&alertsOpts.OutputFile, "output", "", "output NDJSON file (default stdout)")
	f.BoolVar(&alertsOpts.Summary, "summary", false, "print a summary to stderr")
	f.BoolVar(&alertsOpts.Seal, "seal", false, "hash-chain the written alerts")
	f.StringVar(&alertsOpts.StateFile, "state-file", "", "chain state file for --seal (default export.state_file)")
}

func runAlerts(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	ctx := cmd.Context()

	opts := alertsOpts
	if cmd.Flags().Changed("hours-back") {
		opts.HoursBack = alert.Hours(alertsFlagHoursBack)
	}

	if len(opts.InputFiles) > 0 {
		_, err := query.RunAlerts(ctx, nil, opts, cfg)
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	_, err = query.RunAlerts(ctx, st, opts, cfg)
	return err
}

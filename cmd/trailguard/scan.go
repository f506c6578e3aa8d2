package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/detect"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/playbook"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/query"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/runner"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/source"
)

var (
	scanFlagSource string
	scanFlagDir    string
	scanFlagOutput string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan CloudTrail logs and store the resulting alerts",
	Long: `Scan reads every CloudTrail record from the configured source (a local
directory of .json/.json.gz files or an S3 prefix), runs the detection rules,
tags the alerts with a new scan id and stores them as one batch.

The result is printed as {"status","alerts_detected","scanId"}.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFlagSource, "source", "", "event source: dir or s3 (default source.kind)")
	scanCmd.Flags().StringVar(&scanFlagDir, "dir", "", "log directory for the dir source (default source.dir)")
	scanCmd.Flags().StringVar(&scanFlagOutput, "output", "", "also write the detected alerts as NDJSON to this file")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	ctx := cmd.Context()

	kind := scanFlagSource
	if kind == "" {
		kind = cfg.Source.Kind
	}
	srcCfg := cfg.Source
	if scanFlagDir != "" {
		srcCfg.Dir = scanFlagDir
	}

	if err := requirePersistentStore("scan", cfg); err != nil {
		return err
	}

	src, err := source.New(ctx, kind, srcCfg)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	eng := detect.New(detect.WithWorkers(cfg.Detection.Workers))
	res, err := runner.RunScan(ctx, src, eng, st, cfg)
	if err != nil {
		return err
	}

	if scanFlagOutput != "" {
		if err := writeAlerts(scanFlagOutput, playbook.Attach(res.Alerts)); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(res)
}

func writeAlerts(path string, views []playbook.View) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	for _, v := range views {
		if err := query.WriteAlertNDJSON(f, v); err != nil {
			return err
		}
	}
	return nil
}

// Command trailgen writes synthetic CloudTrail files and replays scans over them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/vaibhaw-/TrailGuard/internal/trailgen"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/store"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		configPath := genCmd.String("config", "", "Path to generator config file")
		output := genCmd.String("output", "", "Override output directory")
		logLevel := genCmd.String("log-level", "info", "Log level")
		genCmd.Parse(os.Args[2:])
		if *configPath == "" {
			fmt.Println("Error: --config is required for 'generate'")
			genCmd.Usage()
			os.Exit(1)
		}
		initLogger(*logLevel)
		if err := generate(*configPath, *output); err != nil {
			fmt.Fprintf(os.Stderr, "generate failed: %v\n", err)
			os.Exit(1)
		}

	case "replay":
		replayCmd := flag.NewFlagSet("replay", flag.ExitOnError)
		configPath := replayCmd.String("config", "config.yaml", "Path to trailguard config file (store settings)")
		dir := replayCmd.String("dir", "sample_logs", "Directory of trail files to scan")
		scans := replayCmd.Int("scans", 10, "Number of scans to run")
		concurrency := replayCmd.Int("concurrency", 4, "Scans running at once")
		workers := replayCmd.Int("workers", 1, "Detection workers per scan")
		replayCmd.Parse(os.Args[2:])
		rc := trailgen.ReplayConfig{Dir: *dir, Scans: *scans, Concurrency: *concurrency, Workers: *workers}
		if err := replay(*configPath, rc); err != nil {
			fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
			os.Exit(1)
		}

	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func initLogger(level string) {
	if err := logger.InitLogger(level); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
}

func generate(configPath, output string) error {
	cfg, err := trailgen.LoadGenConfig(configPath)
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output = output
	}
	sum, err := trailgen.Generate(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d events to %d file(s) in %s\n", sum.Events, len(sum.Files), cfg.Output)
	for rule, n := range sum.ByRule {
		fmt.Printf("  %s: %d\n", rule, n)
	}
	return nil
}

func replay(configPath string, rc trailgen.ReplayConfig) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read config %s: %v\n", configPath, err)
	}
	if err := config.Load(v); err != nil {
		return err
	}
	cfg := config.Get()
	initLogger(cfg.Logging.Level)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewFactory().NewStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	stats, err := trailgen.Replay(ctx, rc, st, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: %d scans (%d failed), %d alerts in %s\n",
		stats.RunID, stats.Scans, stats.Failed, stats.Alerts, stats.Duration)
	return nil
}

func printHelp() {
	fmt.Println(`Usage: trailgen <subcommand> [flags]`)
	fmt.Println()
	fmt.Println("Subcommands:")
	fmt.Println("  generate --config <path> [--output dir]        Write synthetic CloudTrail files")
	fmt.Println("  replay   [--config path] [--dir d] [--scans n]  Scan a trail repeatedly into the configured store")
	fmt.Println("  help                                           Show this help message")
}

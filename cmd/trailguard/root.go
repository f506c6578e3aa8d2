package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/store"
)

var (
	cfgFile string
	Version = "v0.1"
	rootCmd = &cobra.Command{
		Use:           "trailguard",
		Short:         "TrailGuard - CloudTrail threat detection",
		Long:          "TrailGuard: scan CloudTrail logs for suspicious activity, store alerts and serve them with response playbooks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			} else {
				// default: ./config.yaml
				viper.SetConfigFile("config.yaml")
			}
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not read config (%v). Using defaults, environment and flags.\n", err)
			}
			if err := config.Load(viper.GetViper()); err != nil {
				return err
			}

			if err := logger.InitLogger(config.Get().Logging.Level); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(scanCmd, alertsCmd, rulesCmd, playbookCmd, serveCmd, verifyCmd, versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore connects the configured alert store; callers close it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := store.NewFactory().NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open alert store: %w", err)
	}
	return st, nil
}

// requirePersistentStore rejects the memory backend for commands whose
// results must outlive the process.
func requirePersistentStore(cmd string, cfg *config.Config) error {
	if d := strings.ToLower(cfg.Store.Driver); d == "memory" || d == "" {
		return fmt.Errorf("%s: store.driver %q keeps alerts only for the life of the process; use sqlite, mongodb, postgres or mysql", cmd, cfg.Store.Driver)
	}
	return nil
}

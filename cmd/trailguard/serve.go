package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/api"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/detect"
)

var serveFlagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan, alert and playbook HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if serveFlagAddr != "" {
			cfg.Server.Addr = serveFlagAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close(cmd.Context())

		eng := detect.New(detect.WithWorkers(cfg.Detection.Workers))
		return api.New(cfg, st, eng).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlagAddr, "addr", "", "listen address (default server.addr)")
}

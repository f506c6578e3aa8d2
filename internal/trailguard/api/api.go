// Package api serves the detection engine and alert store over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/detect"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/source"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/store"
)

// SourceFactory builds the event source for a scan of the given kind
// ("dir" or "s3").
type SourceFactory func(ctx context.Context, kind string) (source.Source, error)

type API struct {
	router  *mux.Router
	server  *http.Server
	cfg     *config.Config
	store   store.Store
	engine  *detect.Engine
	sources SourceFactory
	logger  *zap.SugaredLogger
}

type Option func(*API)

// WithSourceFactory replaces the config-driven event sources.
func WithSourceFactory(f SourceFactory) Option {
	return func(a *API) { a.sources = f }
}

// New wires the routes. cfg may be nil, in which case defaults apply and
// sources must come from WithSourceFactory.
func New(cfg *config.Config, st store.Store, eng *detect.Engine, opts ...Option) *API {
	if cfg == nil {
		cfg = &config.Config{}
	}
	a := &API{
		router: mux.NewRouter(),
		cfg:    cfg,
		store:  st,
		engine: eng,
		logger: logger.L(),
	}
	a.sources = func(ctx context.Context, kind string) (source.Source, error) {
		return source.New(ctx, kind, a.cfg.Source)
	}
	for _, opt := range opts {
		opt(a)
	}
	a.setupRoutes()
	return a
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/api/scan", a.scanDir).Methods("POST")
	a.router.HandleFunc("/api/scan_s3", a.scanS3).Methods("POST")
	a.router.HandleFunc("/api/alerts", a.getAlerts).Methods("GET")
	a.router.HandleFunc("/api/rules", a.getRules).Methods("GET")
	a.router.HandleFunc("/api/playbooks", a.getPlaybooks).Methods("GET")
	a.router.HandleFunc("/api/playbooks/{rule}", a.getPlaybook).Methods("GET")
	a.router.HandleFunc("/healthz", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Handler exposes the router, mainly for httptest.
func (a *API) Handler() http.Handler {
	return a.router
}

// Run serves on cfg.Server.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.Server.ShutdownTimeout.
func (a *API) Run(ctx context.Context) error {
	addr := a.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infow("api listening", "addr", addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	a.logger.Infow("api shutting down", "timeout", timeout.String())
	return a.Stop(shutdownCtx)
}

// Stop shuts the server down if it is running.
func (a *API) Stop(ctx context.Context) error {
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

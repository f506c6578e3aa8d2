package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/detect"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/metrics"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/source"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/store"
)

// ScanResult is what a scan reports to its caller. The JSON form is the
// response body of the scan endpoints.
type ScanResult struct {
	Status         string        `json:"status"`
	AlertsDetected int           `json:"alerts_detected"`
	ScanID         string        `json:"scanId"`
	EventsRead     int           `json:"-"`
	Alerts         []alert.Alert `json:"-"`
}

// RunSummary is appended to the run log as one NDJSON line per scan.
type RunSummary struct {
	Timestamp      string         `json:"timestamp"`
	ScanID         string         `json:"scan_id"`
	Source         string         `json:"source"`
	EventsRead     int            `json:"events_read"`
	AlertsDetected int            `json:"alerts_detected"`
	BySeverity     map[string]int `json:"by_severity,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
}

func appendRunLog(path string, summary RunSummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	return enc.Encode(summary)
}

// sourceLabel reduces a source name ("dir:logs", "s3://bucket/prefix") to its kind.
func sourceLabel(name string) string {
	if i := strings.Index(name, ":"); i > 0 {
		return name[:i]
	}
	return name
}

// RunScan fetches every record from src, runs detection, tags the alerts with
// a fresh scan id and persists them in one batch. Detection itself cannot
// fail; errors come from a cancelled fetch or from the store.
func RunScan(ctx context.Context, src source.Source, eng *detect.Engine, st store.Store, cfg *config.Config) (*ScanResult, error) {
	log := logger.L()
	label := sourceLabel(src.Name())
	start := time.Now()
	log.Infow("starting scan", "source", src.Name())

	summary := RunSummary{Source: src.Name()}
	finish := func(err error) {
		status := metrics.Status(err)
		metrics.ScansTotal.WithLabelValues(label, status).Inc()
		metrics.ScanDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		if cfg == nil || cfg.Logging.RunLog == "" {
			return
		}
		summary.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
		summary.DurationMS = time.Since(start).Milliseconds()
		summary.Status = status
		if err != nil {
			summary.Error = err.Error()
		}
		if werr := appendRunLog(cfg.Logging.RunLog, summary); werr != nil {
			log.Warnw("failed to write run log", "path", cfg.Logging.RunLog, "err", werr.Error())
		}
	}

	events, err := src.Fetch(ctx)
	if err != nil {
		err = fmt.Errorf("fetch events: %w", err)
		finish(err)
		return nil, err
	}
	summary.EventsRead = len(events)
	metrics.EventsFetched.WithLabelValues(label).Add(float64(len(events)))

	alerts := eng.Detect(events)
	log.Debugw("detection pass complete", "events", len(events), "alerts", len(alerts), "workers", eng.Workers())
	scanID := uuid.NewString()
	detect.StampScan(alerts, scanID)
	summary.ScanID = scanID

	insertCtx := ctx
	if cfg != nil && cfg.Store.Timeout > 0 {
		var cancel context.CancelFunc
		insertCtx, cancel = context.WithTimeout(ctx, cfg.Store.Timeout)
		defer cancel()
	}
	err = st.Insert(insertCtx, alerts)
	metrics.StoreOperations.WithLabelValues("insert", metrics.Status(err)).Inc()
	if err != nil {
		log.Errorw("failed to store alerts", "scan_id", scanID, "alerts", len(alerts), "err", err.Error())
		err = fmt.Errorf("store alerts: %w", err)
		finish(err)
		return nil, err
	}

	bySeverity := make(map[string]int)
	for _, a := range alerts {
		bySeverity[string(a.Severity)]++
		metrics.AlertsDetected.WithLabelValues(a.Rule, string(a.Severity)).Inc()
	}
	summary.AlertsDetected = len(alerts)
	summary.BySeverity = bySeverity
	finish(nil)

	log.Infow("scan complete",
		"scan_id", scanID,
		"source", src.Name(),
		"events", len(events),
		"alerts", len(alerts),
		"duration", time.Since(start).String())

	return &ScanResult{
		Status:         "success",
		AlertsDetected: len(alerts),
		ScanID:         scanID,
		EventsRead:     len(events),
		Alerts:         alerts,
	}, nil
}

package trailgen

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/detect"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/runner"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/source"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/store"
)

// ReplayStats summarizes a replay run.
type ReplayStats struct {
	RunID    string        `json:"run_id"`
	Scans    int           `json:"scans"`
	Failed   int           `json:"failed"`
	Alerts   int           `json:"alerts"`
	ScanIDs  []string      `json:"scan_ids"`
	Duration time.Duration `json:"duration"`
}

// Replay scans rc.Dir rc.Scans times across rc.Concurrency workers, storing
// every batch in st. It exercises concurrent inserts from distinct scans.
func Replay(ctx context.Context, rc ReplayConfig, st store.Store, cfg *config.Config) (*ReplayStats, error) {
	log := logger.L()
	rc.applyDefaults()
	start := time.Now()

	stats := &ReplayStats{RunID: uuid.NewString()}
	log.Infow("starting replay", "run_id", stats.RunID, "dir", rc.Dir, "scans", rc.Scans, "concurrency", rc.Concurrency)

	eng := detect.New(detect.WithWorkers(rc.Workers))

	opsCh := make(chan int, rc.Scans)
	for i := 0; i < rc.Scans; i++ {
		opsCh <- i
	}
	close(opsCh)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for w := 0; w < rc.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			src := source.NewDirSource(rc.Dir)
			for range opsCh {
				if ctx.Err() != nil {
					return
				}
				res, err := runner.RunScan(ctx, src, eng, st, cfg)
				mu.Lock()
				stats.Scans++
				if err != nil {
					stats.Failed++
					log.Errorw("replay scan failed", "worker", workerID, "err", err.Error())
				} else {
					stats.Alerts += res.AlertsDetected
					stats.ScanIDs = append(stats.ScanIDs, res.ScanID)
				}
				mu.Unlock()
			}
			log.Debugw("replay worker finished", "worker", workerID)
		}(w)
	}
	wg.Wait()

	stats.Duration = time.Since(start)
	log.Infow("replay complete",
		"run_id", stats.RunID,
		"scans", stats.Scans,
		"failed", stats.Failed,
		"alerts", stats.Alerts,
		"duration", stats.Duration.String())
	return stats, ctx.Err()
}

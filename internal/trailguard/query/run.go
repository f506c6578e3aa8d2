// Package query exports stored or previously exported alerts as NDJSON,
// filtered and optionally sealed, with a summary of what matched.
package query

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/metrics"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/playbook"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/store"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/verify"
)

// AlertReader is the read side of an alert store.
type AlertReader interface {
	Query(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
}

// RunAlerts loads alerts matching opts, attaches their playbooks and writes
// them as NDJSON. Alerts come from st, or from opts.InputFiles when set, in
// which case st may be nil. With opts.Seal the written lines are hash-chained
// and the chain state is persisted for the next export.
func RunAlerts(ctx context.Context, st AlertReader, opts AlertsOptions, cfg *config.Config) (*Stats, error) {
	log := logger.L()
	f := opts.Filter()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	stats := NewStats()
	var (
		alerts []alert.Alert
		err    error
	)
	if len(opts.InputFiles) > 0 {
		alerts = filterExports(opts.InputFiles, f, time.Now(), stats)
	} else {
		if st == nil {
			return nil, fmt.Errorf("no alert store configured")
		}
		alerts, err = queryStore(ctx, st, f, cfg)
		if err != nil {
			return nil, err
		}
		stats.InputAlerts = len(alerts)
	}
	for _, a := range alerts {
		stats.IncrementMatched(a)
	}
	log.Debugw("alerts selected", "read", stats.InputAlerts, "matched", stats.MatchedAlerts, "errors", stats.ErrorLines)

	if !opts.Summary || opts.OutputFile != "" {
		if err := writeViews(playbook.Attach(alerts), opts, cfg); err != nil {
			return nil, err
		}
	}

	if opts.Summary {
		stats.PrintSummary(os.Stderr)
	}
	return stats, nil
}

func queryStore(ctx context.Context, st AlertReader, f alert.Filter, cfg *config.Config) ([]alert.Alert, error) {
	if cfg != nil && cfg.Store.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Store.Timeout)
		defer cancel()
	}
	alerts, err := st.Query(ctx, f)
	metrics.StoreOperations.WithLabelValues("query", metrics.Status(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	return alerts, nil
}

// filterExports applies f to previously exported alerts the same way the
// stores do: predicates, newest ingestedAt first, then the limit.
func filterExports(files []string, f alert.Filter, now time.Time, stats *Stats) []alert.Alert {
	log := logger.L()
	preds := f.Predicates(now)

	var matched []alert.Alert
	for res := range ReadAlerts(files) {
		if res.Err != nil {
			stats.IncrementError()
			log.Warnw("skipping alert line", "err", res.Err.Error())
			continue
		}
		stats.IncrementInput()
		if alert.MatchAll(res.Alert, preds) {
			matched = append(matched, res.Alert)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].IngestedAt.After(matched[j].IngestedAt)
	})
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	if matched == nil {
		matched = []alert.Alert{}
	}
	return matched
}

func writeViews(views []playbook.View, opts AlertsOptions, cfg *config.Config) error {
	output, err := openOutput(opts.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	if closer, ok := output.(io.Closer); ok && output != os.Stdout {
		defer closer.Close()
	}

	if !opts.Seal {
		for _, v := range views {
			if err := WriteAlertNDJSON(output, v); err != nil {
				return err
			}
		}
		return nil
	}

	var plain bytes.Buffer
	for _, v := range views {
		if err := WriteAlertNDJSON(&plain, v); err != nil {
			return err
		}
	}

	stateFile := opts.StateFile
	if stateFile == "" && cfg != nil {
		stateFile = cfg.Export.StateFile
	}
	state, err := verify.LoadState(stateFile)
	if err != nil {
		return err
	}
	next, n, err := verify.ComputeChain(&plain, output, state)
	if err != nil {
		return fmt.Errorf("seal alerts: %w", err)
	}
	if err := verify.SaveState(stateFile, next); err != nil {
		return fmt.Errorf("save chain state: %w", err)
	}
	logger.L().Infow("alerts sealed", "alerts", n, "chain_index", next.LastChainIndex)
	return nil
}

func openOutput(outputFile string) (io.Writer, error) {
	if outputFile == "" {
		return os.Stdout, nil
	}
	file, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputFile, err)
	}
	return file, nil
}

// compile-time check that every store satisfies the read side
var _ AlertReader = (store.Store)(nil)

// Package store persists alerts and answers filtered, time-windowed queries.
//
// Every backend follows the same contract: Insert stamps IngestedAt on alerts
// that do not carry one and writes the batch in one operation; Query ANDs the
// filter criteria and returns matches newest first.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
)

var (
	// ErrStore wraps every backend failure.
	ErrStore = errors.New("alert store error")
	// ErrUnsupportedDriver is returned by the factory for unknown drivers.
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)

// Store is implemented by every alert backend. Implementations are safe for
// concurrent use.
type Store interface {
	Insert(ctx context.Context, alerts []alert.Alert) error
	Query(ctx context.Context, f alert.Filter) ([]alert.Alert, error)
	Close(ctx context.Context) error
}

// Clock supplies the time used for IngestedAt stamps and HoursBack cutoffs.
type Clock func() time.Time

type storeOptions struct {
	clock Clock
}

// Option configures a backend at construction.
type Option func(*storeOptions)

// WithClock overrides time.Now. Used by tests and replays.
func WithClock(c Clock) Option {
	return func(o *storeOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stampAll fills IngestedAt on every alert that lacks it. The caller's slice is
// updated in place so it reflects what was written.
func stampAll(alerts []alert.Alert, now time.Time) {
	for i := range alerts {
		alerts[i].Stamp(now)
	}
}

// sortNewestFirst orders by IngestedAt descending; ties keep insertion order.
func sortNewestFirst(alerts []alert.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].IngestedAt.After(alerts[j].IngestedAt)
	})
}

func applyLimit(alerts []alert.Alert, limit int) []alert.Alert {
	if limit > 0 && len(alerts) > limit {
		return alerts[:limit]
	}
	return alerts
}

// wrapErr tags a backend failure with ErrStore and the failing operation.
func wrapErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

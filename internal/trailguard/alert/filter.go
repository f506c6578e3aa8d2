package alert

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidFilter is returned for filters with out-of-range values.
var ErrInvalidFilter = errors.New("invalid alert filter")

// Filter selects stored alerts. Empty fields impose no restriction and all
// set fields are ANDed.
type Filter struct {
	Severity  string // exact match on severity
	Rule      string // exact rule name
	ScanID    string // alerts of one detection run
	HoursBack *int   // ingestedAt >= now - HoursBack hours
	Limit     int    // 0 returns every match
}

// Hours is a convenience for building Filter.HoursBack.
func Hours(h int) *int {
	return &h
}

func (f Filter) Validate() error {
	if f.HoursBack != nil && *f.HoursBack < 0 {
		return fmt.Errorf("%w: hours back must be >= 0, got %d", ErrInvalidFilter, *f.HoursBack)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must be >= 0, got %d", ErrInvalidFilter, f.Limit)
	}
	return nil
}

// maxHoursBack is the largest window expressible as a time.Duration.
const maxHoursBack = math.MaxInt64 / int64(time.Hour)

// Cutoff returns the oldest ingestedAt admitted by HoursBack, relative to now.
// Windows too wide for a time.Duration impose no restriction.
func (f Filter) Cutoff(now time.Time) (time.Time, bool) {
	if f.HoursBack == nil || int64(*f.HoursBack) >= maxHoursBack {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(*f.HoursBack) * time.Hour), true
}

// Predicate reports whether an alert matches one criterion.
type Predicate func(Alert) bool

// Predicates translates the filter into a predicate chain evaluated with AND.
// Limit is not a predicate; callers apply it after sorting.
func (f Filter) Predicates(now time.Time) []Predicate {
	var preds []Predicate

	if f.Severity != "" {
		preds = append(preds, BySeverity(f.Severity))
	}
	if f.Rule != "" {
		preds = append(preds, ByRule(f.Rule))
	}
	if f.ScanID != "" {
		preds = append(preds, ByScanID(f.ScanID))
	}
	if cutoff, ok := f.Cutoff(now); ok {
		preds = append(preds, IngestedSince(cutoff))
	}
	return preds
}

func BySeverity(sev string) Predicate {
	return func(a Alert) bool { return string(a.Severity) == sev }
}

func ByRule(rule string) Predicate {
	return func(a Alert) bool { return a.Rule == rule }
}

func ByScanID(id string) Predicate {
	return func(a Alert) bool { return a.ScanID == id }
}

// IngestedSince matches alerts ingested at or after cutoff.
func IngestedSince(cutoff time.Time) Predicate {
	return func(a Alert) bool { return !a.IngestedAt.Before(cutoff) }
}

// MatchAll reports whether a satisfies every predicate.
func MatchAll(a Alert, preds []Predicate) bool {
	for _, p := range preds {
		if !p(a) {
			return false
		}
	}
	return true
}

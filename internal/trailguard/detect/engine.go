// Package detect runs the rule table over CloudTrail records. Detection is a
// pure function of its input; persistence and logging belong to the caller.
package detect

import (
	"sync"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/rules"
)

// Engine evaluates every rule against every record.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules   []rules.Rule
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers fans records out across n goroutines. n <= 1 keeps the pass sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.workers = n
		}
	}
}

// WithRules replaces the default rule table.
func WithRules(table []rules.Rule) Option {
	return func(e *Engine) {
		e.rules = append([]rules.Rule(nil), table...)
	}
}

// New returns an engine over the default rule table.
func New(opts ...Option) *Engine {
	e := &Engine{rules: rules.Table(), workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers reports how many goroutines a detection pass uses.
func (e *Engine) Workers() int {
	return e.workers
}

// Rules returns the table this engine evaluates.
func (e *Engine) Rules() []rules.Rule {
	return append([]rules.Rule(nil), e.rules...)
}

// Detect returns the alerts for events, ordered by event position and then by
// rule-table position. It performs no I/O and never modifies events. ScanID and
// IngestedAt are left empty.
func (e *Engine) Detect(events []event.Record) []alert.Alert {
	if len(events) == 0 {
		return []alert.Alert{}
	}

	var perEvent [][]alert.Alert
	if e.workers > 1 && len(events) > 1 {
		perEvent = e.detectParallel(events)
	} else {
		perEvent = make([][]alert.Alert, len(events))
		for i, rec := range events {
			perEvent[i] = e.evaluate(rec)
		}
	}

	total := 0
	for _, as := range perEvent {
		total += len(as)
	}
	out := make([]alert.Alert, 0, total)
	for _, as := range perEvent {
		out = append(out, as...)
	}
	return out
}

// detectParallel scatters event indices to the worker pool. Results land in
// the slot of their event index, which restores the sequential order.
func (e *Engine) detectParallel(events []event.Record) [][]alert.Alert {
	results := make([][]alert.Alert, len(events))
	idx := make(chan int, len(events))
	for i := range events {
		idx <- i
	}
	close(idx)

	workers := e.workers
	if workers > len(events) {
		workers = len(events)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				results[i] = e.evaluate(events[i])
			}
		}()
	}
	wg.Wait()
	return results
}

func (e *Engine) evaluate(rec event.Record) []alert.Alert {
	var out []alert.Alert
	var base *alert.Alert
	for _, r := range e.rules {
		if !r.Match(rec) {
			continue
		}
		if base == nil {
			b := baseAlert(rec)
			base = &b
		}
		a := *base
		a.Rule = r.Name
		a.Description = r.Describe(rec)
		a.Category = r.Category
		a.Severity = r.Severity
		a.Score = r.Score
		out = append(out, a)
	}
	return out
}

// baseAlert denormalizes the per-event fields shared by every alert of rec.
func baseAlert(rec event.Record) alert.Alert {
	return alert.Alert{
		User:        rec.StringOr("Unknown", "userIdentity", "userName"),
		UserType:    rec.StringOr("Unknown", "userIdentity", "type"),
		SourceIP:    rec.StringOr("Unknown", "sourceIPAddress"),
		EventName:   rec.String("eventName"),
		EventSource: rec.String("eventSource"),
		EventTime:   rec.String("eventTime"),
		AWSRegion:   rec.StringOr("Unknown", "awsRegion"),
		EventID:     rec.String("eventID"),
		RawEvent:    rec,
	}
}

// StampScan tags every alert of one detection run with scanID.
func StampScan(alerts []alert.Alert, scanID string) {
	for i := range alerts {
		alerts[i].ScanID = scanID
	}
}

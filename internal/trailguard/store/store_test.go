package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/event"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sampleAlert(rule string, sev alert.Severity, scanID string) alert.Alert {
	return alert.Alert{
		Rule:        rule,
		Description: rule + " detected",
		Category:    "Test",
		Severity:    sev,
		Score:       50,
		User:        "alice",
		UserType:    "IAMUser",
		SourceIP:    "203.0.113.9",
		EventName:   "CreateUser",
		EventSource: "iam.amazonaws.com",
		EventTime:   "2025-03-01T11:59:00Z",
		AWSRegion:   "us-east-1",
		EventID:     "evt-" + rule,
		RawEvent: event.Record{
			"eventName":    "CreateUser",
			"userIdentity": map[string]any{"type": "IAMUser", "userName": "alice"},
			"resources":    []any{"arn:aws:iam::123456789012:user/bob"},
			"readOnly":     false,
			"version":      float64(1.08),
		},
		ScanID: scanID,
	}
}

type storeCtor func(t *testing.T, clock Clock) Store

// backends lists every store that can run without external services.
func backends() map[string]storeCtor {
	return map[string]storeCtor{
		"memory": func(t *testing.T, clock Clock) Store {
			return NewMemoryStore(WithClock(clock))
		},
		"sqlite": func(t *testing.T, clock Clock) Store {
			s, err := openSQL(context.Background(), sqliteDialect, config.StoreCfg{Collection: "alerts"}, WithClock(clock))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close(context.Background()) })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store, clock *fakeClock)) {
	for name, ctor := range backends() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			fn(t, ctor(t, clock.Now), clock)
		})
	}
}

func rulesOf(alerts []alert.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Rule)
	}
	return out
}

func TestStore_EmptyInsertAndQuery(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, nil))
		require.NoError(t, s.Insert(ctx, []alert.Alert{}))

		got, err := s.Query(ctx, alert.Filter{})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestStore_NewestFirstAndLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		for _, rule := range []string{"first", "second", "third"} {
			require.NoError(t, s.Insert(ctx, []alert.Alert{sampleAlert(rule, alert.SeverityHigh, "scan-1")}))
			clock.Advance(time.Minute)
		}

		got, err := s.Query(ctx, alert.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"third", "second", "first"}, rulesOf(got))

		got, err = s.Query(ctx, alert.Filter{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"third"}, rulesOf(got))
	})
}

func TestStore_TiesKeepInsertionOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		batch := []alert.Alert{
			sampleAlert("a", alert.SeverityLow, "scan-1"),
			sampleAlert("b", alert.SeverityLow, "scan-1"),
			sampleAlert("c", alert.SeverityLow, "scan-1"),
		}
		require.NoError(t, s.Insert(ctx, batch))

		got, err := s.Query(ctx, alert.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, rulesOf(got))
	})
}

func TestStore_ScanIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, []alert.Alert{
			sampleAlert("x1", alert.SeverityHigh, "scan-x"),
			sampleAlert("x2", alert.SeverityLow, "scan-x"),
		}))
		require.NoError(t, s.Insert(ctx, []alert.Alert{sampleAlert("y1", alert.SeverityHigh, "scan-y")}))

		got, err := s.Query(ctx, alert.Filter{ScanID: "scan-x"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"x1", "x2"}, rulesOf(got))

		got, err = s.Query(ctx, alert.Filter{ScanID: "scan-y"})
		require.NoError(t, err)
		assert.Equal(t, []string{"y1"}, rulesOf(got))

		got, err = s.Query(ctx, alert.Filter{ScanID: "scan-z"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStore_HoursBackWindow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		old := sampleAlert("old", alert.SeverityHigh, "scan-1")
		old.IngestedAt = clock.Now().Add(-2 * time.Hour)
		fresh := sampleAlert("fresh", alert.SeverityHigh, "scan-1")
		fresh.IngestedAt = clock.Now().Add(-30 * time.Minute)
		require.NoError(t, s.Insert(ctx, []alert.Alert{old, fresh}))

		got, err := s.Query(ctx, alert.Filter{HoursBack: alert.Hours(1)})
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, rulesOf(got))

		got, err = s.Query(ctx, alert.Filter{HoursBack: alert.Hours(3)})
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh", "old"}, rulesOf(got))
	})
}

func TestStore_HugeHoursBackKeepsEverything(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		fresh := sampleAlert("fresh", alert.SeverityHigh, "scan-1")
		require.NoError(t, s.Insert(ctx, []alert.Alert{fresh}))

		for _, h := range []int{2000000, 3000000, math.MaxInt32} {
			got, err := s.Query(ctx, alert.Filter{HoursBack: alert.Hours(h)})
			require.NoError(t, err)
			assert.Equal(t, []string{"fresh"}, rulesOf(got), "hours back %d", h)
		}
	})
}

func TestBuildOptions(t *testing.T) {
	o := buildOptions(nil)
	require.NotNil(t, o.clock)
	assert.WithinDuration(t, time.Now(), o.clock(), time.Minute)

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o = buildOptions([]Option{WithClock(func() time.Time { return fixed }), WithClock(nil)})
	assert.Equal(t, fixed, o.clock())
}

func TestStore_ConjunctiveFilters(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, []alert.Alert{
			sampleAlert("Root Account Activity", alert.SeverityCritical, "scan-1"),
			sampleAlert("IAM Privilege Change", alert.SeverityHigh, "scan-1"),
			sampleAlert("Failed Console Login", alert.SeverityHigh, "scan-2"),
		}))

		tests := []struct {
			name   string
			filter alert.Filter
			want   []string
		}{
			{name: "severity", filter: alert.Filter{Severity: "High"}, want: []string{"IAM Privilege Change", "Failed Console Login"}},
			{name: "severity is exact", filter: alert.Filter{Severity: "HIGH"}, want: []string{}},
			{name: "rule", filter: alert.Filter{Rule: "Root Account Activity"}, want: []string{"Root Account Activity"}},
			{name: "severity and scan", filter: alert.Filter{Severity: "High", ScanID: "scan-2"}, want: []string{"Failed Console Login"}},
			{name: "no match", filter: alert.Filter{Rule: "Root Account Activity", Severity: "Low"}, want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.Query(ctx, tt.filter)
				require.NoError(t, err)
				assert.ElementsMatch(t, tt.want, rulesOf(got))
			})
		}
	})
}

func TestStore_RoundTripPreservesFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		in := sampleAlert("IAM Privilege Change", alert.SeverityHigh, "scan-rt")
		batch := []alert.Alert{in}
		require.NoError(t, s.Insert(ctx, batch))

		// the caller's slice is stamped in place
		assert.True(t, batch[0].IngestedAt.Equal(clock.Now()))

		got, err := s.Query(ctx, alert.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 1)

		out := got[0]
		assert.NotEmpty(t, out.ID)
		assert.True(t, out.IngestedAt.Equal(clock.Now()))

		out.ID = ""
		out.IngestedAt = time.Time{}
		assert.Equal(t, in, out)
	})
}

func TestStore_KeepsExistingIngestedAt(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, clock *fakeClock) {
		ctx := context.Background()
		a := sampleAlert("kept", alert.SeverityLow, "scan-1")
		stamp := clock.Now().Add(-10 * time.Minute)
		a.IngestedAt = stamp
		require.NoError(t, s.Insert(ctx, []alert.Alert{a}))

		got, err := s.Query(ctx, alert.Filter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].IngestedAt.Equal(stamp))
	})
}

func TestStore_InvalidFilter(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, _ *fakeClock) {
		_, err := s.Query(context.Background(), alert.Filter{HoursBack: alert.Hours(-1)})
		assert.True(t, errors.Is(err, alert.ErrInvalidFilter))

		_, err = s.Query(context.Background(), alert.Filter{Limit: -1})
		assert.True(t, errors.Is(err, alert.ErrInvalidFilter))
	})
}

func TestStore_ConcurrentScans(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store, _ *fakeClock) {
		ctx := context.Background()
		const scans = 8

		var wg sync.WaitGroup
		errs := make(chan error, scans*2)
		for i := 0; i < scans; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				scanID := fmt.Sprintf("scan-%d", i)
				errs <- s.Insert(ctx, []alert.Alert{
					sampleAlert("a", alert.SeverityHigh, scanID),
					sampleAlert("b", alert.SeverityLow, scanID),
				})
			}(i)
			go func() {
				defer wg.Done()
				_, err := s.Query(ctx, alert.Filter{Severity: "High"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		for i := 0; i < scans; i++ {
			got, err := s.Query(ctx, alert.Filter{ScanID: fmt.Sprintf("scan-%d", i)})
			require.NoError(t, err)
			assert.Len(t, got, 2)
		}
	})
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Insert(ctx, []alert.Alert{sampleAlert("a", alert.SeverityLow, "")})
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, s.Len())
}

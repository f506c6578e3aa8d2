package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/alert"
)

// MemoryStore keeps alerts in process. It backs the default configuration,
// tests and the API when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts []alert.Alert
	nextID int
	clock  Clock
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{clock: o.clock}
}

func (m *MemoryStore) Insert(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return wrapErr("insert", err)
	}
	stampAll(alerts, m.clock())

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range alerts {
		m.nextID++
		a.ID = strconv.Itoa(m.nextID)
		m.alerts = append(m.alerts, a)
	}
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, f alert.Filter) ([]alert.Alert, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("query", err)
	}
	preds := f.Predicates(m.clock())

	m.mu.RLock()
	out := make([]alert.Alert, 0)
	for _, a := range m.alerts {
		if alert.MatchAll(a, preds) {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	return applyLimit(out, f.Limit), nil
}

// Len reports how many alerts are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.alerts)
}

func (m *MemoryStore) Close(context.Context) error {
	return nil
}

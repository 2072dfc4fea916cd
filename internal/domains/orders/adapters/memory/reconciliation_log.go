package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

var _ ports.ReconciliationLog = (*ReconciliationLog)(nil)

// ReconciliationLog keeps entries in process memory; they do not survive a restart.
type ReconciliationLog struct {
	mu      sync.RWMutex
	entries map[string]ports.ReconciliationEntry
	now     func() time.Time
}

func NewReconciliationLog() *ReconciliationLog {
	return &ReconciliationLog{
		entries: map[string]ports.ReconciliationEntry{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *ReconciliationLog) Record(_ context.Context, entry ports.ReconciliationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.FailedSteps = append([]string(nil), entry.FailedSteps...)
	r.entries[entry.ID] = entry
	return nil
}

func (r *ReconciliationLog) ListOpen(_ context.Context) ([]ports.ReconciliationEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	open := make([]ports.ReconciliationEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.ResolvedAt != nil {
			continue
		}
		e.FailedSteps = append([]string(nil), e.FailedSteps...)
		open = append(open, e)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })
	return open, nil
}

func (r *ReconciliationLog) Resolve(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ports.ErrReconciliationNotFound
	}
	if e.ResolvedAt != nil {
		return nil
	}
	now := r.now()
	e.ResolvedAt = &now
	r.entries[id] = e
	return nil
}

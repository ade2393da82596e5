package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

// SessionStore holds sessions keyed by user id. A missing session is
// reported with ok=false and read as a fresh idle one.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (s Session, ok bool, err error)
	Put(ctx context.Context, userID int64, s Session) error
	Delete(ctx context.Context, userID int64) error
}

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 30 * time.Minute

type memoryEntry struct {
	session Session
	expires time.Time
}

type pendingEntry struct {
	order   PendingOrder
	expires time.Time
}

// MemoryStore keeps sessions in process memory and expires idle ones. It
// also holds pending orders, which expire after DefaultPendingTTL.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[int64]memoryEntry
	pending    map[orders.ID]pendingEntry
	ttl        time.Duration
	pendingTTL time.Duration
	now        func() time.Time
}

// NewMemoryStore returns a store that forgets sessions idle longer than ttl.
// A non-positive ttl falls back to DefaultIdleTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &MemoryStore{
		entries:    make(map[int64]memoryEntry),
		pending:    make(map[orders.ID]pendingEntry),
		ttl:        ttl,
		pendingTTL: DefaultPendingTTL,
		now:        time.Now,
	}
}

// Get implements SessionStore.
func (m *MemoryStore) Get(_ context.Context, userID int64) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		return Session{}, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, userID)
		return Session{}, false, nil
	}
	return e.session.clone(), true, nil
}

// Put implements SessionStore.
func (m *MemoryStore) Put(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	m.entries[userID] = memoryEntry{session: s.clone(), expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

// Delete implements SessionStore.
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}

// PutPending implements PendingStore.
func (m *MemoryStore) PutPending(_ context.Context, p PendingOrder) error {
	m.mu.Lock()
	m.pending[p.ID] = pendingEntry{order: p, expires: m.now().Add(m.pendingTTL)}
	m.mu.Unlock()
	return nil
}

// Pending implements PendingStore.
func (m *MemoryStore) Pending(_ context.Context, id orders.ID) (PendingOrder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[id]
	if !ok || !m.now().Before(e.expires) {
		return PendingOrder{}, false, nil
	}
	return e.order, true, nil
}

// DeletePending implements PendingStore.
func (m *MemoryStore) DeletePending(_ context.Context, id orders.ID) error {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included until swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops expired sessions and pending orders and returns how many
// sessions were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
			removed++
		}
	}
	for id, e := range m.pending {
		if !now.Before(e.expires) {
			delete(m.pending, id)
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug(ctx, "checkout", "session.sweep", slog.Int("removed", n), slog.Int("left", m.Len()))
			}
		}
	}
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendance-portal/internal/api"
	"attendance-portal/internal/events"
	"attendance-portal/internal/metrics"
)

// Manager holds the live Store of every browser session seen by this process.
type Manager struct {
	persist Persistence
	auth    Authenticator
	log     *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a manager over a persistence backend and the backend API.
func NewManager(p Persistence, a Authenticator, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		persist: p,
		auth:    a,
		log:     log,
		now:     time.Now,
		stores:  make(map[string]*Store),
	}
}

// Persistence exposes the backend, e.g. for health checks.
func (m *Manager) Persistence() Persistence { return m.persist }

// Acquire returns the Store for id, restoring it on first use.
// The restore runs on the caller's goroutine; concurrent callers for the
// same id observe Loading until it completes.
func (m *Manager) Acquire(ctx context.Context, id string) *Store {
	st := m.lookup(id, true)
	st.Restore(ctx)
	return st
}

// Snapshot returns the state of session id. An empty id is unauthenticated.
func (m *Manager) Snapshot(ctx context.Context, id string) Snapshot {
	if id == "" {
		return Snapshot{State: Unauthenticated}
	}
	return m.Acquire(ctx, id).Snapshot()
}

// Login authenticates under a fresh session id and returns it. The previous
// session, if any, is logged out only after the login succeeds.
func (m *Manager) Login(ctx context.Context, previousID string, creds api.Credentials) (string, api.User, error) {
	id := uuid.NewString()
	st := newStore(id, m.persist, m.auth, m.log, m.now)
	user, err := st.Login(ctx, creds)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failed").Inc()
		return "", api.User{}, err
	}
	metrics.LoginAttempts.WithLabelValues("ok").Inc()

	m.mu.Lock()
	m.stores[id] = st
	m.mu.Unlock()
	metrics.LiveSessions.Inc()

	if previousID != "" {
		m.Logout(ctx, previousID)
	}
	m.log.Info("login", zap.String("session", shortID(id)), zap.String("role", string(user.Role)))
	return id, user, nil
}

// Logout clears session id. Unknown ids are cleared from persistence anyway.
func (m *Manager) Logout(ctx context.Context, id string) {
	if id == "" {
		return
	}
	st := m.lookup(id, true)
	st.Logout(ctx)
	m.forget(id)
}

// Expire handles an AuthExpired event: the session is cleared if the
// rejected token is still its credential.
func (m *Manager) Expire(ctx context.Context, evt events.Event) {
	if st := m.lookup(evt.SessionID, false); st != nil {
		if st.Expire(ctx, evt.Token) {
			metrics.SessionsExpired.Inc()
			m.log.Info("session expired", zap.String("session", shortID(evt.SessionID)))
		}
		return
	}
	// Not live here; the token may still sit in shared persistence.
	p, err := m.persist.Load(ctx, evt.SessionID)
	if err != nil || p.Token != evt.Token {
		return
	}
	if err := m.persist.Clear(ctx, evt.SessionID); err != nil {
		m.log.Warn("clear expired session failed", zap.Error(err))
		return
	}
	metrics.SessionsExpired.Inc()
}

// Run consumes events until the channel closes, and evicts stores idle
// longer than maxIdle every sweep interval.
func (m *Manager) Run(ctx context.Context, in <-chan events.Event, sweep, maxIdle time.Duration) {
	if sweep <= 0 {
		sweep = time.Minute
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-in:
			if !ok {
				return
			}
			if evt.Type == events.AuthExpired {
				m.Expire(ctx, evt)
			}
		case <-ticker.C:
			if n := m.Sweep(maxIdle); n > 0 {
				m.log.Debug("evicted idle sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep drops in-memory stores not used for maxIdle. Persisted state is
// kept, so an evicted session is restored again on its next request.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, st := range m.stores {
		if st.idleSince().Before(cutoff) {
			delete(m.stores, id)
			n++
		}
	}
	metrics.LiveSessions.Sub(float64(n))
	return n
}

func (m *Manager) lookup(id string, create bool) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stores[id]
	if !ok && create {
		st = newStore(id, m.persist, m.auth, m.log, m.now)
		m.stores[id] = st
		metrics.LiveSessions.Inc()
	}
	return st
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[id]; ok {
		delete(m.stores, id)
		metrics.LiveSessions.Dec()
	}
}

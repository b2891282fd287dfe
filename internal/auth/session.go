package auth

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an unlocked tenant stays unlocked.
const DefaultSessionTTL = 15 * time.Minute

// Sessions tracks per-tenant admin unlocks for in-process callers such as
// the CLI. HTTP callers use tokens instead.
type Sessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	unlocked map[string]time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{ttl: ttl, now: time.Now, unlocked: make(map[string]time.Time)}
}

// Unlock verifies pin against hash and opens a session for tenantID.
func (s *Sessions) Unlock(tenantID, hash, pin string) error {
	if err := VerifyPIN(hash, pin); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked[tenantID] = s.now().Add(s.ttl)
	return nil
}

// Lock closes the session for tenantID.
func (s *Sessions) Lock(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unlocked, tenantID)
}

// Unlocked reports whether tenantID has a live session.
func (s *Sessions) Unlocked(tenantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.unlocked[tenantID]
	if !ok {
		return false
	}
	if !s.now().Before(exp) {
		delete(s.unlocked, tenantID)
		return false
	}
	return true
}

// Gate authorizes admin operations on a tenant.
type Gate struct {
	sessions *Sessions
}

// NewGate returns a gate backed by sessions. A nil sessions value means
// only token principals are accepted.
func NewGate(sessions *Sessions) *Gate {
	return &Gate{sessions: sessions}
}

// Sessions returns the session table, which may be nil.
func (g *Gate) Sessions() *Sessions { return g.sessions }

// Authorize succeeds when ctx carries an unexpired principal for tenantID or
// the tenant has a live session.
func (g *Gate) Authorize(ctx context.Context, tenantID string) error {
	if p, ok := PrincipalFromContext(ctx); ok && p.TenantID == tenantID {
		if p.ExpiresAt.IsZero() || time.Now().Before(p.ExpiresAt) {
			return nil
		}
	}
	if g.sessions != nil && g.sessions.Unlocked(tenantID) {
		return nil
	}
	return ErrLocked
}

package memory

import (
	"context"
	"sync"
	"time"

	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStore is a volatile, process-lifetime session store. State is a
// single map behind an RWMutex; it is rebuildable from nothing on restart,
// which is a design constraint of the gateway, not an omission.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.PaymentSession

	ttl   time.Duration
	clock func() time.Time
	log   zerolog.Logger
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a store with the given session TTL.
func NewSessionStore(ttl time.Duration, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.PaymentSession),
		ttl:      ttl,
		clock:    func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Create allocates a fresh session in pending state.
func (s *SessionStore) Create(_ context.Context, req ports.CreateSessionRequest) (*domain.PaymentSession, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	now := s.clock()
	session := &domain.PaymentSession{
		ID:        uuid.NewString(),
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Asset:     req.Asset,
		Label:     req.Label,
		Message:   req.Message,
		Status:    domain.SessionStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		// UUIDv4 collision inside one process lifetime: construction is broken.
		panic("session store: duplicate session id " + session.ID)
	}
	s.sessions[session.ID] = session

	s.log.Debug().Str("session_id", session.ID).Str("asset", req.Asset).Msg("session created")
	return session.Clone(), nil
}

// Get returns the session by id, settling a lazy pending -> expired
// transition first when the TTL has elapsed. The rewrite is idempotent and
// visible to subsequent reads.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.PaymentSession, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound()
	}

	if session.Status == domain.SessionStatusPending && session.IsExpired(now) {
		session.Status = domain.SessionStatusExpired
		s.log.Debug().Str("session_id", id).Msg("session lazily expired")
	}

	return session.Clone(), nil
}

// UpdateStatus transitions a session, storing the settling signature and a
// verification timestamp atomically with the status write. The transition
// check runs under the write lock, so of two concurrent completion attempts
// exactly one wins; the loser gets a conflict error and should treat the
// winner's result as authoritative.
func (s *SessionStore) UpdateStatus(_ context.Context, id string, status domain.SessionStatus, signature string) (*domain.PaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound()
	}

	if !session.Status.CanTransitionTo(status) {
		if session.Status == domain.SessionStatusCompleted {
			return nil, apperror.ErrSessionCompleted()
		}
		return nil, apperror.ErrInvalidTransition(string(session.Status), string(status))
	}

	session.Status = status
	if signature != "" {
		now := s.clock()
		session.Signature = signature
		session.VerifiedAt = &now
	}

	s.log.Info().
		Str("session_id", id).
		Str("status", string(status)).
		Msg("session status updated")
	return session.Clone(), nil
}

// Sweep removes every record past its expiry, independent of status.
func (s *SessionStore) Sweep(_ context.Context) int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("swept expired sessions")
	}
	return removed
}

// Stats returns counts partitioned by effective status.
func (s *SessionStore) Stats(_ context.Context) ports.SessionStats {
	now := s.clock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ports.SessionStats{Total: len(s.sessions)}
	for _, session := range s.sessions {
		switch session.EffectiveStatus(now) {
		case domain.SessionStatusPending:
			stats.Pending++
		case domain.SessionStatusCompleted:
			stats.Completed++
		case domain.SessionStatusExpired:
			stats.Expired++
		case domain.SessionStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// StartSweeper runs Sweep on a fixed interval until ctx is cancelled.
func (s *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Debug().Msg("session sweeper stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

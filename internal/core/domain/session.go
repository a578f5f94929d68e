package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus represents the lifecycle state of a payment session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusExpired   SessionStatus = "expired"
	SessionStatusFailed    SessionStatus = "failed"
)

// PaymentSession is a pending request to transfer a specified amount of an
// asset to a recipient, with an expiry. The store exclusively owns session
// records; other components read them and request mutations through the store.
type PaymentSession struct {
	ID         string          `json:"id"`
	Recipient  string          `json:"recipient"` // validated base58 account
	Amount     decimal.Decimal `json:"amount"`    // whole units of Asset
	Asset      string          `json:"asset"`
	Label      string          `json:"label,omitempty"`
	Message    string          `json:"message,omitempty"`
	Status     SessionStatus   `json:"status"`
	Signature  string          `json:"signature,omitempty"` // settling tx signature
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	VerifiedAt *time.Time      `json:"verified_at,omitempty"`
}

// IsTerminal returns true if no further transition is allowed from the status.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionStatusPending
}

// CanTransitionTo reports whether the status may move to next. Transitions
// only move forward: pending -> completed | expired | failed. In particular a
// completed session must never be overwritten by a late or duplicate
// reconciliation result.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s != SessionStatusPending {
		return false
	}
	return next == SessionStatusCompleted || next == SessionStatusExpired || next == SessionStatusFailed
}

// IsExpired reports whether the session's TTL has elapsed at the given instant.
func (p *PaymentSession) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// EffectiveStatus returns the status a reader should observe at the given
// instant: a pending session past its expiry is observationally expired even
// before the lazy write happens.
func (p *PaymentSession) EffectiveStatus(now time.Time) SessionStatus {
	if p.Status == SessionStatusPending && p.IsExpired(now) {
		return SessionStatusExpired
	}
	return p.Status
}

// Clone returns a copy of the session so callers cannot mutate stored state.
func (p *PaymentSession) Clone() *PaymentSession {
	cp := *p
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}

package ports

import (
	"context"
	"time"

	"solana-pay-gateway/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// --- Session Store ---

// CreateSessionRequest holds validated input for session creation.
type CreateSessionRequest struct {
	Recipient string
	Amount    decimal.Decimal
	Asset     string
	Label     string
	Message   string
}

// SessionStats holds session counts partitioned by effective status.
// Pending excludes lazily-expired records; Expired includes both explicit
// and lazily-detected expiry.
type SessionStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
}

// SessionStore owns payment session records and their lifecycle transitions.
// The store is the only component that mutates a session's fields.
type SessionStore interface {
	// Create allocates a fresh session in pending state.
	Create(ctx context.Context, req CreateSessionRequest) (*domain.PaymentSession, error)

	// Get returns the session, settling a lazy pending -> expired transition
	// first when the TTL has elapsed.
	Get(ctx context.Context, id string) (*domain.PaymentSession, error)

	// UpdateStatus transitions a session. It rejects transitions the state
	// machine forbids, in particular anything out of completed. A non-empty
	// signature is stored together with a verification timestamp, atomically
	// with the status write. At most one concurrent caller wins a
	// pending -> completed transition.
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus, signature string) (*domain.PaymentSession, error)

	// Sweep removes every record past its expiry regardless of status and
	// returns the number of records removed.
	Sweep(ctx context.Context) int

	// Stats returns counts partitioned by effective status.
	Stats(ctx context.Context) SessionStats
}

// --- Transaction Builder ---

// BuildResult is a fully composed, unsigned transaction plus observability data.
type BuildResult struct {
	Transaction      *solana.Transaction
	Serialized       []byte
	Base64           string
	InstructionCount int
	Size             int
}

// TransactionBuilder produces unsigned transfer transactions for a session.
type TransactionBuilder interface {
	Build(ctx context.Context, payer string, session *domain.PaymentSession) (*BuildResult, error)
}

// --- Settlement Reconciler ---

// MatchResult is the outcome of one reconciliation attempt. A non-match is
// the expected outcome of "not yet settled", not an error.
type MatchResult struct {
	Matched    bool                 `json:"matched"`
	Signature  string               `json:"signature,omitempty"`
	Slot       uint64               `json:"slot,omitempty"`
	BlockTime  *time.Time           `json:"block_time,omitempty"`
	Position   int                  `json:"position,omitempty"` // scan position, 0 = newest
	Status     domain.SessionStatus `json:"status"`
	VerifiedAt *time.Time           `json:"verified_at,omitempty"`
}

// SettlementService scans ledger history for a transaction settling a session.
type SettlementService interface {
	Reconcile(ctx context.Context, sessionID string) (*MatchResult, error)
}

// --- Request URI / QR ---

// RequestEncoder renders a session into the canonical payment-request URI
// consumed by wallets, and a scannable representation of it.
type RequestEncoder interface {
	PaymentURL(sessionID string) string
	PaymentQR(sessionID string) (string, error) // PNG data URL
}

// --- Health ---

// HealthChecker verifies a dependency is reachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

package ports

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// AccountState is the three-valued result of an on-ledger account lookup.
// Absent and unknown collapse to the same "create" branch: an account-creation
// instruction is a no-op when the account already exists, so over-creating is
// safe and under-creating is not.
type AccountState string

const (
	AccountExists  AccountState = "exists"
	AccountAbsent  AccountState = "absent"
	AccountUnknown AccountState = "unknown"
)

// NeedsCreation reports whether a creation instruction must be added for an
// account in this state.
func (s AccountState) NeedsCreation() bool {
	return s != AccountExists
}

// TransactionRef is a lightweight reference to a confirmed transaction,
// as returned by a signatures-for-address scan.
type TransactionRef struct {
	Signature solana.Signature
	Slot      uint64
	BlockTime *time.Time
	Failed    bool // the transaction errored on-ledger
}

// TokenBalance is a token account balance snapshot attached to a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         solana.PublicKey
	Owner        solana.PublicKey
	Amount       uint64 // minor units
}

// TransactionDetail is the full transaction record used for balance-delta
// evaluation during reconciliation.
type TransactionDetail struct {
	Signature         solana.Signature
	Slot              uint64
	BlockTime         *time.Time
	Failed            bool
	AccountKeys       []solana.PublicKey
	PreBalances       []uint64 // lamports, indexed like AccountKeys
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// LedgerClient is the ledger-access capability consumed by the transaction
// builder and the settlement reconciler. Implementations must distinguish
// "not found" from transport failure and honor context cancellation.
type LedgerClient interface {
	// AccountState looks up an account. A transport failure returns
	// AccountUnknown together with the error.
	AccountState(ctx context.Context, account solana.PublicKey) (AccountState, error)

	// LatestBlockhash fetches the current ordering anchor. Never cached:
	// a stale blockhash gets the wallet's signature rejected by the ledger.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// RecentTransactionRefs returns up to limit confirmed transaction
	// references for the account, ordered newest-first.
	RecentTransactionRefs(ctx context.Context, account solana.PublicKey, limit int) ([]TransactionRef, error)

	// TransactionDetail fetches a full transaction record.
	// Returns (nil, nil) when the transaction is not found.
	TransactionDetail(ctx context.Context, signature solana.Signature) (*TransactionDetail, error)
}

package solanarpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"solana-pay-gateway/internal/core/ports"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client implements ports.LedgerClient on top of a Solana JSON-RPC endpoint.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

var _ ports.LedgerClient = (*Client)(nil)

// New creates a ledger client for the given RPC URL.
// commitment: processed, confirmed or finalized; defaults to confirmed.
func New(rpcURL string, commitment string) *Client {
	c := rpc.CommitmentConfirmed
	switch commitment {
	case "processed":
		c = rpc.CommitmentProcessed
	case "finalized":
		c = rpc.CommitmentFinalized
	}
	return &Client{
		rpc:        rpc.New(rpcURL),
		commitment: c,
	}
}

// AccountState looks up an account on the ledger. A missing account is
// AccountAbsent with no error; a transport failure is AccountUnknown with the
// error, which callers collapse into the same "create" branch as absence.
func (c *Client) AccountState(ctx context.Context, account solana.PublicKey) (ports.AccountState, error) {
	info, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return ports.AccountAbsent, nil
		}
		return ports.AccountUnknown, fmt.Errorf("get account info %s: %w", account, err)
	}
	if info == nil || info.Value == nil {
		return ports.AccountAbsent, nil
	}
	return ports.AccountExists, nil
}

// LatestBlockhash fetches a fresh ordering anchor.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// RecentTransactionRefs returns up to limit confirmed transaction references
// for the account, newest-first.
func (c *Client) RecentTransactionRefs(ctx context.Context, account solana.PublicKey, limit int) ([]ports.TransactionRef, error) {
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, account, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("get signatures for %s: %w", account, err)
	}

	refs := make([]ports.TransactionRef, 0, len(sigs))
	for _, sig := range sigs {
		refs = append(refs, ports.TransactionRef{
			Signature: sig.Signature,
			Slot:      sig.Slot,
			BlockTime: blockTime(sig.BlockTime),
			Failed:    sig.Err != nil,
		})
	}
	return refs, nil
}

// TransactionDetail fetches the full transaction record for balance-delta
// evaluation. Returns (nil, nil) when the ledger does not know the signature.
func (c *Client) TransactionDetail(ctx context.Context, signature solana.Signature) (*ports.TransactionDetail, error) {
	out, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if out == nil || out.Meta == nil {
		return nil, nil
	}

	detail := &ports.TransactionDetail{
		Signature:    signature,
		Slot:         out.Slot,
		BlockTime:    blockTime(out.BlockTime),
		Failed:       out.Meta.Err != nil,
		PreBalances:  out.Meta.PreBalances,
		PostBalances: out.Meta.PostBalances,
	}

	if out.Transaction != nil {
		tx, err := out.Transaction.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", signature, err)
		}
		detail.AccountKeys = tx.Message.AccountKeys
	}

	detail.PreTokenBalances = tokenBalances(out.Meta.PreTokenBalances)
	detail.PostTokenBalances = tokenBalances(out.Meta.PostTokenBalances)
	return detail, nil
}

func tokenBalances(in []rpc.TokenBalance) []ports.TokenBalance {
	out := make([]ports.TokenBalance, 0, len(in))
	for _, tb := range in {
		var owner solana.PublicKey
		if tb.Owner != nil {
			owner = *tb.Owner
		}
		var amount uint64
		if tb.UiTokenAmount != nil {
			// The RPC carries minor units as a decimal string.
			amount, _ = strconv.ParseUint(tb.UiTokenAmount.Amount, 10, 64)
		}
		out = append(out, ports.TokenBalance{
			AccountIndex: int(tb.AccountIndex),
			Mint:         tb.Mint,
			Owner:        owner,
			Amount:       amount,
		})
	}
	return out
}

func blockTime(t *solana.UnixTimeSeconds) *time.Time {
	if t == nil {
		return nil
	}
	bt := t.Time().UTC()
	return &bt
}

// HealthCheck verifies the RPC endpoint is reachable.
type HealthCheck struct {
	client *Client
}

// NewHealthCheck creates a ledger health checker.
func NewHealthCheck(client *Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Name() string { return "solana-rpc" }

func (h *HealthCheck) Check(ctx context.Context) error {
	if _, err := h.client.rpc.GetHealth(ctx); err != nil {
		return fmt.Errorf("solana rpc health: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"time"

	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// SettlementConfig tunes the reconciliation scan. The tolerance constants and
// the history limit are empirically chosen, not derived from a fee model, so
// they stay configurable.
type SettlementConfig struct {
	HistoryLimit   int           // transaction references scanned per attempt
	ToleranceFloor uint64        // minimum absolute tolerance, native minor units
	ToleranceRatio float64       // relative tolerance on the expected amount
	RPCTimeout     time.Duration // bound on each reconciliation's ledger calls
}

// DefaultSettlementConfig returns the reference tuning.
func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		HistoryLimit:   20,
		ToleranceFloor: 5000,
		ToleranceRatio: 0.01,
		RPCTimeout:     15 * time.Second,
	}
}

// SettlementService implements ports.SettlementService. It scans the
// recipient's recent ledger history for a balance change matching the
// session's expected transfer and promotes the session on the first match.
type SettlementService struct {
	store    ports.SessionStore
	registry *domain.AssetRegistry
	ledger   ports.LedgerClient
	cfg      SettlementConfig
	log      zerolog.Logger
}

var _ ports.SettlementService = (*SettlementService)(nil)

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	store ports.SessionStore,
	registry *domain.AssetRegistry,
	ledger ports.LedgerClient,
	cfg SettlementConfig,
	log zerolog.Logger,
) *SettlementService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &SettlementService{
		store:    store,
		registry: registry,
		ledger:   ledger,
		cfg:      cfg,
		log:      log,
	}
}

// Reconcile answers "has this session settled?". Ledger transport failures
// and timeouts yield a non-match rather than an error, so a flaky endpoint
// cannot poison session state and callers can safely retry.
func (s *SettlementService) Reconcile(ctx context.Context, sessionID string) (*ports.MatchResult, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Idempotent short-circuit: completion is terminal, no ledger call.
	if session.Status == domain.SessionStatusCompleted {
		return &ports.MatchResult{
			Matched:    true,
			Signature:  session.Signature,
			Status:     domain.SessionStatusCompleted,
			VerifiedAt: session.VerifiedAt,
		}, nil
	}

	recipientKey, err := domain.ParseAddress(session.Recipient)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	asset, ok := s.registry.Resolve(session.Asset)
	if !ok {
		return nil, apperror.ErrUnsupportedAsset(session.Asset)
	}
	expected, err := asset.MinorUnits(session.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	if s.cfg.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RPCTimeout)
		defer cancel()
	}

	refs, err := s.ledger.RecentTransactionRefs(ctx, recipientKey, s.cfg.HistoryLimit)
	if err != nil {
		s.log.Warn().Err(err).
			Str("session_id", sessionID).
			Msg("history scan failed, treating as not yet settled")
		return s.noMatch(session), nil
	}

	// Candidates arrive newest-first and the first match wins: of two similar
	// transfers the most recent one is assumed relevant to a fresh session.
	for position, ref := range refs {
		if ref.Failed {
			continue
		}
		if ref.BlockTime != nil && ref.BlockTime.Before(session.CreatedAt) {
			continue
		}

		detail, err := s.ledger.TransactionDetail(ctx, ref.Signature)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.log.Warn().Err(err).Str("session_id", sessionID).Msg("reconciliation timed out")
				return s.noMatch(session), nil
			}
			s.log.Warn().Err(err).
				Str("signature", ref.Signature.String()).
				Msg("transaction fetch failed, skipping candidate")
			continue
		}
		if detail == nil || detail.Failed {
			continue
		}

		if !s.matches(detail, recipientKey, asset, expected) {
			continue
		}

		return s.promote(ctx, session, ref, position)
	}

	return s.noMatch(session), nil
}

// promote records the winning signature. If a concurrent reconciliation won
// the transition first, its stored result is returned as authoritative; if
// the session reached another terminal state in the meantime (expiry between
// the read and the write), the current state is reported as a non-match
// rather than a conflict error.
func (s *SettlementService) promote(ctx context.Context, session *domain.PaymentSession, ref ports.TransactionRef, position int) (*ports.MatchResult, error) {
	signature := ref.Signature.String()

	updated, err := s.store.UpdateStatus(ctx, session.ID, domain.SessionStatusCompleted, signature)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && (appErr.Code == "PAY_003" || appErr.Code == "PAY_004") {
			current, getErr := s.store.Get(ctx, session.ID)
			if getErr != nil {
				return nil, getErr
			}
			return &ports.MatchResult{
				Matched:    current.Status == domain.SessionStatusCompleted,
				Signature:  current.Signature,
				Status:     current.Status,
				VerifiedAt: current.VerifiedAt,
			}, nil
		}
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("signature", signature).
		Uint64("slot", ref.Slot).
		Int("position", position).
		Msg("settlement matched")

	return &ports.MatchResult{
		Matched:    true,
		Signature:  signature,
		Slot:       ref.Slot,
		BlockTime:  ref.BlockTime,
		Position:   position,
		Status:     updated.Status,
		VerifiedAt: updated.VerifiedAt,
	}, nil
}

func (s *SettlementService) noMatch(session *domain.PaymentSession) *ports.MatchResult {
	return &ports.MatchResult{
		Matched: false,
		Status:  session.Status,
	}
}

// matches evaluates the recipient's balance deltas across one transaction.
// Native-asset deltas are compared within max(floor, ratio * expected): the
// recipient's lamport balance can be perturbed by rent and fee mechanics.
// Token deltas require exact equality.
func (s *SettlementService) matches(detail *ports.TransactionDetail, recipient solana.PublicKey, asset domain.Asset, expected uint64) bool {
	if asset.IsNative() {
		return s.matchNative(detail, recipient, expected)
	}
	return s.matchToken(detail, recipient, *asset.Mint, expected)
}

func (s *SettlementService) matchNative(detail *ports.TransactionDetail, recipient solana.PublicKey, expected uint64) bool {
	tolerance := s.cfg.ToleranceFloor
	if rel := uint64(s.cfg.ToleranceRatio * float64(expected)); rel > tolerance {
		tolerance = rel
	}

	for i, key := range detail.AccountKeys {
		if !key.Equals(recipient) {
			continue
		}
		if i >= len(detail.PreBalances) || i >= len(detail.PostBalances) {
			continue
		}
		delta := int64(detail.PostBalances[i]) - int64(detail.PreBalances[i])
		diff := delta - int64(expected)
		if diff < 0 {
			diff = -diff
		}
		if uint64(diff) <= tolerance {
			return true
		}
	}
	return false
}

func (s *SettlementService) matchToken(detail *ports.TransactionDetail, recipient solana.PublicKey, mint solana.PublicKey, expected uint64) bool {
	for _, post := range detail.PostTokenBalances {
		if !post.Mint.Equals(mint) || !post.Owner.Equals(recipient) {
			continue
		}
		var pre uint64
		for _, pb := range detail.PreTokenBalances {
			if pb.AccountIndex == post.AccountIndex {
				pre = pb.Amount
				break
			}
		}
		if post.Amount < pre {
			continue // balance decreased, not an incoming transfer
		}
		if post.Amount-pre == expected {
			return true
		}
	}
	return false
}

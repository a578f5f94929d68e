package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FeeConfig describes the optional fixed platform fee. The fee is always
// denominated in a single configured asset, independent of the session asset.
// A nil Wallet disables the fee.
type FeeConfig struct {
	Wallet *solana.PublicKey
	Amount decimal.Decimal
	Asset  string
}

// BuilderService implements ports.TransactionBuilder. It composes an unsigned
// multi-instruction transaction: the primary transfer, token account creation
// where needed, and the optional platform fee transfer.
type BuilderService struct {
	registry *domain.AssetRegistry
	ledger   ports.LedgerClient
	fee      FeeConfig
	log      zerolog.Logger
}

var _ ports.TransactionBuilder = (*BuilderService)(nil)

// NewBuilderService creates a new BuilderService.
func NewBuilderService(registry *domain.AssetRegistry, ledger ports.LedgerClient, fee FeeConfig, log zerolog.Logger) *BuilderService {
	return &BuilderService{
		registry: registry,
		ledger:   ledger,
		fee:      fee,
		log:      log,
	}
}

// Build produces the unsigned transfer transaction for the session, to be
// signed client-side by the payer's wallet.
func (b *BuilderService) Build(ctx context.Context, payer string, session *domain.PaymentSession) (*ports.BuildResult, error) {
	payerKey, err := domain.ParseAddress(payer)
	if err != nil {
		return nil, apperror.ErrInvalidAddress("payer")
	}
	recipientKey, err := domain.ParseAddress(session.Recipient)
	if err != nil {
		return nil, apperror.ErrInvalidAddress("recipient")
	}

	asset, ok := b.registry.Resolve(session.Asset)
	if !ok {
		return nil, apperror.ErrUnsupportedAsset(session.Asset)
	}

	var instructions []solana.Instruction
	if err := b.appendTransfer(ctx, &instructions, payerKey, recipientKey, asset, session.Amount); err != nil {
		return nil, err
	}

	if b.fee.Wallet != nil {
		feeAsset, ok := b.registry.Resolve(b.fee.Asset)
		if !ok {
			return nil, apperror.ErrUnsupportedAsset(b.fee.Asset)
		}
		if err := b.appendTransfer(ctx, &instructions, payerKey, *b.fee.Wallet, feeAsset, b.fee.Amount); err != nil {
			return nil, err
		}
	}

	// The blockhash is fetched fresh on every build: binding a stale anchor
	// gets the wallet-side signature rejected by the ledger.
	blockhash, err := b.ledger.LatestBlockhash(ctx)
	if err != nil {
		return nil, apperror.ErrLedgerUnavailable(err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payerKey))
	if err != nil {
		return nil, apperror.ErrTransactionBuild(fmt.Errorf("compose transaction: %w", err))
	}

	// Reserve empty signature slots so the serialized form matches what
	// wallets expect for an unsigned transaction.
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	serialized, err := tx.MarshalBinary()
	if err != nil {
		return nil, apperror.ErrTransactionBuild(fmt.Errorf("serialize transaction: %w", err))
	}

	result := &ports.BuildResult{
		Transaction:      tx,
		Serialized:       serialized,
		Base64:           base64.StdEncoding.EncodeToString(serialized),
		InstructionCount: len(instructions),
		Size:             len(serialized),
	}

	b.log.Info().
		Str("session_id", session.ID).
		Str("payer", payerKey.String()).
		Str("asset", session.Asset).
		Int("instructions", result.InstructionCount).
		Int("size_bytes", result.Size).
		Msg("unsigned transaction built")

	return result, nil
}

// appendTransfer adds the instructions moving amount of asset from payer to
// recipient: a native transfer for the native asset, otherwise a token
// transfer between associated token accounts, preceded by a creation
// instruction when the destination account is absent or unknowable.
func (b *BuilderService) appendTransfer(
	ctx context.Context,
	instructions *[]solana.Instruction,
	payer, recipient solana.PublicKey,
	asset domain.Asset,
	amount decimal.Decimal,
) error {
	minor, err := asset.MinorUnits(amount)
	if err != nil {
		return apperror.ErrInvalidAmount()
	}

	if asset.IsNative() {
		*instructions = append(*instructions, system.NewTransferInstruction(minor, payer, recipient).Build())
		return nil
	}

	mint := *asset.Mint
	source, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return apperror.ErrTransactionBuild(fmt.Errorf("derive payer token account: %w", err))
	}
	destination, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return apperror.ErrTransactionBuild(fmt.Errorf("derive recipient token account: %w", err))
	}

	state, err := b.ledger.AccountState(ctx, destination)
	if err != nil {
		// Unknown state takes the creation branch, same as absent.
		b.log.Warn().Err(err).
			Str("account", destination.String()).
			Msg("token account lookup failed, adding creation instruction")
	}
	if state.NeedsCreation() {
		*instructions = append(*instructions,
			associatedtokenaccount.NewCreateInstruction(payer, recipient, mint).Build())
	}

	*instructions = append(*instructions,
		token.NewTransferInstruction(minor, source, destination, payer, nil).Build())
	return nil
}

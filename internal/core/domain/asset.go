package domain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ErrAmountOverflow reports an amount whose minor-unit representation does
// not fit the ledger's 64-bit transfer value.
var ErrAmountOverflow = errors.New("amount exceeds 64-bit minor-unit range")

// NativeDecimals is the decimal precision of the native asset (1 SOL = 1e9 lamports).
const NativeDecimals = 9

// Asset describes a supported asset: its symbol, decimal precision and
// on-ledger mint. Mint is nil for the native asset.
type Asset struct {
	Symbol   string
	Decimals int32
	Mint     *solana.PublicKey
}

// IsNative reports whether the asset is the ledger's base currency,
// transferred without an associated token account.
func (a Asset) IsNative() bool {
	return a.Mint == nil
}

// MinorUnits converts a whole-unit amount to minor units at the asset's full
// decimal precision. Conversion always floors, never rounds, so a transaction
// can never request more value than the decimal amount represents. Amounts
// whose minor-unit value does not fit in uint64 are rejected rather than
// silently wrapped.
func (a Asset) MinorUnits(amount decimal.Decimal) (uint64, error) {
	v := amount.Shift(a.Decimals).Floor().BigInt()
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s %s: %w", amount, a.Symbol, ErrAmountOverflow)
	}
	return v.Uint64(), nil
}

// AssetRegistry is a static mapping of supported asset symbols. It is an
// explicitly constructed component, passed by reference to its consumers.
type AssetRegistry struct {
	assets map[string]Asset
}

// NewAssetRegistry builds a registry from the given assets.
func NewAssetRegistry(assets ...Asset) *AssetRegistry {
	m := make(map[string]Asset, len(assets))
	for _, a := range assets {
		m[a.Symbol] = a
	}
	return &AssetRegistry{assets: m}
}

// DefaultAssets returns the reference asset set: native SOL plus mainnet
// USDC and USDT.
func DefaultAssets() []Asset {
	usdc := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	usdt := solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	return []Asset{
		{Symbol: "SOL", Decimals: NativeDecimals, Mint: nil},
		{Symbol: "USDC", Decimals: 6, Mint: &usdc},
		{Symbol: "USDT", Decimals: 6, Mint: &usdt},
	}
}

// Resolve looks up an asset by symbol.
func (r *AssetRegistry) Resolve(symbol string) (Asset, bool) {
	a, ok := r.assets[symbol]
	return a, ok
}

// IsSupported reports whether the symbol is registered.
func (r *AssetRegistry) IsSupported(symbol string) bool {
	_, ok := r.assets[symbol]
	return ok
}

// Symbols returns the registered symbols.
func (r *AssetRegistry) Symbols() []string {
	out := make([]string, 0, len(r.assets))
	for s := range r.assets {
		out = append(out, s)
	}
	return out
}

// ValidateAddress reports whether s is a well-formed base58 account identifier.
func ValidateAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// ParseAddress parses a base58 account identifier.
func ParseAddress(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	return pk, nil
}

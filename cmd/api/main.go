package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-pay-gateway/config"
	httpHandler "solana-pay-gateway/internal/adapter/http/handler"
	"solana-pay-gateway/internal/adapter/ledger/solanarpc"
	"solana-pay-gateway/internal/adapter/storage/memory"
	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/internal/service"
	"solana-pay-gateway/pkg/logger"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("rpc_url", cfg.Solana.RPCURL).
		Msg("Starting Solana Pay Gateway")

	// Ledger access
	ledger := solanarpc.New(cfg.Solana.RPCURL, cfg.Solana.Commitment)

	// Asset registry
	registry := domain.NewAssetRegistry(domain.DefaultAssets()...)

	// Session store with background eviction
	store := memory.NewSessionStore(cfg.Session.TTL, log)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	store.StartSweeper(sweepCtx, cfg.Session.SweepInterval)

	// Platform fee
	fee, err := buildFeeConfig(cfg.Fee, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fee configuration")
	}
	if fee.Wallet != nil {
		log.Info().
			Str("fee_wallet", fee.Wallet.String()).
			Str("fee_asset", fee.Asset).
			Str("fee_amount", fee.Amount.String()).
			Msg("Platform fee enabled")
	}

	// Core services
	builder := service.NewBuilderService(registry, ledger, fee, log)
	settlement := service.NewSettlementService(store, registry, ledger, service.SettlementConfig{
		HistoryLimit:   cfg.Verify.HistoryLimit,
		ToleranceFloor: cfg.Verify.ToleranceFloor,
		ToleranceRatio: cfg.Verify.ToleranceRatio,
		RPCTimeout:     cfg.Verify.RPCTimeout,
	}, log)
	encoder := service.NewQRService(cfg.Server.BaseURL)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Store:          store,
		Registry:       registry,
		Builder:        builder,
		Settlement:     settlement,
		Encoder:        encoder,
		HealthCheckers: []ports.HealthChecker{solanarpc.NewHealthCheck(ledger)},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweeper()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// buildFeeConfig validates the fee settings. An empty wallet disables the fee.
func buildFeeConfig(cfg config.FeeConfig, registry *domain.AssetRegistry) (service.FeeConfig, error) {
	if cfg.Wallet == "" {
		return service.FeeConfig{}, nil
	}

	wallet, err := solana.PublicKeyFromBase58(cfg.Wallet)
	if err != nil {
		return service.FeeConfig{}, fmt.Errorf("fee wallet: %w", err)
	}
	amount, err := decimal.NewFromString(cfg.Amount)
	if err != nil || !amount.IsPositive() {
		return service.FeeConfig{}, fmt.Errorf("fee amount %q must be a positive decimal", cfg.Amount)
	}
	if !registry.IsSupported(cfg.Asset) {
		return service.FeeConfig{}, fmt.Errorf("fee asset %q is not registered", cfg.Asset)
	}

	return service.FeeConfig{
		Wallet: &wallet,
		Amount: amount,
		Asset:  cfg.Asset,
	}, nil
}

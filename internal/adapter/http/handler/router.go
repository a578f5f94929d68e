package handler

import (
	"solana-pay-gateway/internal/adapter/http/middleware"
	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Store          ports.SessionStore
	Registry       *domain.AssetRegistry
	Builder        ports.TransactionBuilder
	Settlement     ports.SettlementService
	Encoder        ports.RequestEncoder
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	paymentHandler := NewPaymentHandler(deps.Store, deps.Registry, deps.Builder, deps.Settlement, deps.Encoder)

	api := r.Group("/api")
	{
		api.POST("/payment/create", paymentHandler.CreatePayment)
		api.GET("/payment/stats", paymentHandler.GetStats)
		api.GET("/payment/:id/status", paymentHandler.GetStatus)
		api.POST("/payment/:id/verify", paymentHandler.VerifyPayment)

		// Wallet-facing transaction-request pair; the request URI encoder
		// must agree with this route layout.
		api.GET("/payment/:id/transaction", paymentHandler.GetTransactionMeta)
		api.POST("/payment/:id/transaction", paymentHandler.PostTransaction)
	}

	return r
}

package handler

import (
	"fmt"
	"time"

	"solana-pay-gateway/internal/adapter/http/dto"
	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/pkg/apperror"
	"solana-pay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// paymentIcon is the display icon wallets show next to the request metadata.
const paymentIcon = "https://solana.com/src/img/branding/solanaLogoMark.svg"

// PaymentHandler handles the payment session endpoints, including the
// wallet-facing transaction-request pair (GET metadata / POST build).
type PaymentHandler struct {
	store      ports.SessionStore
	registry   *domain.AssetRegistry
	builder    ports.TransactionBuilder
	settlement ports.SettlementService
	encoder    ports.RequestEncoder
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(
	store ports.SessionStore,
	registry *domain.AssetRegistry,
	builder ports.TransactionBuilder,
	settlement ports.SettlementService,
	encoder ports.RequestEncoder,
) *PaymentHandler {
	return &PaymentHandler{
		store:      store,
		registry:   registry,
		builder:    builder,
		settlement: settlement,
		encoder:    encoder,
	}
}

// CreatePayment handles POST /api/payment/create.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if !domain.ValidateAddress(req.Recipient) {
		response.Error(c, apperror.ErrInvalidAddress("recipient"))
		return
	}
	asset, ok := h.registry.Resolve(req.Asset)
	if !ok {
		response.Error(c, apperror.ErrUnsupportedAsset(req.Asset))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	// Reject amounts whose minor-unit value would wrap the ledger's 64-bit
	// transfer value before a session ever exists for them.
	if _, err := asset.MinorUnits(amount); err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	session, err := h.store.Create(c.Request.Context(), ports.CreateSessionRequest{
		Recipient: req.Recipient,
		Amount:    amount,
		Asset:     req.Asset,
		Label:     req.Label,
		Message:   req.Message,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	qr, err := h.encoder.PaymentQR(session.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreatePaymentResponse{
		Session:    toSessionResponse(session),
		PaymentURL: h.encoder.PaymentURL(session.ID),
		QRCode:     qr,
	})
}

// GetStatus handles GET /api/payment/:id/status.
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	session, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSessionResponse(session))
}

// GetTransactionMeta handles GET /api/payment/:id/transaction: the display
// metadata a wallet fetches before requesting the transaction itself.
func (h *PaymentHandler) GetTransactionMeta(c *gin.Context) {
	session, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if session.Status == domain.SessionStatusExpired {
		response.Error(c, apperror.ErrSessionExpired())
		return
	}

	c.JSON(200, dto.TransactionMetadataResponse{
		Label: sessionLabel(session),
		Icon:  paymentIcon,
	})
}

// PostTransaction handles POST /api/payment/:id/transaction: builds the
// unsigned transfer transaction for the posting payer account.
func (h *PaymentHandler) PostTransaction(c *gin.Context) {
	session, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	switch session.Status {
	case domain.SessionStatusExpired:
		response.Error(c, apperror.ErrSessionExpired())
		return
	case domain.SessionStatusCompleted:
		response.Error(c, apperror.ErrSessionCompleted())
		return
	}

	var req dto.SubmitAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.builder.Build(c.Request.Context(), req.Account, session)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The wallet protocol expects this exact shape, not the success envelope.
	c.JSON(200, dto.TransactionResponse{
		Transaction: result.Base64,
		Message:     sessionLabel(session),
	})
}

// VerifyPayment handles POST /api/payment/:id/verify: runs one settlement
// reconciliation and reports the (possibly updated) session state.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	result, err := h.settlement.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// GetStats handles GET /api/payment/stats.
func (h *PaymentHandler) GetStats(c *gin.Context) {
	response.OK(c, h.store.Stats(c.Request.Context()))
}

func sessionLabel(s *domain.PaymentSession) string {
	if s.Label != "" {
		return s.Label
	}
	return fmt.Sprintf("Pay %s %s", s.Amount.String(), s.Asset)
}

// toSessionResponse converts a domain session to its DTO.
func toSessionResponse(s *domain.PaymentSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:        s.ID,
		Status:    string(s.Status),
		Recipient: s.Recipient,
		Amount:    s.Amount.String(),
		Asset:     s.Asset,
		Label:     s.Label,
		Message:   s.Message,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
	if s.Signature != "" {
		sig := s.Signature
		resp.Signature = &sig
	}
	if s.VerifiedAt != nil {
		v := s.VerifiedAt.Format(time.RFC3339)
		resp.VerifiedAt = &v
	}
	return resp
}

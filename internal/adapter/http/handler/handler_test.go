package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solana-pay-gateway/internal/adapter/storage/memory"
	"solana-pay-gateway/internal/core/domain"
	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/internal/service"
	"solana-pay-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRecipient = "9E9ME8Xjrnnz5tyLqPWUbXVbPjXusEp9NdjKeugDjW5t"
	testPayer     = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- stub services ---

type stubBuilder struct {
	result *ports.BuildResult
	err    error
}

func (s *stubBuilder) Build(_ context.Context, _ string, _ *domain.PaymentSession) (*ports.BuildResult, error) {
	return s.result, s.err
}

type stubSettlement struct {
	result *ports.MatchResult
	err    error
}

func (s *stubSettlement) Reconcile(_ context.Context, _ string) (*ports.MatchResult, error) {
	return s.result, s.err
}

type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Name() string                  { return s.name }
func (s *stubChecker) Check(_ context.Context) error { return s.err }

// --- harness ---

type harness struct {
	store      *memory.SessionStore
	builder    *stubBuilder
	settlement *stubSettlement
	router     *gin.Engine
}

func newHarness(t *testing.T, ttl time.Duration, checkers ...ports.HealthChecker) *harness {
	t.Helper()
	h := &harness{
		store:      memory.NewSessionStore(ttl, zerolog.Nop()),
		builder:    &stubBuilder{},
		settlement: &stubSettlement{},
	}
	h.router = SetupRouter(RouterDeps{
		Store:          h.store,
		Registry:       domain.NewAssetRegistry(domain.DefaultAssets()...),
		Builder:        h.builder,
		Settlement:     h.settlement,
		Encoder:        service.NewQRService("https://pay.example.com"),
		HealthCheckers: checkers,
		Logger:         zerolog.Nop(),
	})
	return h
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) createSession(t *testing.T) string {
	t.Helper()
	s, err := h.store.Create(context.Background(), ports.CreateSessionRequest{
		Recipient: testRecipient,
		Amount:    decimal.RequireFromString("2.0"),
		Asset:     "USDC",
	})
	require.NoError(t, err)
	return s.ID
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ErrorCode
}

// --- create ---

func TestCreatePayment_Success(t *testing.T) {
	h := newHarness(t, 30*time.Minute)

	w := h.do(t, http.MethodPost, "/api/payment/create", gin.H{
		"recipient": testRecipient,
		"amount":    "2.0",
		"asset":     "USDC",
		"label":     "Coffee",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := envelope(t, w)

	session := data["session"].(map[string]interface{})
	assert.Equal(t, "pending", session["status"])
	assert.Equal(t, testRecipient, session["recipient"])
	assert.Equal(t, "2", session["amount"])

	assert.Contains(t, data["payment_url"], "solana:https://pay.example.com/api/payment/")
	assert.Contains(t, data["qr_code"], "data:image/png;base64,")
}

func TestCreatePayment_ValidationFailures(t *testing.T) {
	h := newHarness(t, 30*time.Minute)

	tests := []struct {
		name string
		body gin.H
		code string
	}{
		{"bad recipient", gin.H{"recipient": "nope", "amount": "1", "asset": "SOL"}, "VAL_001"},
		{"zero amount", gin.H{"recipient": testRecipient, "amount": "0", "asset": "SOL"}, "VAL_002"},
		{"negative amount", gin.H{"recipient": testRecipient, "amount": "-3", "asset": "SOL"}, "VAL_002"},
		{"garbage amount", gin.H{"recipient": testRecipient, "amount": "1.2.3", "asset": "SOL"}, "VAL_002"},
		{"overflowing amount", gin.H{"recipient": testRecipient, "amount": "18446744073709.551617", "asset": "SOL"}, "VAL_002"},
		{"unsupported asset", gin.H{"recipient": testRecipient, "amount": "1", "asset": "DOGE"}, "VAL_003"},
		{"missing fields", gin.H{"amount": "1"}, "VAL_000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, "/api/payment/create", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

// --- status ---

func TestGetStatus(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	id := h.createSession(t)

	w := h.do(t, http.MethodGet, "/api/payment/"+id+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)
	assert.Equal(t, id, data["id"])
	assert.Equal(t, "pending", data["status"])

	w = h.do(t, http.MethodGet, "/api/payment/unknown/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PAY_001", errorCode(t, w))
}

// --- transaction metadata (GET) ---

func TestGetTransactionMeta(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	id := h.createSession(t)

	w := h.do(t, http.MethodGet, "/api/payment/"+id+"/transaction", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var meta struct {
		Label string `json:"label"`
		Icon  string `json:"icon"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "Pay 2 USDC", meta.Label)
	assert.NotEmpty(t, meta.Icon)
}

func TestGetTransactionMeta_Expired(t *testing.T) {
	h := newHarness(t, -time.Second) // sessions are born expired
	id := h.createSession(t)

	w := h.do(t, http.MethodGet, "/api/payment/"+id+"/transaction", nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "PAY_002", errorCode(t, w))
}

// --- transaction build (POST) ---

func TestPostTransaction_Success(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	id := h.createSession(t)
	h.builder.result = &ports.BuildResult{Base64: "dGVzdA==", InstructionCount: 2, Size: 4}

	w := h.do(t, http.MethodPost, "/api/payment/"+id+"/transaction", gin.H{"account": testPayer})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Transaction string `json:"transaction"`
		Message     string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dGVzdA==", resp.Transaction)
	assert.Equal(t, "Pay 2 USDC", resp.Message)
}

func TestPostTransaction_ErrorMapping(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	id := h.createSession(t)

	// unknown session
	w := h.do(t, http.MethodPost, "/api/payment/unknown/transaction", gin.H{"account": testPayer})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// invalid payer surfaces the builder's validation error
	h.builder.err = apperror.ErrInvalidAddress("payer")
	w = h.do(t, http.MethodPost, "/api/payment/"+id+"/transaction", gin.H{"account": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", errorCode(t, w))

	// completed session conflicts
	_, err := h.store.UpdateStatus(context.Background(), id, domain.SessionStatusCompleted, "sig")
	require.NoError(t, err)
	w = h.do(t, http.MethodPost, "/api/payment/"+id+"/transaction", gin.H{"account": testPayer})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PAY_003", errorCode(t, w))
}

func TestPostTransaction_Expired(t *testing.T) {
	h := newHarness(t, -time.Second)
	id := h.createSession(t)

	w := h.do(t, http.MethodPost, "/api/payment/"+id+"/transaction", gin.H{"account": testPayer})
	assert.Equal(t, http.StatusGone, w.Code)
}

// --- verify ---

func TestVerifyPayment(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	id := h.createSession(t)

	h.settlement.result = &ports.MatchResult{
		Matched:   true,
		Signature: "sig-abc",
		Status:    domain.SessionStatusCompleted,
	}

	w := h.do(t, http.MethodPost, "/api/payment/"+id+"/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)
	assert.Equal(t, true, data["matched"])
	assert.Equal(t, "sig-abc", data["signature"])
}

func TestVerifyPayment_NotFound(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.settlement.err = apperror.ErrSessionNotFound()

	w := h.do(t, http.MethodPost, "/api/payment/unknown/verify", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- stats & health ---

func TestGetStats(t *testing.T) {
	h := newHarness(t, 30*time.Minute)
	h.createSession(t)
	h.createSession(t)

	w := h.do(t, http.MethodGet, "/api/payment/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)
	assert.EqualValues(t, 2, data["total"])
	assert.EqualValues(t, 2, data["pending"])
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t, 30*time.Minute, &stubChecker{name: "solana-rpc"})
	w := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	h = newHarness(t, 30*time.Minute, &stubChecker{name: "solana-rpc", err: errors.New("down")})
	w = h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

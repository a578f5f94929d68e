package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := New("PAY_001", "Payment session not found", http.StatusNotFound)
	assert.Equal(t, "[PAY_001] Payment session not found", e.Error())

	wrapped := Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("rpc: connection refused")
	e := ErrLedgerUnavailable(inner)

	assert.True(t, errors.Is(e, inner))

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("reconcile: %w", e), &appErr))
	assert.Equal(t, "LGR_001", appErr.Code)
}

func TestErrorConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid address", ErrInvalidAddress("payer"), "VAL_001", http.StatusBadRequest},
		{"invalid amount", ErrInvalidAmount(), "VAL_002", http.StatusBadRequest},
		{"unsupported asset", ErrUnsupportedAsset("DOGE"), "VAL_003", http.StatusBadRequest},
		{"not found", ErrSessionNotFound(), "PAY_001", http.StatusNotFound},
		{"expired", ErrSessionExpired(), "PAY_002", http.StatusGone},
		{"completed", ErrSessionCompleted(), "PAY_003", http.StatusConflict},
		{"bad transition", ErrInvalidTransition("completed", "failed"), "PAY_004", http.StatusConflict},
		{"ledger down", ErrLedgerUnavailable(errors.New("timeout")), "LGR_001", http.StatusServiceUnavailable},
		{"internal", InternalError(errors.New("x")), "SYS_001", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Input Validation (VAL) ----

func ErrInvalidAddress(which string) *AppError {
	return New("VAL_001", fmt.Sprintf("Invalid %s address", which), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be positive", http.StatusBadRequest)
}

func ErrUnsupportedAsset(symbol string) *AppError {
	return New("VAL_003", fmt.Sprintf("Asset %q is not supported", symbol), http.StatusBadRequest)
}

// Validation returns a generic VAL_000 validation error.
func Validation(message string) *AppError {
	return New("VAL_000", message, http.StatusBadRequest)
}

// ---- Payment Sessions (PAY) ----

func ErrSessionNotFound() *AppError {
	return New("PAY_001", "Payment session not found", http.StatusNotFound)
}

func ErrSessionExpired() *AppError {
	return New("PAY_002", "Payment session expired", http.StatusGone)
}

func ErrSessionCompleted() *AppError {
	return New("PAY_003", "Payment session already completed", http.StatusConflict)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("PAY_004", fmt.Sprintf("Cannot transition session from %s to %s", from, to), http.StatusConflict)
}

// ---- Ledger Access (LGR) ----

// ErrLedgerUnavailable wraps an RPC/transport failure. Recoverable;
// callers should retry with backoff.
func ErrLedgerUnavailable(err error) *AppError {
	return Wrap("LGR_001", "Ledger endpoint unavailable", http.StatusServiceUnavailable, err)
}

func ErrTransactionBuild(err error) *AppError {
	return Wrap("LGR_002", "Transaction construction failed", http.StatusBadGateway, err)
}

// ---- System (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

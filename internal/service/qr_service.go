package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	"solana-pay-gateway/internal/core/ports"
	"solana-pay-gateway/pkg/apperror"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRService implements ports.RequestEncoder. It renders the canonical
// transaction-request URI and a scannable QR representation of it. The URI
// embeds the same transaction endpoint the wallet GETs and POSTs against, so
// encoder and handlers must agree on the route layout.
type QRService struct {
	baseURL string
}

var _ ports.RequestEncoder = (*QRService)(nil)

// NewQRService creates an encoder for the given externally reachable base URL.
func NewQRService(baseURL string) *QRService {
	return &QRService{baseURL: strings.TrimRight(baseURL, "/")}
}

// PaymentURL returns the payment-request URI consumed by wallets:
// a solana: scheme prefix over the session's transaction endpoint.
func (q *QRService) PaymentURL(sessionID string) string {
	return fmt.Sprintf("solana:%s/api/payment/%s/transaction", q.baseURL, sessionID)
}

// PaymentQR returns the request URI rendered as a PNG data URL.
func (q *QRService) PaymentQR(sessionID string) (string, error) {
	png, err := qrcode.Encode(q.PaymentURL(sessionID), qrcode.Medium, qrSize)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("encode qr: %w", err))
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

package service

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRService_PaymentURL(t *testing.T) {
	q := NewQRService("https://pay.example.com")
	assert.Equal(t,
		"solana:https://pay.example.com/api/payment/sess-1/transaction",
		q.PaymentURL("sess-1"))

	// Trailing slash on the base URL must not double up.
	q = NewQRService("https://pay.example.com/")
	assert.Equal(t,
		"solana:https://pay.example.com/api/payment/sess-1/transaction",
		q.PaymentURL("sess-1"))
}

func TestQRService_PaymentQR(t *testing.T) {
	q := NewQRService("https://pay.example.com")

	dataURL, err := q.PaymentQR("sess-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

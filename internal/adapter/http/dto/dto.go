package dto

// CreatePaymentRequest is the request body for session creation.
// Amount travels as a decimal string; float JSON numbers never carry money.
type CreatePaymentRequest struct {
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Asset     string `json:"asset" binding:"required"`
	Label     string `json:"label" binding:"max=100"`
	Message   string `json:"message" binding:"max=200"`
}

// SessionResponse is the external view of a payment session.
type SessionResponse struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Recipient  string  `json:"recipient"`
	Amount     string  `json:"amount"`
	Asset      string  `json:"asset"`
	Label      string  `json:"label,omitempty"`
	Message    string  `json:"message,omitempty"`
	Signature  *string `json:"signature,omitempty"`
	CreatedAt  string  `json:"created_at"`
	VerifiedAt *string `json:"verified_at,omitempty"`
	ExpiresAt  string  `json:"expires_at"`
}

// CreatePaymentResponse is returned on session creation: the session plus the
// wallet-facing request URI and its QR rendering.
type CreatePaymentResponse struct {
	Session    SessionResponse `json:"session"`
	PaymentURL string          `json:"payment_url"`
	QRCode     string          `json:"qr_code"`
}

// TransactionMetadataResponse is the GET half of the transaction-request
// protocol: display metadata shown by the wallet before signing.
type TransactionMetadataResponse struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// SubmitAccountRequest is the POST half: the payer account that will sign.
type SubmitAccountRequest struct {
	Account string `json:"account" binding:"required"`
}

// TransactionResponse carries the unsigned transaction for wallet-side signing.
type TransactionResponse struct {
	Transaction string `json:"transaction"` // base64 of the serialized unsigned tx
	Message     string `json:"message"`
}

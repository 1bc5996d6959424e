package domain

import (
	"context"
	"errors"
)

// Intent is a provisional gateway transaction created before funds
// move. It is never persisted; the caller echoes it back together with
// the gateway's completion proof.
type Intent struct {
	GatewayOrderID string `json:"gateway_order_id"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
}

// Proof authenticates a gateway payment completion callback.
type Proof struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Gateway creates payment intents with the external processor.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (Intent, error)
}

var (
	ErrGateway          = errors.New("gateway_error")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrMissingProof     = errors.New("invalid_payment_proof")
)

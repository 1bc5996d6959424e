// Package verify authenticates payment completion proofs issued by the
// gateway.
package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/knitkart/orderflow/internal/payment/domain"
)

// Signature computes the expected hex-encoded HMAC-SHA256 over
// "<gatewayOrderID>|<gatewayPaymentID>".
func Signature(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the proof signature and compares it in constant
// time. A mismatch returns (false, nil); only missing inputs are an
// error.
func Verify(proof domain.Proof, secret string) (bool, error) {
	if strings.TrimSpace(proof.GatewayOrderID) == "" ||
		strings.TrimSpace(proof.GatewayPaymentID) == "" ||
		strings.TrimSpace(proof.Signature) == "" ||
		strings.TrimSpace(secret) == "" {
		return false, domain.ErrMissingProof
	}

	expected := Signature(secret, proof.GatewayOrderID, proof.GatewayPaymentID)
	return hmac.Equal([]byte(proof.Signature), []byte(expected)), nil
}

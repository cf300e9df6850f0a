// Package payment defines the gateway contract used for appointment fees.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// OrderRequest asks the gateway for a new order. Amounts are in minor units.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the gateway's view of a created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// Signer computes and checks checkout signatures: the hex HMAC-SHA256 of
// "<orderRef>|<paymentRef>" keyed with the merchant secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func (s *Signer) Verify(orderRef, paymentRef, signature string) bool {
	expected := s.Sign(orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(signature))
}

package model

import (
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	AppointmentID string          `json:"appointmentId"`
	Amount        decimal.Decimal `json:"amount"`
}

// VerifyPaymentRequest accepts the gateway checkout field names as well as
// the short camelCase aliases.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	Signature         string `json:"signature"`
}

// Refs returns the order ref, payment ref and signature, preferring the gateway names.
func (r VerifyPaymentRequest) Refs() (orderRef, paymentRef, signature string) {
	orderRef, paymentRef, signature = r.RazorpayOrderID, r.RazorpayPaymentID, r.RazorpaySignature
	if orderRef == "" {
		orderRef = r.OrderID
	}
	if paymentRef == "" {
		paymentRef = r.PaymentID
	}
	if signature == "" {
		signature = r.Signature
	}
	return orderRef, paymentRef, signature
}

type PaymentFailureRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason" binding:"max=500"`
}

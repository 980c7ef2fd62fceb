// Package gateway adapts the external payment provider (Razorpay-shaped
// API). All monetary amounts cross this boundary as integer minor units
// (paise); the decimal-to-paise conversion happens in pkg/money before any
// call lands here.
package gateway

import "context"

// Order is the external payment order minted for a purchase.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is one captured (or attempted) payment against an order.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

// Refund is the provider's record of a reversal.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// PaymentGateway is the capability surface the settlement engine depends on.
// Constructed once at process start and injected, so tests substitute doubles.
//
// CreateOrder is idempotent via the receipt tag and safe to retry on timeout.
// Refund is NOT retried automatically anywhere; a second refund must be an
// explicit operator action.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string, notes map[string]string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	Refund(ctx context.Context, paymentID string, amountMinorUnits int64, notes map[string]string) (*Refund, error)
	FetchPayments(ctx context.Context, orderID string) ([]Payment, error)
}

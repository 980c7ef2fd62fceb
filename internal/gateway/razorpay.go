package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"greenh2-backend/internal/pkg/apperr"
)

// RazorpayClient talks to the Razorpay REST API with basic auth. The HTTP
// timeout is explicit: a timed-out CreateOrder is safe to retry (the receipt
// tag deduplicates), a timed-out Refund is not and surfaces as
// GatewayTimeout for the operator to resolve.
type RazorpayClient struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	HTTP      *http.Client
}

// NewRazorpayClient builds a client with the given request timeout.
func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RazorpayClient{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// CreateOrder mints an external order for the given amount in minor units.
func (r *RazorpayClient) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body := map[string]interface{}{
		"amount":   amountMinorUnits,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	var order Order
	if err := r.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifySignature recomputes HMAC-SHA256 over "orderID|paymentID" with the
// key secret and compares in constant time.
func (r *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, r.KeySecret)
}

// Refund reverses a captured payment. Callers must not retry this
// automatically; a duplicate refund is worse than a delayed one.
func (r *RazorpayClient) Refund(ctx context.Context, paymentID string, amountMinorUnits int64, notes map[string]string) (*Refund, error) {
	body := map[string]interface{}{
		"amount": amountMinorUnits,
		"notes":  notes,
	}
	var refund Refund
	if err := r.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// FetchPayments lists the payments made against an order (status polling and
// reconciliation jobs).
func (r *RazorpayClient) FetchPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var out struct {
		Items []Payment `json:"items"`
	}
	if err := r.do(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (r *RazorpayClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.GatewayRejected, "Encoding gateway request failed", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.GatewayRejected, "Building gateway request failed", err)
	}
	req.SetBasicAuth(r.KeyID, r.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.GatewayTimeout, "Payment gateway timed out", err)
		}
		return apperr.Wrap(apperr.GatewayRejected, "Payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.GatewayRejected, "Reading gateway response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("Payment gateway rejected request")
		return apperr.New(apperr.GatewayRejected, fmt.Sprintf("Payment gateway rejected request (%d)", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apperr.Wrap(apperr.GatewayRejected, "Decoding gateway response failed", err)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// VerifyPaymentSignature checks the HMAC-SHA256 the provider computes over
// "orderID|paymentID" against the supplied signature, in constant time.
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

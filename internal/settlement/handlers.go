package settlement

import (
	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/middleware"
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// CreateOrder POST /api/v1/payments/create-order
func (h *Handlers) CreateOrder(c *fiber.Ctx) error {
	var body struct {
		ListingID string `json:"listing_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	quote, err := h.Service.CreateOrder(c.Context(), actor.UserID, listingID, body.Quantity)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Order created", quote, nil)
}

// VerifyPayment POST /api/v1/payments/verify-payment
func (h *Handlers) VerifyPayment(c *fiber.Ctx) error {
	var body struct {
		GatewayOrderID   string `json:"gateway_order_id"`
		GatewayPaymentID string `json:"gateway_payment_id"`
		Signature        string `json:"signature"`
		ListingID        string `json:"listing_id"`
		Quantity         int    `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.GatewayOrderID == "" || body.GatewayPaymentID == "" || body.Signature == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Service.VerifyAndSettle(c.Context(), VerifyInput{
		GatewayOrderID:   body.GatewayOrderID,
		GatewayPaymentID: body.GatewayPaymentID,
		Signature:        body.Signature,
		ListingID:        listingID,
		Quantity:         body.Quantity,
		BuyerID:          actor.UserID,
	})
	if err != nil {
		// Oversell after capture carries the payment id so the client or an
		// operator can drive the refund flow.
		if apperr.Is(err, apperr.InsufficientInventory) {
			return response.Error(c, err.Error(), fiber.StatusConflict, fiber.Map{
				"gateway_payment_id": body.GatewayPaymentID,
				"action":             "refund_required",
			})
		}
		return respondErr(c, err)
	}

	msg := "Payment verified and transaction completed successfully"
	if result.Replayed {
		msg = "Payment already settled"
	}
	return response.Success(c, msg, txnPayload(result.Transaction), fiber.Map{
		"replayed": result.Replayed,
	})
}

// DirectPurchase POST /api/v1/payments/direct-purchase — trusted settlement
// path without an external gateway (demo/manual reconciliation).
func (h *Handlers) DirectPurchase(c *fiber.Ctx) error {
	var body struct {
		ListingID string `json:"listing_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	txn, err := h.Service.DirectPurchase(c.Context(), actor.UserID, listingID, body.Quantity)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Purchase completed", txnPayload(txn), nil)
}

// PaymentStatus GET /api/v1/payments/status/:orderId
func (h *Handlers) PaymentStatus(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	if orderID == "" {
		return response.Error(c, "Order id is required", fiber.StatusBadRequest, nil)
	}
	payments, err := h.Service.PaymentStatus(c.Context(), orderID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Payment status", fiber.Map{
		"order_id": orderID,
		"payments": payments,
	}, nil)
}

// Refund POST /api/v1/payments/:transactionId/refund
func (h *Handlers) Refund(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for transaction id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Service.Refund(c.Context(), transactionID, actor.UserID, body.Reason)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Refund processed successfully", result, nil)
}

func respondErr(c *fiber.Ctx, err error) error {
	return response.Error(c, err.Error(), apperr.HTTPStatus(err), nil)
}

// txnPayload is the settlement endpoint's explicit success payload: always
// enough for the client to poll, retry or contact support.
func txnPayload(t *domain.Transaction) fiber.Map {
	return fiber.Map{
		"id":                 t.ID,
		"transaction_id":     t.TransactionID,
		"certificate_number": t.CertificateNumber,
		"certificate_path":   t.CertificatePath,
		"total_amount":       t.TotalAmount,
		"quantity":           t.Quantity,
		"payment_status":     t.PaymentStatus,
	}
}

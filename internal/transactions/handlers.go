package transactions

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"greenh2-backend/internal/middleware"
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

// Purchases GET /api/v1/transactions/purchases
func (h *Handlers) Purchases(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txns, err := h.Service.ByBuyer(c.Context(), actor.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Purchases fetched", txns, fiber.Map{"count": len(txns)})
}

// Sales GET /api/v1/transactions/sales
func (h *Handlers) Sales(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txns, err := h.Service.ByProducer(c.Context(), actor.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	summary, err := h.Service.Sales(c.Context(), actor.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Sales fetched", txns, fiber.Map{
		"count":   len(txns),
		"summary": summary,
	})
}

// Get GET /api/v1/transactions/:transactionId
func (h *Handlers) Get(c *fiber.Ctx) error {
	transactionID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for transaction id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txn, err := h.Service.Get(c.Context(), transactionID, actor.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Transaction fetched", txn, nil)
}

func respondErr(c *fiber.Ctx, err error) error {
	return response.Error(c, err.Error(), apperr.HTTPStatus(err), nil)
}

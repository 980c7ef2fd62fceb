package listings

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"greenh2-backend/internal/middleware"
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

// Create POST /api/v1/listings
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		ApplicationID string `json:"application_id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Price         string `json:"price"`
		Currency      string `json:"currency"`
		Unit          string `json:"unit"`
		Quantity      int    `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	applicationID, err := uuid.Parse(body.ApplicationID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for application_id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	listing, err := h.Service.Create(c.Context(), CreateInput{
		ProducerID:    actor.UserID,
		ApplicationID: applicationID,
		Title:         body.Title,
		Description:   body.Description,
		Price:         body.Price,
		Currency:      body.Currency,
		Unit:          body.Unit,
		Quantity:      body.Quantity,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// Browse GET /api/v1/listings — public marketplace view.
func (h *Handlers) Browse(c *fiber.Ctx) error {
	filter := BrowseFilter{
		EnergySource: c.Query("energy_source"),
		Country:      c.Query("country"),
	}
	if raw := c.Query("max_price"); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return response.Error(c, "Invalid max_price", fiber.StatusBadRequest, nil)
		}
		filter.MaxPrice = p
	}
	if raw := c.Query("min_quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return response.Error(c, "Invalid min_quantity", fiber.StatusBadRequest, nil)
		}
		filter.MinQuantity = q
	}

	listings, err := h.Service.Browse(c.Context(), filter)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Listings fetched", listings, fiber.Map{"count": len(listings)})
}

// Get GET /api/v1/listings/:listingId
func (h *Handlers) Get(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listingId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing id", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Get(c.Context(), listingID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Listing fetched", listing, nil)
}

// Mine GET /api/v1/listings/my
func (h *Handlers) Mine(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.ByProducer(c.Context(), actor.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Listings fetched", listings, fiber.Map{"count": len(listings)})
}

// Deactivate PATCH /api/v1/listings/:listingId/deactivate
func (h *Handlers) Deactivate(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listingId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.Service.Deactivate(c.Context(), listingID, actor.UserID); err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Listing deactivated", nil, nil)
}

func respondErr(c *fiber.Ctx, err error) error {
	return response.Error(c, err.Error(), apperr.HTTPStatus(err), nil)
}

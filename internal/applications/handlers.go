package applications

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/middleware"
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

type documentBody struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
	Category string `json:"category"`
}

func toDocuments(in []documentBody) []domain.ApplicationDocument {
	docs := make([]domain.ApplicationDocument, 0, len(in))
	now := time.Now()
	for _, d := range in {
		docs = append(docs, domain.ApplicationDocument{
			URL:        d.URL,
			PublicID:   d.PublicID,
			FileName:   d.FileName,
			FileType:   d.FileType,
			Size:       d.Size,
			Category:   d.Category,
			UploadedAt: now,
		})
	}
	return docs
}

// Submit POST /api/v1/applications
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body struct {
		CompanyName         string         `json:"company_name"`
		RegistrationNumber  string         `json:"registration_number"`
		TaxID               string         `json:"tax_id"`
		PlantStreet         string         `json:"plant_street"`
		PlantCity           string         `json:"plant_city"`
		PlantState          string         `json:"plant_state"`
		PlantCountry        string         `json:"plant_country"`
		PlantZipCode        string         `json:"plant_zip_code"`
		PlantCapacity       float64        `json:"plant_capacity"`
		CapacityUnit        string         `json:"capacity_unit"`
		EnergySource        string         `json:"energy_source"`
		ProductionMethod    string         `json:"production_method"`
		CarbonIntensity     *float64       `json:"carbon_intensity"`
		RenewablePercentage *float64       `json:"renewable_percentage"`
		Documents           []documentBody `json:"documents"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	app, err := h.Service.Submit(c.Context(), SubmitInput{
		ProducerID:          actor.UserID,
		CompanyName:         body.CompanyName,
		RegistrationNumber:  body.RegistrationNumber,
		TaxID:               body.TaxID,
		PlantStreet:         body.PlantStreet,
		PlantCity:           body.PlantCity,
		PlantState:          body.PlantState,
		PlantCountry:        body.PlantCountry,
		PlantZipCode:        body.PlantZipCode,
		PlantCapacity:       body.PlantCapacity,
		CapacityUnit:        body.CapacityUnit,
		EnergySource:        body.EnergySource,
		ProductionMethod:    body.ProductionMethod,
		CarbonIntensity:     body.CarbonIntensity,
		RenewablePercentage: body.RenewablePercentage,
		Documents:           toDocuments(body.Documents),
	})
	if err != nil {
		return respondErr(c, err)
	}
	return response.SuccessCreated(c, "Application submitted successfully", app, nil)
}

// Mine GET /api/v1/applications/my
func (h *Handlers) Mine(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	apps, err := h.Service.ByProducer(c.Context(), actor.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Applications fetched", apps, fiber.Map{"count": len(apps)})
}

// All GET /api/v1/applications — certifier overview.
func (h *Handlers) All(c *fiber.Ctx) error {
	apps, err := h.Service.All(c.Context())
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Applications fetched", apps, fiber.Map{"count": len(apps)})
}

// Pending GET /api/v1/applications/pending — certifier queue.
func (h *Handlers) Pending(c *fiber.Ctx) error {
	apps, err := h.Service.Pending(c.Context())
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Pending applications fetched", apps, fiber.Map{"count": len(apps)})
}

// Get GET /api/v1/applications/:applicationId
func (h *Handlers) Get(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("applicationId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for application id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	app, err := h.Service.Get(c.Context(), applicationID, actor.UserID, actor.Role)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Application fetched", app, nil)
}

// AttachDocuments POST /api/v1/applications/:applicationId/documents
func (h *Handlers) AttachDocuments(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("applicationId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for application id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Documents []documentBody `json:"documents"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	app, err := h.Service.AttachDocuments(c.Context(), applicationID, actor.UserID, toDocuments(body.Documents))
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Documents added", app, nil)
}

// RemoveDocument DELETE /api/v1/applications/:applicationId/documents/:publicId
func (h *Handlers) RemoveDocument(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("applicationId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for application id", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	app, err := h.Service.RemoveDocument(c.Context(), applicationID, actor.UserID, c.Params("publicId"))
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Document removed", app, nil)
}

// Schedule PATCH /api/v1/applications/:applicationId/schedule
func (h *Handlers) Schedule(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("applicationId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for application id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		InspectionDate  string `json:"inspection_date"`
		InspectionTime  string `json:"inspection_time"`
		InspectionNotes string `json:"inspection_notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	date, err := time.Parse("2006-01-02", body.InspectionDate)
	if err != nil {
		return response.Error(c, "Invalid inspection_date, expected YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	app, err := h.Service.Schedule(c.Context(), applicationID, ScheduleInput{
		InspectionDate:  date,
		InspectionTime:  body.InspectionTime,
		InspectionNotes: body.InspectionNotes,
		InspectorID:     actor.UserID,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Inspection scheduled", app, nil)
}

// Approve PATCH /api/v1/applications/:applicationId/approve
func (h *Handlers) Approve(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("applicationId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for application id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Notes string `json:"notes"`
	}
	_ = c.BodyParser(&body)

	app, err := h.Service.Approve(c.Context(), applicationID, body.Notes)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Application approved", app, nil)
}

// Reject PATCH /api/v1/applications/:applicationId/reject
func (h *Handlers) Reject(c *fiber.Ctx) error {
	applicationID, err := uuid.Parse(c.Params("applicationId"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for application id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	app, err := h.Service.Reject(c.Context(), applicationID, body.Reason)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Application rejected", app, nil)
}

func respondErr(c *fiber.Ctx, err error) error {
	return response.Error(c, err.Error(), apperr.HTTPStatus(err), nil)
}

package uploads

import (
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const documentsBucket = "application-documents"

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// UploadDocument POST /api/v1/uploads/document
func (h *Handlers) UploadDocument(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.GetSignedUploadURL(c.Context(), documentsBucket, req.FileName)
	if err != nil {
		return response.Error(c, err.Error(), apperr.HTTPStatus(err), nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}

// DeleteDocument DELETE /api/v1/uploads/document/:publicId
func (h *Handlers) DeleteDocument(c *fiber.Ctx) error {
	publicID := c.Params("publicId")
	if publicID == "" {
		return response.Error(c, "public_id is required", fiber.StatusBadRequest, nil)
	}

	if err := h.Service.Delete(c.Context(), documentsBucket, publicID); err != nil {
		return response.Error(c, err.Error(), apperr.HTTPStatus(err), nil)
	}
	return response.Success(c, "File deleted", nil, nil)
}

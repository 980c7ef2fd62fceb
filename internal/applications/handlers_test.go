package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
)

func setupAppTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Application{}))
	return &Service{DB: db}, db
}

func submitValid(t *testing.T, svc *Service, producerID uuid.UUID) *domain.Application {
	app, err := svc.Submit(context.Background(), SubmitInput{
		ProducerID:       producerID,
		CompanyName:      "HyGen Industries",
		PlantCity:        "Pune",
		PlantCountry:     "India",
		PlantCapacity:    500,
		EnergySource:     "solar",
		ProductionMethod: "PEM electrolysis",
	})
	require.NoError(t, err)
	return app
}

func TestSubmit_PendingWithReference(t *testing.T) {
	svc, _ := setupAppTest(t)
	app := submitValid(t, svc, uuid.New())

	assert.Equal(t, domain.ApplicationPending, app.Status)
	assert.Regexp(t, `^APP-\d{4}-\d{3}$`, app.Reference)
	assert.Equal(t, "kg/day", app.CapacityUnit)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := setupAppTest(t)

	_, err := svc.Submit(context.Background(), SubmitInput{ProducerID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = svc.Submit(context.Background(), SubmitInput{
		ProducerID:       uuid.New(),
		CompanyName:      "HyGen",
		EnergySource:     "wind",
		ProductionMethod: "alkaline",
		PlantCapacity:    0,
	})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestScheduleThenApprove(t *testing.T) {
	svc, _ := setupAppTest(t)
	app := submitValid(t, svc, uuid.New())
	certifier := uuid.New()

	scheduled, err := svc.Schedule(context.Background(), app.ApplicationID, ScheduleInput{
		InspectionDate: mustDate(t, "2026-09-15"),
		InspectionTime: "10:00",
		InspectorID:    certifier,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationScheduled, scheduled.Status)
	require.NotNil(t, scheduled.InspectorID)
	assert.Equal(t, certifier, *scheduled.InspectorID)

	approved, err := svc.Approve(context.Background(), app.ApplicationID, "plant verified on site")
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "plant verified on site", approved.CertifierNotes)
}

func TestApproveDirectlyFromPending(t *testing.T) {
	svc, _ := setupAppTest(t)
	app := submitValid(t, svc, uuid.New())

	approved, err := svc.Approve(context.Background(), app.ApplicationID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationApproved, approved.Status)
}

func TestIllegalTransitionsConflict(t *testing.T) {
	svc, _ := setupAppTest(t)
	app := submitValid(t, svc, uuid.New())

	_, err := svc.Reject(context.Background(), app.ApplicationID, "incomplete documents")
	require.NoError(t, err)

	// Rejected is terminal.
	_, err = svc.Approve(context.Background(), app.ApplicationID, "")
	assert.True(t, apperr.Is(err, apperr.Conflict))
	_, err = svc.Schedule(context.Background(), app.ApplicationID, ScheduleInput{
		InspectionDate: mustDate(t, "2026-09-15"),
	})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestReject_RequiresReason(t *testing.T) {
	svc, _ := setupAppTest(t)
	app := submitValid(t, svc, uuid.New())

	_, err := svc.Reject(context.Background(), app.ApplicationID, "")
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestGet_ProducerScoping(t *testing.T) {
	svc, _ := setupAppTest(t)
	owner := uuid.New()
	app := submitValid(t, svc, owner)

	_, err := svc.Get(context.Background(), app.ApplicationID, owner, domain.RoleProducer)
	require.NoError(t, err)

	// Another producer cannot read it, a certifier can.
	_, err = svc.Get(context.Background(), app.ApplicationID, uuid.New(), domain.RoleProducer)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = svc.Get(context.Background(), app.ApplicationID, uuid.New(), domain.RoleCertifier)
	require.NoError(t, err)
}

func TestAttachDocuments_AppendsAndGuards(t *testing.T) {
	svc, _ := setupAppTest(t)
	owner := uuid.New()
	app := submitValid(t, svc, owner)

	updated, err := svc.AttachDocuments(context.Background(), app.ApplicationID, owner, []domain.ApplicationDocument{
		{URL: "https://files.example/one.pdf", PublicID: "one", FileName: "one.pdf", Category: "certification"},
	})
	require.NoError(t, err)

	var docs []domain.ApplicationDocument
	require.NoError(t, json.Unmarshal(updated.Documents, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "one", docs[0].PublicID)

	// Not the owner.
	_, err = svc.AttachDocuments(context.Background(), app.ApplicationID, uuid.New(), []domain.ApplicationDocument{{URL: "x"}})
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	// Finalized applications are closed for edits.
	_, err = svc.Approve(context.Background(), app.ApplicationID, "")
	require.NoError(t, err)
	_, err = svc.AttachDocuments(context.Background(), app.ApplicationID, owner, []domain.ApplicationDocument{{URL: "x"}})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestRemoveDocument(t *testing.T) {
	svc, _ := setupAppTest(t)
	owner := uuid.New()
	app := submitValid(t, svc, owner)

	_, err := svc.AttachDocuments(context.Background(), app.ApplicationID, owner, []domain.ApplicationDocument{
		{URL: "https://files.example/one.pdf", PublicID: "one"},
		{URL: "https://files.example/two.pdf", PublicID: "two"},
	})
	require.NoError(t, err)

	updated, err := svc.RemoveDocument(context.Background(), app.ApplicationID, owner, "one")
	require.NoError(t, err)
	var docs []domain.ApplicationDocument
	require.NoError(t, json.Unmarshal(updated.Documents, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "two", docs[0].PublicID)

	_, err = svc.RemoveDocument(context.Background(), app.ApplicationID, owner, "one")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = svc.RemoveDocument(context.Background(), app.ApplicationID, uuid.New(), "two")
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestPending_QueueOrderAndContents(t *testing.T) {
	svc, _ := setupAppTest(t)
	first := submitValid(t, svc, uuid.New())
	second := submitValid(t, svc, uuid.New())
	third := submitValid(t, svc, uuid.New())

	_, err := svc.Approve(context.Background(), third.ApplicationID, "")
	require.NoError(t, err)
	_, err = svc.Schedule(context.Background(), second.ApplicationID, ScheduleInput{
		InspectionDate: mustDate(t, "2026-09-20"),
	})
	require.NoError(t, err)

	queue, err := svc.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ApplicationID, queue[0].ApplicationID)
	assert.Equal(t, second.ApplicationID, queue[1].ApplicationID)
}

func TestHandlers_SubmitAndRoleFlow(t *testing.T) {
	svc, _ := setupAppTest(t)
	producerID := uuid.New()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": producerID.String(),
			"role":    domain.RoleProducer,
		})
		return c.Next()
	})
	h := &Handlers{Service: svc}
	app.Post("/api/v1/applications", h.Submit)
	app.Get("/api/v1/applications/my", h.Mine)
	app.Patch("/api/v1/applications/:applicationId/approve", h.Approve)

	status, body := appPostJSON(t, app, "POST", "/api/v1/applications", fiber.Map{
		"company_name":      "HyGen Industries",
		"plant_capacity":    500,
		"energy_source":     "solar",
		"production_method": "PEM electrolysis",
		"documents": []fiber.Map{
			{"url": "https://files.example/reg.pdf", "public_id": "reg", "file_name": "reg.pdf"},
		},
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]interface{})
	assert.Regexp(t, `^APP-\d{4}-\d{3}$`, data["reference"])
	appID := data["application_id"].(string)

	status, body = appPostJSON(t, app, "GET", "/api/v1/applications/my", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"].([]interface{}), 1)

	status, _ = appPostJSON(t, app, "PATCH", "/api/v1/applications/"+appID+"/approve", fiber.Map{})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = appPostJSON(t, app, "PATCH", "/api/v1/applications/"+appID+"/approve", fiber.Map{})
	assert.Equal(t, fiber.StatusConflict, status)
}

func appPostJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func mustDate(t *testing.T, s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

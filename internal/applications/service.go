// Package applications implements the certification workflow: producers
// submit plant applications, certifiers schedule inspections and approve or
// reject. Legal status transitions are pending -> scheduled -> approved or
// rejected (approval straight from pending is allowed); anything else is a
// conflict.
package applications

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
)

type Service struct {
	DB *gorm.DB
}

type SubmitInput struct {
	ProducerID          uuid.UUID
	CompanyName         string
	RegistrationNumber  string
	TaxID               string
	PlantStreet         string
	PlantCity           string
	PlantState          string
	PlantCountry        string
	PlantZipCode        string
	PlantCapacity       float64
	CapacityUnit        string
	EnergySource        string
	ProductionMethod    string
	CarbonIntensity     *float64
	RenewablePercentage *float64
	Documents           []domain.ApplicationDocument
}

type ScheduleInput struct {
	InspectionDate  time.Time
	InspectionTime  string
	InspectionNotes string
	InspectorID     uuid.UUID
}

// Submit validates and stores a new application in pending status.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Application, error) {
	if in.CompanyName == "" {
		return nil, apperr.New(apperr.Validation, "Company name is required")
	}
	if in.EnergySource == "" || in.ProductionMethod == "" {
		return nil, apperr.New(apperr.Validation, "Energy source and production method are required")
	}
	if in.PlantCapacity <= 0 {
		return nil, apperr.New(apperr.Validation, "Plant capacity must be a positive number")
	}

	docs, err := marshalDocuments(in.Documents)
	if err != nil {
		return nil, err
	}

	app := &domain.Application{
		ProducerID:          in.ProducerID,
		CompanyName:         in.CompanyName,
		RegistrationNumber:  in.RegistrationNumber,
		TaxID:               in.TaxID,
		PlantStreet:         in.PlantStreet,
		PlantCity:           in.PlantCity,
		PlantState:          in.PlantState,
		PlantCountry:        in.PlantCountry,
		PlantZipCode:        in.PlantZipCode,
		PlantCapacity:       in.PlantCapacity,
		CapacityUnit:        in.CapacityUnit,
		EnergySource:        in.EnergySource,
		ProductionMethod:    in.ProductionMethod,
		CarbonIntensity:     in.CarbonIntensity,
		RenewablePercentage: in.RenewablePercentage,
		Documents:           docs,
		Status:              domain.ApplicationPending,
	}
	if app.CapacityUnit == "" {
		app.CapacityUnit = "kg/day"
	}

	// The reference is user-facing; the unique index backstops the rare
	// collision, we just retry a bounded number of draws. Each attempt is its
	// own statement so a rejected insert doesn't poison anything.
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		app.Reference = newReference()
		if lastErr = s.DB.WithContext(ctx).Create(app).Error; lastErr == nil {
			return app, nil
		}
	}
	return nil, apperr.Wrap(apperr.Persistence, "Failed to create application", lastErr)
}

// ByProducer lists a producer's own applications, newest first.
func (s *Service) ByProducer(ctx context.Context, producerID uuid.UUID) ([]domain.Application, error) {
	var apps []domain.Application
	if err := s.DB.WithContext(ctx).
		Where("producer_id = ?", producerID).
		Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch applications", err)
	}
	return apps, nil
}

// All lists every application, newest first (certifier overview).
func (s *Service) All(ctx context.Context) ([]domain.Application, error) {
	var apps []domain.Application
	if err := s.DB.WithContext(ctx).
		Order("created_at DESC").Find(&apps).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch applications", err)
	}
	return apps, nil
}

// Pending lists applications awaiting certifier action (pending or scheduled).
func (s *Service) Pending(ctx context.Context) ([]domain.Application, error) {
	var apps []domain.Application
	if err := s.DB.WithContext(ctx).
		Where("status IN ?", []string{domain.ApplicationPending, domain.ApplicationScheduled}).
		Order("created_at ASC").Find(&apps).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch applications", err)
	}
	return apps, nil
}

// Get returns one application. Producers may only read their own; certifiers
// read any.
func (s *Service) Get(ctx context.Context, applicationID, actorID uuid.UUID, actorRole string) (*domain.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if actorRole != domain.RoleCertifier && app.ProducerID != actorID {
		return nil, apperr.New(apperr.Forbidden, "You are not authorized to view this application")
	}
	return app, nil
}

// AttachDocuments appends documents to a producer's own pending or scheduled
// application.
func (s *Service) AttachDocuments(ctx context.Context, applicationID, producerID uuid.UUID, docs []domain.ApplicationDocument) (*domain.Application, error) {
	if len(docs) == 0 {
		return nil, apperr.New(apperr.Validation, "At least one document is required")
	}
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ProducerID != producerID {
		return nil, apperr.New(apperr.Forbidden, "You are not authorized to modify this application")
	}
	if app.Status != domain.ApplicationPending && app.Status != domain.ApplicationScheduled {
		return nil, apperr.New(apperr.Conflict, "Documents can only be added before review is complete")
	}

	var existing []domain.ApplicationDocument
	if len(app.Documents) > 0 {
		if err := json.Unmarshal(app.Documents, &existing); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "Stored documents are unreadable", err)
		}
	}
	merged, err := marshalDocuments(append(existing, docs...))
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Model(app).Update("documents", merged).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to update documents", err)
	}
	app.Documents = merged
	return app, nil
}

// RemoveDocument drops one document (by public id) from a producer's own
// application, under the same edit window as AttachDocuments.
func (s *Service) RemoveDocument(ctx context.Context, applicationID, producerID uuid.UUID, publicID string) (*domain.Application, error) {
	if publicID == "" {
		return nil, apperr.New(apperr.Validation, "public_id is required")
	}
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ProducerID != producerID {
		return nil, apperr.New(apperr.Forbidden, "You are not authorized to modify this application")
	}
	if app.Status != domain.ApplicationPending && app.Status != domain.ApplicationScheduled {
		return nil, apperr.New(apperr.Conflict, "Documents can only be removed before review is complete")
	}

	var existing []domain.ApplicationDocument
	if len(app.Documents) > 0 {
		if err := json.Unmarshal(app.Documents, &existing); err != nil {
			return nil, apperr.Wrap(apperr.Persistence, "Stored documents are unreadable", err)
		}
	}
	kept := existing[:0]
	found := false
	for _, d := range existing {
		if d.PublicID == publicID {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return nil, apperr.New(apperr.NotFound, "Document not found")
	}

	merged, err := marshalDocuments(kept)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(app).Update("documents", merged).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to update documents", err)
	}
	app.Documents = merged
	return app, nil
}

// Schedule moves a pending application to scheduled and records the
// inspection slot.
func (s *Service) Schedule(ctx context.Context, applicationID uuid.UUID, in ScheduleInput) (*domain.Application, error) {
	if in.InspectionDate.IsZero() {
		return nil, apperr.New(apperr.Validation, "Inspection date is required")
	}
	return s.transition(ctx, applicationID, []string{domain.ApplicationPending}, map[string]interface{}{
		"status":           domain.ApplicationScheduled,
		"inspection_date":  in.InspectionDate,
		"inspection_time":  in.InspectionTime,
		"inspection_notes": in.InspectionNotes,
		"inspector_id":     in.InspectorID,
	})
}

// Approve finalizes a pending or scheduled application.
func (s *Service) Approve(ctx context.Context, applicationID uuid.UUID, notes string) (*domain.Application, error) {
	now := time.Now()
	return s.transition(ctx, applicationID,
		[]string{domain.ApplicationPending, domain.ApplicationScheduled},
		map[string]interface{}{
			"status":          domain.ApplicationApproved,
			"certifier_notes": notes,
			"approved_at":     &now,
		})
}

// Reject finalizes a pending or scheduled application with a reason.
func (s *Service) Reject(ctx context.Context, applicationID uuid.UUID, reason string) (*domain.Application, error) {
	if reason == "" {
		return nil, apperr.New(apperr.Validation, "Rejection reason is required")
	}
	now := time.Now()
	return s.transition(ctx, applicationID,
		[]string{domain.ApplicationPending, domain.ApplicationScheduled},
		map[string]interface{}{
			"status":           domain.ApplicationRejected,
			"rejection_reason": reason,
			"rejected_at":      &now,
		})
}

// transition applies updates only when the current status is in from; a
// no-row update means the application moved concurrently or was already
// finalized.
func (s *Service) transition(ctx context.Context, applicationID uuid.UUID, from []string, updates map[string]interface{}) (*domain.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&domain.Application{}).
		Where("application_id = ? AND status IN ?", applicationID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to update application", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.Conflict,
			fmt.Sprintf("Application in status '%s' cannot make this transition", app.Status))
	}
	return s.load(ctx, applicationID)
}

func (s *Service) load(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	var app domain.Application
	if err := s.DB.WithContext(ctx).Where("application_id = ?", applicationID).First(&app).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "Application not found")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Application lookup failed", err)
	}
	return &app, nil
}

func marshalDocuments(docs []domain.ApplicationDocument) (datatypes.JSON, error) {
	if docs == nil {
		docs = []domain.ApplicationDocument{}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Invalid documents payload", err)
	}
	return datatypes.JSON(raw), nil
}

func newReference() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return fmt.Sprintf("APP-%d-%03d", time.Now().Year(), time.Now().UnixNano()%1000)
	}
	return fmt.Sprintf("APP-%d-%03d", time.Now().Year(), n.Int64())
}

// Package listings manages marketplace listings. A listing is minted from an
// approved certification application and carries an immutable price snapshot;
// its available quantity is owned by the settlement engine, never written
// here.
package listings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/money"
)

type Service struct {
	DB *gorm.DB
}

type CreateInput struct {
	ProducerID    uuid.UUID
	ApplicationID uuid.UUID
	Title         string
	Description   string
	Price         string
	Currency      string
	Unit          string
	Quantity      int
}

// BrowseFilter narrows the marketplace query. Zero values mean "no filter".
type BrowseFilter struct {
	EnergySource string
	Country      string
	MaxPrice     decimal.Decimal
	MinQuantity  int
}

// Create mints a listing from the producer's own approved application.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Listing, error) {
	if in.Title == "" {
		return nil, apperr.New(apperr.Validation, "Title is required")
	}
	if in.Quantity <= 0 {
		return nil, apperr.New(apperr.Validation, "Quantity must be a positive number")
	}
	price, err := money.ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	var app domain.Application
	if err := s.DB.WithContext(ctx).Where("application_id = ?", in.ApplicationID).First(&app).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "Application not found")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Application lookup failed", err)
	}
	if app.ProducerID != in.ProducerID {
		return nil, apperr.New(apperr.Forbidden, "You are not authorized to list against this application")
	}
	if app.Status != domain.ApplicationApproved {
		return nil, apperr.New(apperr.Conflict, "Only approved applications can be listed")
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "INR"
	}
	unit := in.Unit
	if unit == "" {
		unit = "kg"
	}

	listing := &domain.Listing{
		ProducerID:          in.ProducerID,
		ApplicationID:       app.ApplicationID,
		Title:               in.Title,
		Description:         in.Description,
		Price:               price,
		Currency:            currency,
		Unit:                unit,
		TotalQuantity:       in.Quantity,
		AvailableQuantity:   in.Quantity,
		CertificationDate:   approvedAt(&app),
		CertificateNumber:   app.Reference,
		EnergySource:        app.EnergySource,
		CarbonIntensity:     app.CarbonIntensity,
		RenewablePercentage: app.RenewablePercentage,
		LocationCity:        app.PlantCity,
		LocationState:       app.PlantState,
		LocationCountry:     app.PlantCountry,
		IsActive:            true,
	}
	if err := s.DB.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to create listing", err)
	}
	return listing, nil
}

// Browse lists active marketplace listings, newest first.
func (s *Service) Browse(ctx context.Context, filter BrowseFilter) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Where("is_active = ?", true)
	if filter.EnergySource != "" {
		q = q.Where("energy_source = ?", filter.EnergySource)
	}
	if filter.Country != "" {
		q = q.Where("location_country = ?", filter.Country)
	}
	if !filter.MaxPrice.IsZero() {
		q = q.Where("price <= ?", filter.MaxPrice)
	}
	if filter.MinQuantity > 0 {
		q = q.Where("available_quantity >= ?", filter.MinQuantity)
	}

	var listings []domain.Listing
	if err := q.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch listings", err)
	}
	return listings, nil
}

// Get returns one listing by id, active or not (producers need to see their
// sold-out listings).
func (s *Service) Get(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "Listing not found")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Listing lookup failed", err)
	}
	return &listing, nil
}

// ByProducer lists a producer's own listings, newest first.
func (s *Service) ByProducer(ctx context.Context, producerID uuid.UUID) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).
		Where("producer_id = ?", producerID).
		Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch listings", err)
	}
	return listings, nil
}

// Deactivate takes the producer's own listing off the marketplace without
// touching its inventory counters.
func (s *Service) Deactivate(ctx context.Context, listingID, producerID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("listing_id = ? AND producer_id = ?", listingID, producerID).
		Update("is_active", false)
	if res.Error != nil {
		return apperr.Wrap(apperr.Persistence, "Failed to deactivate listing", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "Listing not found")
	}
	return nil
}

func approvedAt(app *domain.Application) time.Time {
	if app.ApprovedAt != nil {
		return *app.ApprovedAt
	}
	return time.Now()
}

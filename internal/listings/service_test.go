package listings

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
)

func setupListingTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Application{}, &domain.Listing{}))
	return &Service{DB: db}, db
}

func seedApplication(t *testing.T, db *gorm.DB, producerID uuid.UUID, status string) *domain.Application {
	now := time.Now()
	app := &domain.Application{
		Reference:        "APP-2026-001",
		ProducerID:       producerID,
		CompanyName:      "HyGen Industries",
		PlantCity:        "Pune",
		PlantCountry:     "India",
		PlantCapacity:    500,
		EnergySource:     "solar",
		ProductionMethod: "PEM electrolysis",
		Status:           status,
	}
	if status == domain.ApplicationApproved {
		app.ApprovedAt = &now
	}
	require.NoError(t, db.Create(app).Error)
	return app
}

func TestCreate_FromApprovedApplication(t *testing.T) {
	svc, _ := setupListingTest(t)
	producer := uuid.New()
	app := seedApplication(t, svc.DB, producer, domain.ApplicationApproved)

	listing, err := svc.Create(context.Background(), CreateInput{
		ProducerID:    producer,
		ApplicationID: app.ApplicationID,
		Title:         "Solar hydrogen, August batch",
		Price:         "300",
		Quantity:      1000,
	})
	require.NoError(t, err)

	assert.True(t, listing.Price.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 1000, listing.TotalQuantity)
	assert.Equal(t, 1000, listing.AvailableQuantity)
	assert.True(t, listing.IsActive)
	// Certification metadata is copied from the application, not re-entered.
	assert.Equal(t, "solar", listing.EnergySource)
	assert.Equal(t, "India", listing.LocationCountry)
	assert.Equal(t, "INR", listing.Currency)
	assert.Equal(t, "kg", listing.Unit)
}

func TestCreate_GuardedByStatusAndOwnership(t *testing.T) {
	svc, _ := setupListingTest(t)
	producer := uuid.New()

	pending := seedApplication(t, svc.DB, producer, domain.ApplicationPending)
	_, err := svc.Create(context.Background(), CreateInput{
		ProducerID:    producer,
		ApplicationID: pending.ApplicationID,
		Title:         "x", Price: "10", Quantity: 1,
	})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = svc.Create(context.Background(), CreateInput{
		ProducerID:    uuid.New(),
		ApplicationID: pending.ApplicationID,
		Title:         "x", Price: "10", Quantity: 1,
	})
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, err = svc.Create(context.Background(), CreateInput{
		ProducerID:    producer,
		ApplicationID: uuid.New(),
		Title:         "x", Price: "10", Quantity: 1,
	})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCreate_PriceValidation(t *testing.T) {
	svc, _ := setupListingTest(t)
	producer := uuid.New()
	app := seedApplication(t, svc.DB, producer, domain.ApplicationApproved)

	for _, bad := range []string{"", "abc", "-5", "0"} {
		_, err := svc.Create(context.Background(), CreateInput{
			ProducerID:    producer,
			ApplicationID: app.ApplicationID,
			Title:         "x", Price: bad, Quantity: 1,
		})
		assert.True(t, apperr.Is(err, apperr.Validation), "price %q", bad)
	}
}

func TestBrowse_FiltersAndActiveOnly(t *testing.T) {
	svc, db := setupListingTest(t)
	producer := uuid.New()
	app := seedApplication(t, svc.DB, producer, domain.ApplicationApproved)

	mk := func(title, price string, qty int) *domain.Listing {
		l, err := svc.Create(context.Background(), CreateInput{
			ProducerID:    producer,
			ApplicationID: app.ApplicationID,
			Title:         title,
			Price:         price,
			Quantity:      qty,
		})
		require.NoError(t, err)
		return l
	}
	cheap := mk("cheap", "100", 50)
	mk("dear", "900", 500)
	inactive := mk("gone", "100", 10)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	all, err := svc.Browse(context.Background(), BrowseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	capped, err := svc.Browse(context.Background(), BrowseFilter{MaxPrice: decimal.NewFromInt(200)})
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, cheap.ListingID, capped[0].ListingID)

	bulk, err := svc.Browse(context.Background(), BrowseFilter{MinQuantity: 100})
	require.NoError(t, err)
	require.Len(t, bulk, 1)
	assert.Equal(t, "dear", bulk[0].Title)

	solar, err := svc.Browse(context.Background(), BrowseFilter{EnergySource: "solar", Country: "India"})
	require.NoError(t, err)
	assert.Len(t, solar, 2)
	none, err := svc.Browse(context.Background(), BrowseFilter{EnergySource: "wind"})
	require.NoError(t, err)
	assert.Len(t, none, 0)
}

func TestDeactivate_OwnerOnly(t *testing.T) {
	svc, _ := setupListingTest(t)
	producer := uuid.New()
	app := seedApplication(t, svc.DB, producer, domain.ApplicationApproved)
	listing, err := svc.Create(context.Background(), CreateInput{
		ProducerID:    producer,
		ApplicationID: app.ApplicationID,
		Title:         "x", Price: "10", Quantity: 5,
	})
	require.NoError(t, err)

	err = svc.Deactivate(context.Background(), listing.ListingID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.NotFound))

	require.NoError(t, svc.Deactivate(context.Background(), listing.ListingID, producer))
	got, err := svc.Get(context.Background(), listing.ListingID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	// Inventory counters untouched.
	assert.Equal(t, 5, got.AvailableQuantity)
}

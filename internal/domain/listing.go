package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing is a producer's sellable quantity of certified hydrogen at a price.
//
// AvailableQuantity is the only hot shared field in the system. It is mutated
// exclusively by the settlement engine through the inventory guard's
// conditional update; read paths never write it. Invariants:
// 0 <= available_quantity <= total_quantity, and is_active is derived
// (available_quantity > 0).
type Listing struct {
	ListingID     uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ProducerID    uuid.UUID `gorm:"column:producer_id;type:uuid;not null;index" json:"producer_id"`
	ApplicationID uuid.UUID `gorm:"column:application_id;type:uuid;not null" json:"application_id"`

	Title       string `gorm:"column:title;not null" json:"title"`
	Description string `gorm:"column:description" json:"description"`

	Price    decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	Currency string          `gorm:"column:currency;type:varchar(3);default:'INR'" json:"currency"`
	Unit     string          `gorm:"column:unit;default:kg" json:"unit"`

	TotalQuantity     int `gorm:"column:total_quantity;not null" json:"total_quantity"`
	AvailableQuantity int `gorm:"column:available_quantity;not null" json:"available_quantity"`

	CertificationDate time.Time `gorm:"column:certification_date;not null" json:"certification_date"`
	CertificateNumber string    `gorm:"column:certificate_number;not null" json:"certificate_number"`

	EnergySource        string   `gorm:"column:energy_source;not null" json:"energy_source"`
	CarbonIntensity     *float64 `gorm:"column:carbon_intensity" json:"carbon_intensity"`
	RenewablePercentage *float64 `gorm:"column:renewable_percentage" json:"renewable_percentage"`

	LocationCity    string `gorm:"column:location_city" json:"location_city"`
	LocationState   string `gorm:"column:location_state" json:"location_state"`
	LocationCountry string `gorm:"column:location_country" json:"location_country"`

	IsActive bool `gorm:"column:is_active;default:true" json:"is_active"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Listing) TableName() string {
	return "Listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

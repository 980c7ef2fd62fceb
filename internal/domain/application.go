package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Application statuses. Legal transitions: pending -> scheduled -> approved|rejected,
// and pending -> approved|rejected directly.
const (
	ApplicationPending   = "pending"
	ApplicationScheduled = "scheduled"
	ApplicationApproved  = "approved"
	ApplicationRejected  = "rejected"
)

// ApplicationDocument is one entry in the documents JSON array. The file
// itself lives in external storage; we keep the URL and the storage identifier.
type ApplicationDocument struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size"`
	Category   string    `json:"category"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Application is a producer's certification request for a hydrogen plant.
type Application struct {
	ApplicationID uuid.UUID `gorm:"column:application_id;type:uuid;primaryKey" json:"application_id"`
	Reference     string    `gorm:"column:reference;uniqueIndex;not null" json:"reference"`
	ProducerID    uuid.UUID `gorm:"column:producer_id;type:uuid;not null;index" json:"producer_id"`

	CompanyName        string `gorm:"column:company_name;not null" json:"company_name"`
	RegistrationNumber string `gorm:"column:registration_number" json:"registration_number"`
	TaxID              string `gorm:"column:tax_id" json:"tax_id"`

	PlantStreet   string  `gorm:"column:plant_street" json:"plant_street"`
	PlantCity     string  `gorm:"column:plant_city" json:"plant_city"`
	PlantState    string  `gorm:"column:plant_state" json:"plant_state"`
	PlantCountry  string  `gorm:"column:plant_country" json:"plant_country"`
	PlantZipCode  string  `gorm:"column:plant_zip_code" json:"plant_zip_code"`
	PlantCapacity float64 `gorm:"column:plant_capacity;not null" json:"plant_capacity"`
	CapacityUnit  string  `gorm:"column:capacity_unit;default:kg/day" json:"capacity_unit"`

	EnergySource        string   `gorm:"column:energy_source;not null" json:"energy_source"`
	ProductionMethod    string   `gorm:"column:production_method;not null" json:"production_method"`
	CarbonIntensity     *float64 `gorm:"column:carbon_intensity" json:"carbon_intensity"`
	RenewablePercentage *float64 `gorm:"column:renewable_percentage" json:"renewable_percentage"`

	Documents datatypes.JSON `gorm:"column:documents;type:json" json:"documents"`

	Status string `gorm:"column:status;type:varchar(20);default:'pending'" json:"status"`

	InspectionDate  *time.Time `gorm:"column:inspection_date" json:"inspection_date"`
	InspectionTime  string     `gorm:"column:inspection_time" json:"inspection_time"`
	InspectionNotes string     `gorm:"column:inspection_notes" json:"inspection_notes"`
	InspectorID     *uuid.UUID `gorm:"column:inspector_id;type:uuid" json:"inspector_id"`

	CertifierNotes  string     `gorm:"column:certifier_notes" json:"certifier_notes"`
	RejectionReason string     `gorm:"column:rejection_reason" json:"rejection_reason"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at"`
	RejectedAt      *time.Time `gorm:"column:rejected_at" json:"rejected_at"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Application) TableName() string {
	return "Applications"
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ApplicationID == uuid.Nil {
		a.ApplicationID = uuid.New()
	}
	return nil
}

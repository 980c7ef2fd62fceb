package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment statuses for a Transaction.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Transaction statuses (lifecycle of the purchase record itself).
const (
	TxActive    = "active"
	TxCompleted = "completed"
	TxCancelled = "cancelled"
)

// Transaction records a buyer's purchase against a listing. Once
// payment_status reaches "completed" the monetary fields are immutable; only
// a refund may move it to "refunded". The (gateway_order_id,
// gateway_payment_id) pair is the idempotency key for settlement: duplicate
// webhook deliveries or client retries find the existing row instead of
// creating a second one.
type Transaction struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TransactionID string    `gorm:"column:transaction_id;uniqueIndex;not null" json:"transaction_id"`

	BuyerID    uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	ProducerID uuid.UUID `gorm:"column:producer_id;type:uuid;not null;index" json:"producer_id"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`

	Quantity         int             `gorm:"column:quantity;not null" json:"quantity"`
	Unit             string          `gorm:"column:unit;default:kg" json:"unit"`
	PricePerUnit     decimal.Decimal `gorm:"column:price_per_unit;type:decimal(18,2);not null" json:"price_per_unit"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	AmountMinorUnits int64           `gorm:"column:amount_minor_units;not null" json:"amount_minor_units"`
	Currency         string          `gorm:"column:currency;type:varchar(3);default:'INR'" json:"currency"`

	PaymentStatus string `gorm:"column:payment_status;type:varchar(20);default:'pending'" json:"payment_status"`
	Status        string `gorm:"column:status;type:varchar(20);default:'active'" json:"status"`

	GatewayOrderID   string `gorm:"column:gateway_order_id;index:idx_gateway_order_payment,unique" json:"gateway_order_id"`
	GatewayPaymentID string `gorm:"column:gateway_payment_id;index:idx_gateway_order_payment,unique" json:"gateway_payment_id"`

	CertificateNumber *string `gorm:"column:certificate_number;uniqueIndex" json:"certificate_number"`
	CertificatePath   string  `gorm:"column:certificate_path" json:"certificate_path"`

	RawPayment   datatypes.JSON `gorm:"column:raw_payment;type:json" json:"raw_payment,omitempty"`
	RefundID     string         `gorm:"column:refund_id" json:"refund_id,omitempty"`
	RefundReason string         `gorm:"column:refund_reason" json:"refund_reason,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

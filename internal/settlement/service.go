// Package settlement implements the purchase workflow: order creation,
// signature-verified settlement, refund. Per transaction the legal
// transitions are pending -> completed -> refunded; settlement of anything
// else is a conflict. Oversell is prevented at settlement time only — no
// hold is placed at order creation, so a slower buyer's captured payment can
// be rejected here and must then be refunded, never silently dropped.
package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"greenh2-backend/internal/certificates"
	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/gateway"
	"greenh2-backend/internal/inventory"
	"greenh2-backend/internal/pkg/apperr"
	"greenh2-backend/internal/pkg/money"
)

type Service struct {
	DB      *gorm.DB
	Gateway gateway.PaymentGateway
	Issuer  *certificates.Issuer
}

// OrderQuote is what the client needs to take the payment to the gateway.
type OrderQuote struct {
	OrderID          string          `json:"order_id"`
	AmountMinorUnits int64           `json:"amount_minor_units"`
	Currency         string          `json:"currency"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Quantity         int             `json:"quantity"`
	ListingID        uuid.UUID       `json:"listing_id"`
	ListingTitle     string          `json:"listing_title"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
}

// VerifyInput is the payment proof delivered by the client or a webhook.
type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	ListingID        uuid.UUID
	Quantity         int
	BuyerID          uuid.UUID
}

// SettlementResult reports a settled transaction; Replayed is true when the
// (order, payment) pair had already been settled and the existing record was
// returned unchanged.
type SettlementResult struct {
	Transaction *domain.Transaction
	Replayed    bool
}

// RefundResult reports a completed reversal.
type RefundResult struct {
	RefundID      string    `json:"refund_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

// CreateOrder validates the purchase and mints an external payment order.
// Inventory is NOT reserved here; availability is re-checked atomically at
// settlement time, so two concurrent orders for the same stock may both
// succeed at this step.
func (s *Service) CreateOrder(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*OrderQuote, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.Validation, "Quantity must be a positive number")
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "Listing not available")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Listing lookup failed", err)
	}
	if !listing.IsActive {
		return nil, apperr.New(apperr.NotFound, "Listing not available")
	}
	if quantity > listing.AvailableQuantity {
		return nil, apperr.New(apperr.Validation, "Requested quantity exceeds available quantity")
	}

	total := money.Total(listing.Price, quantity)
	amountMinor := money.ToMinorUnits(total)

	// Receipt tag is a random nonce, not a timestamp: burst traffic would
	// collide on millisecond receipts.
	receipt := "order_" + nonce()

	order, err := s.Gateway.CreateOrder(ctx, amountMinor, listing.Currency, receipt, map[string]string{
		"listing_id":    listing.ListingID.String(),
		"buyer_id":      buyerID.String(),
		"quantity":      fmt.Sprintf("%d", quantity),
		"energy_source": listing.EnergySource,
	})
	if err != nil {
		return nil, err
	}

	return &OrderQuote{
		OrderID:          order.ID,
		AmountMinorUnits: order.Amount,
		Currency:         order.Currency,
		TotalAmount:      total,
		Quantity:         quantity,
		ListingID:        listing.ListingID,
		ListingTitle:     listing.Title,
		PricePerUnit:     listing.Price,
	}, nil
}

// VerifyAndSettle checks the payment signature and, on success, atomically
// decrements inventory, issues a certificate and records the completed
// transaction. A bad signature always rejects before any state is touched.
// Duplicate deliveries for the same (order, payment) pair return the
// existing transaction unchanged.
func (s *Service) VerifyAndSettle(ctx context.Context, in VerifyInput) (*SettlementResult, error) {
	if !s.Gateway.VerifySignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		log.Warn().Str("gateway_order_id", in.GatewayOrderID).Msg("Payment signature verification failed")
		return nil, apperr.New(apperr.InvalidSignature, "Invalid payment signature")
	}
	if in.Quantity <= 0 {
		return nil, apperr.New(apperr.Validation, "Quantity must be a positive number")
	}

	var result SettlementResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Idempotency: retried clients and double-delivered webhooks find
		// the settled transaction instead of creating a second one.
		var existing domain.Transaction
		err := tx.Where("gateway_order_id = ? AND gateway_payment_id = ?", in.GatewayOrderID, in.GatewayPaymentID).
			First(&existing).Error
		if err == nil {
			result = SettlementResult{Transaction: &existing, Replayed: true}
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return apperr.Wrap(apperr.Persistence, "Idempotency lookup failed", err)
		}

		var listing domain.Listing
		if err := tx.Where("listing_id = ?", in.ListingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "Listing not available")
			}
			return apperr.Wrap(apperr.Persistence, "Listing lookup failed", err)
		}

		// The payment is already captured at this point: a failed decrement
		// is surfaced as insufficient inventory so the caller can start the
		// refund flow, never swallowed.
		if err := inventory.Decrement(tx, listing.ListingID, in.Quantity); err != nil {
			return err
		}

		txn, err := s.record(tx, &listing, in.BuyerID, in.Quantity, in.GatewayOrderID, in.GatewayPaymentID)
		if err != nil {
			return err
		}
		result = SettlementResult{Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DirectPurchase settles without an external gateway (trusted/manual path).
// Same atomicity and inventory contract as VerifyAndSettle, minus signature
// verification.
func (s *Service) DirectPurchase(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*domain.Transaction, error) {
	if quantity <= 0 {
		return nil, apperr.New(apperr.Validation, "Quantity must be a positive number")
	}

	var txn *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing domain.Listing
		if err := tx.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.New(apperr.NotFound, "Listing not available")
			}
			return apperr.Wrap(apperr.Persistence, "Listing lookup failed", err)
		}
		if err := inventory.Decrement(tx, listing.ListingID, quantity); err != nil {
			return err
		}
		var err error
		txn, err = s.record(tx, &listing, buyerID, quantity, "direct_"+nonce(), "manual_"+nonce())
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Refund reverses a completed purchase: external reversal first, then the
// local flip + inventory restore in one DB transaction. If the gateway call
// fails, local state is untouched. Refunds are never retried automatically.
func (s *Service) Refund(ctx context.Context, transactionID, actorID uuid.UUID, reason string) (*RefundResult, error) {
	var txn domain.Transaction
	if err := s.DB.WithContext(ctx).Where("id = ?", transactionID).First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "Transaction not found")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Transaction lookup failed", err)
	}
	if txn.BuyerID != actorID {
		return nil, apperr.New(apperr.Forbidden, "You are not authorized to refund this transaction")
	}
	if txn.PaymentStatus != domain.PaymentCompleted {
		return nil, apperr.New(apperr.Conflict, "Only completed transactions can be refunded")
	}

	if reason == "" {
		reason = "Customer requested refund"
	}

	refund, err := s.Gateway.Refund(ctx, txn.GatewayPaymentID, txn.AmountMinorUnits, map[string]string{
		"reason":         reason,
		"transaction_id": txn.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional flip guards the race with a concurrent refund of the
		// same transaction.
		res := tx.Model(&domain.Transaction{}).
			Where("id = ? AND payment_status = ?", txn.ID, domain.PaymentCompleted).
			Updates(map[string]interface{}{
				"payment_status": domain.PaymentRefunded,
				"status":         domain.TxCancelled,
				"refund_id":      refund.ID,
				"refund_reason":  reason,
			})
		if res.Error != nil {
			return apperr.Wrap(apperr.Persistence, "Refund state update failed", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.Conflict, "Transaction already refunded")
		}
		return inventory.Increment(tx, txn.ListingID, txn.Quantity)
	})
	if err != nil {
		// The gateway reversal went through but the local flip did not:
		// this must reach an operator, not vanish into a 500.
		log.Error().Err(err).Str("refund_id", refund.ID).Str("transaction_id", txn.ID.String()).
			Msg("Refund captured at gateway but local state update failed")
		return nil, err
	}

	return &RefundResult{RefundID: refund.ID, TransactionID: txn.ID}, nil
}

// PaymentStatus lists the gateway's payments for an order (polling and
// reconciliation).
func (s *Service) PaymentStatus(ctx context.Context, orderID string) ([]gateway.Payment, error) {
	return s.Gateway.FetchPayments(ctx, orderID)
}

// record writes the completed transaction with price snapshot and
// certificate. Called with inventory already decremented, inside the same DB
// transaction.
func (s *Service) record(tx *gorm.DB, listing *domain.Listing, buyerID uuid.UUID, quantity int, orderID, paymentID string) (*domain.Transaction, error) {
	cert, err := s.Issuer.Issue(tx)
	if err != nil {
		return nil, err
	}

	total := money.Total(listing.Price, quantity)
	id := uuid.New()
	txn := &domain.Transaction{
		ID:                id,
		TransactionID:     fmt.Sprintf("TXN-%d-%s", s.Issuer.Year(), nonce()[:8]),
		BuyerID:           buyerID,
		ProducerID:        listing.ProducerID,
		ListingID:         listing.ListingID,
		Quantity:          quantity,
		Unit:              listing.Unit,
		PricePerUnit:      listing.Price,
		TotalAmount:       total,
		AmountMinorUnits:  money.ToMinorUnits(total),
		Currency:          listing.Currency,
		PaymentStatus:     domain.PaymentCompleted,
		Status:            domain.TxCompleted,
		GatewayOrderID:    orderID,
		GatewayPaymentID:  paymentID,
		CertificateNumber: &cert,
		CertificatePath:   fmt.Sprintf("/certificates/%s.pdf", id),
	}
	if err := tx.Create(txn).Error; err != nil {
		// Store write failed after the payment was captured: the most
		// dangerous failure class, kept distinct for reconciliation.
		return nil, apperr.Wrap(apperr.Persistence, "Recording transaction failed after payment capture", err)
	}
	return txn, nil
}

func nonce() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

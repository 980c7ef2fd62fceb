// Package transactions exposes read models over settled purchases: a buyer's
// purchase history and a producer's sales. Writes happen only in the
// settlement engine.
package transactions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
)

type Service struct {
	DB *gorm.DB
}

// SalesSummary aggregates a producer's completed sales.
type SalesSummary struct {
	TotalSold    int64           `json:"total_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Count        int64           `json:"count"`
}

// ByBuyer lists a buyer's transactions, newest first.
func (s *Service) ByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").Find(&txns).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch transactions", err)
	}
	return txns, nil
}

// ByProducer lists sales against a producer's listings, newest first.
func (s *Service) ByProducer(ctx context.Context, producerID uuid.UUID) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("producer_id = ?", producerID).
		Order("created_at DESC").Find(&txns).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to fetch transactions", err)
	}
	return txns, nil
}

// Get returns one transaction visible to its buyer or producer.
func (s *Service) Get(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := s.DB.WithContext(ctx).Where("id = ?", transactionID).First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.New(apperr.NotFound, "Transaction not found")
		}
		return nil, apperr.Wrap(apperr.Persistence, "Transaction lookup failed", err)
	}
	if txn.BuyerID != actorID && txn.ProducerID != actorID {
		return nil, apperr.New(apperr.Forbidden, "You are not authorized to view this transaction")
	}
	return &txn, nil
}

// Sales aggregates completed (non-refunded) sales for a producer. Refunded
// rows are excluded so revenue matches money actually kept.
func (s *Service) Sales(ctx context.Context, producerID uuid.UUID) (*SalesSummary, error) {
	type row struct {
		TotalSold    int64
		TotalRevenue decimal.Decimal
		Count        int64
	}
	var r row
	if err := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where("producer_id = ? AND payment_status = ?", producerID, domain.PaymentCompleted).
		Select("COALESCE(SUM(quantity), 0) AS total_sold, COALESCE(SUM(total_amount), 0) AS total_revenue, COUNT(*) AS count").
		Scan(&r).Error; err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "Failed to aggregate sales", err)
	}
	return &SalesSummary{TotalSold: r.TotalSold, TotalRevenue: r.TotalRevenue, Count: r.Count}, nil
}

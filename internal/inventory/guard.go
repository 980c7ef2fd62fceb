// Package inventory wraps the single atomic primitive the store exposes for
// listing quantities: decrement-if-enough. Application code never does a
// read-then-write on available_quantity; the conditional UPDATE is the
// linearization point, so the guarantee holds across horizontally scaled
// processes.
package inventory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
)

// Decrement reduces available_quantity by qty if and only if at least qty is
// available, deactivating the listing when it hits zero. RowsAffected == 0
// means the stock check failed inside the database, not in our process.
func Decrement(tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return apperr.New(apperr.Validation, "Quantity must be a positive number")
	}
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ? AND available_quantity >= ?", listingID, qty).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"is_active":          gorm.Expr("available_quantity - ? > 0", qty),
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.Persistence, "Inventory decrement failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.InsufficientInventory, "Requested quantity exceeds available quantity")
	}
	return nil
}

// Increment restores qty to the listing (refund path) and re-activates it.
// No precondition beyond the listing existing: a refund can always put stock
// back.
func Increment(tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return apperr.New(apperr.Validation, "Quantity must be a positive number")
	}
	res := tx.Model(&domain.Listing{}).
		Where("listing_id = ?", listingID).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity + ?", qty),
			"is_active":          true,
		})
	if res.Error != nil {
		return apperr.Wrap(apperr.Persistence, "Inventory increment failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "Listing not found")
	}
	return nil
}

// Package certificates generates certificate numbers for completed
// purchases. Uniqueness is owned by the store's unique index on
// Transactions.certificate_number; the random draw only keeps collisions
// rare, it never guarantees anything.
package certificates

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
	"greenh2-backend/internal/pkg/apperr"
)

const maxAttempts = 5

// Issuer draws CERT-{year}-{0000} numbers. Now and RandInt are injectable for
// tests; zero values fall back to the real clock and crypto/rand.
type Issuer struct {
	Now     func() time.Time
	RandInt func(n int) int
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

func (i *Issuer) randInt(n int) int {
	if i.RandInt != nil {
		return i.RandInt(n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the process is in no state to sell
		// certificates; the caller turns this into a loud failure.
		return -1
	}
	return int(v.Int64())
}

// Year exposes the issuer's clock year (transaction references share it).
func (i *Issuer) Year() int {
	return i.now().Year()
}

// Issue returns a certificate number that is free at the time of the check,
// inside the caller's DB transaction. Retries a bounded number of draws and
// then fails loudly; it never overwrites an existing number. The unique index
// backstops the race between check and insert.
func (i *Issuer) Issue(tx *gorm.DB) (string, error) {
	year := i.now().Year()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		n := i.randInt(10000)
		if n < 0 {
			return "", apperr.New(apperr.Persistence, "Certificate number generation failed")
		}
		candidate := fmt.Sprintf("CERT-%d-%04d", year, n)

		var count int64
		if err := tx.Model(&domain.Transaction{}).
			Where("certificate_number = ?", candidate).
			Count(&count).Error; err != nil {
			return "", apperr.Wrap(apperr.Persistence, "Certificate number lookup failed", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", apperr.New(apperr.Conflict, "Could not allocate a unique certificate number")
}

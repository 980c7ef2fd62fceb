package certificates

import (
	"fmt"
	"regexp"
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

var certRe = regexp.MustCompile(`^CERT-\d{4}-\d{4}$`)

func setupIssuerTest(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Transaction{}))
	return db
}

func seedTransactionWithCert(t *testing.T, db *gorm.DB, cert string) {
	txn := &domain.Transaction{
		TransactionID:     "TXN-" + uuid.New().String(),
		BuyerID:           uuid.New(),
		ProducerID:        uuid.New(),
		ListingID:         uuid.New(),
		Quantity:          1,
		PricePerUnit:      decimal.NewFromInt(100),
		TotalAmount:       decimal.NewFromInt(100),
		AmountMinorUnits:  10000,
		PaymentStatus:     domain.PaymentCompleted,
		Status:            domain.TxCompleted,
		GatewayOrderID:    "order_" + uuid.New().String(),
		GatewayPaymentID:  "pay_" + uuid.New().String(),
		CertificateNumber: &cert,
	}
	require.NoError(t, db.Create(txn).Error)
}

func TestIssue_Format(t *testing.T) {
	db := setupIssuerTest(t)

	issuer := &Issuer{Now: func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }}
	cert, err := issuer.Issue(db)
	require.NoError(t, err)
	assert.Regexp(t, certRe, cert)
	assert.Contains(t, cert, "CERT-2026-")
}

func TestIssue_RetriesPastCollision(t *testing.T) {
	db := setupIssuerTest(t)
	seedTransactionWithCert(t, db, fmt.Sprintf("CERT-%d-0007", time.Now().Year()))

	draws := []int{7, 7, 42} // two collisions, then a free number
	i := 0
	issuer := &Issuer{RandInt: func(n int) int {
		v := draws[i%len(draws)]
		i++
		return v
	}}

	cert, err := issuer.Issue(db)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("CERT-%d-0042", time.Now().Year()), cert)
	assert.Equal(t, 3, i)
}

func TestIssue_FailsLoudlyAfterBoundedAttempts(t *testing.T) {
	db := setupIssuerTest(t)
	seedTransactionWithCert(t, db, fmt.Sprintf("CERT-%d-0001", time.Now().Year()))

	issuer := &Issuer{RandInt: func(n int) int { return 1 }}
	_, err := issuer.Issue(db)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

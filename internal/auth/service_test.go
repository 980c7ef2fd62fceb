package auth

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"greenh2-backend/internal/domain"
)

func setupAuthTest(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func registerValid(t *testing.T, db *gorm.DB, email, role string) *domain.User {
	u, err := RegisterUser(db, RegisterInput{
		Fullname: "Asha Verma",
		Email:    email,
		Password: "Str0ngPass!word",
		Role:     role,
		Company:  "HyGen Industries",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterUser_HashesPassword(t *testing.T) {
	db := setupAuthTest(t)
	u := registerValid(t, db, "asha@hygen.example", domain.RoleProducer)

	assert.NotEqual(t, "Str0ngPass!word", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)
	assert.Equal(t, domain.RoleProducer, u.Role)
}

func TestRegisterUser_RejectsUnknownRole(t *testing.T) {
	db := setupAuthTest(t)
	_, err := RegisterUser(db, RegisterInput{
		Fullname: "Asha Verma",
		Email:    "asha@hygen.example",
		Password: "Str0ngPass!word",
		Role:     "admin",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	db := setupAuthTest(t)
	registerValid(t, db, "asha@hygen.example", domain.RoleProducer)

	_, err := RegisterUser(db, RegisterInput{
		Fullname: "Other Person",
		Email:    "asha@hygen.example",
		Password: "An0therPass!word",
		Role:     domain.RoleBuyer,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginUser(t *testing.T) {
	db := setupAuthTest(t)
	registerValid(t, db, "asha@hygen.example", domain.RoleBuyer)

	u, err := LoginUser(db, LoginInput{Email: "asha@hygen.example", Password: "Str0ngPass!word"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBuyer, u.Role)

	_, err = LoginUser(db, LoginInput{Email: "asha@hygen.example", Password: "wrong"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	_, err = LoginUser(db, LoginInput{Email: "nobody@hygen.example", Password: "Str0ngPass!word"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = LoginUser(db, LoginInput{})
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)
}

func TestVerifyUser(t *testing.T) {
	shape, err := VerifyUser(map[string]interface{}{
		"user_id":  "8e5ec45e-4c3f-4a5e-9ad2-2f9d3ffb1d01",
		"fullname": "Asha Verma",
		"email":    "asha@hygen.example",
		"role":     domain.RoleProducer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleProducer, shape.Role)

	_, err = VerifyUser(nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = VerifyUser(map[string]interface{}{"role": "buyer"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

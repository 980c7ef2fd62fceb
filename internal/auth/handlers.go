package auth

import (
	"context"

	"greenh2-backend/internal/middleware"
	"greenh2-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	DB         *gorm.DB
	UserFinder UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// Register POST /api/v1/auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	var input RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if h.DB == nil {
		return response.Error(c, "Database not available", fiber.StatusInternalServerError, nil)
	}
	u, err := RegisterUser(h.DB, input)
	if err != nil {
		code := fiber.StatusBadRequest
		if err == ErrEmailTaken {
			code = fiber.StatusConflict
		}
		return response.Error(c, err.Error(), code, nil)
	}
	return response.SuccessCreated(c, "User registered", fiber.Map{
		"user_id":  u.UserID,
		"fullname": u.Fullname,
		"email":    u.Email,
		"role":     u.Role,
	}, nil)
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if h.UserFinder == nil {
		return response.Error(c, "Database not available", fiber.StatusInternalServerError, nil)
	}
	u, err := h.UserFinder.FindByEmailAndPassword(input.Email, input.Password)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	})
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sid
	c.Cookie(&cookie)

	return response.Success(c, "Logged in", fiber.Map{
		"user_id":  u.UserID,
		"fullname": u.Fullname,
		"email":    u.Email,
		"role":     u.Role,
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	shape, err := VerifyUser(middleware.GetUser(c))
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}
	return response.Success(c, "Authenticated", shape, nil)
}

// Logout DELETE /api/v1/auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sid := middleware.GetSessionID(c)
	if sid != "" && h.Rdb != nil {
		h.Rdb.Del(context.Background(), middleware.SessionRedisPrefix+sid)
	}
	middleware.DestroySession(c)
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
	return response.Success(c, "Logged out", nil, nil)
}

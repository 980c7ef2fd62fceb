package middleware

import (
	"greenh2-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// Actor is the resolved identity the workflow trusts. Authentication itself
// happens in the session middleware + auth module; handlers only see this.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// RequireAuth ensures a user is in the session. Returns 401 with the standard
// error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// RequireRole ensures the session user has one of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return response.Error(c, "Access denied", fiber.StatusForbidden, nil)
	}
}

// GetUser returns the raw session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetActor resolves the session user into an Actor. Returns nil when the
// session is missing or malformed.
func GetActor(c *fiber.Ctx) *Actor {
	u := c.Locals(userLocal)
	if u == nil {
		return nil
	}
	m, ok := u.(map[string]interface{})
	if !ok {
		return nil
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}
	role, _ := m["role"].(string)
	return &Actor{UserID: id, Role: role}
}

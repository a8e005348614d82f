package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/services"
)

const (
	userKey   = "user"
	callerKey = "caller"
)

// Protect requires a valid bearer token and loads the caller
func Protect(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "not authorized, token missing")
		}

		user, err := auth.Authenticate(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			return err
		}

		c.Locals(userKey, user)
		c.Locals(callerKey, services.Caller{ID: user.ID, Role: user.Role})
		return c.Next()
	}
}

// Authorize lets through only the given roles. It must run after Protect.
func Authorize(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := c.Locals(callerKey).(services.Caller)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "not authorized")
		}
		for _, role := range roles {
			if caller.Role == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "role "+string(caller.Role)+" is not allowed to access this route")
	}
}

// CurrentCaller returns the caller stored by Protect, or the zero value
func CurrentCaller(c *fiber.Ctx) services.Caller {
	caller, _ := c.Locals(callerKey).(services.Caller)
	return caller
}

// CurrentUser returns the user loaded by Protect
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string
	Storage string
	store   Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, storage string, store Pinger) *HealthHandler {
	return &HealthHandler{
		Version: version,
		Storage: storage,
		store:   store,
	}
}

// Root describes the API
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "🚗 Welcome to the Yoon-Bi API",
		"version": h.Version,
		"endpoints": fiber.Map{
			"auth":         "/api/auth",
			"trajets":      "/api/trajets",
			"reservations": "/api/reservations",
			"paiements":    "/api/paiements",
			"evaluations":  "/api/evaluations",
			"signalements": "/api/signalements",
			"admin":        "/api/admin",
		},
	})
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code := "healthy", fiber.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status, code = "unhealthy", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"service": "Yoon-Bi Backend",
		"version": h.Version,
		"storage": h.Storage,
	})
}

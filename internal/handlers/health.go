package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alilals/ziraat-backend/internal/services"
)

// Checker reports whether one dependency is reachable
type Checker func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	Storage  string
	Provider string

	sessions *services.BrowseSessionManager
	checks   map[string]Checker
	timeout  time.Duration
}

// NewHealthHandler creates a new health handler. checks maps a dependency
// name (database, redis) to its probe.
func NewHealthHandler(version, storage, provider string, sessions *services.BrowseSessionManager, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		Storage:  storage,
		Provider: provider,
		sessions: sessions,
		checks:   checks,
		timeout:  3 * time.Second,
	}
}

// Info describes the service
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":      "ZIRAAT Admin Backend",
		"version":      h.Version,
		"storage":      h.Storage,
		"sms_provider": h.Provider,
		"endpoints": fiber.Map{
			"health":   "/health",
			"otp":      []string{"/api/send-otp", "/api/verify-otp"},
			"sms":      []string{"/api/send-sms", "/api/send-template", "/api/get-templates"},
			"bookings": "/api/bookings/:collection",
			"admin":    "/admin/bookings/:collection",
			"browse":   "/admin/browse/:collection/pages/:page",
			"growers":  "/admin/growers",
		},
	})
}

// Check probes every dependency; any failure answers 503
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status := "healthy"
	statusCode := fiber.StatusOK
	deps := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "error: " + err.Error()
			status = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "connected"
	}

	resp := fiber.Map{
		"status":   status,
		"version":  h.Version,
		"services": deps,
	}
	if h.sessions != nil {
		resp["browse_sessions"] = h.sessions.Stats()
	}
	return c.Status(statusCode).JSON(resp)
}

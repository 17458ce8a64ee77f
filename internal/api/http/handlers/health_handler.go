package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Checker is a dependency probed by readiness.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name implements Checker.
func (f CheckFunc) Name() string { return f.Label }

// Ping implements Checker.
func (f CheckFunc) Ping(ctx context.Context) error { return f.Fn(ctx) }

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checkers    []Checker
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, checkers ...Checker) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, checkers: checkers}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true
	for _, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			depStatus[checker.Name()] = err.Error()
			ready = false
		} else {
			depStatus[checker.Name()] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

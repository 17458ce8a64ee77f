package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/request-desk/internal/api/http/handlers"
	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Categories     *handlers.CategoriesHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)

	protected.Get("/categories", cfg.Categories.List)
	protected.Get("/categories/:category", cfg.Categories.Get)

	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/stats", cfg.Tickets.Stats)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	protected.Post("/tickets/:id/assign", cfg.Tickets.Assign)
	protected.Post("/tickets/:id/comments", cfg.Tickets.AddComment)

	protected.Get("/analysts", auth.RequireRole(domain.RoleAnalyst, domain.RoleAdmin), cfg.Users.ListAnalysts)
	protected.Get("/users/:id", cfg.Users.Get)

	adminOnly := auth.RequireRole(domain.RoleAdmin)
	protected.Get("/users", adminOnly, cfg.Users.List)
	protected.Post("/users", adminOnly, cfg.Users.Create)
	protected.Put("/users/:id", adminOnly, cfg.Users.Update)
	protected.Delete("/users/:id", adminOnly, cfg.Users.Delete)
}

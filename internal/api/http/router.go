package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics serves the Prometheus exposition format; nil leaves /metrics unmounted.
	Metrics nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api")
	api.Post("/join", cfg.Auth.Join)
	api.Post("/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/profile", cfg.Auth.Profile)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	admin := protected.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/pending-admissions", cfg.Admin.ListPending)
	admin.Post("/approve", cfg.Admin.Approve)
	admin.Post("/reject", cfg.Admin.Reject)
	admin.Post("/assign", cfg.Admin.Assign)
	admin.Get("/agents", cfg.Admin.ListAgents)
	admin.Get("/stats", cfg.Admin.Stats)

	protected.Post("/tickets", auth.RequireRole(domain.RoleEmployee), cfg.Tickets.CreateTicket)
	protected.Get("/tickets", cfg.Tickets.ListTickets)

	ticket := protected.Group("/ticket/:id")
	ticket.Get("", cfg.Tickets.GetTicket)
	ticket.Post("/comments", cfg.Tickets.PostComment)
	ticket.Get("/comments", cfg.Tickets.ListComments)
	ticket.Put("/resolve", cfg.Tickets.ResolveTicket)
	ticket.Put("/close", cfg.Tickets.CloseTicket)
}

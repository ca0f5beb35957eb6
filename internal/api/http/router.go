package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    RateLimiter
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes. Probes are exempt from rate limiting.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", func(c *fiber.Ctx) error {
		return c.JSON(cfg.Metrics.Snapshot())
	})

	api := app.Group("", RateLimit(cfg.RateLimiter, logger))

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id/timeline", cfg.Tickets.DeleteTimelineEntry)
	tickets.Post("/:id/transfer", cfg.Tickets.Escalate)
	tickets.Post("/:id/admin-transfer", cfg.Tickets.AdminTransfer)
	tickets.Post("/:id/feedback", cfg.Tickets.SubmitFeedback)

	reports := protected.Group("/reports", auth.RequireVerified(), auth.RequireRole(domain.RoleAdmin))
	reports.Get("/sla", cfg.Reports.SLA)

	users := protected.Group("/users", auth.RequireVerified())
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Patch("/:id/role", cfg.Users.UpdateRole)
	users.Patch("/:id/status", cfg.Users.UpdateStatus)
	users.Patch("/:id/verify", cfg.Users.Verify)
}

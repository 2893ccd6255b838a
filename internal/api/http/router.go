package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Photos         *handlers.PhotosHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// UploadsDir is served under /uploads when photos are kept on local disk.
	UploadsDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	if cfg.UploadsDir != "" {
		app.Static("/uploads", cfg.UploadsDir)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Auth.Register)

	anyCaller := auth.RequireRole(domain.RoleAdmin, domain.RolePorter, domain.RoleService)
	staff := auth.RequireStaff()

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	complaints := api.Group("/complaints")
	complaints.Post("/submit", anyCaller, cfg.Complaints.Submit)
	complaints.Get("/", anyCaller, cfg.Complaints.List)
	complaints.Get("/:id", anyCaller, cfg.Complaints.Get)
	complaints.Patch("/:id/status", staff, cfg.Complaints.UpdateStatus)
	complaints.Patch("/:id/assign", staff, cfg.Complaints.Assign)
	complaints.Get("/:id/assignments", staff, cfg.Complaints.Assignments)
	complaints.Post("/:id/photos", anyCaller, cfg.Photos.Upload)
	complaints.Get("/:id/photos", anyCaller, cfg.Photos.List)

	api.Get("/realtime/stats", auth.RequireRole(domain.RoleAdmin), cfg.Realtime.Stats)

	app.Get("/ws", cfg.AuthMiddleware.HandleQuery, staff, cfg.Realtime.Upgrade, cfg.Realtime.Serve())
}

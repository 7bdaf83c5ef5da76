package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kelasio/kelas-admin-api/internal/config"
	"github.com/kelasio/kelas-admin-api/internal/handler"
	"github.com/kelasio/kelas-admin-api/internal/middleware"
	"github.com/kelasio/kelas-admin-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QueueHandler      *handler.GradingQueueHandler
	SessionHandler    *handler.GradingSessionHandler
	BatchHandler      *handler.BatchHandler
	SuggestionHandler *handler.SuggestionHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// The whole grading console is restricted to grading staff.
	grading := app.Group("/api/admin/grading", jwtMiddleware, middleware.RequireRole("admin", "grader"))

	// Batch writes and CSV exports are the expensive endpoints; throttle them
	// per user so one grader cannot monopolise the gateway.
	grading.Use("/batch", middleware.RateLimit("grading-batch", 10, time.Minute))
	grading.Use("/queue/export", middleware.RateLimit("grading-export", 5, time.Minute))

	if deps.QueueHandler != nil {
		deps.QueueHandler.Register(grading)
	}
	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(grading)
	}
	if deps.BatchHandler != nil {
		deps.BatchHandler.Register(grading)
	}
	if deps.SuggestionHandler != nil {
		deps.SuggestionHandler.Register(grading)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(grading)
	}
}

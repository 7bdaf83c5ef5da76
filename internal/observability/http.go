package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus scrape endpoint through the fiber app,
// registering the request and grading collectors on first use.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	registerGradingMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}

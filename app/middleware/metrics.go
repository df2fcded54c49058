package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/app/metrics"
	"github.com/gofiber/fiber/v3"
)

// Metrics records every request except scrapes of the metrics endpoint itself.
// Unmatched paths share one route label so 404 probing cannot grow the series set.
func Metrics(scrapePath string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if scrapePath != "" && c.Path() == scrapePath {
			return c.Next()
		}

		start := time.Now()
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		method := c.Method()
		route := routeLabel(c)

		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

func routeLabel(c fiber.Ctx) string {
	r := c.Route()
	if r == nil || r.Path == "" || r.Path == "/" && c.Path() != "/" || strings.Contains(r.Path, "*") {
		return "unmatched"
	}
	return r.Path
}

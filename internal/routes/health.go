package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthProbeTimeout = 2 * time.Second

type pinger func(context.Context) error

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	var db, cache pinger
	if d.DB != nil {
		db = d.DB.Ping
	}
	if d.Cache != nil {
		cache = func(ctx context.Context) error { return d.Cache.Ping(ctx).Err() }
	}
	app.Get("/healthz", healthz(db, cache, d.SweepDone, d.Logger))
}

// healthz reports dependency reachability and whether the startup credential
// sweep has completed; the service is not ready for login traffic before it
// has. A failed probe surfaces as a fixed "unavailable" — driver error text
// stays in the server logs, never in the response body.
func healthz(db, cache pinger, sweepDone bool, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
		defer cancel()

		probe := func(name string, p pinger) string {
			if p == nil {
				return "disabled"
			}
			if err := p(ctx); err != nil {
				logger.Warn("health probe failed",
					slog.String("dependency", name), slog.Any("error", err))
				return "unavailable"
			}
			return "ok"
		}

		pgStatus := probe("postgres", db)
		redisStatus := probe("redis", cache)
		sweepStatus := "complete"
		if !sweepDone {
			sweepStatus = "pending"
		}

		status := http.StatusOK
		if pgStatus == "unavailable" || redisStatus == "unavailable" || !sweepDone {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status": fiber.Map{
				"postgres":         pgStatus,
				"redis":            redisStatus,
				"credential_sweep": sweepStatus,
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// Ping answers a trivial liveness probe with the request id for correlation.
func Ping(c *fiber.Ctx) error {
	reqID, _ := c.Locals("X-Request-ID").(string)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":     "ok",
		"request_id": reqID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

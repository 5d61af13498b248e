package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rosterhq/rosterd/internal/account"
	"github.com/rosterhq/rosterd/internal/middleware"
)

// RegisterAccountRoutes wires registration, login and user listing. The
// register endpoint honours an optional Idempotency-Key header when Redis is
// available, so client retries replay the original response instead of
// hitting the uniqueness conflict.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, d Deps) {
	group := r.Group("/accounts")
	if d.Cache != nil {
		group.Post("/register", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger), h.Register)
	} else {
		group.Post("/register", h.Register)
	}
	group.Post("/login", h.Login)

	r.Get("/users", h.List)
}

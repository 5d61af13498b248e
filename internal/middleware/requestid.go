package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a correlation id to every request and echoes it in the
// response. An inbound X-Request-ID is honoured only when it parses as a
// UUID; anything else is replaced with a fresh one so logs never carry
// caller-chosen junk.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(requestIDHeader, id)
		c.Locals(requestIDHeader, id)

		return c.Next()
	}
}

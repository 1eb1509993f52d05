package middleware

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger logs one JSON line per request to w (stdout when w is nil).
// When the route carries a :tenantID parameter the line includes it, so
// per-tenant request streams can be filtered out of the combined log.
func Logger(w io.Writer) fiber.Handler {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		entry := map[string]any{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency":    float64(time.Since(start).Milliseconds()),
		}
		if tenantID := c.Params("tenantID"); tenantID != "" {
			entry["tenant_id"] = tenantID
		}
		_ = enc.Encode(entry)

		return err
	}
}

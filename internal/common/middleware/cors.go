package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// CORS allows the given comma-separated origins; "*" allows any.
func CORS(origins string) fiber.Handler {
	allow := []string{"*"}
	if o := strings.TrimSpace(origins); o != "" && o != "*" {
		allow = allow[:0]
		for _, s := range strings.Split(o, ",") {
			if s = strings.TrimSpace(s); s != "" {
				allow = append(allow, s)
			}
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:  allow,
		AllowHeaders:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders: []string{fiber.HeaderContentDisposition, fiber.HeaderXRequestID},
	})
}

// RequestID tags every response with an X-Request-ID header.
func RequestID() fiber.Handler {
	return requestid.New()
}

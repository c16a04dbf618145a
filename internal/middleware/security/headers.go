package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	csp := strings.Join([]string{
		"default-src 'self'",
		"img-src 'self' data: https:",
		"connect-src " + connectSrc(cfg.AllowedOrigins),
		"frame-ancestors 'none'",
		"base-uri 'self'",
	}, "; ")

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", csp)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}

// connectSrc allows the API origins plus their websocket equivalents.
func connectSrc(origins []string) string {
	sources := []string{"'self'"}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		sources = append(sources, origin)
		switch {
		case strings.HasPrefix(origin, "https://"):
			sources = append(sources, "wss://"+strings.TrimPrefix(origin, "https://"))
		case strings.HasPrefix(origin, "http://"):
			sources = append(sources, "ws://"+strings.TrimPrefix(origin, "http://"))
		}
	}
	return strings.Join(sources, " ")
}

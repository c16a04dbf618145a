// Package api assembles the Fiber application: middleware, routes and
// health endpoints.
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/culture-compass/backend/internal/api/handlers"
	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/internal/middleware/ratelimit"
	"github.com/culture-compass/backend/internal/middleware/security"
	"github.com/culture-compass/backend/internal/middleware/validation"
	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/pkg/logger"
)

type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BodyLimit      int
	AllowedOrigins []string
	Development    bool

	RateLimitEnabled     bool
	MaxRequestsPerMinute int

	// RequestLog enables Fiber's per-request access log.
	RequestLog bool
}

type Deps struct {
	Store  storage.Store
	Engine handlers.Engine
	Search handlers.Searcher
	// ReadyChecks run on /api/ready; any failure reports 503.
	ReadyChecks map[string]func(context.Context) error
}

type Server struct {
	App     *fiber.App
	limiter *ratelimit.RateLimiter
}

func New(opts Options, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		BodyLimit:             opts.BodyLimit,
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	s := &Server{App: app}

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins(opts.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, PATCH, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: opts.AllowedOrigins,
		IsDevelopment:  opts.Development,
	}))

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api")
	if opts.RateLimitEnabled {
		s.limiter = ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: opts.MaxRequestsPerMinute,
			Logger:               logger.GetLogger(),
		})
		api.Use(s.limiter.Middleware())
	}
	api.Use(validation.Middleware(validation.Config{Logger: logger.GetLogger()}))

	registerRoutes(api, deps)

	return s
}

func registerRoutes(api fiber.Router, deps Deps) {
	users := handlers.NewUserHandler(deps.Store)
	profiles := handlers.NewProfileHandler(deps.Store)
	questionnaire := handlers.NewQuestionnaireHandler(deps.Store, deps.Engine)
	insights := handlers.NewInsightHandler(deps.Store, deps.Engine)
	recommendations := handlers.NewRecommendationHandler(deps.Store, deps.Engine)
	search := handlers.NewSearchHandler(deps.Search)
	ws := handlers.NewWebSocketHandler(deps.Engine)

	api.Post("/users", users.CreateUser)
	api.Get("/users/:email", users.GetUserByEmail)

	api.Post("/cultural-profiles", profiles.CreateProfile)
	api.Get("/cultural-profiles/user/:userId", profiles.GetProfileByUser)
	api.Patch("/cultural-profiles/:id", profiles.UpdateProfile)

	api.Post("/questionnaire/submit", questionnaire.Submit)
	api.Get("/questionnaire/:profileId/responses", questionnaire.ListResponses)

	api.Get("/cultural-insights/:profileId", insights.ListInsights)
	api.Post("/cultural-insights/generate", insights.GenerateStory)

	api.Post("/recommendations/generate", recommendations.Generate)
	api.Get("/recommendations/:profileId", recommendations.ListRecommendations)
	api.Patch("/recommendations/:id/bookmark", recommendations.Bookmark)

	api.Get("/qloo/search", search.Search)

	api.Get("/ws/story/:profileId", handlers.RequireUpgrade, websocket.New(ws.HandleStory))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		failed := fiber.Map{}
		for name, check := range deps.ReadyChecks {
			if err := check(c.UserContext()); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"checks": failed,
			})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})
}

// Shutdown stops the rate limiter and drains open connections.
func (s *Server) Shutdown() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.App.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func allowOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ", ")
}

// Package devserver is an in-memory forum backend speaking the same HTTP
// contract as the real one. It backs local runs and end-to-end tests.
package devserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"snmvm/internal/models"
	"snmvm/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures a dev server.
type Config struct {
	// Secret signs and verifies bearer tokens (HS256).
	Secret string
	// Prefix is the route group the API is mounted under.
	Prefix string
}

// Server holds the fiber app and its in-memory store.
type Server struct {
	app            *fiber.App
	store          *Store
	secret         []byte
	registry       *prometheus.Registry
	promMiddleware *fiberprometheus.FiberPrometheus
}

// New builds a dev server with an empty store.
func New(cfg Config) *Server {
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		store:          NewStore(),
		secret:         []byte(cfg.Secret),
		registry:       registry,
		promMiddleware: fiberprometheus.NewWithRegistry(registry, "snmvm-devserver", "snmvm", "devserver", nil),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "snmvm-devserver",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app, cfg.Prefix)
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Prometheus Metrics
	app.Use(s.promMiddleware.Middleware)

	app.Use(requestLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App, prefix string) {
	s.promMiddleware.RegisterAt(app, "/metrics")

	api := app.Group(prefix)

	posts := api.Group("/posts", s.AuthOptional)
	posts.Get("/", s.GetPosts)
	posts.Get("/:id", s.GetPost)

	comments := api.Group("/comments")
	comments.Get("/:postId", s.AuthOptional, s.GetComments)
	comments.Post("/", s.AuthRequired, s.CreateComment)
	comments.Delete("/:id", s.AuthRequired, s.DeleteComment)

	reactions := api.Group("/reactions", s.AuthRequired)
	reactions.Post("/", s.CreateReaction)
	reactions.Delete("/:id", s.DeleteReaction)
}

// App exposes the fiber app, mostly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Store exposes the in-memory state.
func (s *Server) Store() *Store {
	return s.store
}

// Registry is the prometheus registry the HTTP metrics are recorded in.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// IssueToken signs a token for userID with the server secret.
func (s *Server) IssueToken(userID, email, name string, ttl time.Duration) (string, error) {
	s.store.EnsureUser(userID, email, name)
	return IssueToken(string(s.secret), userID, email, name, ttl)
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		rid, _ := c.Locals("requestid").(string)
		observability.GlobalLogger.Log(c.UserContext(), level, "dev server request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", rid),
			slog.String("correlation_id", c.Get("X-Correlation-ID")),
		)
		return err
	}
}

func statusOf(err error) int {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.Status != 0 {
			return appErr.Status
		}
		if appErr.Code == models.CodeValidation {
			return fiber.StatusBadRequest
		}
		return fiber.StatusInternalServerError
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func errorHandler(c *fiber.Ctx, err error) error {
	return respondWithError(c, statusOf(err), err)
}

// respondWithError writes the backend's JSON error body.
func respondWithError(c *fiber.Ctx, status int, err error) error {
	var response models.ErrorResponse

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		response = models.ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = models.ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

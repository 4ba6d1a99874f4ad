// Package server exposes grading and stored evaluations over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// DefaultBodyLimit caps request bodies.
const DefaultBodyLimit = 16 << 20

// Grader is the grading surface the API needs. *grading.Service satisfies it.
type Grader interface {
	Evaluate(ctx context.Context, req domain.EvaluationRequest) (*domain.EvaluationResult, error)
	MapAnswers(ctx context.Context, questionPaper, answerText string, hints domain.AlignmentHints) ([]domain.AlignedQA, error)
}

// Server holds the fiber app and its dependencies.
type Server struct {
	app       *fiber.App
	grader    Grader
	store     store.Store
	logger    *slog.Logger
	bodyLimit int
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger replaces the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithBodyLimit sets the maximum request body size in bytes.
func WithBodyLimit(n int) Option {
	return func(s *Server) { s.bodyLimit = n }
}

// WithClock replaces the clock used by the health endpoint.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the API. Records are read from st.
func New(grader Grader, st store.Store, opts ...Option) *Server {
	s := &Server{
		grader:    grader,
		store:     st,
		logger:    slog.Default().With("component", "server"),
		bodyLimit: DefaultBodyLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "examiner",
		BodyLimit:             s.bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-User-ID",
	}))
	s.app.Use(s.logRequest)
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.health)
	api.Post("/evaluate", s.evaluate)
	api.Post("/map", s.mapAnswers)
	api.Get("/evaluations", s.listEvaluations)
	api.Get("/evaluations/:id", s.getEvaluation)
	api.Delete("/evaluations/:id", s.deleteEvaluation)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": msg})
}

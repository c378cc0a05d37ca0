// Package api serves the agent over HTTP: JSON-RPC on POST /, server-sent
// events on POST /message/stream, and the public descriptor routes.
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"a2a-chat-agent/internal/a2a"
	"a2a-chat-agent/internal/auth"
	"a2a-chat-agent/internal/config"
	"a2a-chat-agent/internal/metrics"
	"a2a-chat-agent/internal/storage"
)

// Dispatcher executes JSON-RPC calls.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *a2a.Request) *a2a.Response
	DispatchStream(ctx context.Context, req *a2a.Request, emitter a2a.Emitter) error
}

// Authenticator validates bearer tokens.
type Authenticator interface {
	Validate(ctx context.Context, token string) (auth.Caller, error)
}

// CallLog lists journaled calls, newest first.
type CallLog interface {
	Recent(ctx context.Context, n int) ([]storage.Entry, error)
}

// Options carries the optional collaborators of the server.
type Options struct {
	// Auth enables bearer authentication of the JSON-RPC routes when set.
	Auth Authenticator
	// Metrics enables GET /metrics when set.
	Metrics *metrics.Metrics
	// Calls enables GET /calls when set.
	Calls  CallLog
	Logger *slog.Logger
}

// Server holds the API server components.
type Server struct {
	app        *fiber.App
	config     *config.Config
	dispatcher Dispatcher
	card       a2a.AgentCard
	opts       Options
	logger     *slog.Logger
}

// New creates a new API server.
func New(cfg *config.Config, d Dispatcher, card a2a.AgentCard, opts Options) *Server {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Card.Name,
		DisableStartupMessage: true,
	})

	// Session ID middleware: extract from X-Session-ID header or generate a new one
	app.Use(func(c *fiber.Ctx) error {
		sid := c.Get("X-Session-ID")
		if sid == "" {
			sid = auth.GenerateSessionID()
		}
		c.Locals("session_id", sid)
		c.SetUserContext(auth.WithSessionID(c.UserContext(), sid))
		return c.Next()
	})

	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} | ${path} | sid=${locals:session_id}\n",
	}))

	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	server := &Server{
		app:        app,
		config:     cfg,
		dispatcher: d,
		card:       card,
		opts:       opts,
		logger:     l,
	}

	server.setupRoutes()

	return server
}

// App exposes the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server, waiting for in-flight streams
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) metricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(s.opts.Metrics.Handler())
}

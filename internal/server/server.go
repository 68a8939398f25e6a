// Package server assembles the fern HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/internal/handlers"
	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/middleware"
)

// Config holds HTTP server settings
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port" validate:"gte=0,lte=65535"`
	ServiceName     string `toml:"-"`
	BodyLimit       string `toml:"body_limit"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds" validate:"gte=0"`
}

// Addr is the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Handlers are the route groups mounted under /api/v1. ContainerID names
// the dependency container the handlers resolve their collaborators from.
type Handlers struct {
	ContainerID string
	Resolution  *handlers.ResolutionHandler
	Decision    *handlers.DecisionHandler
	Conflict    *handlers.ConflictHandler
}

// Server is the HTTP API. It satisfies startup.Dependency.
type Server struct {
	cfg     Config
	echo    *echo.Echo
	checker *health.Checker
	logger  ectologger.Logger
	errCh   chan error
}

// New builds the echo instance with middleware and routes
func New(cfg Config, h Handlers, checker *health.Checker, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	if cfg.ServiceName != "" {
		e.Use(otelecho.Middleware(cfg.ServiceName))
	}
	e.Use(echomw.Recover())
	if cfg.BodyLimit != "" {
		e.Use(echomw.BodyLimit(cfg.BodyLimit))
	}
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	e.GET("/health", checker.HealthHandler)
	e.GET("/health/live", checker.LivenessHandler)
	e.GET("/health/ready", checker.ReadinessHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if h.ContainerID != "" {
		api.Use(middleware.Container(h.ContainerID))
	}
	if h.Resolution != nil {
		h.Resolution.RegisterRoutes(api)
	}
	if h.Decision != nil {
		h.Decision.RegisterRoutes(api)
	}
	if h.Conflict != nil {
		h.Conflict.RegisterRoutes(api)
	}

	return &Server{cfg: cfg, echo: e, checker: checker, logger: logger, errCh: make(chan error, 1)}
}

// Echo exposes the router, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) GetName() string {
	return "http"
}

func (s *Server) DependsOn() []string {
	return []string{"database"}
}

// Start begins serving in the background and marks the service ready
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.echo.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.checker.SetReady(true)
	s.logger.WithContext(ctx).Infof("HTTP server listening on %s", s.cfg.Addr())
	return nil
}

// Errors reports a listener failure after Start
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Stop drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.checker.SetReady(false)

	timeout := time.Duration(s.cfg.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

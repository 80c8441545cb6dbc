// Package http provides the REST API for themesmithd.
//
// The server exposes pipeline submission, inspection, cancellation and
// cleanup under /api/v1, plus health and Prometheus metrics endpoints.
// Submission is asynchronous: the handler assigns a pipeline ID, starts
// the run in the background and returns 202 immediately. Clients poll
// GET /api/v1/pipelines/{id} for progress.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/report"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// Pipelines is the engine surface the API is built on.
type Pipelines interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*report.Report, error)
	Status(ctx context.Context, id string) (*state.Pipeline, error)
	List(ctx context.Context) ([]*state.Pipeline, error)
	Summary(ctx context.Context) (*state.Summary, error)
	Cancel(ctx context.Context, id string) error
	Cleanup(ctx context.Context, olderThanDays int) (int, error)
}

// Config holds HTTP server configuration.
type Config struct {
	// Host is the bind address.
	Host string
	// Port is the listen port.
	Port int
	// RateLimit is the sustained request rate allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64
	// RateBurst is the burst budget per client IP.
	RateBurst int
	// Version is reported by the health endpoint.
	Version string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      9190,
		RateLimit: 5,
		RateBurst: 10,
		Version:   "dev",
	}
}

// Server exposes the pipeline engine over HTTP.
type Server struct {
	echo    *echo.Echo
	engine  Pipelines
	logger  *logging.Logger
	config  *Config
	metrics *Metrics
}

// NewServer creates an HTTP server backed by the given engine.
func NewServer(engine Pipelines, logger *logging.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		engine:  engine,
		logger:  logger.Named("http"),
		config:  cfg,
		metrics: NewMetrics(logger),
	}

	s.setupMiddleware()
	s.registerRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(s.metrics.Middleware())

	if s.config.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				p := c.Path()
				return p == "/health" || p == "/metrics"
			},
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.config.RateLimit),
				Burst:     s.config.RateBurst,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	// Request logging.
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/pipelines", s.handleSubmit)
	v1.GET("/pipelines", s.handleList)
	v1.GET("/pipelines/:id", s.handleStatus)
	v1.POST("/pipelines/:id/cancel", s.handleCancel)
	v1.DELETE("/pipelines", s.handleCleanup)
}

// SubmitRequest is the payload for POST /api/v1/pipelines.
type SubmitRequest struct {
	// Request is the natural-language theme request document.
	Request string `json:"request"`
	// PipelineID optionally pins the pipeline ID. One is generated when
	// empty.
	PipelineID string `json:"pipeline_id,omitempty"`
}

// SubmitResponse acknowledges an accepted pipeline run.
type SubmitResponse struct {
	PipelineID string `json:"pipeline_id"`
	Status     string `json:"status"`
}

// ListResponse is the payload for GET /api/v1/pipelines.
type ListResponse struct {
	Summary   *state.Summary    `json:"summary"`
	Pipelines []*state.Pipeline `json:"pipelines"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	PipelineID string `json:"pipeline_id"`
	Status     string `json:"status"`
}

// CleanupResponse reports how many pipelines a cleanup removed.
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.config.Version,
	})
}

func (s *Server) handleSubmit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Request) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request field is required")
	}

	id := req.PipelineID
	if id == "" {
		id = pipeline.NewRunID()
	} else {
		if !pipeline.ValidRunID(id) {
			return echo.NewHTTPError(http.StatusBadRequest, "pipeline_id must match [a-zA-Z0-9_-]{1,64}")
		}
		if _, err := s.engine.Status(c.Request().Context(), id); err == nil {
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("pipeline %s already exists", id))
		}
	}

	// The run outlives the HTTP request. Detach from the request's
	// cancellation but keep its values for log correlation.
	runCtx := context.WithoutCancel(c.Request().Context())
	go func() {
		if _, err := s.engine.Run(runCtx, pipeline.RunRequest{
			Request:    req.Request,
			PipelineID: id,
		}); err != nil {
			s.logger.Error(runCtx, "pipeline run failed",
				zap.String("pipeline_id", id),
				zap.Error(err))
		}
	}()

	return c.JSON(http.StatusAccepted, SubmitResponse{
		PipelineID: id,
		Status:     string(state.StatusQueued),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	id := c.Param("id")
	p, err := s.engine.Status(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pipeline %s not found", id))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleList(c echo.Context) error {
	ctx := c.Request().Context()
	summary, err := s.engine.Summary(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	pipelines, err := s.engine.List(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ListResponse{
		Summary:   summary,
		Pipelines: pipelines,
	})
}

func (s *Server) handleCancel(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.Cancel(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, state.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pipeline %s not found", id))
		case errors.Is(err, pipeline.ErrFinished):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusAccepted, CancelResponse{
		PipelineID: id,
		Status:     "cancelling",
	})
}

func (s *Server) handleCleanup(c echo.Context) error {
	raw := c.QueryParam("older_than_days")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "older_than_days query parameter is required")
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "older_than_days must be a non-negative integer")
	}

	removed, err := s.engine.Cleanup(c.Request().Context(), days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, CleanupResponse{Removed: removed})
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "http server starting", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "http server shutting down")
	return s.echo.Shutdown(ctx)
}

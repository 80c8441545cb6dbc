package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/report"
	"github.com/fyrsmithlabs/themesmith/internal/sanitize"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// Pipelines is the engine surface the MCP tools call.
type Pipelines interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*report.Report, error)
	Status(ctx context.Context, id string) (*state.Pipeline, error)
	List(ctx context.Context) ([]*state.Pipeline, error)
	Summary(ctx context.Context) (*state.Summary, error)
	Cancel(ctx context.Context, id string) error
	Cleanup(ctx context.Context, olderThanDays int) (int, error)
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "themesmith").
	Name string

	// Version is the server version (default: "dev").
	Version string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "themesmith",
		Version: "dev",
	}
}

// Server serves the theme pipeline tools over MCP.
type Server struct {
	mcp      *mcp.Server
	engine   Pipelines
	scrubber *sanitize.Scrubber
	metrics  *Metrics
	logger   *logging.Logger
}

// NewServer creates an MCP server backed by the given engine. The
// scrubber is optional; when nil, tool responses are returned as-is.
func NewServer(cfg *Config, engine Pipelines, scrubber *sanitize.Scrubber, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		engine:   engine,
		scrubber: scrubber,
		metrics:  NewMetrics(logger),
		logger:   logger.Named("mcp"),
	}
	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport. It blocks until the
// client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// scrub passes text through the scrubber when one is configured.
func (s *Server) scrub(ctx context.Context, text string) string {
	if s.scrubber == nil || text == "" {
		return text
	}
	out, err := s.scrubber.Scrub(ctx, text)
	if err != nil {
		s.logger.Warn(ctx, "scrub of tool response failed", zap.Error(err))
		return text
	}
	return out
}

// Package events publishes pipeline lifecycle events to NATS so external
// consumers (dashboards, queue workers) can follow runs without polling the
// state store. Publishing is fire-and-forget: a nil or disabled publisher is
// a no-op and never fails a pipeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

const (
	// DefaultURL is the NATS server used when none is configured.
	DefaultURL = "nats://127.0.0.1:4222"

	// DefaultSubjectPrefix roots every published subject.
	DefaultSubjectPrefix = "themesmith"
)

// Config configures the publisher.
type Config struct {
	// Enabled controls whether events are published at all.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server address.
	URL string `koanf:"url"`

	// AuthToken authenticates against token-protected servers.
	AuthToken string `koanf:"auth_token"`

	// SubjectPrefix roots the subject hierarchy, e.g.
	// themesmith.pipeline.<id>.started.
	SubjectPrefix string `koanf:"subject_prefix"`
}

// DefaultConfig returns a disabled publisher configuration with standard
// connection settings filled in.
func DefaultConfig() *Config {
	return &Config{
		URL:           DefaultURL,
		SubjectPrefix: DefaultSubjectPrefix,
	}
}

// Event is the JSON payload published for every lifecycle change.
type Event struct {
	PipelineID string    `json:"pipeline_id"`
	AgentID    string    `json:"agent_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher emits pipeline events to NATS. All methods are safe on a nil
// receiver, so callers can hold a *Publisher unconditionally and only connect
// when events are enabled.
type Publisher struct {
	logger *logging.Logger
	nc     *nats.Conn
	prefix string
}

// Connect creates a publisher connected to the configured NATS server. A nil
// or disabled config returns a nil publisher, which every method treats as a
// no-op. The connection retries in the background if the server is not up
// yet, so a daemon can start before its broker.
func Connect(logger *logging.Logger, cfg *Config) (*Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	opts := []nats.Option{
		nats.Name("themesmith"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1 * time.Second),
	}
	if cfg.AuthToken != "" {
		opts = append(opts, nats.Token(cfg.AuthToken))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	logger = logger.Named("events")
	logger.Info(context.Background(), "event publisher connected",
		zap.String("url", url),
		zap.String("subject_prefix", prefix))

	return &Publisher{logger: logger, nc: nc, prefix: prefix}, nil
}

// Connected reports whether the publisher currently has a live connection.
func (p *Publisher) Connected() bool {
	return p != nil && p.nc != nil && p.nc.IsConnected()
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

// PipelineStarted announces that a run left the queue.
func (p *Publisher) PipelineStarted(ctx context.Context, pipelineID string) error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.publish(ctx, p.subject(pipelineID, "started"), Event{
		PipelineID: pipelineID,
		Status:     string(state.StatusRunning),
		Timestamp:  time.Now().UTC(),
	})
}

// StageCompleted announces the outcome of a single stage.
func (p *Publisher) StageCompleted(ctx context.Context, pipelineID, agentID string, status state.AgentStatus) error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.publish(ctx, p.subject(pipelineID, "stage"), Event{
		PipelineID: pipelineID,
		AgentID:    agentID,
		Status:     string(status),
		Timestamp:  time.Now().UTC(),
	})
}

// PipelineFinished announces the terminal status of a run.
func (p *Publisher) PipelineFinished(ctx context.Context, pipelineID string, status state.PipelineStatus) error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.publish(ctx, p.subject(pipelineID, "completed"), Event{
		PipelineID: pipelineID,
		Status:     string(status),
		Timestamp:  time.Now().UTC(),
	})
}

func (p *Publisher) subject(pipelineID, kind string) string {
	return fmt.Sprintf("%s.pipeline.%s.%s", p.prefix, pipelineID, kind)
}

func (p *Publisher) publish(ctx context.Context, subject string, evt Event) error {
	if p == nil || p.nc == nil {
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug(ctx, "published pipeline event",
		zap.String("subject", subject),
		zap.String("status", evt.Status))
	return nil
}

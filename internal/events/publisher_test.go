package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

var _ pipeline.EventPublisher = (*Publisher)(nil)

func testLogger() *logging.Logger {
	return logging.NewTestLogger().Logger
}

// startEventsServer starts an embedded NATS server on a random port.
func startEventsServer(t *testing.T, opts *natsserver.Options) *natsserver.Server {
	t.Helper()
	if opts == nil {
		opts = &natsserver.Options{}
	}
	opts.Host = "127.0.0.1"
	opts.Port = -1
	opts.NoLog = true
	opts.NoSigs = true

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func subscribe(t *testing.T, url, token, subject string) *nats.Subscription {
	t.Helper()
	opts := []nats.Option{}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	nc, err := nats.Connect(url, opts...)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	sub, err := nc.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return sub
}

func nextEvent(t *testing.T, sub *nats.Subscription) (string, Event) {
	t.Helper()
	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var evt Event
	require.NoError(t, json.Unmarshal(msg.Data, &evt))
	return msg.Subject, evt
}

func TestConnectDisabled(t *testing.T) {
	p, err := Connect(testLogger(), nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = Connect(testLogger(), &Config{Enabled: false, URL: "nats://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNilPublisherIsNoop(t *testing.T) {
	ctx := context.Background()
	var p *Publisher

	assert.NoError(t, p.PipelineStarted(ctx, "pl_1"))
	assert.NoError(t, p.StageCompleted(ctx, "pl_1", "request_interpreter", state.AgentSuccess))
	assert.NoError(t, p.PipelineFinished(ctx, "pl_1", state.StatusCompleted))
	assert.False(t, p.Connected())
	p.Close()
}

func TestConnectRequiresLogger(t *testing.T) {
	_, err := Connect(nil, &Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestPublisherLifecycleEvents(t *testing.T) {
	server := startEventsServer(t, nil)
	sub := subscribe(t, server.ClientURL(), "", "themesmith.pipeline.pl_events_1.>")

	p, err := Connect(testLogger(), &Config{
		Enabled:       true,
		URL:           server.ClientURL(),
		SubjectPrefix: "themesmith",
	})
	require.NoError(t, err)
	require.True(t, p.Connected())
	t.Cleanup(p.Close)

	ctx := context.Background()
	require.NoError(t, p.PipelineStarted(ctx, "pl_events_1"))
	subject, evt := nextEvent(t, sub)
	assert.Equal(t, "themesmith.pipeline.pl_events_1.started", subject)
	assert.Equal(t, "pl_events_1", evt.PipelineID)
	assert.Equal(t, string(state.StatusRunning), evt.Status)
	assert.False(t, evt.Timestamp.IsZero())

	require.NoError(t, p.StageCompleted(ctx, "pl_events_1", "request_interpreter", state.AgentSuccess))
	subject, evt = nextEvent(t, sub)
	assert.Equal(t, "themesmith.pipeline.pl_events_1.stage", subject)
	assert.Equal(t, "request_interpreter", evt.AgentID)
	assert.Equal(t, string(state.AgentSuccess), evt.Status)

	require.NoError(t, p.PipelineFinished(ctx, "pl_events_1", state.StatusCompleted))
	subject, evt = nextEvent(t, sub)
	assert.Equal(t, "themesmith.pipeline.pl_events_1.completed", subject)
	assert.Equal(t, string(state.StatusCompleted), evt.Status)
	assert.Empty(t, evt.AgentID)
}

func TestPublisherCustomPrefix(t *testing.T) {
	server := startEventsServer(t, nil)
	sub := subscribe(t, server.ClientURL(), "", "acme.pipeline.pl_2.>")

	p, err := Connect(testLogger(), &Config{
		Enabled:       true,
		URL:           server.ClientURL(),
		SubjectPrefix: "acme",
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	require.NoError(t, p.PipelineFinished(context.Background(), "pl_2", state.StatusFailed))
	subject, evt := nextEvent(t, sub)
	assert.Equal(t, "acme.pipeline.pl_2.completed", subject)
	assert.Equal(t, string(state.StatusFailed), evt.Status)
}

func TestPublisherTokenAuth(t *testing.T) {
	server := startEventsServer(t, &natsserver.Options{Authorization: "swordfish"})
	sub := subscribe(t, server.ClientURL(), "swordfish", "themesmith.pipeline.pl_3.>")

	p, err := Connect(testLogger(), &Config{
		Enabled:       true,
		URL:           server.ClientURL(),
		AuthToken:     "swordfish",
		SubjectPrefix: "themesmith",
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	require.NoError(t, p.PipelineStarted(context.Background(), "pl_3"))
	subject, _ := nextEvent(t, sub)
	assert.Equal(t, "themesmith.pipeline.pl_3.started", subject)
}

func TestSubjectFormat(t *testing.T) {
	p := &Publisher{prefix: "themesmith"}
	assert.Equal(t, "themesmith.pipeline.pl_9.stage", p.subject("pl_9", "stage"))
}

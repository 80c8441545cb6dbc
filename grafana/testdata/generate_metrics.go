// Package testdata provides utilities for generating sample metrics data
// to test Grafana dashboards without using real production data.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics for testing dashboards. Names and label sets mirror what the
// daemon exports through the OTEL Prometheus bridge.
var (
	// Pipeline metrics
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themesmith_pipeline_runs_total",
			Help: "Total number of finished pipeline runs",
		},
		[]string{"status"},
	)
	pipelineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "themesmith_pipeline_run_duration_seconds",
			Help:    "End-to-end pipeline run duration",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5m
		},
	)
	pipelineStages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themesmith_pipeline_stages_total",
			Help: "Total number of finished pipeline stages",
		},
		[]string{"agent_id", "status"},
	)
	pipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "themesmith_pipeline_stage_duration_seconds",
			Help:    "Per-stage execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent_id"},
	)

	// HTTP server metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themesmith_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "themesmith_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "themesmith_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(128, 4, 8), // 128B to ~2MB
		},
		[]string{"method", "endpoint", "status"},
	)
	httpActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "themesmith_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	// MCP tool metrics
	mcpInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themesmith_mcp_tool_invocations_total",
			Help: "Total MCP tool invocations",
		},
		[]string{"tool"},
	)
	mcpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "themesmith_mcp_tool_duration_seconds",
			Help:    "MCP tool invocation duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300, 600},
		},
		[]string{"tool"},
	)
	mcpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themesmith_mcp_tool_errors_total",
			Help: "Total MCP tool errors",
		},
		[]string{"tool", "reason"},
	)
	mcpActiveRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "themesmith_mcp_tool_active_requests",
			Help: "Number of in-flight MCP tool invocations",
		},
		[]string{"tool"},
	)

	// State store metrics
	statePipelinesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "themesmith_state_pipelines_created_total",
			Help: "Total number of pipeline records created",
		},
	)
	stateWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themesmith_state_writes_total",
			Help: "Total number of state file write attempts",
		},
		[]string{"status"},
	)
	stateWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "themesmith_state_write_duration_seconds",
			Help:    "State file write latency",
			Buckets: prometheus.DefBuckets,
		},
	)
	stateCleanupRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "themesmith_state_cleanup_removed_total",
			Help: "Total number of pipeline records removed by cleanup",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		// Pipeline
		pipelineRuns,
		pipelineRunDuration,
		pipelineStages,
		pipelineStageDuration,
		// HTTP
		httpRequestsTotal,
		httpRequestDuration,
		httpResponseSize,
		httpActiveRequests,
		// MCP
		mcpInvocations,
		mcpDuration,
		mcpErrors,
		mcpActiveRequests,
		// State
		statePipelinesCreated,
		stateWrites,
		stateWriteDuration,
		stateCleanupRemoved,
	)
}

var (
	agents = []string{
		"request_interpreter", "prompt_designer", "design_variation",
		"template_engineer", "cta_optimizer", "theme_assembler",
		"mobile_enhancer", "seo_optimizer", "component_library",
		"theme_validator", "refinement", "packager",
	}
	tools        = []string{"theme_generate", "pipeline_status", "pipeline_list", "pipeline_cancel", "pipeline_cleanup"}
	errorReasons = []string{"validation_error", "not_found", "conflict", "cancelled", "timeout", "internal_error"}
	endpoints    = []string{"/health", "/api/v1/pipelines", "/api/v1/pipelines/:id", "/api/v1/pipelines/:id/cancel"}
	httpMethods  = []string{"GET", "POST", "DELETE"}
	httpStatuses = []string{"200", "202", "404", "500"}
	runStatuses  = []string{"completed", "completed", "completed", "failed", "cancelled"}
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	// Generate initial sample data
	generateSampleData()

	// Start background goroutine to continuously generate data
	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	// Serve metrics
	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'themesmith-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func generateSampleData() {
	// Generate pipeline run history. Each run finishes all stages when
	// it completes; failed runs stop partway through the roster.
	for i := 0; i < 40; i++ {
		simulateRun()
	}

	// Generate HTTP traffic
	for i := 0; i < 200; i++ {
		method := randomChoice(httpMethods)
		endpoint := randomChoice(endpoints)
		status := randomChoice(httpStatuses)
		httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(rand.Float64() * 0.5)
		httpResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(rand.Intn(20000) + 200))
	}
	httpActiveRequests.Set(float64(rand.Intn(3)))

	// Generate MCP tool activity
	for i := 0; i < 80; i++ {
		tool := randomChoice(tools)
		mcpInvocations.WithLabelValues(tool).Inc()
		if tool == "theme_generate" {
			mcpDuration.WithLabelValues(tool).Observe(30 + rand.Float64()*120)
		} else {
			mcpDuration.WithLabelValues(tool).Observe(rand.Float64() * 0.2)
		}
	}
	for i := 0; i < 6; i++ {
		mcpErrors.WithLabelValues(randomChoice(tools), randomChoice(errorReasons)).Inc()
	}
	for _, tool := range tools {
		mcpActiveRequests.WithLabelValues(tool).Set(0)
	}

	// Generate state store activity
	for i := 0; i < 300; i++ {
		status := "ok"
		if rand.Float64() > 0.99 {
			status = "error"
		}
		stateWrites.WithLabelValues(status).Inc()
		stateWriteDuration.Observe(rand.Float64() * 0.02)
	}
	stateCleanupRemoved.Add(float64(rand.Intn(20)))
}

// simulateRun emits the metric trail of one pipeline run: a created
// record, a stage counter per finished agent, and a final run status.
func simulateRun() {
	statePipelinesCreated.Inc()

	status := randomChoice(runStatuses)
	completed := len(agents)
	if status != "completed" {
		completed = rand.Intn(len(agents))
	}

	var total float64
	for i := 0; i < completed; i++ {
		d := 0.5 + rand.Float64()*8
		total += d
		pipelineStages.WithLabelValues(agents[i], "success").Inc()
		pipelineStageDuration.WithLabelValues(agents[i]).Observe(d)
	}
	if status == "failed" && completed < len(agents) {
		pipelineStages.WithLabelValues(agents[completed], "failed").Inc()
	}

	pipelineRuns.WithLabelValues(status).Inc()
	pipelineRunDuration.Observe(total)
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Add some random activity
			if rand.Float64() > 0.7 {
				simulateRun()
			}
			if rand.Float64() > 0.3 {
				method := randomChoice(httpMethods)
				endpoint := randomChoice(endpoints)
				httpRequestsTotal.WithLabelValues(method, endpoint, "200").Inc()
				httpRequestDuration.WithLabelValues(method, endpoint, "200").Observe(rand.Float64() * 0.1)
				httpResponseSize.WithLabelValues(method, endpoint, "200").Observe(float64(rand.Intn(8000) + 200))
			}
			if rand.Float64() > 0.6 {
				tool := randomChoice(tools)
				mcpInvocations.WithLabelValues(tool).Inc()
				mcpDuration.WithLabelValues(tool).Observe(rand.Float64() * 0.2)
				if rand.Float64() > 0.9 {
					mcpErrors.WithLabelValues(tool, randomChoice(errorReasons)).Inc()
				}
			}
			if rand.Float64() > 0.4 {
				stateWrites.WithLabelValues("ok").Inc()
				stateWriteDuration.Observe(rand.Float64() * 0.02)
			}

			// Update gauges
			httpActiveRequests.Set(float64(rand.Intn(3)))
			mcpActiveRequests.WithLabelValues("theme_generate").Set(float64(rand.Intn(2)))
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}

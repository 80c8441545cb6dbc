package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	// pipeline command flags
	plPipelineID string
	plOlderThan  int
)

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(cleanupCmd)

	submitCmd.Flags().StringVar(&plPipelineID, "id", "", "Pin the pipeline ID instead of generating one")
	statusCmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	listCmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	cleanupCmd.Flags().IntVar(&plOlderThan, "older-than", 14, "Remove pipelines older than this many days")
	cleanupCmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
}

// submitCmd submits a request document to the server
var submitCmd = &cobra.Command{
	Use:   "submit [request-file]",
	Short: "Submit a theme request to the server",
	Long: `Submit a theme request document to a themesmithd server. The run
executes asynchronously; use 'smithctl status' to track it.

Examples:
  # Submit a request document
  smithctl submit request.md

  # Submit from stdin
  cat request.md | smithctl submit -

  # Pin the pipeline ID
  smithctl submit request.md --id launch-2026`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

// statusCmd shows one pipeline's state
var statusCmd = &cobra.Command{
	Use:   "status <pipeline-id>",
	Short: "Show the state of a pipeline run",
	Long: `Show the current state of a pipeline run, including per-stage
progress.

Examples:
  # Show a pipeline
  smithctl status a1b2c3d4

  # Output as JSON
  smithctl status a1b2c3d4 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

// listCmd lists all pipelines known to the server
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline runs",
	Long: `List all pipeline runs known to the server.

Examples:
  # List pipelines
  smithctl list

  # Output as JSON
  smithctl list --json`,
	RunE: runList,
}

// cancelCmd cancels a running pipeline
var cancelCmd = &cobra.Command{
	Use:   "cancel <pipeline-id>",
	Short: "Cancel a running pipeline",
	Long: `Request cancellation of a running pipeline. The run stops after the
stage currently executing finishes.

Examples:
  # Cancel a run
  smithctl cancel a1b2c3d4`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

// cleanupCmd removes expired pipelines
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired pipeline runs",
	Long: `Remove finished pipeline runs older than the cutoff, including their
workspace directories.

Examples:
  # Remove runs older than two weeks
  smithctl cleanup

  # Remove runs older than a day
  smithctl cleanup --older-than 1`,
	RunE: runCleanup,
}

// SubmitRequest matches internal/http/server.go SubmitRequest
type SubmitRequest struct {
	Request    string `json:"request"`
	PipelineID string `json:"pipeline_id,omitempty"`
}

// SubmitResponse matches internal/http/server.go SubmitResponse
type SubmitResponse struct {
	PipelineID string `json:"pipeline_id"`
	Status     string `json:"status"`
}

// CancelResponse matches internal/http/server.go CancelResponse
type CancelResponse struct {
	PipelineID string `json:"pipeline_id"`
	Status     string `json:"status"`
}

// CleanupResponse matches internal/http/server.go CleanupResponse
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// PipelineState mirrors the fields of a pipeline record the CLI prints.
type PipelineState struct {
	ID         string                `json:"id"`
	TemplateID string                `json:"template_id"`
	Status     string                `json:"status"`
	Message    string                `json:"message,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Agents     map[string]AgentState `json:"agents"`
	AgentOrder []string              `json:"agent_order"`
}

// AgentState mirrors the per-stage fields the CLI prints.
type AgentState struct {
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	OutputPath    string  `json:"output_path,omitempty"`
	ExecutionTime float64 `json:"execution_time_seconds,omitempty"`
}

// ListResponse matches internal/http/server.go ListResponse
type ListResponse struct {
	Summary   ListSummary     `json:"summary"`
	Pipelines []PipelineState `json:"pipelines"`
}

// ListSummary mirrors the summary fields the CLI prints.
type ListSummary struct {
	TotalPipelines int            `json:"total_pipelines"`
	ByStatus       map[string]int `json:"by_status"`
}

// runSubmit handles the submit command
func runSubmit(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("no request content to submit")
	}

	reqJSON, err := json.Marshal(SubmitRequest{
		Request:    string(content),
		PipelineID: plPipelineID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/pipelines", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}

	var submitResp SubmitResponse
	if err := decodeResponse(resp, http.StatusAccepted, &submitResp); err != nil {
		return err
	}

	fmt.Printf("Pipeline accepted\n")
	fmt.Printf("ID: %s\n", submitResp.PipelineID)
	fmt.Printf("Status: %s\n", submitResp.Status)
	fmt.Printf("\nTrack progress with: smithctl status %s\n", submitResp.PipelineID)

	return nil
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/pipelines/%s", serverURL, args[0])

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}

	var p PipelineState
	if err := decodeResponse(resp, http.StatusOK, &p); err != nil {
		return err
	}

	if jsonOut {
		return outputJSON(p)
	}

	fmt.Printf("Pipeline: %s\n", p.ID)
	fmt.Printf("Template: %s\n", p.TemplateID)
	fmt.Printf("Status:   %s\n", p.Status)
	if p.Message != "" {
		fmt.Printf("Message:  %s\n", p.Message)
	}
	fmt.Printf("Created:  %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:  %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(p.AgentOrder) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tSTATUS\tDURATION\tERROR")
		for _, agentID := range p.AgentOrder {
			a, ok := p.Agents[agentID]
			if !ok {
				continue
			}
			duration := ""
			if a.ExecutionTime > 0 {
				duration = fmt.Sprintf("%.1fs", a.ExecutionTime)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				agentID, a.Status, duration, truncate(a.Error, 60))
		}
		w.Flush()
	}

	return nil
}

// runList handles the list command
func runList(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/pipelines", serverURL)

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}

	var listResp ListResponse
	if err := decodeResponse(resp, http.StatusOK, &listResp); err != nil {
		return err
	}

	if jsonOut {
		return outputJSON(listResp)
	}

	if len(listResp.Pipelines) == 0 {
		fmt.Println("No pipelines found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tUPDATED\tMESSAGE")
	for _, p := range listResp.Pipelines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			p.Status,
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.UpdatedAt.Format("2006-01-02 15:04"),
			truncate(p.Message, 40),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d\n", listResp.Summary.TotalPipelines)

	return nil
}

// runCancel handles the cancel command
func runCancel(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/pipelines/%s/cancel", serverURL, args[0])

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}

	var cancelResp CancelResponse
	if err := decodeResponse(resp, http.StatusAccepted, &cancelResp); err != nil {
		return err
	}

	fmt.Printf("Cancellation requested\n")
	fmt.Printf("ID: %s\n", cancelResp.PipelineID)
	fmt.Printf("Status: %s\n", cancelResp.Status)

	return nil
}

// runCleanup handles the cleanup command
func runCleanup(cmd *cobra.Command, args []string) error {
	if plOlderThan < 0 {
		return fmt.Errorf("--older-than must be non-negative")
	}

	url := fmt.Sprintf("%s/api/v1/pipelines?older_than_days=%d", serverURL, plOlderThan)
	httpReq, err := http.NewRequest("DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}

	var cleanupResp CleanupResponse
	if err := decodeResponse(resp, http.StatusOK, &cleanupResp); err != nil {
		return err
	}

	if jsonOut {
		return outputJSON(cleanupResp)
	}

	fmt.Printf("Removed %d expired pipeline(s)\n", cleanupResp.Removed)

	return nil
}

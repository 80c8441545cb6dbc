// Package main implements the smithctl CLI for manual operations against
// the themesmithd HTTP server and the local theme workspace.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

var (
	// serverURL is the base URL for the themesmithd HTTP server
	serverURL string
	// configPath overrides the configuration file for local commands
	configPath string
	// jsonOut switches command output to JSON
	jsonOut bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smithctl",
	Short: "CLI for themesmith pipeline operations",
	Long: `smithctl is a command-line interface for the themesmith theme pipeline.
It submits and inspects pipeline runs on a themesmithd server, runs the
pipeline locally, and validates or scrubs theme artifacts.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9190", "themesmithd server URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/themesmith/config.yaml)")
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check themesmithd server health",
	Long: `Check the health status of the themesmithd HTTP server.

Examples:
  # Check health
  smithctl health

  # Check health on a different server
  smithctl health --server http://localhost:9290`,
	RunE: runHealth,
}

// HealthResponse matches internal/http/server.go HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}

	var healthResp HealthResponse
	if err := decodeResponse(resp, http.StatusOK, &healthResp); err != nil {
		return err
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server Version: %s\n", healthResp.Version)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}

// decodeResponse checks the response status and decodes the JSON body
// into out. It closes the body.
func decodeResponse(resp *http.Response, want int, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readInput reads command input from the named file, or stdin when the
// argument is missing or "-".
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}

// newStderrLogger builds a logger that keeps stdout free for command
// output.
func newStderrLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logCfg.Output.Stdout = false
	logCfg.Output.Stderr = true
	return logging.NewLogger(logCfg, nil)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

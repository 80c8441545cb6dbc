package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/sanitize"
)

func init() {
	rootCmd.AddCommand(scrubCmd)
}

// scrubCmd scrubs secrets from files or stdin
var scrubCmd = &cobra.Command{
	Use:   "scrub [file]",
	Short: "Scrub secrets from a file or stdin",
	Long: `Scrub secrets from a file or stdin before sharing pipeline artifacts.
Scrubbed content goes to stdout; findings are reported on stderr.

Examples:
  # Scrub a file
  smithctl scrub wp-config.php

  # Scrub from stdin
  cat pipeline.log | smithctl scrub -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrub,
}

// runScrub handles the scrub command
func runScrub(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("no content to scrub")
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newStderrLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// The sanitize.enabled toggle governs the daemon's automatic
	// scrubbing; an explicit scrub always runs.
	scrubber, err := sanitize.New(logger, &sanitize.Config{
		Enabled:       true,
		AllowlistPath: cfg.Sanitize.AllowlistPath,
		Redaction:     cfg.Sanitize.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to create scrubber: %w", err)
	}

	result := scrubber.Check(context.Background(), string(content))

	// Output scrubbed content to stdout
	fmt.Print(result.Scrubbed)

	// If findings were made, log to stderr
	if result.HasFindings() {
		fmt.Fprintf(os.Stderr, "\n[smithctl] Scrubbed %d secret(s)\n", result.TotalFindings)
	}

	return nil
}

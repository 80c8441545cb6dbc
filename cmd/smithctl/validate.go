package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the validation report as JSON")
}

// validateCmd validates a theme directory
var validateCmd = &cobra.Command{
	Use:   "validate <theme-dir>",
	Short: "Validate a theme directory",
	Long: `Validate a generated theme directory against WordPress structure and
quality checks. The command exits non-zero when the theme has
error-severity issues.

Examples:
  # Validate a packaged theme
  smithctl validate ./modern-commerce

  # Output as JSON
  smithctl validate ./modern-commerce --json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// runValidate handles the validate command
func runValidate(cmd *cobra.Command, args []string) error {
	rep, err := theme.Validate(args[0])
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if jsonOut {
		if err := outputJSON(rep); err != nil {
			return err
		}
	} else {
		printValidationReport(rep)
	}

	if !rep.Passed() {
		return fmt.Errorf("theme has %d error(s)", rep.Summary.Errors)
	}
	return nil
}

func printValidationReport(rep *theme.Report) {
	fmt.Printf("Theme:  %s\n", rep.ThemePath)
	fmt.Printf("Score:  %.1f/10\n", rep.Score)
	fmt.Printf("Issues: %d (%d errors, %d warnings, %d info)\n",
		rep.Summary.TotalIssues, rep.Summary.Errors, rep.Summary.Warnings, rep.Summary.Info)

	if len(rep.Issues) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEVERITY\tCATEGORY\tFILE\tMESSAGE")
		for _, issue := range rep.Issues {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				issue.Severity, issue.Category, issue.File, truncate(issue.Message, 60))
		}
		w.Flush()
	}

	if len(rep.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range rep.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
}

package theme

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Issue severities, ordered by score impact.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue categories.
const (
	CategoryStructure     = "structure"
	CategoryPHP           = "php"
	CategoryCSS           = "css"
	CategoryAccessibility = "accessibility"
)

var (
	requiredFiles    = []string{"style.css", "index.php", "functions.php"}
	recommendedFiles = []string{"header.php", "footer.php", "single.php", "page.php", "404.php"}

	dangerousFunctions = []string{"eval", "exec", "system", "shell_exec", "passthru"}

	themeHeaderRE = regexp.MustCompile(`/\*\s*Theme Name:`)
	imgTagRE      = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	altAttrRE     = regexp.MustCompile(`(?i)\balt\s*=`)

	dangerousFunctionREs = func() map[string]*regexp.Regexp {
		res := make(map[string]*regexp.Regexp, len(dangerousFunctions))
		for _, fn := range dangerousFunctions {
			res[fn] = regexp.MustCompile(`\b` + fn + `\s*\(`)
		}
		return res
	}()
)

// Issue is a single validation finding.
type Issue struct {
	Severity   string `json:"severity"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	File       string `json:"file_path,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Summary counts issues by severity.
type Summary struct {
	TotalIssues int `json:"total_issues"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Info        int `json:"info"`
}

// Report is the result of validating a theme directory.
type Report struct {
	ThemePath       string   `json:"theme_path"`
	Score           float64  `json:"overall_score"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Summary         Summary  `json:"summary"`
}

// Passed reports whether the theme has no error severity issues.
func (r *Report) Passed() bool {
	return r.Summary.Errors == 0
}

// WriteFile persists the report to path, creating parent directories as
// needed.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode validation report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write validation report %s: %w", path, err)
	}
	return nil
}

// LoadReport reads a validation report written by WriteFile.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read validation report %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse validation report %s: %w", path, err)
	}
	return &r, nil
}

// Validate inspects an assembled theme directory and scores it. The
// score starts at 10 and drops 2.0 per error, 0.5 per warning and 0.1
// per info finding, floored at zero.
func Validate(dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("theme directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("theme path %s is not a directory", dir)
	}

	var issues []Issue
	issues = append(issues, checkStructure(dir)...)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Category: CategoryStructure,
				Message:  fmt.Sprintf("Could not read file: %v", readErr),
				File:     rel,
			})
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".php":
			issues = append(issues, checkPHP(rel, string(content))...)
		case ".css":
			issues = append(issues, checkCSS(rel, string(content))...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk theme directory: %w", err)
	}

	report := &Report{
		ThemePath: dir,
		Issues:    issues,
	}
	for _, issue := range issues {
		report.Summary.TotalIssues++
		switch issue.Severity {
		case SeverityError:
			report.Summary.Errors++
		case SeverityWarning:
			report.Summary.Warnings++
		case SeverityInfo:
			report.Summary.Info++
		}
	}
	report.Score = score(report.Summary)
	report.Recommendations = recommendations(issues, report.Summary)
	return report, nil
}

func checkStructure(dir string) []Issue {
	var issues []Issue
	for _, name := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Category:   CategoryStructure,
				Message:    fmt.Sprintf("Required file missing: %s", name),
				File:       name,
				Suggestion: fmt.Sprintf("Create %s in the theme root", name),
			})
		}
	}
	for _, name := range recommendedFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			issues = append(issues, Issue{
				Severity:   SeverityWarning,
				Category:   CategoryStructure,
				Message:    fmt.Sprintf("Recommended file missing: %s", name),
				File:       name,
				Suggestion: fmt.Sprintf("Add %s for better theme coverage", name),
			})
		}
	}
	if content, err := os.ReadFile(filepath.Join(dir, "style.css")); err == nil {
		if !themeHeaderRE.Match(content) {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Category:   CategoryStructure,
				Message:    "style.css missing required theme header",
				File:       "style.css",
				Suggestion: "Add a header comment with Theme Name, Description and Version",
			})
		}
	}
	return issues
}

func checkPHP(rel, content string) []Issue {
	var issues []Issue
	if !strings.HasPrefix(strings.TrimSpace(content), "<?php") && !strings.HasPrefix(strings.TrimSpace(content), "<!DOCTYPE") {
		issues = append(issues, Issue{
			Severity: SeverityInfo,
			Category: CategoryPHP,
			Message:  "PHP file does not start with <?php or a document type",
			File:     rel,
		})
	}
	for _, fn := range dangerousFunctions {
		if dangerousFunctionREs[fn].MatchString(content) {
			issues = append(issues, Issue{
				Severity:   SeverityError,
				Category:   CategoryPHP,
				Message:    fmt.Sprintf("Potentially dangerous function used: %s", fn),
				File:       rel,
				Suggestion: fmt.Sprintf("Remove or secure the %s call", fn),
			})
		}
	}
	if rel == "functions.php" && !strings.Contains(content, "wp_enqueue_style") {
		issues = append(issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryPHP,
			Message:    "functions.php does not enqueue styles",
			File:       rel,
			Suggestion: "Load the stylesheet with wp_enqueue_style()",
		})
	}
	for _, tag := range imgTagRE.FindAllString(content, -1) {
		if !altAttrRE.MatchString(tag) {
			issues = append(issues, Issue{
				Severity:   SeverityWarning,
				Category:   CategoryAccessibility,
				Message:    "Image missing alt attribute",
				File:       rel,
				Suggestion: "Add alt text to every image",
			})
		}
	}
	return issues
}

func checkCSS(rel, content string) []Issue {
	var issues []Issue
	if strings.Count(content, "{") != strings.Count(content, "}") {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Category: CategoryCSS,
			Message:  "Mismatched CSS braces",
			File:     rel,
		})
	}
	if rel == "style.css" && !strings.Contains(content, "@media") {
		issues = append(issues, Issue{
			Severity:   SeverityWarning,
			Category:   CategoryCSS,
			Message:    "No responsive design detected",
			File:       rel,
			Suggestion: "Add media queries for small screens",
		})
	}
	return issues
}

func score(s Summary) float64 {
	score := 10.0
	score -= 2.0 * float64(s.Errors)
	score -= 0.5 * float64(s.Warnings)
	score -= 0.1 * float64(s.Info)
	if score < 0 {
		return 0
	}
	return score
}

func recommendations(issues []Issue, s Summary) []string {
	var recs []string
	if s.Errors > 0 {
		recs = append(recs, fmt.Sprintf("Fix %d critical errors before deployment", s.Errors))
	}
	if s.Warnings > 5 {
		recs = append(recs, "Address warnings to improve theme quality")
	}

	categories := make(map[string]bool)
	for _, issue := range issues {
		categories[issue.Category] = true
	}
	if categories[CategoryAccessibility] {
		recs = append(recs, "Improve accessibility by adding alt text and ARIA labels")
	}
	if categories[CategoryCSS] {
		recs = append(recs, "Review CSS for responsive design and syntax issues")
	}
	if categories[CategoryPHP] {
		recs = append(recs, "Review PHP for security and WordPress best practices")
	}

	if len(recs) == 0 {
		recs = append(recs, "Theme validation passed - ready for deployment")
	}
	return recs
}

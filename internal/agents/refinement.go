package agents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

var (
	imgTagRE  = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	altAttrRE = regexp.MustCompile(`(?i)\balt\s*=`)
)

// RefinementIteration records one fix-and-revalidate pass.
type RefinementIteration struct {
	Pass            int       `json:"iteration"`
	Timestamp       time.Time `json:"timestamp"`
	Score           float64   `json:"score"`
	Improvements    []string  `json:"improvements"`
	IssuesRemaining int       `json:"issues_remaining"`
	SatisfactionMet bool      `json:"satisfaction_met"`
}

// RefinementReport is the refinement artifact. ThemePath names the
// staged directory the packager picks up.
type RefinementReport struct {
	TemplateID        string                `json:"template_id"`
	Status            string                `json:"status"`
	ThemePath         string                `json:"theme_path"`
	FinalScore        float64               `json:"final_score"`
	QualityThreshold  float64               `json:"quality_threshold"`
	TotalIterations   int                   `json:"total_iterations"`
	TotalImprovements int                   `json:"total_improvements"`
	SatisfactionMet   bool                  `json:"satisfaction_met"`
	History           []RefinementIteration `json:"refinement_history"`
	Recommendations   []string              `json:"final_recommendations"`
	Timestamp         time.Time             `json:"timestamp"`
}

// Refinement reads the validation report, applies the automated repairs
// it knows and re-validates until the theme meets the quality threshold
// or the pass budget runs out. The refined theme is staged for the
// packager either way.
type Refinement struct {
	logger    *logging.Logger
	threshold float64
	maxPasses int
}

// NewRefinement returns the refinement stage. Zero values fall back to
// a threshold of 7.5 and three passes.
func NewRefinement(logger *logging.Logger, threshold float64, maxPasses int) (*Refinement, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if threshold <= 0 {
		threshold = defaultQualityThreshold
	}
	if maxPasses <= 0 {
		maxPasses = defaultMaxRefinePasses
	}
	return &Refinement{logger: logger, threshold: threshold, maxPasses: maxPasses}, nil
}

// ID implements pipeline.Agent.
func (a *Refinement) ID() string { return "refinement" }

// Run refines the theme named by the validation report in place,
// keeping the report artifact current, then stages the result and
// writes the refinement history.
func (a *Refinement) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	if in.Paths == nil {
		return nil, errors.New("path manager is required")
	}

	reportPath, err := a.reportPath(in)
	if err != nil {
		return nil, err
	}
	report, err := theme.LoadReport(reportPath)
	if err != nil {
		return nil, err
	}
	dir := report.ThemePath
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("theme directory %s: %w", dir, err)
	}

	satisfied := a.satisfied(report)
	var history []RefinementIteration
	improvements := 0

	for pass := 1; pass <= a.maxPasses && !satisfied; pass++ {
		fixes, err := applyFixes(dir, report)
		if err != nil {
			return nil, err
		}
		if len(fixes) == 0 {
			// Whatever remains needs a human.
			break
		}

		report, err = theme.Validate(dir)
		if err != nil {
			return nil, err
		}
		if err := report.WriteFile(reportPath); err != nil {
			return nil, err
		}

		satisfied = a.satisfied(report)
		improvements += len(fixes)
		history = append(history, RefinementIteration{
			Pass:            pass,
			Timestamp:       time.Now().UTC(),
			Score:           report.Score,
			Improvements:    fixes,
			IssuesRemaining: report.Summary.TotalIssues,
			SatisfactionMet: satisfied,
		})

		a.logger.Debug(ctx, "refinement pass applied",
			zap.String("template_id", in.TemplateID),
			zap.Int("pass", pass),
			zap.Int("fixes", len(fixes)),
			zap.Float64("score", report.Score),
		)
	}

	staged, err := in.Paths.InputFor("packager")
	if err != nil {
		return nil, err
	}
	if filepath.Clean(dir) != filepath.Clean(staged) {
		if err := stageDir(dir, staged); err != nil {
			return nil, fmt.Errorf("stage refined theme: %w", err)
		}
	}

	status := "incomplete"
	if satisfied {
		status = "satisfied"
	}
	artifact := RefinementReport{
		TemplateID:        in.TemplateID,
		Status:            status,
		ThemePath:         staged,
		FinalScore:        report.Score,
		QualityThreshold:  a.threshold,
		TotalIterations:   len(history),
		TotalImprovements: improvements,
		SatisfactionMet:   satisfied,
		History:           history,
		Recommendations:   report.Recommendations,
		Timestamp:         time.Now().UTC(),
	}
	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := writeJSON(out, artifact); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "theme refined",
		zap.String("template_id", in.TemplateID),
		zap.Int("iterations", len(history)),
		zap.Int("improvements", improvements),
		zap.Float64("score", report.Score),
		zap.Bool("satisfied", satisfied),
	)

	res := pipeline.NewResult(a.ID())
	res.OutputPath = out
	res.QualityScore = report.Score
	res.Metadata["iterations"] = len(history)
	res.Metadata["improvements"] = improvements
	res.Metadata["satisfied"] = satisfied
	res.Metadata["theme_path"] = staged
	switch {
	case satisfied && len(history) == 0:
		res.Message = "theme already meets the quality threshold"
	case satisfied:
		res.Message = fmt.Sprintf("refinement completed successfully in %d iterations", len(history))
	default:
		res.Status = pipeline.ResultPartial
		res.Message = fmt.Sprintf("quality threshold %.1f not met after %d iterations, score %.1f",
			a.threshold, len(history), report.Score)
	}
	return res, nil
}

// reportPath prefers the threaded validation report and falls back to
// its canonical location.
func (a *Refinement) reportPath(in pipeline.Input) (string, error) {
	if in.Path != "" {
		if info, err := os.Stat(in.Path); err == nil && !info.IsDir() {
			return in.Path, nil
		}
	}
	return in.Paths.OutputFor("theme_validator")
}

func (a *Refinement) satisfied(r *theme.Report) bool {
	return r.Passed() && r.Score >= a.threshold
}

// applyFixes attempts an automated repair for every finding it knows
// how to handle and reports what changed.
func applyFixes(dir string, report *theme.Report) ([]string, error) {
	var fixes []string
	fixedAlt := make(map[string]bool)

	for _, issue := range report.Issues {
		switch {
		case issue.Category == theme.CategoryStructure && strings.Contains(issue.Message, "file missing"):
			stub, ok := fileStubs[issue.File]
			if !ok {
				continue
			}
			path := filepath.Join(dir, issue.File)
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := os.WriteFile(path, []byte(stub), filePerm); err != nil {
				return fixes, err
			}
			fixes = append(fixes, "created "+issue.File)

		case issue.Category == theme.CategoryStructure && strings.Contains(issue.Message, "theme header"):
			path := filepath.Join(dir, "style.css")
			css, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if err := os.WriteFile(path, []byte(themeHeaderStub+string(css)), filePerm); err != nil {
				return fixes, err
			}
			fixes = append(fixes, "added theme header to style.css")

		case issue.Category == theme.CategoryAccessibility && issue.File != "":
			if fixedAlt[issue.File] {
				continue
			}
			path := filepath.Join(dir, filepath.FromSlash(issue.File))
			content, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			updated, n := addMissingAlt(string(content))
			if n == 0 {
				continue
			}
			if err := os.WriteFile(path, []byte(updated), filePerm); err != nil {
				return fixes, err
			}
			fixedAlt[issue.File] = true
			fixes = append(fixes, fmt.Sprintf("added alt text to %d images in %s", n, issue.File))

		case issue.Category == theme.CategoryCSS && strings.Contains(issue.Message, "braces"):
			path := filepath.Join(dir, filepath.FromSlash(issue.File))
			content, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			css := string(content)
			opens, closes := strings.Count(css, "{"), strings.Count(css, "}")
			if opens <= closes {
				continue
			}
			css += "\n" + strings.Repeat("}\n", opens-closes)
			if err := os.WriteFile(path, []byte(css), filePerm); err != nil {
				return fixes, err
			}
			fixes = append(fixes, "balanced braces in "+issue.File)

		case issue.Category == theme.CategoryCSS && strings.Contains(issue.Message, "responsive"):
			path := filepath.Join(dir, "style.css")
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := appendToFile(path, responsiveCSSStub); err != nil {
				return fixes, err
			}
			fixes = append(fixes, "added a small screen media query to style.css")

		case issue.Category == theme.CategoryPHP && strings.Contains(issue.Message, "enqueue"):
			path := filepath.Join(dir, "functions.php")
			content, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			prefix := themePrefix(string(content))
			if err := appendToFile(path, fmt.Sprintf(enqueueStubFormat, prefix, prefix)); err != nil {
				return fixes, err
			}
			fixes = append(fixes, "enqueued the stylesheet in functions.php")
		}
	}
	return fixes, nil
}

// addMissingAlt gives every alt-less image an empty alt attribute so
// screen readers skip decorative images instead of reading the URL.
func addMissingAlt(content string) (string, int) {
	fixed := 0
	out := imgTagRE.ReplaceAllStringFunc(content, func(tag string) string {
		if altAttrRE.MatchString(tag) {
			return tag
		}
		fixed++
		if strings.HasSuffix(tag, "/>") {
			return strings.TrimRight(strings.TrimSuffix(tag, "/>"), " ") + ` alt="" />`
		}
		return strings.TrimSuffix(tag, ">") + ` alt="">`
	})
	return out, fixed
}

const themeHeaderStub = `/*
Theme Name: Generated Theme
Description: Generated WordPress theme.
Version: 1.0.0
*/

`

const responsiveCSSStub = `

@media (max-width: 768px) {
    .container {
        padding: 0 1rem;
    }
}
`

const enqueueStubFormat = `

function %s_enqueue_base_style() {
    wp_enqueue_style('theme-style', get_stylesheet_uri());
}
add_action('wp_enqueue_scripts', '%s_enqueue_base_style');
`

// fileStubs are minimal replacements for files the validator expects.
// Each one satisfies the checks that flagged its absence.
var fileStubs = map[string]string{
	"style.css": `/*
Theme Name: Generated Theme
Description: Placeholder stylesheet.
Version: 1.0.0
*/

body {
    margin: 0;
    font-family: system-ui, sans-serif;
}

@media (max-width: 768px) {
    .container {
        padding: 0 1rem;
    }
}
`,
	"index.php": `<?php
/**
 * Main template.
 */

get_header(); ?>

<main id="primary" class="site-main">
    <div class="container">
        <?php if (have_posts()) : while (have_posts()) : the_post(); ?>
            <article <?php post_class(); ?>>
                <h2><?php the_title(); ?></h2>
                <?php the_content(); ?>
            </article>
        <?php endwhile; endif; ?>
    </div>
</main>

<?php get_footer(); ?>
`,
	"functions.php": `<?php
/**
 * Theme functions.
 */

if (!defined('ABSPATH')) {
    exit;
}

function theme_scripts() {
    wp_enqueue_style('theme-style', get_stylesheet_uri());
}
add_action('wp_enqueue_scripts', 'theme_scripts');
`,
	"header.php": `<?php
/**
 * Theme header.
 */
?>
<!DOCTYPE html>
<html <?php language_attributes(); ?>>
<head>
    <meta charset="<?php bloginfo('charset'); ?>">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <?php wp_head(); ?>
</head>
<body <?php body_class(); ?>>
<?php wp_body_open(); ?>
<header class="site-header">
    <div class="container">
        <a class="site-brand" href="<?php echo esc_url(home_url('/')); ?>"><?php bloginfo('name'); ?></a>
    </div>
</header>
`,
	"footer.php": `<?php
/**
 * Theme footer.
 */
?>
<footer class="site-footer">
    <div class="container">
        <p>&copy; <?php echo date('Y'); ?> <?php bloginfo('name'); ?></p>
    </div>
</footer>

<?php wp_footer(); ?>

</body>
</html>
`,
	"single.php": `<?php
/**
 * Single post template.
 */

get_header(); ?>

<main id="primary" class="site-main">
    <div class="container">
        <?php while (have_posts()) : the_post(); ?>
            <article id="post-<?php the_ID(); ?>" <?php post_class(); ?>>
                <h1 class="entry-title"><?php the_title(); ?></h1>
                <div class="entry-content"><?php the_content(); ?></div>
            </article>
        <?php endwhile; ?>
    </div>
</main>

<?php get_footer(); ?>
`,
	"page.php": `<?php
/**
 * Page template.
 */

get_header(); ?>

<main id="primary" class="site-main">
    <div class="container">
        <?php while (have_posts()) : the_post(); ?>
            <article id="post-<?php the_ID(); ?>" <?php post_class(); ?>>
                <h1 class="entry-title"><?php the_title(); ?></h1>
                <div class="entry-content"><?php the_content(); ?></div>
            </article>
        <?php endwhile; ?>
    </div>
</main>

<?php get_footer(); ?>
`,
	"404.php": `<?php
/**
 * 404 template.
 */

get_header(); ?>

<main id="primary" class="site-main">
    <div class="container">
        <h1><?php esc_html_e('Page not found', 'themesmith'); ?></h1>
        <p><?php esc_html_e('The page you are looking for does not exist.', 'themesmith'); ?></p>
        <a class="cta-button primary" href="<?php echo esc_url(home_url('/')); ?>"><?php esc_html_e('Back to home', 'themesmith'); ?></a>
    </div>
</main>

<?php get_footer(); ?>
`,
}

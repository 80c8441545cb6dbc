package agents

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

var (
	textDomainRE = regexp.MustCompile(`(?m)^Text Domain:\s*([A-Za-z0-9_-]+)`)
	themeNameRE  = regexp.MustCompile(`(?m)^Theme Name:\s*(.+)$`)
)

// stageIDs is the full roster in pipeline order.
var stageIDs = []string{
	"request_interpreter",
	"prompt_designer",
	"design_variation",
	"template_engineer",
	"cta_optimizer",
	"theme_assembler",
	"mobile_enhancer",
	"seo_optimizer",
	"component_library",
	"theme_validator",
	"refinement",
	"packager",
}

type packageManifest struct {
	Version       string             `json:"version"`
	Created       time.Time          `json:"created"`
	TemplateID    string             `json:"template_id"`
	Theme         string             `json:"theme"`
	Agents        map[string]string  `json:"agent_versions"`
	QualityScores map[string]float64 `json:"quality_scores"`
	Checksums     map[string]string  `json:"checksums"`
}

// Packager assembles the deliverable: the refined theme under its
// install slug plus README, changelog and a checksummed manifest,
// optionally committed to a local git repository.
type Packager struct {
	logger *logging.Logger
	loader *spec.Loader
	git    GitOptions
}

// NewPackager returns the final pipeline stage.
func NewPackager(logger *logging.Logger, gitOpts GitOptions) (*Packager, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &Packager{logger: logger, loader: loader, git: gitOpts}, nil
}

// ID implements pipeline.Agent.
func (a *Packager) ID() string { return "packager" }

// Run builds the final package directory.
func (a *Packager) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	src, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	themeDir, err := themeDirFor(src)
	if err != nil {
		return nil, err
	}

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}

	// The validation report is context for the README and manifest;
	// packaging proceeds without one.
	var report *theme.Report
	if reportPath, err := in.Paths.OutputFor("theme_validator"); err == nil {
		if loaded, err := theme.LoadReport(reportPath); err == nil {
			report = loaded
		}
	}

	pkgDir, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(pkgDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(pkgDir, dirPerm); err != nil {
		return nil, err
	}

	slug, themeName := themeIdentity(themeDir, in.TemplateID, s)
	if err := copyDir(themeDir, filepath.Join(pkgDir, slug)); err != nil {
		return nil, fmt.Errorf("copy theme into package: %w", err)
	}

	readme := packageReadme(s, report, slug, themeName)
	if err := os.WriteFile(filepath.Join(pkgDir, "README.md"), []byte(readme), filePerm); err != nil {
		return nil, err
	}
	changelog := fmt.Sprintf("# Changelog\n\n## %s - %s\n\n- Initial package generated.\n",
		agentVersion, time.Now().UTC().Format("2006-01-02"))
	if err := os.WriteFile(filepath.Join(pkgDir, "CHANGELOG.md"), []byte(changelog), filePerm); err != nil {
		return nil, err
	}

	checksums, err := packageChecksums(pkgDir)
	if err != nil {
		return nil, err
	}

	manifest := packageManifest{
		Version:       agentVersion,
		Created:       time.Now().UTC(),
		TemplateID:    in.TemplateID,
		Theme:         themeName,
		Agents:        make(map[string]string, len(stageIDs)),
		QualityScores: make(map[string]float64),
		Checksums:     checksums,
	}
	for _, id := range stageIDs {
		manifest.Agents[id] = agentVersion
	}
	if report != nil {
		manifest.QualityScores["validation"] = report.Score
	}
	if err := writeJSON(filepath.Join(pkgDir, "manifest.json"), manifest); err != nil {
		return nil, err
	}

	res := pipeline.NewResult(a.ID())
	committed := false
	if a.git.Enabled {
		if err := commitPackage(pkgDir, a.git); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("git commit failed: %v", err))
		} else {
			committed = true
		}
	}

	a.logger.Info(ctx, "theme package assembled",
		zap.String("template_id", in.TemplateID),
		zap.String("slug", slug),
		zap.Int("files", len(checksums)),
		zap.Bool("committed", committed),
		zap.String("path", pkgDir),
	)

	res.Message = fmt.Sprintf("theme packaged as %s", slug)
	res.OutputPath = pkgDir
	res.Metadata["slug"] = slug
	res.Metadata["theme"] = themeName
	res.Metadata["files"] = len(checksums)
	res.Metadata["committed"] = committed
	if report != nil {
		res.QualityScore = report.Score
	}
	return res, nil
}

// themeIdentity reads the install slug and display name from the theme
// stylesheet header, falling back to values derived from the run.
func themeIdentity(themeDir, templateID string, s *spec.TemplateSpec) (slug, name string) {
	slug = "theme-" + strings.ReplaceAll(templateID, "_", "-")
	name = s.Business.Name + " Theme"
	css, err := os.ReadFile(filepath.Join(themeDir, "style.css"))
	if err != nil {
		return slug, name
	}
	if m := textDomainRE.FindSubmatch(css); m != nil {
		slug = string(m[1])
	}
	if m := themeNameRE.FindSubmatch(css); m != nil {
		name = strings.TrimSpace(string(m[1]))
	}
	return slug, name
}

// packageChecksums hashes every file under dir so installs can verify
// the payload.
func packageChecksums(dir string) (map[string]string, error) {
	sums := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum := blake3.Sum256(data)
		sums[filepath.ToSlash(rel)] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checksum package: %w", err)
	}
	return sums, nil
}

// commitPackage turns the package directory into a git repository with
// a single commit, so deliveries have a baseline for later edits.
func commitPackage(dir string, opts GitOptions) error {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if _, err := wt.Add("."); err != nil {
		return err
	}
	author := &object.Signature{
		Name:  opts.AuthorName,
		Email: opts.AuthorEmail,
		When:  time.Now(),
	}
	if author.Name == "" {
		author.Name = "ThemeSmith"
	}
	if author.Email == "" {
		author.Email = "themesmith@localhost"
	}
	_, err = wt.Commit("Initial theme package", &git.CommitOptions{Author: author})
	return err
}

func packageReadme(s *spec.TemplateSpec, report *theme.Report, slug, themeName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", themeName)

	b.WriteString("## Overview\n\n")
	desc := s.Business.Description
	if desc == "" {
		desc = fmt.Sprintf("A conversion-focused WordPress theme generated for %s.", s.Business.Name)
	}
	fmt.Fprintf(&b, "%s\n\n", desc)
	if s.Location.City != "" {
		fmt.Fprintf(&b, "Built for %s in %s, %s.\n\n",
			strings.ToLower(s.BusinessType()), s.Location.City, s.Location.State)
	}

	b.WriteString("## Installation\n\n")
	fmt.Fprintf(&b, "1. Copy the `%s` directory into `wp-content/themes/`.\n", slug)
	fmt.Fprintf(&b, "2. In the WordPress admin, open Appearance > Themes and activate \"%s\".\n", themeName)
	b.WriteString("3. Set a static front page under Settings > Reading to use the landing layout.\n\n")

	b.WriteString("## Customization\n\n")
	b.WriteString("- Colors and fonts are CSS custom properties at the top of `style.css`.\n")
	b.WriteString("- Business name, phone and tagline are seeded as options on activation; change them under Settings > General or edit `functions.php`.\n")
	b.WriteString("- Section markup lives in `front-page.php` and the `template-parts/` directory.\n\n")

	b.WriteString("## Features\n\n")
	b.WriteString("- Responsive, mobile-first layout\n")
	b.WriteString("- Conversion-focused calls to action\n")
	b.WriteString("- Local business structured data\n")
	b.WriteString("- Accessibility-conscious markup\n")
	for _, svc := range s.EffectiveServices() {
		fmt.Fprintf(&b, "- %s section content\n", svc.Name)
	}
	b.WriteByte('\n')

	b.WriteString("## Browser Support\n\n")
	b.WriteString("Tested on recent Chrome, Firefox, Safari and Edge.\n\n")

	b.WriteString("## Performance\n\n")
	if report != nil {
		fmt.Fprintf(&b, "Validation score %.1f/10 with %d errors and %d warnings.\n\n",
			report.Score, report.Summary.Errors, report.Summary.Warnings)
	} else {
		b.WriteString("Single stylesheet, two small scripts, no external frameworks.\n\n")
	}

	b.WriteString("## Troubleshooting\n\n")
	fmt.Fprintf(&b, "Requires PHP 7.4 or newer. If styles fail to load, confirm the theme directory is named `%s`.\n\n", slug)

	b.WriteString("## License\n\n")
	b.WriteString("Distributed under the GPL v2 or later, like WordPress itself.\n")
	return b.String()
}

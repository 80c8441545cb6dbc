package agents

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// ctaAnchors are the section comments the landing page template emits.
// A call-to-action block is inserted after each one that appears.
var ctaAnchors = []string{
	"<!-- hero -->",
	"<!-- features -->",
	"<!-- testimonials -->",
	"<!-- contact -->",
}

// CTAOptimizer inserts conversion-focused call-to-action blocks into the
// engineered page template.
type CTAOptimizer struct {
	logger *logging.Logger
	loader *spec.Loader
}

// NewCTAOptimizer returns the call-to-action stage.
func NewCTAOptimizer(logger *logging.Logger) (*CTAOptimizer, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &CTAOptimizer{logger: logger, loader: loader}, nil
}

// ID implements pipeline.Agent.
func (a *CTAOptimizer) ID() string { return "cta_optimizer" }

// Run reads the page template, inserts a CTA block after every known
// section anchor and writes the optimized copy alongside the original.
func (a *CTAOptimizer) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	path, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	content := string(raw)

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}
	block := ctaBlock(s)

	res := pipeline.NewResult(a.ID())

	var matched []string
	insertions := 0
	for _, anchor := range ctaAnchors {
		if n := strings.Count(content, anchor); n > 0 {
			content = strings.ReplaceAll(content, anchor, anchor+"\n"+block)
			matched = append(matched, anchor)
			insertions += n
		}
	}
	if insertions == 0 {
		if updated, ok := insertBefore(content, "</body>", block); ok {
			content = updated
		} else {
			content += "\n" + block + "\n"
		}
		insertions = 1
		res.Warnings = append(res.Warnings,
			"no section anchors found, call to action appended to the page")
	}

	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out), dirPerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, []byte(content), filePerm); err != nil {
		return nil, fmt.Errorf("write template %s: %w", out, err)
	}

	a.logger.Debug(ctx, "call to action blocks inserted",
		zap.String("template_id", in.TemplateID),
		zap.Int("insertions", insertions),
		zap.Strings("anchors", matched),
	)

	res.Message = fmt.Sprintf("inserted %d call to action blocks", insertions)
	res.OutputPath = out
	res.Metadata["inserted_cta"] = true
	res.Metadata["insertions"] = insertions
	res.Metadata["anchors"] = len(matched)
	return res, nil
}

// ctaBlock builds the insert from the spec's call-to-action copy. The
// block uses the page's own design tokens so it matches any palette.
func ctaBlock(s *spec.TemplateSpec) string {
	heading := "Ready to Get Started?"
	href := "#contact"
	label := s.PrimaryCTA()
	if phone := strings.TrimSpace(s.Business.Phone); phone != "" {
		heading = "Call Now to Get Started!"
		href = "tel:" + phone
		label = s.PhoneCTA()
	}
	return fmt.Sprintf(`<div class="cta-section" style="background: var(--primary-color); color: #ffffff; padding: 3rem 1.5rem; text-align: center;">
    <h2 style="color: #ffffff; margin-bottom: 1rem;">%s</h2>
    <a href="%s" style="display: inline-block; background: #ffffff; color: var(--primary-color); padding: 1rem 2rem; border-radius: 8px; font-weight: 600; text-decoration: none;">%s</a>
</div>`, heading, href, html.EscapeString(label))
}

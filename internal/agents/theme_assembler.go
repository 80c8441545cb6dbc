package agents

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

// ThemeAssembler expands the optimized page template into a complete
// WordPress theme directory.
type ThemeAssembler struct {
	logger *logging.Logger
	loader *spec.Loader
}

// NewThemeAssembler returns the theme assembly stage.
func NewThemeAssembler(logger *logging.Logger) (*ThemeAssembler, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &ThemeAssembler{logger: logger, loader: loader}, nil
}

// ID implements pipeline.Agent.
func (a *ThemeAssembler) ID() string { return "theme_assembler" }

// Run builds the theme from the spec, the design variation and the
// optimized page template, then writes it to the themes directory.
func (a *ThemeAssembler) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	templatePath, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	templatePHP, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", templatePath, err)
	}

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}
	v, err := loadVariation(in.Paths)
	if err != nil {
		return nil, fmt.Errorf("load design variation: %w", err)
	}

	t, err := theme.Build(s, v, string(templatePHP))
	if err != nil {
		return nil, err
	}

	dir, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := t.Write(dir); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "theme assembled",
		zap.String("template_id", in.TemplateID),
		zap.String("theme", t.Name),
		zap.Int("files", len(t.Files)),
		zap.String("path", dir),
	)

	res := pipeline.NewResult(a.ID())
	res.Message = fmt.Sprintf("theme %q assembled", t.Name)
	res.OutputPath = dir
	res.Metadata["theme"] = t.Name
	res.Metadata["files"] = len(t.Files)
	res.Metadata["version"] = t.Version
	res.Metadata["multi_page"] = s.SiteType == spec.SiteMultiPage
	return res, nil
}

package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
	"github.com/fyrsmithlabs/themesmith/internal/variation"
)

// TemplateEngineer renders the single-file PHP landing page from the
// spec, the design brief and the design variation.
type TemplateEngineer struct {
	logger *logging.Logger
	loader *spec.Loader
	engine *variation.Engine
	seed   int64
}

// NewTemplateEngineer returns the page rendering stage. The engine is
// the fallback variation source for runs where the variation stage was
// skipped.
func NewTemplateEngineer(logger *logging.Logger, engine *variation.Engine, seed int64) (*TemplateEngineer, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if engine == nil {
		return nil, errors.New("variation engine is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &TemplateEngineer{
		logger: logger,
		loader: loader,
		engine: engine,
		seed:   seed,
	}, nil
}

// ID implements pipeline.Agent.
func (a *TemplateEngineer) ID() string { return "template_engineer" }

// Run renders the landing page template. The spec, brief and variation
// are read from their canonical locations rather than the threaded
// input, which may be either of the two preceding artifacts depending
// on whether the variation stage ran.
func (a *TemplateEngineer) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	if in.Paths == nil {
		return nil, errors.New("path manager is required")
	}

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}

	promptPath, err := in.Paths.InputFor(a.ID())
	if err != nil {
		return nil, err
	}
	doc, err := loadPromptDocument(promptPath)
	if err != nil {
		return nil, fmt.Errorf("load design brief: %w", err)
	}

	res := pipeline.NewResult(a.ID())

	v, err := loadVariation(in.Paths)
	if errors.Is(err, fs.ErrNotExist) {
		// The variation stage is optional. Sample one here and persist
		// it so the assembler and enhancers see the same design.
		v, err = a.sampleVariation(ctx, in, s)
		if err != nil {
			return nil, err
		}
		res.Metadata["variation_generated"] = true
	} else if err != nil {
		return nil, err
	}

	page, err := theme.RenderPage(s, v)
	if err != nil {
		return nil, err
	}

	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out), dirPerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, []byte(page), filePerm); err != nil {
		return nil, fmt.Errorf("write template %s: %w", out, err)
	}

	if doc.BusinessContext.Name != "" && doc.BusinessContext.Name != s.Business.Name {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"design brief names %q but the spec names %q",
			doc.BusinessContext.Name, s.Business.Name))
	}

	a.logger.Info(ctx, "landing page template generated",
		zap.String("template_id", in.TemplateID),
		zap.String("variation_id", v.ID),
		zap.String("hero", v.Layout.Hero.Name),
		zap.Int("bytes", len(page)),
	)

	res.Message = "landing page template generated"
	res.OutputPath = out
	res.Metadata["template_id"] = s.TemplateID
	res.Metadata["hero"] = v.Layout.Hero.Name
	res.Metadata["fonts"] = v.Typography.Fonts.Name
	res.Metadata["bytes"] = len(page)
	return res, nil
}

func (a *TemplateEngineer) sampleVariation(ctx context.Context, in pipeline.Input, s *spec.TemplateSpec) (*variation.Variation, error) {
	seed := a.seed
	if seed == 0 {
		seed = deriveSeed(in.PipelineID, in.TemplateID)
	}
	v, err := a.engine.Generate(ctx, seed, s)
	if err != nil {
		return nil, err
	}
	path, err := in.Paths.OutputFor("design_variation")
	if err != nil {
		return nil, err
	}
	if err := v.WriteFile(path); err != nil {
		return nil, err
	}
	a.logger.Debug(ctx, "variation sampled for skipped stage",
		zap.String("template_id", in.TemplateID),
		zap.String("variation_id", v.ID),
	)
	return v, nil
}

func loadPromptDocument(path string) (*PromptDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc PromptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

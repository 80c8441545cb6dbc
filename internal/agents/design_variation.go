package agents

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/variation"
)

// DesignVariation samples the design axes for the run and persists the
// chosen variation so every rendering stage draws from the same design.
type DesignVariation struct {
	logger *logging.Logger
	loader *spec.Loader
	engine *variation.Engine
	seed   int64
}

// NewDesignVariation returns the variation stage. A zero seed derives
// one from the pipeline and template IDs at run time.
func NewDesignVariation(logger *logging.Logger, engine *variation.Engine, seed int64) (*DesignVariation, error) {
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
	return &DesignVariation{
		logger: logger,
		loader: loader,
		engine: engine,
		seed:   seed,
	}, nil
}

// ID implements pipeline.Agent.
func (a *DesignVariation) ID() string { return "design_variation" }

// Run samples a variation for the spec and writes the variation
// artifact. The threaded input path is ignored here: the previous stage
// emits the design brief, but variation sampling works from the spec.
func (a *DesignVariation) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	if in.Paths == nil {
		return nil, errors.New("path manager is required")
	}

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}

	seed := a.seed
	if seed == 0 {
		seed = deriveSeed(in.PipelineID, in.TemplateID)
	}
	v, err := a.engine.Generate(ctx, seed, s)
	if err != nil {
		return nil, err
	}

	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := v.WriteFile(out); err != nil {
		return nil, err
	}

	a.logger.Debug(ctx, "design variation persisted",
		zap.String("template_id", in.TemplateID),
		zap.String("variation_id", v.ID),
		zap.Int64("seed", seed),
	)

	res := pipeline.NewResult(a.ID())
	res.Message = fmt.Sprintf("design variation %s generated", v.ID)
	res.OutputPath = out
	res.Metadata["variation_id"] = v.ID
	res.Metadata["industry"] = v.Industry
	res.Metadata["hero"] = v.Layout.Hero.Name
	res.Metadata["fonts"] = v.Typography.Fonts.Name
	res.Metadata["personality"] = v.Personality
	return res, nil
}

package agents

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

// ThemeValidator scores the assembled theme and writes the validation
// report the refinement and packaging stages read.
type ThemeValidator struct {
	logger *logging.Logger
}

// NewThemeValidator returns the validation stage.
func NewThemeValidator(logger *logging.Logger) (*ThemeValidator, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &ThemeValidator{logger: logger}, nil
}

// ID implements pipeline.Agent.
func (a *ThemeValidator) ID() string { return "theme_validator" }

// Run validates the theme directory and persists the report. A theme
// with error findings yields a partial result so required downstream
// stages still run against the report.
func (a *ThemeValidator) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	path, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	dir, err := themeDirFor(path)
	if err != nil {
		return nil, err
	}

	report, err := theme.Validate(dir)
	if err != nil {
		return nil, err
	}

	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := report.WriteFile(out); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "theme validated",
		zap.String("template_id", in.TemplateID),
		zap.String("theme_path", dir),
		zap.Float64("score", report.Score),
		zap.Int("errors", report.Summary.Errors),
		zap.Int("warnings", report.Summary.Warnings),
	)

	res := pipeline.NewResult(a.ID())
	res.OutputPath = out
	res.QualityScore = report.Score
	res.Metadata["theme_path"] = dir
	res.Metadata["score"] = report.Score
	res.Metadata["errors"] = report.Summary.Errors
	res.Metadata["warnings"] = report.Summary.Warnings
	res.Metadata["info"] = report.Summary.Info

	if report.Passed() {
		res.Message = fmt.Sprintf("theme passed validation with score %.1f", report.Score)
	} else {
		res.Status = pipeline.ResultPartial
		res.Message = fmt.Sprintf("validation found %d errors, score %.1f",
			report.Summary.Errors, report.Score)
		for _, issue := range report.Issues {
			if issue.Severity == theme.SeverityError {
				res.Warnings = append(res.Warnings, issue.Message)
			}
		}
	}
	return res, nil
}

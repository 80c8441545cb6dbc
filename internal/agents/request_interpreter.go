package agents

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/interpret"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// RequestInterpreter turns the scrubbed request text into the template
// spec every later stage works from.
type RequestInterpreter struct {
	logger      *logging.Logger
	interpreter *interpret.Interpreter
	loader      *spec.Loader
}

// NewRequestInterpreter returns the first pipeline stage.
func NewRequestInterpreter(logger *logging.Logger) (*RequestInterpreter, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	interpreter, err := interpret.New(logger)
	if err != nil {
		return nil, err
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &RequestInterpreter{
		logger:      logger,
		interpreter: interpreter,
		loader:      loader,
	}, nil
}

// ID implements pipeline.Agent.
func (a *RequestInterpreter) ID() string { return "request_interpreter" }

// Run interprets the request and writes the spec artifact.
func (a *RequestInterpreter) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	if in.Paths == nil {
		return nil, errors.New("path manager is required")
	}
	if strings.TrimSpace(in.Request) == "" {
		return nil, errors.New("request is empty")
	}

	s, err := a.interpreter.Interpret(ctx, in.TemplateID, in.Request)
	if err != nil {
		return nil, err
	}

	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := a.loader.Save(ctx, out, s); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "template spec written",
		zap.String("pipeline_id", in.PipelineID),
		zap.String("template_id", in.TemplateID),
		zap.String("business", s.Business.Name),
		zap.String("path", out),
	)

	res := pipeline.NewResult(a.ID())
	res.Message = "request interpreted into template spec"
	res.OutputPath = out
	res.Metadata["template_id"] = s.TemplateID
	res.Metadata["site_type"] = string(s.SiteType)
	res.Metadata["business_type"] = s.BusinessType()
	res.Metadata["services"] = len(s.EffectiveServices())
	res.Metadata["pages"] = len(s.Pages)
	return res, nil
}

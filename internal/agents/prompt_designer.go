package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

const designSystemPrompt = "You are an expert PHP developer and modern web designer " +
	"specializing in creating professional, conversion-focused landing pages."

const designOutputFormat = "One complete PHP file with business-specific content, " +
	"embedded CSS, and proper form handling."

const designBriefTemplate = `Create a complete, production-ready PHP landing page for the following business.

BUSINESS DETAILS:
- Name: {{.business_name}}
- Type: {{.business_type}}
- Services: {{.services}}
- Location: {{.location}}
- Primary call to action: {{.primary_cta}}

TARGET AUDIENCE:
Local customers in {{.location}} searching for {{.services_lower}}.

REQUIREMENTS:
1. One PHP file with embedded CSS and a working contact form
2. Mobile-first responsive layout
3. Server-side form validation with clear error messages
4. Location-specific copy that mentions {{.location}}
5. Clear calls to action above and below the fold

DESIGN PREFERENCES:
- Colors: {{.colors}}
- Style: {{.style}}
- Fonts: {{.fonts}}

SECTIONS TO INCLUDE:
{{.sections}}`

var designConstraints = []string{
	"Use the actual business name and services throughout the template",
	"Create location-specific content and references",
	"Use modern PHP practices with proper form handling",
	"Responsive layout using Flexbox or Grid",
	"No external frameworks or dependencies",
	"Minimal JavaScript, focus on CSS for interactions",
	"Include realistic testimonials and content relevant to the business type",
}

// BusinessContext is the condensed business summary carried inside a
// design brief.
type BusinessContext struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Services    []string `json:"services"`
	Location    string   `json:"location"`
	ProjectType string   `json:"project_type"`
}

// PromptDocument is the design brief the prompt designer hands to the
// template engineer.
type PromptDocument struct {
	AgentID         string          `json:"agent_id"`
	Status          string          `json:"status"`
	Timestamp       time.Time       `json:"timestamp"`
	BusinessContext BusinessContext `json:"business_context"`
	SystemPrompt    string          `json:"system_prompt"`
	UserPrompt      string          `json:"user_prompt"`
	Constraints     []string        `json:"constraints"`
	OutputFormat    string          `json:"output_format"`
	Examples        []string        `json:"examples"`
}

// PromptDesigner renders the spec into a design brief: a system prompt,
// a filled user prompt and the constraints the generated page must obey.
type PromptDesigner struct {
	logger *logging.Logger
	loader *spec.Loader
	brief  prompts.PromptTemplate
}

// NewPromptDesigner returns the design brief stage.
func NewPromptDesigner(logger *logging.Logger) (*PromptDesigner, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &PromptDesigner{
		logger: logger,
		loader: loader,
		brief: prompts.NewPromptTemplate(designBriefTemplate, []string{
			"business_name", "business_type", "services", "services_lower",
			"location", "primary_cta", "colors", "style", "fonts", "sections",
		}),
	}, nil
}

// ID implements pipeline.Agent.
func (a *PromptDesigner) ID() string { return "prompt_designer" }

// Run reads the spec and writes the design brief artifact.
func (a *PromptDesigner) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	specPath, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	s, err := a.loader.Load(ctx, specPath)
	if err != nil {
		return nil, err
	}

	var services []string
	for _, svc := range s.EffectiveServices() {
		services = append(services, svc.Name)
	}
	location := s.Location.City + ", " + s.Location.State
	sections := briefSections(s)

	userPrompt, err := a.brief.Format(map[string]any{
		"business_name":  s.Business.Name,
		"business_type":  s.BusinessType(),
		"services":       strings.Join(services, ", "),
		"services_lower": strings.ToLower(strings.Join(services, ", ")),
		"location":       location,
		"primary_cta":    s.PrimaryCTA(),
		"colors":         briefColors(s),
		"style":          briefStyle(s),
		"fonts":          briefFonts(s),
		"sections":       briefList(sections),
	})
	if err != nil {
		return nil, fmt.Errorf("format design brief: %w", err)
	}

	doc := PromptDocument{
		AgentID:   a.ID(),
		Status:    "complete",
		Timestamp: time.Now().UTC(),
		BusinessContext: BusinessContext{
			Name:        s.Business.Name,
			Type:        s.BusinessType(),
			Services:    services,
			Location:    location,
			ProjectType: string(s.SiteType),
		},
		SystemPrompt: designSystemPrompt,
		UserPrompt:   userPrompt,
		Constraints:  designConstraints,
		OutputFormat: designOutputFormat,
		Examples:     []string{},
	}

	out, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := writeJSON(out, doc); err != nil {
		return nil, err
	}

	a.logger.Debug(ctx, "design brief prepared",
		zap.String("template_id", in.TemplateID),
		zap.String("business", s.Business.Name),
		zap.Int("sections", len(sections)),
	)

	res := pipeline.NewResult(a.ID())
	res.Message = "design brief prepared"
	res.OutputPath = out
	res.Metadata["sections"] = len(sections)
	res.Metadata["constraints"] = len(designConstraints)
	return res, nil
}

// briefSections collects the distinct page sections in presentation
// order, defaulting to the standard landing layout.
func briefSections(s *spec.TemplateSpec) []string {
	seen := make(map[string]bool)
	var ordered []string
	for _, page := range s.Pages {
		for _, sec := range page.Sections {
			if sec != "" && !seen[sec] {
				seen[sec] = true
				ordered = append(ordered, sec)
			}
		}
	}
	if len(ordered) == 0 {
		ordered = []string{"hero", "services", "about", "testimonials", "contact"}
	}
	return ordered
}

func briefList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func briefColors(s *spec.TemplateSpec) string {
	c := s.Design.Colors
	if !s.Design.CustomPalette || c.Primary == "" {
		return "designer's choice with strong contrast"
	}
	desc := "primary " + c.Primary
	if c.Secondary != "" {
		desc += ", secondary " + c.Secondary
	}
	if c.Accent != "" {
		desc += ", accent " + c.Accent
	}
	return desc
}

func briefStyle(s *spec.TemplateSpec) string {
	switch s.Design.Theme {
	case spec.ThemeDark:
		return "dark, high-contrast"
	case spec.ThemeLight:
		return "light, airy"
	default:
		return "modern, professional"
	}
}

func briefFonts(s *spec.TemplateSpec) string {
	f := s.Design.Fonts
	switch {
	case f.Heading != "" && f.Body != "":
		return f.Heading + " headings with " + f.Body + " body text"
	case f.Heading != "":
		return f.Heading + " headings"
	default:
		return "modern web fonts"
	}
}

// Package interpret turns a markdown business request into a template
// spec. Headings and lists come from the goldmark AST, the fuzzier
// business details from keyword tables and regular expressions over the
// raw text.
package interpret

import (
	"context"
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// Interpreter parses website requests. Safe for concurrent use; the
// underlying goldmark parser creates per-call state.
type Interpreter struct {
	logger *logging.Logger
	md     goldmark.Markdown
}

// New creates an Interpreter.
func New(logger *logging.Logger) (*Interpreter, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Interpreter{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}, nil
}

// Interpret builds the template spec for a request. Extraction is best
// effort: missing details fall back to business-type defaults, so the only
// errors are an empty request or template id.
func (i *Interpreter) Interpret(ctx context.Context, templateID, request string) (*spec.TemplateSpec, error) {
	if templateID == "" {
		return nil, errors.New("template id is required")
	}
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, errors.New("request is empty")
	}

	o := i.parse(request)

	business := extractBusiness(request, o)
	city, state := extractLocation(request)
	if business.Type != "" && city != "" {
		business.Tagline = business.Type + " in " + city + ", " + state
	}

	s := &spec.TemplateSpec{
		TemplateID: templateID,
		Business:   business,
		Location:   buildLocation(city, state),
	}

	s.SiteType = detectSiteType(request, o)
	if s.SiteType == spec.SiteMultiPage {
		s.Pages = extractPages(o)
		s.Navigation = make([]string, 0, len(s.Pages))
		for _, p := range s.Pages {
			s.Navigation = append(s.Navigation, p.Title)
		}
	} else {
		s.Pages = []spec.Page{{
			Slug:     "home",
			Title:    "Home",
			Sections: []string{"hero", "services", "about", "testimonials", "contact"},
		}}
	}

	s.Services = extractServices(o, s.BusinessType())

	theme := detectThemePreference(request)
	colors, custom := extractColors(o)
	if !custom {
		colors = smartPalette(business.Type, business.Name, theme)
	}
	s.Design = spec.Design{
		Colors:        colors,
		Theme:         theme,
		CustomPalette: custom,
	}

	if s.BusinessType() == "Service Business" {
		s.CTA.Primary = "Get Quote"
	} else {
		s.CTA.Primary = "Call Now"
	}

	i.logger.Debug(ctx, "request interpreted",
		zap.String("template_id", templateID),
		zap.String("business_name", business.Name),
		zap.String("business_type", s.BusinessType()),
		zap.String("site_type", string(s.SiteType)),
		zap.Int("services", len(s.Services)),
		zap.Int("pages", len(s.Pages)),
		zap.Bool("custom_palette", custom),
	)
	return s, nil
}

func buildLocation(city, state string) spec.Location {
	if city == "" {
		return spec.Location{City: "Your City", State: "Your State", Region: "Local Area"}
	}
	return spec.Location{City: city, State: state, Region: city + " Metro"}
}

// outline is the structural view of the request: one entry per heading,
// carrying the list items and block text that follow it. Bold spans are
// collected document-wide for business-name detection.
type outline struct {
	sections []outlineSection
	bold     []string
}

type outlineSection struct {
	level int
	title string
	items []string
	body  []string
}

// sectionsMatching returns the sections whose lowercased title contains
// any of the given phrases.
func (o *outline) sectionsMatching(phrases ...string) []*outlineSection {
	var out []*outlineSection
	for idx := range o.sections {
		title := strings.ToLower(o.sections[idx].title)
		for _, p := range phrases {
			if strings.Contains(title, p) {
				out = append(out, &o.sections[idx])
				break
			}
		}
	}
	return out
}

func (i *Interpreter) parse(request string) *outline {
	source := []byte(request)
	doc := i.md.Parser().Parse(text.NewReader(source))

	o := &outline{}
	// Content before the first heading lands in an untitled section.
	o.sections = append(o.sections, outlineSection{})
	current := &o.sections[0]

	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			o.sections = append(o.sections, outlineSection{
				level: n.Level,
				title: nodeText(n, source),
			})
			current = &o.sections[len(o.sections)-1]

		case *ast.ListItem:
			if item := listItemText(n, source); item != "" {
				current.items = append(current.items, item)
			}

		case *ast.Paragraph:
			// Paragraphs inside list items are captured as items already.
			if _, inItem := n.Parent().(*ast.ListItem); !inItem {
				if body := nodeText(n, source); body != "" {
					current.body = append(current.body, body)
				}
			}

		case *ast.FencedCodeBlock:
			current.body = append(current.body, blockLines(n, source)...)
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			current.body = append(current.body, blockLines(n, source)...)
			return ast.WalkSkipChildren, nil

		case *ast.Emphasis:
			if n.Level >= 2 {
				if span := nodeText(n, source); span != "" {
					o.bold = append(o.bold, span)
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return o
}

// nodeText collects the plain text of a node and its children. Soft line
// breaks become spaces so hard-wrapped source reads as one line.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// listItemText returns the text of the item's own first block, leaving
// nested sublists to their own walk visits.
func listItemText(item *ast.ListItem, source []byte) string {
	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.Kind() {
		case ast.KindTextBlock, ast.KindParagraph:
			return nodeText(child, source)
		}
	}
	return ""
}

// blockLines returns the raw lines of a code block.
func blockLines(node ast.Node, source []byte) []string {
	var out []string
	lines := node.Lines()
	for idx := 0; idx < lines.Len(); idx++ {
		segment := lines.At(idx)
		if line := strings.TrimSpace(string(segment.Value(source))); line != "" {
			out = append(out, line)
		}
	}
	return out
}

package theme

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/variation"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ThemeVersion is stamped into the stylesheet header and enqueued asset
// versions of every generated theme.
const ThemeVersion = "1.0.0"

var themeTemplates = template.Must(template.New("theme").Funcs(template.FuncMap{
	"php":  phpQuote,
	"html": template.HTMLEscapeString,
	"dash": func(s string) string { return strings.ReplaceAll(s, "_", "-") },
}).ParseFS(templateFS, "templates/*.tmpl"))

var styleBlockRE = regexp.MustCompile(`(?s)<style[^>]*>(.*?)</style>`)

type buildData struct {
	ThemeName         string
	TextDomain        string
	FunctionPrefix    string
	Version           string
	MultiPage         bool
	Business          spec.Business
	BusinessTypeLower string
	Location          spec.Location
	CTAPrimary        string
	CTAPhone          string
	Services          []spec.Service
	Pages             []spec.Page
	CSSVariables      map[string]string
	Fonts             variation.FontPairing
	Buttons           variation.ButtonStyle
	Cards             variation.CardStyle
	GoogleFontsURL    string
	ExtractedCSS      string
}

type pageData struct {
	*buildData
	Page spec.Page
}

// Build assembles a complete theme for the spec and design variation.
// templatePHP is the engineered single file page template; its inline
// style blocks are folded into the generated stylesheet. It may be
// empty.
func Build(s *spec.TemplateSpec, v *variation.Variation, templatePHP string) (*Theme, error) {
	if s == nil {
		return nil, errors.New("template spec is required")
	}
	if v == nil {
		return nil, errors.New("design variation is required")
	}

	data := newBuildData(s, v, templatePHP)
	t := &Theme{
		Name:       data.ThemeName,
		TemplateID: s.TemplateID,
		Version:    data.Version,
		Files:      make(map[string]string),
	}

	files := map[string]string{
		"style.css":      "style.css.tmpl",
		"functions.php":  "functions.php.tmpl",
		"index.php":      "index.php.tmpl",
		"front-page.php": "front-page.php.tmpl",
		"header.php":     "header.php.tmpl",
		"footer.php":     "footer.php.tmpl",
		"page.php":       "page.php.tmpl",
		"single.php":     "single.php.tmpl",
		"js/theme.js":    "theme.js.tmpl",
	}
	if data.MultiPage {
		files["404.php"] = "404.php.tmpl"
	}
	for name, tmpl := range files {
		content, err := render(tmpl, data)
		if err != nil {
			return nil, err
		}
		t.Files[name] = content
	}

	if data.MultiPage {
		for _, page := range s.Pages {
			if page.Slug == "" || page.Slug == "home" {
				continue
			}
			content, err := render("page-custom.php.tmpl", pageData{buildData: data, Page: page})
			if err != nil {
				return nil, err
			}
			t.Files["page-"+page.Slug+".php"] = content
		}
	}

	return t, nil
}

// ExtractCSS returns the concatenated contents of every inline style
// block in a page template.
func ExtractCSS(templatePHP string) string {
	matches := styleBlockRE.FindAllStringSubmatch(templatePHP, -1)
	if len(matches) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		if block := strings.TrimSpace(m[1]); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func newBuildData(s *spec.TemplateSpec, v *variation.Variation, templatePHP string) *buildData {
	id := sanitizeIdentifier(s.TemplateID)
	colors := s.EffectiveColors()

	vars := make(map[string]string, len(v.CSSVariables)+2)
	for name, value := range v.CSSVariables {
		vars[name] = value
	}
	vars["--background-color"] = colors.Background
	vars["--text-color"] = colors.Text
	if s.Design.CustomPalette {
		if colors.Primary != "" {
			vars["--primary-color"] = colors.Primary
		}
		if colors.Secondary != "" {
			vars["--secondary-color"] = colors.Secondary
		}
		if colors.Accent != "" {
			vars["--accent-color"] = colors.Accent
		}
	}

	return &buildData{
		ThemeName:         s.Business.Name + " Theme",
		TextDomain:        "themesmith-" + strings.ReplaceAll(id, "_", "-"),
		FunctionPrefix:    "theme_" + id,
		Version:           ThemeVersion,
		MultiPage:         s.SiteType == spec.SiteMultiPage,
		Business:          s.Business,
		BusinessTypeLower: strings.ToLower(s.BusinessType()),
		Location:          s.Location,
		CTAPrimary:        s.PrimaryCTA(),
		CTAPhone:          s.PhoneCTA(),
		Services:          FillDescriptions(s.EffectiveServices()),
		Pages:             s.Pages,
		CSSVariables:      vars,
		Fonts:             v.Typography.Fonts,
		Buttons:           v.Components.Buttons,
		Cards:             v.Components.Cards,
		GoogleFontsURL:    v.Typography.GoogleFontsURL,
		ExtractedCSS:      ExtractCSS(templatePHP),
	}
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := themeTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// phpQuote escapes a value for interpolation inside a single quoted PHP
// string literal.
func phpQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// FillDescriptions writes fallback copy for services the request did
// not describe.
func FillDescriptions(services []spec.Service) []spec.Service {
	out := make([]spec.Service, len(services))
	for i, svc := range services {
		if svc.Description == "" {
			svc.Description = describeService(svc.Name)
		}
		out[i] = svc
	}
	return out
}

var identRE = regexp.MustCompile(`[^a-z0-9_]+`)

func sanitizeIdentifier(id string) string {
	id = identRE.ReplaceAllString(strings.ToLower(id), "_")
	id = strings.Trim(id, "_")
	if id == "" {
		return "site"
	}
	return id
}

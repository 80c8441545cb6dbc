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
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// SEOOptimizer copies the theme and injects local-business search
// metadata: head meta tags, Open Graph and Twitter cards, a title
// filter and LocalBusiness JSON-LD.
type SEOOptimizer struct {
	logger *logging.Logger
	loader *spec.Loader
}

// NewSEOOptimizer returns the search optimization stage.
func NewSEOOptimizer(logger *logging.Logger) (*SEOOptimizer, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &SEOOptimizer{logger: logger, loader: loader}, nil
}

// ID implements pipeline.Agent.
func (a *SEOOptimizer) ID() string { return "seo_optimizer" }

// Run stages an optimized copy of the theme and writes the structured
// data artifact next to it.
func (a *SEOOptimizer) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	src, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	dst, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := stageDir(src, dst); err != nil {
		return nil, fmt.Errorf("stage theme copy: %w", err)
	}

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}

	res := pipeline.NewResult(a.ID())
	var applied []string

	headerPath := filepath.Join(dst, "header.php")
	if header, err := os.ReadFile(headerPath); err == nil {
		content := string(header)
		if !strings.Contains(content, `property="og:title"`) {
			if updated, ok := insertBefore(content, "<?php wp_head(); ?>", seoMetaBlock(s)); ok {
				if err := os.WriteFile(headerPath, []byte(updated), filePerm); err != nil {
					return nil, err
				}
				applied = append(applied, "meta_tags", "open_graph", "twitter_cards")
			} else {
				res.Warnings = append(res.Warnings, "header.php has no wp_head call, meta tags skipped")
			}
		}
	} else {
		res.Warnings = append(res.Warnings, "header.php not found, meta tags skipped")
	}

	functionsPath := filepath.Join(dst, "functions.php")
	if functions, err := os.ReadFile(functionsPath); err == nil {
		content := string(functions)
		if !strings.Contains(content, "local_business_schema") {
			if err := appendToFile(functionsPath, seoFunctions(s, themePrefix(content))); err != nil {
				return nil, err
			}
			applied = append(applied, "title_filter", "json_ld")
		}
	} else {
		res.Warnings = append(res.Warnings, "functions.php not found, structured data skipped")
	}

	schemaPath, err := in.Paths.File(paths.KindEnhanced, "seo_schema_{template_id}.json")
	if err != nil {
		return nil, err
	}
	if err := writeJSON(schemaPath, localBusinessSchema(s)); err != nil {
		return nil, err
	}

	a.logger.Info(ctx, "search metadata injected",
		zap.String("template_id", in.TemplateID),
		zap.Strings("features", applied),
		zap.String("path", dst),
	)

	res.Message = fmt.Sprintf("applied %d search optimizations", len(applied))
	res.OutputPath = dst
	res.Metadata["seo_features"] = applied
	res.Metadata["schema_path"] = schemaPath
	return res, nil
}

// seoService returns the offering the page should rank for.
func seoService(s *spec.TemplateSpec) string {
	if services := s.EffectiveServices(); len(services) > 0 {
		return services[0].Name
	}
	return s.BusinessType()
}

// seoTitle builds the "{service} in {city}, {state} | {name}" page title.
func seoTitle(s *spec.TemplateSpec) string {
	return fmt.Sprintf("%s in %s, %s | %s",
		seoService(s), s.Location.City, s.Location.State, s.Business.Name)
}

// seoDescription prefers the description the request asked for and falls
// back to a local-service formula.
func seoDescription(s *spec.TemplateSpec) string {
	if s.SEO.Description != "" {
		return s.SEO.Description
	}
	var names []string
	for _, svc := range s.EffectiveServices() {
		names = append(names, strings.ToLower(svc.Name))
	}
	desc := fmt.Sprintf("Professional %s in %s, %s. %s provides %s.",
		strings.ToLower(seoService(s)), s.Location.City, s.Location.State,
		s.Business.Name, strings.Join(names, ", "))
	if phone := strings.TrimSpace(s.Business.Phone); phone != "" {
		desc += fmt.Sprintf(" Call %s for a free quote!", phone)
	}
	return desc
}

func seoKeywords(s *spec.TemplateSpec) string {
	if len(s.SEO.Keywords) > 0 {
		return strings.Join(s.SEO.Keywords, ", ")
	}
	service := strings.ToLower(seoService(s))
	city := strings.ToLower(s.Location.City)
	state := strings.ToLower(s.Location.State)
	return fmt.Sprintf("%[1]s, %[2]s %[1]s, %[3]s %[1]s, local %[1]s, %[1]s near me",
		service, city, state)
}

func seoMetaBlock(s *spec.TemplateSpec) string {
	title := html.EscapeString(seoTitle(s))
	desc := html.EscapeString(seoDescription(s))

	var b strings.Builder
	b.WriteString("<!-- Search metadata -->\n")
	meta := func(line string) {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	meta(fmt.Sprintf(`<meta name="description" content="%s">`, desc))
	meta(fmt.Sprintf(`<meta name="keywords" content="%s">`, html.EscapeString(seoKeywords(s))))
	meta(`<meta name="robots" content="index, follow">`)
	meta(`<link rel="canonical" href="<?php echo esc_url(home_url('/')); ?>">`)
	b.WriteByte('\n')
	meta(fmt.Sprintf(`<meta property="og:title" content="%s">`, title))
	meta(fmt.Sprintf(`<meta property="og:description" content="%s">`, desc))
	meta(`<meta property="og:type" content="website">`)
	meta(`<meta property="og:url" content="<?php echo esc_url(home_url('/')); ?>">`)
	meta(fmt.Sprintf(`<meta property="og:site_name" content="%s">`, html.EscapeString(s.Business.Name)))
	meta(`<meta property="og:locale" content="en_US">`)
	b.WriteByte('\n')
	meta(`<meta name="twitter:card" content="summary_large_image">`)
	meta(fmt.Sprintf(`<meta name="twitter:title" content="%s">`, title))
	meta(fmt.Sprintf(`<meta name="twitter:description" content="%s">`, desc))
	return b.String()
}

func seoFunctions(s *spec.TemplateSpec, prefix string) string {
	telephone := ""
	if phone := strings.TrimSpace(s.Business.Phone); phone != "" {
		telephone = fmt.Sprintf("        'telephone' => '%s',\n", phpQuote(phone))
	}
	return fmt.Sprintf(`

function %[1]s_seo_title($title) {
    if (empty($title) && (is_home() || is_front_page())) {
        return '%[2]s';
    }
    return $title;
}
add_filter('wp_title', '%[1]s_seo_title');

function %[1]s_local_business_schema() {
    $schema = array(
        '@context' => 'https://schema.org',
        '@type' => 'LocalBusiness',
        'name' => '%[3]s',
        'description' => '%[4]s',
        'url' => home_url('/'),
%[5]s        'address' => array(
            '@type' => 'PostalAddress',
            'addressLocality' => '%[6]s',
            'addressRegion' => '%[7]s',
            'addressCountry' => 'US',
        ),
        'openingHours' => 'Mo-Fr 08:00-18:00',
        'priceRange' => '$',
    );
    echo '<script type="application/ld+json">' . wp_json_encode($schema) . '</script>';
}
add_action('wp_head', '%[1]s_local_business_schema');
`,
		prefix,
		phpQuote(seoTitle(s)),
		phpQuote(s.Business.Name),
		phpQuote(seoDescription(s)),
		telephone,
		phpQuote(s.Location.City),
		phpQuote(s.Location.State),
	)
}

// localBusinessSchema is the structured data artifact persisted next to
// the enhanced theme.
func localBusinessSchema(s *spec.TemplateSpec) map[string]any {
	var offers []map[string]any
	for _, svc := range s.EffectiveServices() {
		offers = append(offers, map[string]any{
			"@type": "Offer",
			"itemOffered": map[string]any{
				"@type": "Service",
				"name":  svc.Name,
			},
		})
	}
	schema := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "LocalBusiness",
		"name":        s.Business.Name,
		"description": seoDescription(s),
		"address": map[string]any{
			"@type":           "PostalAddress",
			"addressLocality": s.Location.City,
			"addressRegion":   s.Location.State,
			"addressCountry":  "US",
		},
		"hasOfferCatalog": map[string]any{
			"@type":           "OfferCatalog",
			"name":            "Services",
			"itemListElement": offers,
		},
	}
	if phone := strings.TrimSpace(s.Business.Phone); phone != "" {
		schema["telephone"] = phone
	}
	return schema
}

// phpQuote escapes a value for a single-quoted PHP string literal.
func phpQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}

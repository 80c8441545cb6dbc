// Package spec defines the template specification document that flows
// between pipeline stages, together with a cached disk loader and the
// business-type fallback tables used when a request leaves fields blank.
package spec

// SiteType distinguishes single landing pages from multi-page sites.
type SiteType string

const (
	// SiteSinglePage renders one landing page with stacked sections.
	SiteSinglePage SiteType = "single_page"
	// SiteMultiPage renders a page per navigation entry.
	SiteMultiPage SiteType = "multi_page"
)

// Valid reports whether t is a known site type.
func (t SiteType) Valid() bool {
	return t == SiteSinglePage || t == SiteMultiPage
}

// ThemePreference is the requested overall brightness of the design.
type ThemePreference string

const (
	ThemeDark    ThemePreference = "dark"
	ThemeLight   ThemePreference = "light"
	ThemeNeutral ThemePreference = "neutral"
)

// Valid reports whether p is a known theme preference.
func (p ThemePreference) Valid() bool {
	return p == ThemeDark || p == ThemeLight || p == ThemeNeutral
}

// TemplateSpec is the structured form of a business website request. The
// request interpreter produces it, every later stage consumes it, and it is
// persisted as the specs/ artifact of a pipeline run.
type TemplateSpec struct {
	TemplateID string   `json:"template_id"`
	SiteType   SiteType `json:"site_type"`

	Business Business `json:"business"`
	Location Location `json:"location"`
	Design   Design   `json:"design"`

	// Services the business offers, in presentation order.
	Services []Service `json:"services,omitempty"`

	// Pages and Navigation are populated in multi-page mode. Navigation
	// holds page titles in menu order.
	Pages      []Page   `json:"pages,omitempty"`
	Navigation []string `json:"navigation,omitempty"`

	CTA CTA `json:"cta"`
	SEO SEO `json:"seo"`
}

// Business identifies who the site is for.
type Business struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Tagline     string `json:"tagline,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`
}

// Location is the service area the business operates in.
type Location struct {
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Region string `json:"region,omitempty"`
}

// Service is one offering with its marketing copy.
type Service struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Page describes one page of a multi-page site.
type Page struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Sections []string `json:"sections,omitempty"`
}

// Colors assigns hex values to the five design roles. Empty fields mean the
// request did not pin that role down.
type Colors struct {
	Primary    string `json:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty"`
	Background string `json:"background,omitempty"`
	Text       string `json:"text,omitempty"`
	Accent     string `json:"accent,omitempty"`
}

// Merge fills each empty role from fallback and returns the result.
func (c Colors) Merge(fallback Colors) Colors {
	if c.Primary == "" {
		c.Primary = fallback.Primary
	}
	if c.Secondary == "" {
		c.Secondary = fallback.Secondary
	}
	if c.Background == "" {
		c.Background = fallback.Background
	}
	if c.Text == "" {
		c.Text = fallback.Text
	}
	if c.Accent == "" {
		c.Accent = fallback.Accent
	}
	return c
}

// Complete reports whether every role has a value.
func (c Colors) Complete() bool {
	return c.Primary != "" && c.Secondary != "" && c.Background != "" &&
		c.Text != "" && c.Accent != ""
}

// Fonts names the typefaces the request asked for, if any.
type Fonts struct {
	Heading string `json:"heading,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Design captures the visual direction extracted from the request.
type Design struct {
	Colors Colors          `json:"colors"`
	Theme  ThemePreference `json:"theme_preference,omitempty"`
	Fonts  Fonts           `json:"fonts,omitempty"`

	// CustomPalette is true when the colors came from the request itself
	// rather than a business-type fallback.
	CustomPalette bool `json:"custom_palette,omitempty"`
}

// CTA holds call-to-action copy. Empty fields fall back to the keyword
// tables in this package.
type CTA struct {
	Primary string `json:"primary,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// SEO holds the metadata the optimizer injects into the theme head.
type SEO struct {
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// BusinessType returns the business type, defaulting to a generic service
// business when the request never named one.
func (s *TemplateSpec) BusinessType() string {
	if s.Business.Type != "" {
		return s.Business.Type
	}
	return "Service Business"
}

// EffectiveServices returns the spec's services, or the business-type
// fallback set when the request listed none. Services without copy get a
// generated description.
func (s *TemplateSpec) EffectiveServices() []Service {
	if len(s.Services) == 0 {
		return FallbackServices(s.BusinessType())
	}
	out := make([]Service, len(s.Services))
	for i, svc := range s.Services {
		if svc.Description == "" {
			svc.Description = ServiceDescription(svc.Name, s.BusinessType())
		}
		out[i] = svc
	}
	return out
}

// EffectiveColors returns the design colors with every empty role filled
// from the business-type fallback palette.
func (s *TemplateSpec) EffectiveColors() Colors {
	return s.Design.Colors.Merge(FallbackColors(s.BusinessType()))
}

// PrimaryCTA returns the main button copy, derived from the first service
// when the spec does not pin it down.
func (s *TemplateSpec) PrimaryCTA() string {
	if s.CTA.Primary != "" {
		return s.CTA.Primary
	}
	if len(s.Services) > 0 {
		return CTAText(s.Services[0].Name, CTAButton)
	}
	return CTAText("", CTAButton)
}

// PhoneCTA returns the copy for phone-number links.
func (s *TemplateSpec) PhoneCTA() string {
	if s.CTA.Phone != "" {
		return s.CTA.Phone
	}
	if len(s.Services) > 0 {
		return CTAText(s.Services[0].Name, CTAPhone)
	}
	return CTAText("", CTAPhone)
}

// Clone returns a deep copy so cached documents stay immutable.
func (s *TemplateSpec) Clone() *TemplateSpec {
	if s == nil {
		return nil
	}
	out := *s
	if s.Services != nil {
		out.Services = make([]Service, len(s.Services))
		copy(out.Services, s.Services)
	}
	if s.Pages != nil {
		out.Pages = make([]Page, len(s.Pages))
		for i, p := range s.Pages {
			cp := p
			if p.Sections != nil {
				cp.Sections = make([]string, len(p.Sections))
				copy(cp.Sections, p.Sections)
			}
			out.Pages[i] = cp
		}
	}
	if s.Navigation != nil {
		out.Navigation = make([]string, len(s.Navigation))
		copy(out.Navigation, s.Navigation)
	}
	if s.SEO.Keywords != nil {
		out.SEO.Keywords = make([]string, len(s.SEO.Keywords))
		copy(out.SEO.Keywords, s.SEO.Keywords)
	}
	return &out
}

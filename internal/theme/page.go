package theme

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/variation"
)

type navLink struct {
	Href  string
	Label string
}

type landingData struct {
	*buildData
	Title           string
	MetaDescription string
	Headline        string
	Subheadline     string
	AboutCopy       string
	ContactEmail    string
	Sections        []string
	NavLinks        []navLink
	Hero            variation.HeroStyle
	Unique          variation.UniqueElements
	GridSystem      string
}

// RenderPage renders the standalone single file landing page for a spec
// and design variation. The result is a complete PHP document with its
// styles inlined, previewable outside WordPress.
func RenderPage(s *spec.TemplateSpec, v *variation.Variation) (string, error) {
	if s == nil {
		return "", errors.New("template spec is required")
	}
	if v == nil {
		return "", errors.New("design variation is required")
	}
	return render("landing.php.tmpl", newLandingData(s, v))
}

func newLandingData(s *spec.TemplateSpec, v *variation.Variation) *landingData {
	base := newBuildData(s, v, "")
	sections := pageSections(v.Layout.SectionArrangement)

	d := &landingData{
		buildData:    base,
		Title:        s.Business.Name + " - " + s.BusinessType(),
		Headline:     "Welcome to " + s.Business.Name,
		ContactEmail: contactEmail(s.Business),
		Sections:     sections,
		NavLinks:     navLinks(sections),
		Hero:         v.Layout.Hero,
		Unique:       v.Unique,
		GridSystem:   v.Layout.GridSystem,
	}
	if v.Layout.Hero.Name == "minimal_stacked" {
		d.Headline = s.Business.Name
	}

	d.MetaDescription = s.SEO.Description
	if d.MetaDescription == "" {
		d.MetaDescription = fmt.Sprintf("%s - Professional %s in %s, %s",
			s.Business.Name, base.BusinessTypeLower, s.Location.City, s.Location.State)
	}

	firstService := "services"
	if len(base.Services) > 0 {
		firstService = strings.ToLower(base.Services[0].Name)
	}
	d.Subheadline = fmt.Sprintf("Serving %s, %s with professional %s and exceptional customer service.",
		s.Location.City, s.Location.State, firstService)

	d.AboutCopy = s.Business.Description
	if d.AboutCopy == "" {
		d.AboutCopy = fmt.Sprintf("Welcome to %s, your trusted %s provider in %s, %s. We take pride in quality work, honest pricing, and treating every customer like a neighbor.",
			s.Business.Name, base.BusinessTypeLower, s.Location.City, s.Location.State)
	}

	return d
}

// pageSections splits a section arrangement into its ordered section
// names, dropping the hero which is always rendered first.
func pageSections(arrangement string) []string {
	parts := strings.Split(arrangement, "_")
	sections := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "hero" {
			continue
		}
		sections = append(sections, part)
	}
	if len(sections) == 0 {
		sections = []string{"services", "contact"}
	}
	return sections
}

var navLabels = map[string]string{
	"services": "Services",
	"about":    "About",
	"pricing":  "Pricing",
	"contact":  "Contact",
}

func navLinks(sections []string) []navLink {
	links := make([]navLink, 0, len(sections))
	for _, section := range sections {
		label, ok := navLabels[section]
		if !ok {
			continue
		}
		links = append(links, navLink{Href: "#" + section, Label: label})
	}
	return links
}

func contactEmail(b spec.Business) string {
	if b.Email != "" {
		return b.Email
	}
	var host strings.Builder
	for _, r := range strings.ToLower(b.Name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			host.WriteRune(r)
		}
	}
	if host.Len() == 0 {
		host.WriteString("contact")
	}
	return "info@" + host.String() + ".com"
}

package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/variation"
)

func TestRenderPageRequiresInputs(t *testing.T) {
	_, err := RenderPage(nil, testVariation())
	assert.Error(t, err)

	_, err = RenderPage(testSpec(), nil)
	assert.Error(t, err)
}

func TestRenderPageClassicCentered(t *testing.T) {
	page, err := RenderPage(testSpec(), testVariation())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<?php"), "page should open with a PHP block")
	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "<title>Northern Roots Landscaping - Landscaping</title>")
	assert.Contains(t, page, `content="Northern Roots Landscaping - Professional landscaping in Ramsey, Minnesota"`)
	assert.Contains(t, page, `<body class="classic-centered modern-professional rounded-modern">`)

	// Sections follow the variation's arrangement.
	for _, anchor := range []string{"<!-- hero -->", "<!-- services -->", "<!-- about -->", "<!-- testimonials -->", "<!-- contact -->"} {
		assert.Contains(t, page, anchor)
	}
	for _, anchor := range []string{"<!-- pricing -->", "<!-- faq -->", "<!-- features -->"} {
		assert.NotContains(t, page, anchor)
	}

	assert.Contains(t, page, "Welcome to Northern Roots Landscaping")
	assert.Contains(t, page, "Serving Ramsey, Minnesota with professional hardscaping &amp; patios and exceptional customer service.")
	assert.Contains(t, page, "Hardscaping &amp; Patios")
	assert.Contains(t, page, "Stonework built to last.")

	// Contact form handling stays in plain PHP.
	assert.Contains(t, page, "filter_var($email, FILTER_VALIDATE_EMAIL)")
	assert.Contains(t, page, `Thank you for contacting Northern Roots Landscaping! We\'ll get back to you soon.`)
	assert.Contains(t, page, "tel:(763) 555-0142")
	assert.Contains(t, page, "mailto:hello@northernroots.com")

	assert.Contains(t, page, "--primary-color: #2563eb;")
	assert.Contains(t, page, "grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));")
	assert.NotEmpty(t, ExtractCSS(page), "inline styles must be extractable for the theme stylesheet")
}

func TestRenderPageHeroVariants(t *testing.T) {
	tests := []struct {
		hero string
		want string
	}{
		{"classic_centered", "padding: 6rem 0;"},
		{"split_screen", `<div class="hero-panel" aria-hidden="true"></div>`},
		{"full_bleed_banner", "min-height: 85vh;"},
		{"minimal_stacked", "max-width: 760px;"},
	}
	for _, tt := range tests {
		t.Run(tt.hero, func(t *testing.T) {
			v := testVariation()
			v.Layout.Hero = variation.HeroStyle{Name: tt.hero}

			page, err := RenderPage(testSpec(), v)
			require.NoError(t, err)
			assert.Contains(t, page, tt.want)
		})
	}
}

func TestRenderPageMinimalStackedShortensHeadline(t *testing.T) {
	v := testVariation()
	v.Layout.Hero = variation.HeroStyle{Name: "minimal_stacked"}

	page, err := RenderPage(testSpec(), v)
	require.NoError(t, err)
	assert.NotContains(t, page, "Welcome to Northern Roots Landscaping")
	assert.Contains(t, page, "<h1>Northern Roots Landscaping</h1>")
}

func TestRenderPageArrangements(t *testing.T) {
	v := testVariation()
	v.Layout.SectionArrangement = "hero_features_pricing_contact"

	page, err := RenderPage(testSpec(), v)
	require.NoError(t, err)

	assert.Contains(t, page, "<!-- features -->")
	assert.Contains(t, page, "<!-- pricing -->")
	assert.Contains(t, page, "<!-- contact -->")
	assert.NotContains(t, page, "<!-- services -->")
	assert.Contains(t, page, `<a href="#pricing">Pricing</a>`)
	assert.NotContains(t, page, `<a href="#about">`)
	assert.Contains(t, page, "Why Choose Northern Roots Landscaping?")
	assert.Contains(t, page, "Contact for pricing")
}

func TestRenderPageFAQMentionsPhone(t *testing.T) {
	v := testVariation()
	v.Layout.SectionArrangement = "hero_services_testimonials_faq_contact"

	page, err := RenderPage(testSpec(), v)
	require.NoError(t, err)
	assert.Contains(t, page, "<!-- faq -->")
	assert.Contains(t, page, "Do you serve Ramsey and nearby areas?")
	assert.Contains(t, page, "Call (763) 555-0142 or use the contact form below")
}

func TestRenderPageFillsMissingServiceCopy(t *testing.T) {
	s := testSpec()
	s.Services = []spec.Service{{Name: "Irrigation Installation"}}

	page, err := RenderPage(s, testVariation())
	require.NoError(t, err)
	assert.Contains(t, page, "Expert irrigation system installation")
}

func TestRenderPageDerivesContactEmail(t *testing.T) {
	s := testSpec()
	s.Business.Email = ""

	page, err := RenderPage(s, testVariation())
	require.NoError(t, err)
	assert.Contains(t, page, "mailto:info@northernrootslandscaping.com")
}

func TestPageSections(t *testing.T) {
	assert.Equal(t,
		[]string{"services", "about", "testimonials", "contact"},
		pageSections("hero_services_about_testimonials_contact"))
	assert.Equal(t, []string{"services", "contact"}, pageSections("hero"))
	assert.Equal(t, []string{"services", "contact"}, pageSections(""))
}

func TestContactEmail(t *testing.T) {
	assert.Equal(t, "kept@example.com", contactEmail(spec.Business{Email: "kept@example.com", Name: "Ignored"}))
	assert.Equal(t, "info@joespclaptop.com", contactEmail(spec.Business{Name: "Joe's PC & Laptop"}))
	assert.Equal(t, "info@contact.com", contactEmail(spec.Business{}))
}

func TestDescribeService(t *testing.T) {
	assert.Contains(t, describeService("Landscape Design"), "landscape design")
	assert.Contains(t, describeService("Cloud Migration"), "cloud migration")
	assert.Equal(t,
		"Professional dog walking services delivered with expertise, quality, and dedication to your satisfaction.",
		describeService("Dog Walking"))
}

package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBusinessName(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    string
	}{
		{
			"bold with keyword",
			"A site for **Northern Roots Landscaping** please.",
			"Northern Roots Landscaping",
		},
		{
			"plain bold name",
			"We are **Harbor Lights** and we need a website.",
			"Harbor Lights",
		},
		{
			"website for phrasing",
			"Please build a website for Riverside Tacos, opening soon.",
			"Riverside Tacos",
		},
		{
			"create for phrasing",
			"Create a landing page for Maple Grove Dental.",
			"Maple Grove Dental",
		},
		{
			"heading fallback",
			"# Website Request: Cedar Gym\n\nNothing else here.",
			"Cedar Gym",
		},
		{
			"no name",
			"just text with no capitals worth keeping",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := parseOutline(t, tt.request)
			assert.Equal(t, tt.want, extractBusinessName(tt.request, o))
		})
	}
}

func TestExtractBusinessType(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"landscaping", "lawn care and patio work", "Landscaping"},
		{"pc repair", "we offer PC repair and upgrades", "PC Repair"},
		{"restaurant", "a family dining experience", "Restaurant"},
		{"legal", "attorney services downtown", "Legal Services"},
		{"automotive", "trusted mechanic shop", "Automotive"},
		{"none", "something entirely different", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := parseOutline(t, tt.request)
			b := extractBusiness(tt.request, o)
			assert.Equal(t, tt.want, b.Type)
		})
	}
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name    string
		request string
		city    string
		state   string
	}{
		{"bold in", "a business in **Ramsey, Minnesota** today", "Ramsey", "Minnesota"},
		{"located in", "We are located in Boulder, Colorado.", "Boulder", "Colorado"},
		{"serving", "proudly serving Austin, Texas.", "Austin", "Texas"},
		{"plain in", "a bakery in Portland, Oregon.", "Portland", "Oregon"},
		{"none", "no location mentioned here", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city, state := extractLocation(tt.request)
			assert.Equal(t, tt.city, city)
			assert.Equal(t, tt.state, state)
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"parens", "Call (555) 123-4567 anytime", "(555) 123-4567"},
		{"dashes", "Call 555-123-4567 anytime", "555-123-4567"},
		{"dots", "Call 555.123.4567 anytime", "555.123.4567"},
		{"spaces", "Call 555 123 4567 anytime", "555 123 4567"},
		{"none", "no number here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractPhone(tt.request))
		})
	}
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "info@roots.example", extractEmail("Reach us at info@roots.example today"))
	assert.Empty(t, extractEmail("no address"))
}

func TestExtractDescription(t *testing.T) {
	request := "Create a website for Northern Roots. A family-owned crew serving the metro since 2009.\n"
	o := parseOutline(t, request)
	b := extractBusiness(request, o)
	assert.Equal(t, "A family-owned crew serving the metro since 2009.", b.Description)
}

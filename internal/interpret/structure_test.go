package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

func TestDetectSiteType(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    spec.SiteType
	}{
		{"multi-page cue", "We want a multi-page site.", spec.SiteMultiPage},
		{"hierarchy cue", "See the page hierarchy below.", spec.SiteMultiPage},
		{"pages list", "## Pages\n\n- Home\n- About\n", spec.SiteMultiPage},
		{"single list entry", "## Pages\n\n- Home\n", spec.SiteSinglePage},
		{"plain landing page", "A landing page for a bakery.", spec.SiteSinglePage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := parseOutline(t, tt.request)
			assert.Equal(t, tt.want, detectSiteType(tt.request, o))
		})
	}
}

func TestPageEntriesFromTreeBlock(t *testing.T) {
	request := "### Page Hierarchy\n\n```\n├── Home (index.php)\n├── Services (services.php)\n│   ├── Lawn Care (lawn.php)\n└── Contact (contact.php)\n```\n"
	o := parseOutline(t, request)

	assert.Equal(t, []string{"Home", "Services", "Lawn Care", "Contact"}, pageEntries(o))
}

func TestPageEntriesFromPipeLine(t *testing.T) {
	request := "### Primary Navigation Structure\n\n```\nHome | Services | About | Contact\n```\n"
	o := parseOutline(t, request)

	assert.Equal(t, []string{"Home", "Services", "About", "Contact"}, pageEntries(o))
}

func TestExtractPages(t *testing.T) {
	t.Run("home prepended and duplicates dropped", func(t *testing.T) {
		request := "## Pages\n\n- Our Team (team.php)\n- Contact\n- Contact\n"
		pages := extractPages(parseOutline(t, request))

		require.Len(t, pages, 3)
		assert.Equal(t, spec.Page{Slug: "home", Title: "Home"}, pages[0])
		assert.Equal(t, spec.Page{Slug: "our-team", Title: "Our Team"}, pages[1])
		assert.Equal(t, spec.Page{Slug: "contact", Title: "Contact"}, pages[2])
	})

	t.Run("defaults when nothing listed", func(t *testing.T) {
		pages := extractPages(parseOutline(t, "a multi-page site with no page list"))

		require.Len(t, pages, 4)
		assert.Equal(t, "home", pages[0].Slug)
		assert.Equal(t, "services", pages[1].Slug)
		assert.Equal(t, "about", pages[2].Slug)
		assert.Equal(t, "contact", pages[3].Slug)
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "practice-areas", slugify("Practice Areas"))
	assert.Equal(t, "faq", slugify("FAQ!"))
	assert.Equal(t, "our-team", slugify("  Our   Team  "))
	assert.Equal(t, "", slugify("???"))
}

func TestExtractServices(t *testing.T) {
	t.Run("items with descriptions", func(t *testing.T) {
		request := "## Services\n\n- Lawn Care: weekly mowing and edging\n- Landscape Design – full yard plans\n- Hardscaping\n"
		services := extractServices(parseOutline(t, request), "Landscaping")

		require.Len(t, services, 3)
		assert.Equal(t, "Lawn Care", services[0].Name)
		assert.Equal(t, "weekly mowing and edging", services[0].Description)
		assert.Equal(t, "Landscape Design", services[1].Name)
		assert.Equal(t, "full yard plans", services[1].Description)
		assert.Equal(t, "Hardscaping", services[2].Name)
	})

	t.Run("skips navigation names and caps at six", func(t *testing.T) {
		request := "## Offerings\n\n- Home\n- About\n- One Service\n- Two Service\n- Three Service\n- Four Service\n- Five Service\n- Six Service\n- Seven Service\n"
		services := extractServices(parseOutline(t, request), "Landscaping")

		require.Len(t, services, 6)
		assert.Equal(t, "One Service", services[0].Name)
		assert.Equal(t, "Six Service", services[5].Name)
	})

	t.Run("falls back by business type", func(t *testing.T) {
		o := parseOutline(t, "no lists here")

		assert.Equal(t, "Landscape Design", extractServices(o, "Landscaping")[0].Name)
		assert.Equal(t, "Computer Diagnostics", extractServices(o, "PC Repair")[0].Name)
		assert.Equal(t, "Dine-In Service", extractServices(o, "Restaurant")[0].Name)
		assert.Equal(t, "Professional Consultation", extractServices(o, "Fitness")[0].Name)
	})
}

func TestTreeEntryName(t *testing.T) {
	assert.Equal(t, "Lawn Care", treeEntryName("│   ├── Lawn Care (lawn.php)"))
	assert.Equal(t, "About", treeEntryName("About"))
	assert.Equal(t, "", treeEntryName("├── "))
}

func TestSplitServiceItem(t *testing.T) {
	name, desc := splitServiceItem("Lawn Care: weekly mowing")
	assert.Equal(t, "Lawn Care", name)
	assert.Equal(t, "weekly mowing", desc)

	name, desc = splitServiceItem("Hardscaping")
	assert.Equal(t, "Hardscaping", name)
	assert.Empty(t, desc)
}

package interpret

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// multiPageCues in the raw request force multi-page mode.
var multiPageCues = []string{
	"multi-page", "multiple pages", "site architecture", "page hierarchy",
	"navigation structure", "primary navigation", "page specifications",
}

var pageSectionPhrases = []string{"page hierarchy", "site structure", "navigation", "pages"}

// skippedPageTitles are navigation entries that never count as services.
var skippedPageTitles = map[string]bool{
	"home": true, "about": true, "contact": true, "blog": true, "portfolio": true,
}

// trailingParenRE strips template-file annotations like "About (about.php)".
var trailingParenRE = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

func detectSiteType(request string, o *outline) spec.SiteType {
	lower := strings.ToLower(request)
	for _, cue := range multiPageCues {
		if strings.Contains(lower, cue) {
			return spec.SiteMultiPage
		}
	}
	if len(pageEntries(o)) >= 2 {
		return spec.SiteMultiPage
	}
	return spec.SiteSinglePage
}

// pageEntries returns the raw page names listed under a pages or
// navigation heading, in document order. Pipe-separated navigation lines
// inside code blocks count as well.
func pageEntries(o *outline) []string {
	var out []string
	for _, section := range o.sectionsMatching(pageSectionPhrases...) {
		for _, item := range section.items {
			out = append(out, treeEntryName(item))
		}
		if len(section.items) > 0 {
			continue
		}
		for _, line := range section.body {
			if strings.Contains(line, "|") {
				for _, part := range strings.Split(line, "|") {
					out = append(out, treeEntryName(part))
				}
			} else if name := treeEntryName(line); name != "" && strings.ContainsAny(line, "├└") {
				out = append(out, name)
			}
		}
	}
	return out
}

// treeEntryName normalizes one navigation entry: tree-drawing characters
// and template-file annotations are dropped.
func treeEntryName(entry string) string {
	entry = strings.Map(func(r rune) rune {
		switch r {
		case '├', '└', '│', '─':
			return ' '
		}
		return r
	}, entry)
	entry = trailingParenRE.ReplaceAllString(entry, "")
	return strings.Join(strings.Fields(entry), " ")
}

func extractPages(o *outline) []spec.Page {
	var pages []spec.Page
	seen := map[string]bool{}
	for _, name := range pageEntries(o) {
		if name == "" {
			continue
		}
		slug := slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		pages = append(pages, spec.Page{Slug: slug, Title: name})
	}

	if len(pages) == 0 {
		for _, title := range []string{"Home", "Services", "About", "Contact"} {
			pages = append(pages, spec.Page{Slug: slugify(title), Title: title})
		}
		return pages
	}

	if !seen["home"] {
		pages = append([]spec.Page{{Slug: "home", Title: "Home"}}, pages...)
	}
	return pages
}

func slugify(title string) string {
	slug := slugRE.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func extractServices(o *outline, businessType string) []spec.Service {
	var services []spec.Service
	seen := map[string]bool{}

	add := func(raw string) {
		name, description := splitServiceItem(raw)
		if len(name) <= 3 || strings.EqualFold(name, "services") {
			return
		}
		if skippedPageTitles[strings.ToLower(name)] || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		services = append(services, spec.Service{Name: name, Description: description})
	}

	for _, section := range o.sectionsMatching("service", "offering") {
		for _, item := range section.items {
			if len(services) >= 6 {
				return services
			}
			add(item)
		}
	}

	if len(services) == 0 {
		return defaultServices(businessType)
	}
	return services
}

// splitServiceItem separates "Lawn Care: weekly mowing and edging" into
// name and description.
func splitServiceItem(item string) (name, description string) {
	item = treeEntryName(item)
	for _, sep := range []string{":", " – ", " — ", " - "} {
		if idx := strings.Index(item, sep); idx > 0 {
			return strings.TrimSpace(item[:idx]), strings.TrimSpace(item[idx+len(sep):])
		}
	}
	return item, ""
}

// defaultServices supplies offerings when the request never lists any.
func defaultServices(businessType string) []spec.Service {
	names := genericServiceNames
	bt := strings.ToLower(businessType)
	switch {
	case strings.Contains(bt, "landscaping"), strings.Contains(bt, "landscape"):
		names = landscapingServiceNames
	case strings.Contains(bt, "pc"), strings.Contains(bt, "computer"), strings.Contains(bt, "repair"):
		names = pcRepairServiceNames
	case strings.Contains(bt, "restaurant"), strings.Contains(bt, "food"):
		names = restaurantServiceNames
	}
	services := make([]spec.Service, len(names))
	for i, name := range names {
		services[i] = spec.Service{Name: name}
	}
	return services
}

var (
	landscapingServiceNames = []string{
		"Landscape Design", "Hardscaping & Patios", "Lawn Maintenance",
		"Tree & Plant Care", "Irrigation Systems", "Seasonal Cleanup",
	}
	pcRepairServiceNames = []string{
		"Computer Diagnostics", "Hardware Repair", "Software Solutions",
		"Virus Removal", "Data Recovery", "System Optimization",
	}
	restaurantServiceNames = []string{
		"Dine-In Service", "Takeout Orders", "Catering Services",
		"Private Events", "Delivery Service", "Special Occasions",
	}
	genericServiceNames = []string{
		"Professional Consultation", "Custom Solutions", "Expert Support",
		"Quality Service", "Reliable Results", "Customer Satisfaction",
	}
)

package interpret

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// hexColorRE matches "Forest Green (#2E5D3E) – buttons and accents" style
// entries after markdown emphasis has been stripped.
var hexColorRE = regexp.MustCompile(`^(.*?)\s*\(?#([0-9A-Fa-f]{6})\)?\s*(?:–|—|-|:)?\s*(.*)$`)

// namedColorRE matches "Sage – highlights and icons" entries without a hex
// code.
var namedColorRE = regexp.MustCompile(`^([A-Za-z ]+?)\s*(?:–|—|-|:)\s*(.+)$`)

// namedColors resolves common palette words to hex values.
var namedColors = map[string]string{
	"forest green": "#228B22",
	"sage":         "#9CAF88",
	"olive":        "#808000",
	"green":        "#22C55E",
	"navy":         "#1E3A8A",
	"sky blue":     "#38BDF8",
	"blue":         "#2563EB",
	"teal":         "#0D9488",
	"turquoise":    "#06B6D4",
	"charcoal":     "#36454F",
	"slate":        "#475569",
	"black":        "#111111",
	"white":        "#FFFFFF",
	"cream":        "#FFFDD0",
	"beige":        "#F5F5DC",
	"gray":         "#6B7280",
	"grey":         "#6B7280",
	"gold":         "#D4AF37",
	"amber":        "#F59E0B",
	"orange":       "#EA580C",
	"red":          "#DC2626",
	"crimson":      "#DC143C",
	"burgundy":     "#800020",
	"purple":       "#7C3AED",
	"brown":        "#92400E",
	"tan":          "#D2B48C",
}

// extractColors reads explicit palette entries from a colors section and
// maps them onto design roles by their described usage. The second return
// reports whether the request pinned any role down.
func extractColors(o *outline) (spec.Colors, bool) {
	var colors spec.Colors
	custom := false

	for _, section := range o.sectionsMatching("color") {
		entries := section.items
		if len(entries) == 0 {
			entries = section.body
		}
		for _, entry := range entries {
			name, hex, description := parseColorEntry(entry)
			if hex == "" {
				continue
			}
			if assignRole(&colors, hex, description, name) {
				custom = true
			}
		}
	}
	return colors, custom
}

func parseColorEntry(entry string) (name, hex, description string) {
	if m := hexColorRE.FindStringSubmatch(entry); m != nil {
		name = strings.Trim(m[1], " :–—-")
		return name, "#" + strings.ToUpper(m[2]), strings.TrimSpace(m[3])
	}
	if m := namedColorRE.FindStringSubmatch(entry); m != nil {
		name = strings.TrimSpace(m[1])
		if hex = namedColorHex(name); hex != "" {
			return name, hex, strings.TrimSpace(m[2])
		}
	}
	return "", "", ""
}

func namedColorHex(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if hex, ok := namedColors[lower]; ok {
		return hex
	}
	// "Deep Forest Green" still reads as forest green.
	for word, hex := range namedColors {
		if strings.Contains(lower, word) {
			return hex
		}
	}
	return ""
}

// assignRole places a color into the role its usage text describes. The
// color name is the fallback signal for entries like "Background: #FFFFFF".
func assignRole(colors *spec.Colors, hex, description, name string) bool {
	usage := strings.ToLower(description)
	if usage == "" {
		usage = strings.ToLower(name)
	}

	switch {
	case containsAny(usage, "button", "accent", "callout", "cta", "primary"):
		colors.Primary = hex
	case containsAny(usage, "highlight", "icon", "hover"):
		colors.Secondary = hex
	case containsAny(usage, "background"):
		colors.Background = hex
	case containsAny(usage, "text", "header", "heading"):
		colors.Text = hex
	case containsAny(usage, "footer", "secondary"):
		colors.Accent = hex
	default:
		return false
	}
	return true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var darkCues = []string{
	"dark-themed", "dark theme", "dark design", "dark color",
	"modern dark", "sleek dark", "professional dark",
	"black", "charcoal", "midnight", "slate",
}

var lightCues = []string{
	"light-themed", "light theme", "light design", "light color",
	"bright", "clean light", "fresh", "airy",
	"white", "cream", "beige", "soft",
}

// detectThemePreference scores dark against light wording.
func detectThemePreference(request string) spec.ThemePreference {
	lower := strings.ToLower(request)

	dark, light := 0, 0
	for _, cue := range darkCues {
		if strings.Contains(lower, cue) {
			dark++
		}
	}
	for _, cue := range lightCues {
		if strings.Contains(lower, cue) {
			light++
		}
	}

	switch {
	case dark > light:
		return spec.ThemeDark
	case light > dark:
		return spec.ThemeLight
	default:
		return spec.ThemeNeutral
	}
}

// industryColors associates business wording with brand colors. First key
// found in the business type or name wins.
var industryColors = []struct {
	key                        string
	primary, secondary, accent string
}{
	{"pc repair", "#2563EB", "#60A5FA", "#1E40AF"},
	{"computer", "#2563EB", "#60A5FA", "#1E40AF"},
	{"tech", "#2563EB", "#60A5FA", "#1E40AF"},
	{"it", "#2563EB", "#60A5FA", "#1E40AF"},
	{"landscaping", "#3B6A4D", "#9CAF88", "#A68C6D"},
	{"lawn", "#22C55E", "#86EFAC", "#15803D"},
	{"garden", "#22C55E", "#86EFAC", "#15803D"},
	{"medical", "#0EA5E9", "#7DD3FC", "#0284C7"},
	{"dental", "#0EA5E9", "#7DD3FC", "#0284C7"},
	{"health", "#0EA5E9", "#7DD3FC", "#0284C7"},
	{"legal", "#1F2937", "#6B7280", "#374151"},
	{"law", "#1F2937", "#6B7280", "#374151"},
	{"consulting", "#1F2937", "#6B7280", "#374151"},
	{"restaurant", "#DC2626", "#FCA5A5", "#B91C1C"},
	{"cafe", "#92400E", "#FCD34D", "#78350F"},
	{"food", "#DC2626", "#FCA5A5", "#B91C1C"},
}

// smartPalette builds a full palette from business context when the
// request names no colors. The base hues come from the industry, the
// background and text from the theme preference.
func smartPalette(businessType, businessName string, theme spec.ThemePreference) spec.Colors {
	bt := strings.ToLower(businessType)
	bn := strings.ToLower(businessName)

	var primary, secondary, accent string
	for _, ic := range industryColors {
		if industryMatch(bt, ic.key) || industryMatch(bn, ic.key) {
			primary, secondary, accent = ic.primary, ic.secondary, ic.accent
			break
		}
	}
	if primary == "" {
		if theme == spec.ThemeDark {
			primary, secondary, accent = "#3B82F6", "#60A5FA", "#1E40AF"
		} else {
			primary, secondary, accent = "#059669", "#34D399", "#047857"
		}
	}

	colors := spec.Colors{Primary: primary, Secondary: secondary, Accent: accent}
	applyThemeBase(&colors, theme)
	return colors
}

// industryMatch checks for a key in lowercased business wording. Short
// keys like "it" match whole words only, so "summit" stays out of tech.
func industryMatch(haystack, key string) bool {
	if len(key) > 2 {
		return strings.Contains(haystack, key)
	}
	for _, field := range strings.Fields(haystack) {
		if field == key {
			return true
		}
	}
	return false
}

func applyThemeBase(colors *spec.Colors, theme spec.ThemePreference) {
	switch theme {
	case spec.ThemeDark:
		colors.Background = "#0F172A"
		colors.Text = "#F8FAFC"
	case spec.ThemeLight:
		colors.Background = "#F8FAFC"
		colors.Text = "#1F2937"
	default:
		colors.Background = "#FFFFFF"
		colors.Text = "#374151"
	}
}

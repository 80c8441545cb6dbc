package spec

import (
	"fmt"
	"strings"
)

// CTAContext selects which call-to-action wording table applies.
type CTAContext string

const (
	// CTAButton covers buttons and inline links.
	CTAButton CTAContext = "button"
	// CTAPhone covers phone-number links.
	CTAPhone CTAContext = "phone"
)

// CTAText picks call-to-action copy for a service. Matching is keyword
// based on the lowercased service name.
func CTAText(service string, context CTAContext) string {
	s := strings.ToLower(service)

	if context == CTAPhone {
		switch {
		case strings.Contains(s, "emergency"), strings.Contains(s, "urgent"):
			return "Call Now"
		case strings.Contains(s, "consultation"):
			return "Schedule Call"
		default:
			return "Call Today"
		}
	}

	switch {
	case strings.Contains(s, "design"):
		return "Get Design Quote"
	case strings.Contains(s, "maintenance"):
		return "Schedule Service"
	case strings.Contains(s, "recovery"), strings.Contains(s, "repair"):
		return "Get Help Now"
	case strings.Contains(s, "consultation"):
		return "Book Consultation"
	case strings.Contains(s, "installation"):
		return "Get Installed"
	default:
		return "Get Started"
	}
}

// ServiceDescription generates marketing copy for a service the request
// named without describing. Known service keywords get tailored copy,
// everything else a business-type flavored generic line.
func ServiceDescription(service, businessType string) string {
	s := strings.ToLower(service)
	bt := strings.ToLower(businessType)

	switch {
	case strings.Contains(s, "landscape"), strings.Contains(s, "design"):
		return "Professional landscape design services to transform your outdoor space into a beautiful and functional environment."
	case strings.Contains(s, "hardscaping"), strings.Contains(s, "patio"):
		return "Expert hardscaping and patio installation to create stunning outdoor living areas for your home."
	case strings.Contains(s, "lawn"), strings.Contains(s, "maintenance"):
		return "Comprehensive lawn care and maintenance services to keep your yard healthy and beautiful year-round."
	case strings.Contains(s, "virus"), strings.Contains(s, "malware"):
		return "Complete virus and malware removal to keep your computer safe and running smoothly."
	case strings.Contains(s, "hardware") && strings.Contains(s, "repair"):
		return "Professional hardware diagnosis, repair, and upgrade services for optimal performance."
	case strings.Contains(s, "data") && strings.Contains(s, "recovery"):
		return "Recover lost data and set up reliable backup solutions to protect your important files."
	case strings.Contains(bt, "landscaping"):
		return fmt.Sprintf("Professional %s services to enhance and maintain your outdoor spaces.", s)
	case strings.Contains(bt, "repair"), strings.Contains(bt, "pc"):
		return fmt.Sprintf("Expert %s services to keep your technology running smoothly.", s)
	default:
		return fmt.Sprintf("Professional %s services delivered with expertise, attention to detail, and a commitment to customer satisfaction.", s)
	}
}

// FallbackServices returns the default offering set for a business type,
// used when a request never enumerates services.
func FallbackServices(businessType string) []Service {
	bt := strings.ToLower(businessType)

	switch {
	case strings.Contains(bt, "landscaping"), strings.Contains(bt, "landscape"):
		return []Service{
			{Name: "Landscape Design", Description: "Professional landscape design services to transform your outdoor space."},
			{Name: "Hardscaping & Patios", Description: "Expert hardscaping and patio installation for outdoor living areas."},
			{Name: "Lawn Maintenance", Description: "Comprehensive lawn care and maintenance services year-round."},
		}
	case strings.Contains(bt, "repair"), strings.Contains(bt, "pc"):
		return []Service{
			{Name: "Computer Diagnostics", Description: "Comprehensive computer diagnostics to identify and resolve issues."},
			{Name: "Hardware Repair", Description: "Professional hardware repair services for all computer components."},
			{Name: "Software Solutions", Description: "Expert software installation and troubleshooting services."},
		}
	default:
		return []Service{
			{Name: "Professional Consultation", Description: "Expert consultation services tailored to your specific needs."},
			{Name: "Custom Solutions", Description: "Personalized solutions designed to address your unique challenges."},
			{Name: "Professional Support", Description: "Reliable ongoing support to ensure continued success."},
		}
	}
}

// fallbackPalettes maps business-type keywords to complete role palettes.
// First key that appears in the lowercased business type wins.
var fallbackPalettes = []struct {
	key    string
	colors Colors
}{
	{"landscaping", Colors{Primary: "#22c55e", Secondary: "#16a34a", Accent: "#84cc16", Background: "#ffffff", Text: "#1f2937"}},
	{"pc repair", Colors{Primary: "#3b82f6", Secondary: "#1d4ed8", Accent: "#06b6d4", Background: "#ffffff", Text: "#1f2937"}},
	{"restaurant", Colors{Primary: "#dc2626", Secondary: "#b91c1c", Accent: "#f59e0b", Background: "#ffffff", Text: "#1f2937"}},
	{"construction", Colors{Primary: "#ea580c", Secondary: "#c2410c", Accent: "#eab308", Background: "#ffffff", Text: "#1f2937"}},
	{"automotive", Colors{Primary: "#dc2626", Secondary: "#991b1b", Accent: "#6b7280", Background: "#ffffff", Text: "#1f2937"}},
}

// FallbackColors returns the default palette for a business type.
func FallbackColors(businessType string) Colors {
	bt := strings.ToLower(businessType)
	for _, p := range fallbackPalettes {
		if strings.Contains(bt, p.key) {
			return p.colors
		}
	}
	return Colors{Primary: "#2563eb", Secondary: "#1d4ed8", Accent: "#f59e0b", Background: "#ffffff", Text: "#1f2937"}
}

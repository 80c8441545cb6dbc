package interpret

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// businessKeywords mark a bold span as a business name rather than plain
// emphasis. Checked case-insensitively.
var businessKeywords = []string{
	"landscaping", "pc repair", "repair", "service", "company", "llc", "inc",
	"restaurant", "cafe", "shop", "store", "clinic", "dental", "medical",
	"law", "legal", "consulting", "design", "construction", "plumbing",
	"electric", "hvac", "roofing", "cleaning", "catering", "photography",
	"marketing", "real estate", "insurance", "financial", "accounting",
	"fitness", "gym", "salon", "spa", "veterinary", "auto", "automotive",
	"garage", "bakery", "pizza", "coffee", "hotel", "travel", "moving",
	"contractor", "builder", "studio", "solutions", "group",
}

// plainNameRE accepts a bold span that reads like a proper name even
// without a business keyword.
var plainNameRE = regexp.MustCompile(`^[A-Z][A-Za-z\s&'-]{2,50}$`)

var phraseNameREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)website\s+for\s+([A-Z][A-Za-z\s&'-]{2,50}?)(?:[,.\n]|$)`),
	regexp.MustCompile(`(?i)(?:create|build|design|develop)[^.]*?for\s+([A-Z][A-Za-z\s&'-]{2,50}?)(?:[,.\n]|$)`),
}

// headingNameRE pulls a trailing proper name out of a title such as
// "Website Request: Northern Roots Landscaping".
var headingNameRE = regexp.MustCompile(`([A-Z][A-Za-z\s&'-]{2,50})$`)

// businessTypes maps request wording to a type label. First match wins.
var businessTypes = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)Landscaping|Landscape|Lawn|Garden|Yard|Tree|Plant|Irrigation|Hardscape|Patio|Outdoor`), "Landscaping"},
	{regexp.MustCompile(`(?i)PC\s+Repair|Computer\s+Repair|Tech\s+Support|IT\s+Service`), "PC Repair"},
	{regexp.MustCompile(`(?i)Restaurant|Food|Dining|Cafe|Bar|Grill|Pizza|Coffee|Bakery|Catering`), "Restaurant"},
	{regexp.MustCompile(`(?i)Law|Legal|Attorney|Lawyer|Paralegal`), "Legal Services"},
	{regexp.MustCompile(`(?i)Medical|Health|Doctor|Dental|Clinic|Healthcare|Therapy|Wellness`), "Healthcare"},
	{regexp.MustCompile(`(?i)Real\s+Estate|Realtor|Property|Rental|Mortgage|Investment`), "Real Estate"},
	{regexp.MustCompile(`(?i)Construction|Contractor|Builder|Roofing|Plumbing|Electric|HVAC`), "Construction"},
	{regexp.MustCompile(`(?i)Auto|Automotive|Mechanic|Garage|Car\s+Repair|Vehicle`), "Automotive"},
	{regexp.MustCompile(`(?i)Cleaning|Janitorial|Maid|Housekeeping|Carpet\s+Cleaning`), "Cleaning Services"},
	{regexp.MustCompile(`(?i)Photography|Photo|Wedding|Event|Portrait`), "Photography"},
	{regexp.MustCompile(`(?i)Marketing|Advertising|Digital|SEO|Social\s+Media|Branding`), "Marketing"},
	{regexp.MustCompile(`(?i)Insurance|Financial|Accounting|Tax|Bookkeeping|CPA`), "Financial Services"},
	{regexp.MustCompile(`(?i)Fitness|Gym|Personal\s+Training|Yoga|Pilates`), "Fitness"},
	{regexp.MustCompile(`(?i)Salon|Spa|Beauty|Hair|Nail|Massage|Skincare`), "Beauty & Wellness"},
	{regexp.MustCompile(`(?i)Pet|Veterinary|Animal|Dog|Cat|Grooming|Boarding`), "Pet Services"},
	{regexp.MustCompile(`(?i)Education|School|Tutoring|Training|Academy|Learning`), "Education"},
	{regexp.MustCompile(`(?i)Travel|Tour|Hotel|Resort|Transportation|Vacation`), "Travel & Hospitality"},
	{regexp.MustCompile(`(?i)Consulting|Business\s+Services|Professional\s+Services`), "Consulting"},
}

var locationREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)in\s+\*\*([A-Za-z\s]+,\s*[A-Za-z\s]+)\*\*`),
	regexp.MustCompile(`(?i)located\s+in\s+([A-Za-z\s]+,\s*[A-Za-z\s]+)`),
	regexp.MustCompile(`(?i)serving\s+([A-Za-z\s]+,\s*[A-Za-z\s]+)`),
	regexp.MustCompile(`(?i)business\s+in\s+([A-Za-z\s]+,\s*[A-Za-z\s]+)`),
	regexp.MustCompile(`(?i)in\s+([A-Za-z\s]+,\s*[A-Za-z\s]+)`),
	regexp.MustCompile(`(?i)([A-Za-z\s]+,\s*[A-Za-z\s]+)\s+community`),
}

var phoneREs = []*regexp.Regexp{
	regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`),
	regexp.MustCompile(`\d{3}-\d{3}-\d{4}`),
	regexp.MustCompile(`\d{3}\.\d{3}\.\d{4}`),
	regexp.MustCompile(`\d{3}\s\d{3}\s\d{4}`),
	regexp.MustCompile(`\+1\s*\d{3}\s*\d{3}\s*\d{4}`),
}

var emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var descriptionRE = regexp.MustCompile(`(?i)Create\s+a\s+[^.]*?\s+for\s+[^.]*?\.\s+([^.]+\.)`)

func extractBusiness(request string, o *outline) spec.Business {
	b := spec.Business{
		Name:  extractBusinessName(request, o),
		Phone: extractPhone(request),
		Email: extractEmail(request),
	}

	for _, bt := range businessTypes {
		if bt.re.MatchString(request) {
			b.Type = bt.label
			break
		}
	}

	if m := descriptionRE.FindStringSubmatch(request); m != nil {
		b.Description = strings.TrimSpace(m[1])
	}
	return b
}

func extractBusinessName(request string, o *outline) string {
	// Bold spans with a business keyword are the strongest signal.
	for _, span := range o.bold {
		lower := strings.ToLower(span)
		for _, kw := range businessKeywords {
			if strings.Contains(lower, kw) {
				return cleanName(span)
			}
		}
	}
	for _, span := range o.bold {
		if plainNameRE.MatchString(span) {
			return cleanName(span)
		}
	}
	for _, re := range phraseNameREs {
		if m := re.FindStringSubmatch(request); m != nil {
			return cleanName(m[1])
		}
	}
	for _, section := range o.sections {
		if section.level != 1 {
			continue
		}
		if m := headingNameRE.FindStringSubmatch(section.title); m != nil {
			return cleanName(m[1])
		}
	}
	return ""
}

func cleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func extractLocation(request string) (city, state string) {
	var location string
	for _, re := range locationREs {
		if m := re.FindStringSubmatch(request); m != nil {
			location = strings.TrimSpace(m[1])
			break
		}
	}
	if location == "" {
		return "", ""
	}
	parts := strings.SplitN(location, ",", 2)
	city = strings.Join(strings.Fields(parts[0]), " ")
	if len(parts) > 1 {
		state = strings.Join(strings.Fields(parts[1]), " ")
	}
	return city, state
}

func extractPhone(request string) string {
	for _, re := range phoneREs {
		if m := re.FindString(request); m != "" {
			return m
		}
	}
	return ""
}

func extractEmail(request string) string {
	return emailRE.FindString(request)
}

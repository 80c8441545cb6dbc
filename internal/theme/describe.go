package theme

import (
	"fmt"
	"strings"
)

// describeService writes marketing copy for a service that arrived
// without a description. Matching is keyword based, most specific
// wording first.
func describeService(name string) string {
	lower := strings.ToLower(name)
	has := func(keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case has("landscape", "garden", "outdoor", "lawn", "yard"):
		switch {
		case has("design"):
			return "Transform your outdoor space with our expert landscape design services. We create beautiful, functional landscapes tailored to your property and lifestyle."
		case has("maintenance", "planning"):
			return "Keep your landscape looking its best year-round with our comprehensive maintenance and planning services."
		case has("installation"):
			return "Professional landscape installation services bringing your outdoor vision to life with quality materials and expert craftsmanship."
		default:
			return "Professional landscaping services designed to enhance your property's beauty and value."
		}
	case has("hardscap", "stone", "patio", "walkway", "retaining"):
		return "Expert hardscaping services including patios, walkways, retaining walls, and stone features that add structure and beauty to your landscape."
	case has("tech", "computer", "network", "cloud", "cyber", "it "):
		switch {
		case has("consulting"):
			return "Strategic IT consulting services to help your business leverage technology for growth, efficiency, and competitive advantage."
		case has("network"):
			return "Professional network setup and maintenance services ensuring reliable, secure connectivity for your business operations."
		case has("cloud"):
			return "Seamless cloud migration services helping you modernize your infrastructure while reducing costs and improving scalability."
		default:
			return "Comprehensive IT services designed to keep your technology running smoothly and securely."
		}
	case has("clean", "maintenance", "seasonal"):
		if has("seasonal") {
			return "Comprehensive seasonal cleanup services to prepare your property for each season and maintain its pristine appearance."
		}
		return "Professional cleaning and maintenance services ensuring your space remains spotless and well-maintained."
	case has("installation"):
		if has("irrigation") {
			return "Expert irrigation system installation and setup ensuring your landscape receives optimal water coverage for healthy growth."
		}
		return "Professional installation services with attention to detail and commitment to quality workmanship."
	case has("consult", "planning", "assessment"):
		if has("native plant") {
			return "Expert native plant consultation helping you choose sustainable, locally-adapted plants that thrive in your environment."
		}
		return "Professional consultation services providing expert guidance and strategic planning for your project success."
	case has("design"):
		return "Creative design services that bring your vision to life with innovative solutions and attention to aesthetic detail."
	case has("development"):
		return "Custom development services using the latest technologies and best practices to deliver robust, scalable solutions."
	case has("repair"):
		return "Reliable repair services that diagnose problems quickly and get things working again with minimal downtime."
	case has("support"):
		return "Reliable support services ensuring your continued success with responsive assistance when you need it most."
	default:
		return fmt.Sprintf("Professional %s services delivered with expertise, quality, and dedication to your satisfaction.", lower)
	}
}

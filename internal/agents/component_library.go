package agents

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

// servicesGridRE matches the inline service grid the assembler renders
// into front-page.php, so it can be swapped for the reusable partial.
var servicesGridRE = regexp.MustCompile(`(?s)<div class="services-grid">.*?\n {12}</div>`)

// ComponentLibrary copies the theme and extracts reusable template
// parts: service cards, a testimonial slider and a call-to-action
// banner, wiring the page templates to load them.
type ComponentLibrary struct {
	logger *logging.Logger
	loader *spec.Loader
}

// NewComponentLibrary returns the component extraction stage.
func NewComponentLibrary(logger *logging.Logger) (*ComponentLibrary, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &ComponentLibrary{logger: logger, loader: loader}, nil
}

// ID implements pipeline.Agent.
func (a *ComponentLibrary) ID() string { return "component_library" }

// Run stages a copy of the theme with the component partials added and
// the page templates rewired to use them.
func (a *ComponentLibrary) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	src, err := resolveInput(in, a.ID())
	if err != nil {
		return nil, err
	}
	dst, err := in.Paths.OutputFor(a.ID())
	if err != nil {
		return nil, err
	}
	if err := stageDir(src, dst); err != nil {
		return nil, fmt.Errorf("stage theme copy: %w", err)
	}

	s, err := loadSpec(ctx, a.loader, in.Paths)
	if err != nil {
		return nil, err
	}

	parts := map[string]string{
		"service-cards.php": serviceCardsPartial(s),
		"testimonials.php":  testimonialsPartial(s),
		"cta-banner.php":    ctaBannerPartial(s),
	}
	partsDir := filepath.Join(dst, "template-parts")
	if err := os.MkdirAll(partsDir, dirPerm); err != nil {
		return nil, err
	}
	for name, content := range parts {
		if err := os.WriteFile(filepath.Join(partsDir, name), []byte(content), filePerm); err != nil {
			return nil, err
		}
	}

	cssPath := filepath.Join(dst, "css", "components.css")
	if err := os.MkdirAll(filepath.Dir(cssPath), dirPerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(cssPath, []byte(componentsCSS), filePerm); err != nil {
		return nil, err
	}
	jsPath := filepath.Join(dst, "js", "components.js")
	if err := os.MkdirAll(filepath.Dir(jsPath), dirPerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(jsPath, []byte(componentsJS), filePerm); err != nil {
		return nil, err
	}

	res := pipeline.NewResult(a.ID())
	var rewired []string

	functionsPath := filepath.Join(dst, "functions.php")
	if functions, err := os.ReadFile(functionsPath); err == nil {
		content := string(functions)
		if !strings.Contains(content, "components.css") {
			prefix := themePrefix(content)
			if err := appendToFile(functionsPath, fmt.Sprintf(componentEnqueueFormat, prefix, prefix)); err != nil {
				return nil, err
			}
			rewired = append(rewired, "functions.php")
		}
	} else {
		res.Warnings = append(res.Warnings, "functions.php not found, component assets not enqueued")
	}

	frontPath := filepath.Join(dst, "front-page.php")
	if front, err := os.ReadFile(frontPath); err == nil {
		content := string(front)
		changed := false
		if servicesGridRE.MatchString(content) && !strings.Contains(content, "template-parts/service-cards") {
			content = servicesGridRE.ReplaceAllString(content,
				`<?php get_template_part('template-parts/service-cards'); ?>`)
			rewired = append(rewired, "front-page.php:service-cards")
			changed = true
		}
		if !strings.Contains(content, "template-parts/testimonials") {
			call := `    <?php get_template_part('template-parts/testimonials'); ?>
`
			if updated, ok := insertBefore(content, `<section id="contact"`, call); ok {
				content = updated
				rewired = append(rewired, "front-page.php:testimonials")
				changed = true
			}
		}
		if changed {
			if err := os.WriteFile(frontPath, []byte(content), filePerm); err != nil {
				return nil, err
			}
		}
	}

	indexPath := filepath.Join(dst, "index.php")
	if index, err := os.ReadFile(indexPath); err == nil {
		content := string(index)
		const loopEnd = "<?php endwhile; ?>"
		if idx := strings.Index(content, loopEnd); idx >= 0 && !strings.Contains(content, "template-parts/cta-banner") {
			end := idx + len(loopEnd)
			content = content[:end] +
				"\n\n            <?php get_template_part('template-parts/cta-banner'); ?>" +
				content[end:]
			if err := os.WriteFile(indexPath, []byte(content), filePerm); err != nil {
				return nil, err
			}
			rewired = append(rewired, "index.php:cta-banner")
		}
	}

	a.logger.Info(ctx, "component library extracted",
		zap.String("template_id", in.TemplateID),
		zap.Int("components", len(parts)),
		zap.Strings("rewired", rewired),
	)

	res.Message = fmt.Sprintf("extracted %d components", len(parts))
	res.OutputPath = dst
	res.Metadata["components"] = len(parts)
	res.Metadata["rewired"] = rewired
	return res, nil
}

func serviceCardsPartial(s *spec.TemplateSpec) string {
	var b strings.Builder
	b.WriteString(`<?php
/**
 * Service cards.
 */
?>
<div class="service-cards">
`)
	for _, svc := range theme.FillDescriptions(s.EffectiveServices()) {
		fmt.Fprintf(&b, `    <div class="service-card slide-up">
        <h3>%s</h3>
        <p>%s</p>
    </div>
`, html.EscapeString(svc.Name), html.EscapeString(svc.Description))
	}
	b.WriteString("</div>\n")
	return b.String()
}

func testimonialsPartial(s *spec.TemplateSpec) string {
	city := html.EscapeString(s.Location.City)
	if city == "" {
		city = "Local"
	}
	return fmt.Sprintf(`<?php
/**
 * Rotating testimonials.
 */
?>
<section class="testimonials" id="testimonials">
    <div class="container">
        <h2>What Our Customers Say</h2>
        <div class="testimonial-slider">
            <div class="testimonial-slide is-active">
                <blockquote>&ldquo;Outstanding service from start to finish. The team was professional, on time, and the results exceeded our expectations.&rdquo;</blockquote>
                <cite>Sarah Johnson, Small Business Owner</cite>
            </div>
            <div class="testimonial-slide">
                <blockquote>&ldquo;Fair pricing and honest advice. They treated our project like it was their own.&rdquo;</blockquote>
                <cite>Mike Thompson, %s Resident</cite>
            </div>
            <div class="testimonial-slide">
                <blockquote>&ldquo;Quick to respond and easy to work with. We will absolutely be repeat customers.&rdquo;</blockquote>
                <cite>Lisa Chen, Home User</cite>
            </div>
        </div>
        <div class="testimonial-navigation">
            <button class="testimonial-prev" aria-label="Previous testimonial">&larr;</button>
            <div class="testimonial-dots"></div>
            <button class="testimonial-next" aria-label="Next testimonial">&rarr;</button>
        </div>
    </div>
</section>
`, city)
}

func ctaBannerPartial(s *spec.TemplateSpec) string {
	action := fmt.Sprintf(`<a class="cta-button primary" href="#contact">%s</a>`,
		html.EscapeString(s.PrimaryCTA()))
	if phone := strings.TrimSpace(s.Business.Phone); phone != "" {
		action = fmt.Sprintf(`<a class="cta-button primary" href="tel:%s">%s</a>`,
			phone, html.EscapeString(s.PhoneCTA()))
	}
	area := ""
	if s.Location.City != "" {
		area = fmt.Sprintf("\n        <p>Serving %s and the surrounding area.</p>",
			html.EscapeString(s.Location.City))
	}
	return fmt.Sprintf(`<?php
/**
 * Call to action banner.
 */
?>
<section class="cta-banner">
    <div class="container">
        <h2>Ready when you are.</h2>%s
        %s
    </div>
</section>
`, area, action)
}

const componentEnqueueFormat = `

function %s_component_assets() {
    wp_enqueue_style('components', get_template_directory_uri() . '/css/components.css', array(), '1.0.0');
    wp_enqueue_script('components', get_template_directory_uri() . '/js/components.js', array(), '1.0.0', true);
}
add_action('wp_enqueue_scripts', '%s_component_assets');
`

const componentsCSS = `/* Shared component styles */
.service-cards {
    display: grid;
    grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
    gap: 1.5rem;
}

.testimonials {
    padding: 3rem 0;
    background: var(--neutral-light);
    text-align: center;
}

.testimonial-slider {
    position: relative;
    max-width: 640px;
    margin: 0 auto;
}

.testimonial-slide {
    display: none;
    padding: 1.5rem 0;
}

.testimonial-slide.is-active {
    display: block;
}

.testimonial-slide blockquote {
    font-size: 1.15rem;
    font-style: italic;
    margin-bottom: 0.75rem;
}

.testimonial-slide cite {
    color: var(--primary-color);
    font-style: normal;
    font-weight: 600;
}

.testimonial-navigation {
    display: flex;
    align-items: center;
    justify-content: center;
    gap: 0.75rem;
    margin-top: 1rem;
}

.testimonial-navigation button {
    background: none;
    border: 1px solid var(--primary-color);
    color: var(--primary-color);
    border-radius: 50%;
    width: 40px;
    height: 40px;
    cursor: pointer;
}

.testimonial-dots {
    display: flex;
    gap: 0.5rem;
}

.testimonial-dots button {
    width: 10px;
    height: 10px;
    min-width: 10px;
    min-height: 10px;
    border-radius: 50%;
    border: none;
    background: rgba(15, 23, 42, 0.25);
    padding: 0;
    cursor: pointer;
}

.testimonial-dots button.is-active {
    background: var(--primary-color);
}

.cta-banner {
    background: linear-gradient(135deg, var(--primary-color), var(--secondary-color));
    color: #ffffff;
    text-align: center;
    padding: 3rem 1.5rem;
}

.cta-banner h2 {
    color: #ffffff;
    margin-bottom: 0.5rem;
}

.cta-banner p {
    margin-bottom: 1.25rem;
}

.site-header.is-sticky {
    position: sticky;
    top: 0;
    box-shadow: 0 2px 12px rgba(15, 23, 42, 0.12);
    z-index: 100;
}
`

const componentsJS = `(function () {
    'use strict';

    document.addEventListener('DOMContentLoaded', function () {
        var slides = document.querySelectorAll('.testimonial-slide');
        var dots = document.querySelector('.testimonial-dots');
        var current = 0;
        var timer = null;

        function show(index) {
            if (!slides.length) {
                return;
            }
            current = (index + slides.length) % slides.length;
            slides.forEach(function (slide, i) {
                slide.classList.toggle('is-active', i === current);
            });
            if (dots) {
                dots.querySelectorAll('button').forEach(function (dot, i) {
                    dot.classList.toggle('is-active', i === current);
                });
            }
        }

        function schedule() {
            if (timer) {
                clearInterval(timer);
            }
            timer = setInterval(function () {
                show(current + 1);
            }, 8000);
        }

        if (slides.length > 1) {
            if (dots) {
                slides.forEach(function (_, i) {
                    var dot = document.createElement('button');
                    dot.setAttribute('aria-label', 'Show testimonial ' + (i + 1));
                    dot.addEventListener('click', function () {
                        show(i);
                        schedule();
                    });
                    dots.appendChild(dot);
                });
            }
            var prev = document.querySelector('.testimonial-prev');
            var next = document.querySelector('.testimonial-next');
            if (prev) {
                prev.addEventListener('click', function () {
                    show(current - 1);
                    schedule();
                });
            }
            if (next) {
                next.addEventListener('click', function () {
                    show(current + 1);
                    schedule();
                });
            }
            show(0);
            schedule();
        }

        var header = document.querySelector('.site-header');
        if (header) {
            window.addEventListener('scroll', function () {
                header.classList.toggle('is-sticky', window.scrollY > 120);
            });
        }
    });
})();
`

package agents

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

// MobileEnhancer copies the assembled theme and layers mobile-first
// touches on top: touch target sizing, scroll animations, a floating
// call button and the script that drives them.
type MobileEnhancer struct {
	logger *logging.Logger
	loader *spec.Loader
}

// NewMobileEnhancer returns the mobile experience stage.
func NewMobileEnhancer(logger *logging.Logger) (*MobileEnhancer, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	loader, err := spec.NewLoader(logger)
	if err != nil {
		return nil, err
	}
	return &MobileEnhancer{logger: logger, loader: loader}, nil
}

// ID implements pipeline.Agent.
func (a *MobileEnhancer) ID() string { return "mobile_enhancer" }

// Run stages an enhanced copy of the theme. Every edit is guarded by a
// marker check so re-running the stage never duplicates an insert.
func (a *MobileEnhancer) Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
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

	res := pipeline.NewResult(a.ID())
	var applied []string

	stylePath := filepath.Join(dst, "style.css")
	if css, err := os.ReadFile(stylePath); err == nil {
		if !strings.Contains(string(css), "--mobile-spacing") {
			if err := appendToFile(stylePath, mobileCSS); err != nil {
				return nil, err
			}
			applied = append(applied, "responsive_css")
		}
	} else {
		res.Warnings = append(res.Warnings, "style.css not found, mobile styles skipped")
	}

	headerPath := filepath.Join(dst, "header.php")
	if header, err := os.ReadFile(headerPath); err == nil {
		content := string(header)
		if !strings.Contains(content, "mobile-menu-toggle") {
			if updated, ok := insertBefore(content, "</header>", mobileMenuToggle); ok {
				if err := os.WriteFile(headerPath, []byte(updated), filePerm); err != nil {
					return nil, err
				}
				applied = append(applied, "menu_toggle")
			}
		}
	}

	footerPath := filepath.Join(dst, "footer.php")
	if phone := strings.TrimSpace(s.Business.Phone); phone != "" {
		if footer, err := os.ReadFile(footerPath); err == nil {
			content := string(footer)
			if !strings.Contains(content, "floating-contact") {
				block := fmt.Sprintf(floatingContactFormat, phone,
					html.EscapeString("Call "+s.Business.Name))
				if updated, ok := insertBefore(content, "<?php wp_footer(); ?>", block); ok {
					if err := os.WriteFile(footerPath, []byte(updated), filePerm); err != nil {
						return nil, err
					}
					applied = append(applied, "floating_contact")
				}
			}
		}
	}

	jsPath := filepath.Join(dst, "js", "mobile-ux.js")
	if err := os.MkdirAll(filepath.Dir(jsPath), dirPerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(jsPath, []byte(mobileJS), filePerm); err != nil {
		return nil, err
	}
	applied = append(applied, "mobile_script")

	functionsPath := filepath.Join(dst, "functions.php")
	if functions, err := os.ReadFile(functionsPath); err == nil {
		content := string(functions)
		if !strings.Contains(content, "mobile-ux") {
			prefix := themePrefix(content)
			enqueue := fmt.Sprintf(mobileEnqueueFormat, prefix, prefix)
			if err := appendToFile(functionsPath, enqueue); err != nil {
				return nil, err
			}
			applied = append(applied, "script_enqueue")
		}
	} else {
		res.Warnings = append(res.Warnings, "functions.php not found, mobile script not enqueued")
	}

	a.logger.Info(ctx, "mobile experience enhanced",
		zap.String("template_id", in.TemplateID),
		zap.Strings("enhancements", applied),
		zap.String("path", dst),
	)

	res.Message = fmt.Sprintf("applied %d mobile enhancements", len(applied))
	res.OutputPath = dst
	res.Metadata["enhancements"] = applied
	return res, nil
}

const mobileMenuToggle = `        <button class="mobile-menu-toggle" aria-label="Toggle navigation" aria-expanded="false">
            <span aria-hidden="true">&#9776;</span>
        </button>`

const floatingContactFormat = `<a class="floating-contact" href="tel:%s" aria-label="%s">
    <span aria-hidden="true">&#9742;</span>
</a>
`

const mobileEnqueueFormat = `

function %s_mobile_ux_scripts() {
    wp_enqueue_script('mobile-ux', get_template_directory_uri() . '/js/mobile-ux.js', array(), '1.0.0', true);
}
add_action('wp_enqueue_scripts', '%s_mobile_ux_scripts');
`

const mobileCSS = `

/* Mobile experience enhancements */
:root {
    --mobile-spacing-xs: 0.5rem;
    --mobile-spacing-sm: 0.75rem;
    --mobile-spacing-md: 1rem;
    --mobile-spacing-lg: 1.5rem;
    --mobile-spacing-xl: 2rem;
    --mobile-radius: 12px;
    --mobile-shadow: 0 4px 12px rgba(15, 23, 42, 0.12);
    --mobile-transition: all 0.3s ease;
}

.btn,
.cta-button,
button,
input[type="submit"] {
    min-height: 44px;
    min-width: 44px;
    touch-action: manipulation;
}

.service-card {
    position: relative;
    overflow: hidden;
    transition: var(--mobile-transition);
}

.service-card::before {
    content: "";
    position: absolute;
    top: 0;
    left: 0;
    right: 0;
    height: 3px;
    background: var(--accent-color);
    transform: scaleX(0);
    transform-origin: left;
    transition: transform 0.3s ease;
}

.service-card:hover::before,
.service-card:focus-within::before {
    transform: scaleX(1);
}

.floating-contact {
    position: fixed;
    right: 1.25rem;
    bottom: 1.25rem;
    width: 56px;
    height: 56px;
    border-radius: 50%;
    background: var(--primary-color);
    color: #ffffff;
    display: flex;
    align-items: center;
    justify-content: center;
    font-size: 1.5rem;
    box-shadow: var(--mobile-shadow);
    text-decoration: none;
    z-index: 90;
    transition: var(--mobile-transition);
}

.floating-contact:hover {
    transform: translateY(-2px);
}

.fade-in,
.slide-up {
    opacity: 0;
    transition: opacity 0.6s ease, transform 0.6s ease;
}

.slide-up {
    transform: translateY(24px);
}

.fade-in.is-visible,
.slide-up.is-visible {
    opacity: 1;
    transform: none;
}

.skeleton {
    background: linear-gradient(90deg, rgba(15, 23, 42, 0.06) 25%, rgba(15, 23, 42, 0.12) 50%, rgba(15, 23, 42, 0.06) 75%);
    background-size: 200% 100%;
    animation: skeleton-shimmer 1.4s infinite;
}

@keyframes skeleton-shimmer {
    0% {
        background-position: 200% 0;
    }
    100% {
        background-position: -200% 0;
    }
}

@media (min-width: 768px) {
    .floating-contact {
        display: none;
    }
}
`

const mobileJS = `(function () {
    'use strict';

    document.addEventListener('DOMContentLoaded', function () {
        var toggle = document.querySelector('.mobile-menu-toggle');
        var nav = document.querySelector('.main-nav');
        if (toggle && nav) {
            toggle.addEventListener('click', function () {
                var open = nav.classList.toggle('is-open');
                toggle.setAttribute('aria-expanded', open ? 'true' : 'false');
            });
        }

        if ('IntersectionObserver' in window) {
            var observer = new IntersectionObserver(function (entries) {
                entries.forEach(function (entry) {
                    if (entry.isIntersecting) {
                        entry.target.classList.add('is-visible');
                        observer.unobserve(entry.target);
                    }
                });
            }, { threshold: 0.1, rootMargin: '0px 0px -50px 0px' });

            document.querySelectorAll('.fade-in, .slide-up').forEach(function (el) {
                observer.observe(el);
            });
        }

        document.querySelectorAll('a[href^="#"]').forEach(function (link) {
            link.addEventListener('click', function (event) {
                var id = link.getAttribute('href');
                if (id.length < 2) {
                    return;
                }
                var target = document.querySelector(id);
                if (target) {
                    event.preventDefault();
                    target.scrollIntoView({ behavior: 'smooth' });
                }
            });
        });

        document.body.classList.add('loaded');
    });
})();
`

// Package paths centralizes artifact path resolution for pipeline runs.
//
// Every pipeline owns a directory tree under <root>/pipelines/pipeline_<id>/
// with one subdirectory per artifact kind. Agents never build paths by hand;
// the per-agent input/output tables here are the single source of truth for
// where each stage reads and writes.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind identifies an artifact directory within a pipeline tree.
type Kind string

const (
	KindInputs       Kind = "inputs"
	KindIntermediate Kind = "intermediate"
	KindOutputs      Kind = "outputs"
	KindLogs         Kind = "logs"
	KindSpecs        Kind = "specs"
	KindPrompts      Kind = "prompts"
	KindTemplates    Kind = "templates"
	KindReviews      Kind = "reviews"
	KindVariations   Kind = "variations"
	KindThemes       Kind = "themes"
	KindEnhanced     Kind = "enhanced"
	KindFinal        Kind = "final"
)

// AllKinds returns every artifact kind in a stable order.
func AllKinds() []Kind {
	return []Kind{
		KindInputs, KindIntermediate, KindOutputs, KindLogs,
		KindSpecs, KindPrompts, KindTemplates, KindReviews,
		KindVariations, KindThemes, KindEnhanced, KindFinal,
	}
}

// Valid reports whether k is a known artifact kind.
func (k Kind) Valid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

const dirPerm = 0o755

// Manager resolves artifact paths for a single pipeline run.
type Manager struct {
	root       string
	pipelineID string
	templateID string
}

// NewManager creates a path manager rooted at root for the given pipeline.
// The root's "~/" prefix is expanded to the user's home directory.
func NewManager(root, pipelineID, templateID string) (*Manager, error) {
	if pipelineID == "" {
		return nil, fmt.Errorf("pipeline ID cannot be empty")
	}
	if templateID == "" {
		return nil, fmt.Errorf("template ID cannot be empty")
	}

	expanded, err := ExpandRoot(root)
	if err != nil {
		return nil, err
	}

	return &Manager{
		root:       expanded,
		pipelineID: pipelineID,
		templateID: templateID,
	}, nil
}

// ExpandRoot expands a leading "~/" in root to the user's home directory.
func ExpandRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("workspace root cannot be empty")
	}
	if root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand workspace root: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(root, "~")), nil
	}
	return root, nil
}

// PipelineID returns the pipeline ID this manager resolves for.
func (m *Manager) PipelineID() string { return m.pipelineID }

// TemplateID returns the template ID this manager resolves for.
func (m *Manager) TemplateID() string { return m.templateID }

// PipelineDir returns the root directory of this pipeline's tree.
func (m *Manager) PipelineDir() string {
	return PipelineDir(m.root, m.pipelineID)
}

// PipelineDir returns the directory of pipelineID's tree under an
// already-expanded root.
func PipelineDir(root, pipelineID string) string {
	return filepath.Join(root, "pipelines", "pipeline_"+pipelineID)
}

// EnsureLayout creates the pipeline directory and all kind subdirectories.
func (m *Manager) EnsureLayout() error {
	for _, kind := range AllKinds() {
		if err := os.MkdirAll(filepath.Join(m.PipelineDir(), string(kind)), dirPerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", kind, err)
		}
	}
	return nil
}

// Dir returns the directory for kind, creating it if needed.
func (m *Manager) Dir(kind Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
	dir := filepath.Join(m.PipelineDir(), string(kind))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", kind, err)
	}
	return dir, nil
}

// File returns the path for name inside kind's directory, creating the
// directory if needed. Placeholders in name are resolved first.
func (m *Manager) File(kind Kind, name string) (string, error) {
	dir, err := m.Dir(kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, m.Resolve(name)), nil
}

// Resolve expands {pipeline_id}, {template_id}, and the legacy {id}
// placeholders in a filename pattern.
func (m *Manager) Resolve(pattern string) string {
	r := strings.NewReplacer(
		"{pipeline_id}", m.pipelineID,
		"{template_id}", m.templateID,
		"{id}", m.templateID,
	)
	return r.Replace(pattern)
}

// InputFor returns the canonical input path for an agent. The engine
// prefers threading the previous stage's output; this table is the
// fallback when no upstream output exists (skipped optional stages,
// stage re-runs).
func (m *Manager) InputFor(agentID string) (string, error) {
	switch agentID {
	case "request_interpreter":
		return m.File(KindInputs, "request_{pipeline_id}.md")
	case "prompt_designer", "design_variation":
		return m.File(KindSpecs, "template_spec_{template_id}.json")
	case "template_engineer":
		return m.File(KindPrompts, "prompt_{template_id}.json")
	case "cta_optimizer":
		return m.File(KindTemplates, "template_{template_id}.php")
	case "theme_assembler":
		return m.File(KindTemplates, "template_{template_id}.cta.php")
	case "mobile_enhancer":
		return m.File(KindThemes, "theme_{template_id}")
	case "seo_optimizer":
		return m.File(KindEnhanced, "mobile_enhanced_{template_id}")
	case "component_library":
		return m.File(KindEnhanced, "seo_enhanced_{template_id}")
	case "theme_validator":
		return m.File(KindFinal, "theme_{template_id}")
	case "refinement":
		return m.Dir(KindReviews)
	case "packager":
		return m.File(KindFinal, "validated_theme_{template_id}")
	default:
		return m.Dir(KindInputs)
	}
}

// OutputFor returns the canonical output path for an agent.
func (m *Manager) OutputFor(agentID string) (string, error) {
	kind, name := outputTarget(agentID)
	return m.File(kind, name)
}

// outputTarget maps an agent to its output kind and filename pattern.
func outputTarget(agentID string) (Kind, string) {
	switch agentID {
	case "request_interpreter":
		return KindSpecs, "template_spec_{template_id}.json"
	case "prompt_designer":
		return KindPrompts, "prompt_{template_id}.json"
	case "design_variation":
		return KindVariations, "design_variation_{template_id}.json"
	case "template_engineer":
		return KindTemplates, "template_{template_id}.php"
	case "cta_optimizer":
		return KindTemplates, "template_{template_id}.cta.php"
	case "theme_assembler":
		return KindThemes, "theme_{template_id}"
	case "mobile_enhancer":
		return KindEnhanced, "mobile_enhanced_{template_id}"
	case "seo_optimizer":
		return KindEnhanced, "seo_enhanced_{template_id}"
	case "component_library":
		return KindEnhanced, "component_enhanced_{template_id}"
	case "theme_validator":
		return KindReviews, "validation_report_{template_id}.json"
	case "refinement":
		return KindIntermediate, "refinement_{template_id}.json"
	case "packager":
		return KindFinal, "theme_package_{template_id}"
	default:
		return KindOutputs, agentID + "_output_{template_id}"
	}
}

// LogFile returns the per-agent log sink path.
func (m *Manager) LogFile(agentID string) (string, error) {
	return m.File(KindLogs, agentID+"_{pipeline_id}.log")
}

// Remove deletes the pipeline's entire directory tree.
func (m *Manager) Remove() error {
	dir := m.PipelineDir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove pipeline directory %s: %w", dir, err)
	}
	return nil
}

// templateIDPatterns match, in priority order, the ID embedded in
// artifact filenames.
var templateIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`template_([a-zA-Z0-9_]+)`),
	regexp.MustCompile(`pipeline_([a-zA-Z0-9_]+)`),
	regexp.MustCompile(`theme_([a-zA-Z0-9_]+)`),
	regexp.MustCompile(`([a-zA-Z0-9_]{8,})`),
}

// TemplateIDFrom extracts a template ID from an artifact filename.
// Returns "" when no pattern matches.
func TemplateIDFrom(filename string) string {
	base := filepath.Base(filename)
	for _, pattern := range templateIDPatterns {
		if match := pattern.FindStringSubmatch(base); match != nil {
			return match[1]
		}
	}
	return ""
}

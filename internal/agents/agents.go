// Package agents implements the pipeline stages that turn a scrubbed
// request into a packaged WordPress theme.
//
// Each agent is a pipeline.Agent that reads from the pipeline workspace,
// produces one artifact and reports the artifact path so the engine can
// thread it into the next stage. Page content flows template -> theme ->
// enhanced theme -> validated package, while the template spec and the
// design variation are side artifacts that later stages read from their
// canonical workspace locations.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
	"github.com/fyrsmithlabs/themesmith/internal/variation"
)

const (
	defaultQualityThreshold = 7.5
	defaultMaxRefinePasses  = 3

	agentVersion = "1.0.0"

	dirPerm  = 0o755
	filePerm = 0o644
)

// GitOptions controls whether the packager commits the finished package
// to a local git repository.
type GitOptions struct {
	Enabled     bool
	AuthorName  string
	AuthorEmail string
}

// Options configures the full agent roster.
type Options struct {
	Logger *logging.Logger

	// QualityThreshold is the validation score refinement works toward.
	// Zero means 7.5.
	QualityThreshold float64

	// MaxRefinePasses caps refinement iterations. Zero means 3.
	MaxRefinePasses int

	// VariationSeed fixes the design draws. Zero derives a seed from the
	// pipeline and template IDs so re-runs reproduce their design.
	VariationSeed int64

	Git GitOptions
}

func (o *Options) normalize() error {
	if o.Logger == nil {
		return errors.New("logger is required")
	}
	if o.QualityThreshold <= 0 {
		o.QualityThreshold = defaultQualityThreshold
	}
	if o.MaxRefinePasses <= 0 {
		o.MaxRefinePasses = defaultMaxRefinePasses
	}
	return nil
}

// All returns the complete agent roster in pipeline order. The design
// variation and template engineer stages share one sampling engine so
// they also share its memory of recently issued combinations.
func All(opts Options) ([]pipeline.Agent, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	engine, err := variation.NewEngine(opts.Logger)
	if err != nil {
		return nil, err
	}

	interpreter, err := NewRequestInterpreter(opts.Logger)
	if err != nil {
		return nil, err
	}
	designer, err := NewPromptDesigner(opts.Logger)
	if err != nil {
		return nil, err
	}
	variator, err := NewDesignVariation(opts.Logger, engine, opts.VariationSeed)
	if err != nil {
		return nil, err
	}
	engineer, err := NewTemplateEngineer(opts.Logger, engine, opts.VariationSeed)
	if err != nil {
		return nil, err
	}
	optimizer, err := NewCTAOptimizer(opts.Logger)
	if err != nil {
		return nil, err
	}
	assembler, err := NewThemeAssembler(opts.Logger)
	if err != nil {
		return nil, err
	}
	mobile, err := NewMobileEnhancer(opts.Logger)
	if err != nil {
		return nil, err
	}
	seo, err := NewSEOOptimizer(opts.Logger)
	if err != nil {
		return nil, err
	}
	components, err := NewComponentLibrary(opts.Logger)
	if err != nil {
		return nil, err
	}
	validator, err := NewThemeValidator(opts.Logger)
	if err != nil {
		return nil, err
	}
	refiner, err := NewRefinement(opts.Logger, opts.QualityThreshold, opts.MaxRefinePasses)
	if err != nil {
		return nil, err
	}
	packager, err := NewPackager(opts.Logger, opts.Git)
	if err != nil {
		return nil, err
	}

	return []pipeline.Agent{
		interpreter,
		designer,
		variator,
		engineer,
		optimizer,
		assembler,
		mobile,
		seo,
		components,
		validator,
		refiner,
		packager,
	}, nil
}

// resolveInput returns the path an agent should read. The engine threads
// the previous stage's output through in.Path; when that path does not
// exist (skipped optional stages, stage re-runs) the canonical location
// from the path manager is used instead.
func resolveInput(in pipeline.Input, agentID string) (string, error) {
	if in.Paths == nil {
		return "", errors.New("path manager is required")
	}
	if in.Path != "" {
		if _, err := os.Stat(in.Path); err == nil {
			return in.Path, nil
		}
	}
	return in.Paths.InputFor(agentID)
}

// loadSpec reads the template spec from its canonical workspace location.
func loadSpec(ctx context.Context, loader *spec.Loader, pm *paths.Manager) (*spec.TemplateSpec, error) {
	path, err := pm.OutputFor("request_interpreter")
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, path)
}

// loadVariation reads the design variation from its canonical workspace
// location.
func loadVariation(pm *paths.Manager) (*variation.Variation, error) {
	path, err := pm.OutputFor("design_variation")
	if err != nil {
		return nil, err
	}
	return variation.Load(path)
}

// deriveSeed hashes the pipeline and template IDs so unseeded runs still
// reproduce their design draws when the same pipeline is re-run.
func deriveSeed(pipelineID, templateID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(pipelineID))
	h.Write([]byte{'/'})
	h.Write([]byte(templateID))
	return int64(h.Sum64())
}

// writeJSON writes v to path as indented JSON, creating parent
// directories as needed.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// copyDir copies every regular file under src into dst, preserving the
// relative layout.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, filePerm)
	})
}

// stageDir resets dst and fills it with a copy of src. The enhancement
// stages use it so a re-run never keeps stale files from an earlier
// pass.
func stageDir(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return fmt.Errorf("stage source and destination are both %s", src)
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return copyDir(src, dst)
}

// appendToFile appends block to an existing file.
func appendToFile(path, block string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(block); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// insertBefore places block on its own line immediately before the first
// occurrence of marker. The second return reports whether the marker was
// found.
func insertBefore(content, marker, block string) (string, bool) {
	idx := strings.Index(content, marker)
	if idx < 0 {
		return content, false
	}
	return content[:idx] + block + "\n" + content[idx:], true
}

// themeDirFor resolves the theme directory an artifact points at. The
// path may be the directory itself or a JSON artifact carrying a
// theme_path field, such as a validation or refinement report.
func themeDirFor(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return path, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var ref struct {
		ThemePath string `json:"theme_path"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if ref.ThemePath == "" {
		return "", fmt.Errorf("artifact %s does not name a theme directory", path)
	}
	return ref.ThemePath, nil
}

var scriptsFuncRE = regexp.MustCompile(`function ([a-z0-9_]+)_scripts\(`)

// themePrefix extracts the function prefix a theme's functions.php uses
// so appended hooks follow the same naming.
func themePrefix(functionsPHP string) string {
	if m := scriptsFuncRE.FindStringSubmatch(functionsPHP); m != nil {
		return m[1]
	}
	return "theme"
}

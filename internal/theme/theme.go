// Package theme renders and validates WordPress themes. Build produces
// the complete file set for a template spec and design variation from
// embedded templates; Validate scores an assembled theme directory the
// way a reviewer would, from required files down to image alt text.
package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Theme is an assembled WordPress theme held in memory as relative
// file paths mapped to contents.
type Theme struct {
	Name       string
	TemplateID string
	Version    string
	Files      map[string]string
}

// FileNames returns the theme's relative paths in stable order.
func (t *Theme) FileNames() []string {
	names := make([]string, 0, len(t.Files))
	for name := range t.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write materializes the theme under dir, creating subdirectories as
// needed. Existing files are overwritten.
func (t *Theme) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create theme directory: %w", err)
	}
	for _, name := range t.FileNames() {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(name), err)
		}
		if err := os.WriteFile(path, []byte(t.Files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

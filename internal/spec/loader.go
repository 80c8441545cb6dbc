package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

const (
	specFilePerm = 0o644
	specDirPerm  = 0o755
)

// Loader reads template specs from disk. Parsed documents are cached per
// path and reused until the file's size or modification time changes, so
// agents that each reopen the spec do not reparse it a dozen times per run.
type Loader struct {
	logger *logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	spec    *TemplateSpec
}

// NewLoader creates a spec loader.
func NewLoader(logger *logging.Logger) (*Loader, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Loader{
		logger: logger,
		cache:  make(map[string]cacheEntry),
	}, nil
}

// Load reads and parses the spec at path, serving from cache when the file
// is unchanged. Callers receive their own copy and may mutate it freely.
func (l *Loader) Load(ctx context.Context, path string) (*TemplateSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat spec %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.cache[path]; ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		l.logger.Debug(ctx, "spec cache hit", zap.String("path", path))
		return entry.spec.Clone(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec %s: %w", path, err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse spec %s: %w", path, err)
	}

	l.cache[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), spec: s.Clone()}
	l.logger.Debug(ctx, "spec loaded",
		zap.String("path", path),
		zap.String("template_id", s.TemplateID),
	)
	return s, nil
}

// Save writes the spec as indented JSON, creating parent directories as
// needed, and primes the cache with the written document.
func (l *Loader) Save(ctx context.Context, path string, s *TemplateSpec) error {
	if s == nil {
		return errors.New("spec is required")
	}
	if s.TemplateID == "" {
		return errors.New("spec is missing template_id")
	}

	doc := s.Clone()
	if doc.SiteType == "" {
		doc.SiteType = SiteSinglePage
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode spec: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), specDirPerm); err != nil {
		return fmt.Errorf("create spec directory: %w", err)
	}
	if err := os.WriteFile(path, data, specFilePerm); err != nil {
		return fmt.Errorf("write spec %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if info, err := os.Stat(path); err == nil {
		l.cache[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), spec: doc}
	}
	l.logger.Debug(ctx, "spec saved",
		zap.String("path", path),
		zap.String("template_id", doc.TemplateID),
	)
	return nil
}

// Parse decodes a spec from raw JSON without touching the cache.
func Parse(data []byte) (*TemplateSpec, error) {
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	return s, nil
}

func decode(data []byte) (*TemplateSpec, error) {
	var s TemplateSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.SiteType == "" {
		s.SiteType = SiteSinglePage
	}
	if !s.SiteType.Valid() {
		return nil, fmt.Errorf("invalid site type %q", s.SiteType)
	}
	return &s, nil
}

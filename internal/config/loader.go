// internal/config/loader.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	envPrefix = "THEMESMITH_"
)

// LoadWithFile builds the effective configuration. Values are merged in
// precedence order: environment variables beat the YAML file, which beats
// the hardcoded defaults.
//
// An empty configPath means ~/.config/themesmith/config.yaml. A missing
// file is not an error; defaults plus environment apply.
//
// # Security Considerations
//
// The file must live under ~/.config/themesmith/ or /etc/themesmith/;
// anything else, including symlinks pointing elsewhere, is rejected so a
// crafted path cannot pull YAML from arbitrary locations. Permissions
// must be 0600 or 0400, and files over 1MB are refused.
//
// # Environment Variable Mapping
//
// Variables carry the THEMESMITH_ prefix. The first underscore after the
// prefix separates section from field, so later underscores survive as
// part of the field name:
//
//	THEMESMITH_SERVER_PORT -> server.port
//	THEMESMITH_LOGGING_LEVEL -> logging.level
//	THEMESMITH_WORKSPACE_KEEP_DAYS -> workspace.keep_days
func LoadWithFile(configPath string) (*Config, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "themesmith", "config.yaml")
	}

	// Path rules apply whether or not the file exists yet.
	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	k := koanf.New(".")

	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToPath), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile reads configPath into k. Permission and size checks run
// against the already-open descriptor, so the file that was checked is
// the file that gets parsed.
func loadConfigFile(k *koanf.Koanf, configPath string) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return nil
}

// envToPath turns THEMESMITH_SECTION_FIELD_NAME into section.field_name.
// Only the first underscore splits; field names keep theirs.
func envToPath(s string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, found := strings.Cut(trimmed, "_")
	if !found {
		return trimmed
	}
	return section + "." + field
}

// EnsureConfigDir creates ~/.config/themesmith with 0700 permissions so a
// first run has somewhere to write its config.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "themesmith")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return nil
}

// validateConfigPath restricts config files to the allowed directories.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks before checking the prefix; a link inside the
	// allowed tree must not reach outside it. Paths that do not exist
	// yet cannot be resolved and are checked as given.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "themesmith"),
		"/etc/themesmith",
	}
	for _, dir := range allowedDirs {
		if strings.HasPrefix(resolvedPath, dir) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/themesmith/ or /etc/themesmith/")
}

// validateConfigFileProperties enforces the permission and size rules on
// FileInfo taken from an open descriptor.
func validateConfigFileProperties(info os.FileInfo) error {
	// Windows has no POSIX permission bits to check.
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}

// Package config provides application configuration management backed by a
// YAML libraries file with environment variable overrides for global settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crateapp/crate/internal/errors"
)

// Config holds the application configuration.
type Config struct {
	Logger    LoggerConfig       `yaml:"-"`
	Watch     WatchConfig        `yaml:"watch"`
	Libraries map[string]Library `yaml:"libraries"`
}

// LoggerConfig holds logging configuration. It is populated from the
// environment, not the libraries file.
type LoggerConfig struct {
	Level       string
	Environment string
}

// WatchConfig holds watch-mode configuration.
type WatchConfig struct {
	// Every is the debounce window in seconds. Defaults to 1 if unset.
	Every int `yaml:"every"`
}

// Window returns the debounce window as a duration.
func (w WatchConfig) Window() time.Duration {
	if w.Every <= 0 {
		return time.Second
	}
	return time.Duration(w.Every) * time.Second
}

// Library is a named collection of root folders sharing sort configuration.
type Library struct {
	Folders     []string `yaml:"folders"`
	Format      string   `yaml:"format"`
	ExfatCompat bool     `yaml:"exfat_compat"`
}

// DefaultYAML is the starter configuration written by `crate init`.
const DefaultYAML = `# crate configuration
watch:
  every: 1 # debounce window in seconds

libraries: {}
# libraries:
#   jazz:
#     folders: ["~/Music/Jazz"]
#     format: "{artist}/{album}/{track} {title}"
#     exfat_compat: false
`

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "crate", "config.yaml"), nil
}

// Load reads and validates the configuration file at path. An empty path
// falls back to DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Logger = LoggerConfig{
		Level:       getConfigValue("", "CRATE_LOG_LEVEL", "info"),
		Environment: getConfigValue("", "CRATE_ENV", "development"),
	}

	if err := cfg.expandLibraryFolders(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return errors.Validationf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	for name, lib := range c.Libraries {
		if len(lib.Folders) == 0 {
			return errors.Validationf("library %q has no folders", name)
		}
		if lib.Format == "" {
			return errors.Validationf("library %q has no format string", name)
		}
	}

	return c.validateRootDisjointness()
}

// validateRootDisjointness rejects configurations where one root is an
// ancestor-or-self of another. Overlapping roots would make library
// attribution depend on map iteration order during the ancestor walk.
func (c *Config) validateRootDisjointness() error {
	roots := make([]string, 0)
	owner := make(map[string]string)

	for name, lib := range c.Libraries {
		for _, folder := range lib.Folders {
			if prev, dup := owner[folder]; dup {
				return errors.Validationf("folder %q configured for both %q and %q", folder, prev, name)
			}
			owner[folder] = name
			roots = append(roots, folder)
		}
	}

	sep := string(filepath.Separator)
	for _, a := range roots {
		for _, b := range roots {
			if a == b {
				continue
			}
			if strings.HasPrefix(b, a+sep) {
				return errors.Validationf("root %q overlaps root %q", a, b)
			}
		}
	}

	return nil
}

// expandLibraryFolders expands ~ in every library folder, makes the paths
// absolute, and verifies they exist as directories.
func (c *Config) expandLibraryFolders() error {
	for name, lib := range c.Libraries {
		for i, folder := range lib.Folders {
			expanded, err := expandPath(folder)
			if err != nil {
				return fmt.Errorf("library %q: %w", name, err)
			}

			info, err := os.Stat(expanded)
			if err != nil {
				return errors.Validationf("library %q: folder %q does not exist", name, expanded)
			}
			if !info.IsDir() {
				return errors.Validationf("library %q: %q is not a directory", name, expanded)
			}

			lib.Folders[i] = expanded
		}
		c.Libraries[name] = lib
	}
	return nil
}

// Roots returns the mapping from watched root directory to library name.
func (c *Config) Roots() map[string]string {
	roots := make(map[string]string)
	for name, lib := range c.Libraries {
		for _, folder := range lib.Folders {
			roots[folder] = name
		}
	}
	return roots
}

// FormatOf returns the format string configured for the named library.
func (c *Config) FormatOf(library string) (string, bool) {
	lib, ok := c.Libraries[library]
	if !ok {
		return "", false
	}
	return lib.Format, true
}

// IsExfatCompat reports whether the named library requires FAT-compatible names.
func (c *Config) IsExfatCompat(library string) bool {
	return c.Libraries[library].ExfatCompat
}

// expandPath expands ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

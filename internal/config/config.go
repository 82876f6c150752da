package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Config represents the rbdiff configuration.
type Config struct {
	Format          string        `yaml:"format"`
	ContextLines    int           `yaml:"contextLines"`
	Include         []string      `yaml:"include"`
	Exclude         []string      `yaml:"exclude"`
	MaxDiffBytes    int           `yaml:"maxDiffBytes"`
	KeepModeChanges bool          `yaml:"keepModeChanges"`
	StorePath       string        `yaml:"storePath,omitempty"`
	LogLevel        string        `yaml:"logLevel"`
	Cache           CacheConfig   `yaml:"cache"`
	Privacy         PrivacyConfig `yaml:"privacy"`
}

// CacheConfig controls caching of parse results.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// PrivacyConfig controls redaction of diff bodies in rendered output.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Format:       "text",
		ContextLines: 3,
		Include:      []string{"**/*"},
		Exclude:      []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		MaxDiffBytes: 10 << 20,
		LogLevel:     "warn",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for rbdiff.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rbdiff"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "rbdiff"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "rbdiff"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "rbdiff"), nil
	default:
		return filepath.Join(home, ".config", "rbdiff"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultStorePath returns where the diff set database lives when
// storePath is not configured.
func DefaultStorePath() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "rbdiff", "rbdiff.db"), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rbdiff.db"), nil
}

// ResolvedStorePath returns StorePath, falling back to DefaultStorePath.
func (c Config) ResolvedStorePath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	return DefaultStorePath()
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean warn.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// LoadFile loads config from the config file on top of the defaults.
// Returns the defaults and nil error if the file doesn't exist.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if err := loadFileInto(path, &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// loadFileInto decodes the YAML file over cfg. Keys absent from the file
// keep their current values.
func loadFileInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes the config to the config file. The file is written to a temp
// file first and renamed into place.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing config file: %w", err)
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeEnv(&cfg)
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("RBDIFF_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("RBDIFF_CONTEXT_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContextLines = n
		} else {
			slog.Warn("[WARN-CONFIG] ignoring invalid RBDIFF_CONTEXT_LINES", "value", v)
		}
	}
	if v := os.Getenv("RBDIFF_MAX_DIFF_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDiffBytes = n
		} else {
			slog.Warn("[WARN-CONFIG] ignoring invalid RBDIFF_MAX_DIFF_BYTES", "value", v)
		}
	}
	if v := os.Getenv("RBDIFF_STORE"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("RBDIFF_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// mergeOverrides applies CLI flag values. Keys use the same names as SetField.
func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := SetField(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "format":
		cfg.Format = value
	case "contextLines":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("contextLines must be an integer: %w", err)
		}
		cfg.ContextLines = n
	case "maxDiffBytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxDiffBytes must be an integer: %w", err)
		}
		cfg.MaxDiffBytes = n
	case "keepModeChanges":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("keepModeChanges must be a boolean: %w", err)
		}
		cfg.KeepModeChanges = b
	case "storePath":
		cfg.StorePath = value
	case "logLevel":
		cfg.LogLevel = value
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cache.ttlSeconds must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	case "privacy.redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redactSecrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

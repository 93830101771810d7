package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/verifile/verifile/digest"
)

// DefaultFile is looked up in the working directory when no config flag
// is given.
const DefaultFile = "verifile.yaml"

// Config carries the tool-wide defaults.
type Config struct {
	// Database is the ledger storage location.
	Database string `yaml:"database"`

	// Algorithm is the default digest algorithm for add operations.
	Algorithm string `yaml:"algorithm"`

	// Report is the default report output path.
	Report string `yaml:"report"`

	// Extensions is the default extension filter for directory scans.
	// Empty means no filtering.
	Extensions []string `yaml:"extensions"`

	// LogLevel selects the diagnostic verbosity: debug, info, warn or
	// error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:  "integrity_database.json",
		Algorithm: string(digest.Default),
		Report:    "integrity_report.txt",
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path and overlays it onto the defaults, so
// unset keys keep their built-in values.
func Load(path string) (Config, error) {
	const errCtx = "loading config"

	raw, err := os.ReadFile(path) //nolint:gosec // location comes from the CLI
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg := Default()

	// An empty or comment-only file decodes as a null document, which
	// zeroes the prefilled defaults instead of leaving them in place.
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	if len(doc) > 0 {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %s: %w", errCtx, path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return cfg, nil
}

// validate rejects values the tool could not honor later.
func (cfg Config) validate() error {
	if _, err := digest.Parse(cfg.Algorithm); err != nil {
		return err
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}

	if cfg.Database == "" {
		return fmt.Errorf("database path must not be empty")
	}

	if cfg.Report == "" {
		return fmt.Errorf("report path must not be empty")
	}

	return nil
}

// SlogLevel converts the configured level name. The zero Config maps to
// info.
func (cfg Config) SlogLevel() slog.Level {
	lv, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}

	return lv
}

// parseLevel maps a level name onto a slog.Level.
func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

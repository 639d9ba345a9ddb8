package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tabcal/internal/model"
)

// Config is the top-level application configuration: run-level settings
// that are not part of the mapping/filters/week-view documents. Values
// load from YAML, then environment variables override, then flags
// override.
type Config struct {
	// OutputDir receives the generated .ics files and, unless the
	// filters document says otherwise, the week view workbook.
	OutputDir string `yaml:"output_dir" env:"TABCAL_OUTPUT_DIR"`

	// Timezone is the IANA zone attached to naive source timestamps
	// (e.g. "Australia/Sydney"). Timestamps carrying an explicit offset
	// keep it.
	Timezone string `yaml:"timezone" env:"TABCAL_TIMEZONE"`

	// Company goes into the PRODID of every emitted calendar.
	Company string `yaml:"company" env:"TABCAL_COMPANY"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used by watch mode to re-run the export.
	RefreshCron string `yaml:"refresh" env:"TABCAL_REFRESH"`

	// SkipTransforms lists transform and field names to bypass.
	SkipTransforms []string `yaml:"skip_transforms" env:"TABCAL_SKIP_TRANSFORMS" envSeparator:","`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" env:"TABCAL_DEBUG"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   ".",
		Timezone:    "Australia/Sydney",
		Company:     "tabcal",
		RefreshCron: "*/15 * * * *",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Timezone == "" {
		c.Timezone = "Australia/Sydney"
	}
	if c.Company == "" {
		c.Company = "tabcal"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
}

// Load loads configuration from the given YAML path and applies
// environment variable overrides.
//
// Behavior:
//   - If path is empty, the file step is skipped (defaults + env only).
//   - If the file does not exist, a default config is written there
//     with 0600 perms and used.
//   - If the file exists, it is read, unmarshaled and normalized.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			cfg = &Config{}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, model.Configf("parse %s: %v", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// First run: create default config file.
			if saveErr := Save(path, cfg); saveErr != nil {
				// Return cfg with the error so the caller can decide.
				return cfg, saveErr
			}
		default:
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, model.Configf("environment overrides: %v", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".tabcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// SkipSet returns the skip list as a set for the transform engine.
func (c *Config) SkipSet() map[string]struct{} {
	out := make(map[string]struct{}, len(c.SkipTransforms))
	for _, name := range c.SkipTransforms {
		if name == "" {
			continue
		}
		out[name] = struct{}{}
	}
	return out
}

// Location resolves the configured timezone identifier.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, model.Configf("unknown timezone %q", c.Timezone)
	}
	return loc, nil
}

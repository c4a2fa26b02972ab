// Package cli implements the qcboot reference command-line driver: a
// concrete front-end satisfying internal/interfaces' adapter contract
// (Logger, Observer, Confirmer, PathSelector), so the Sahara and
// Streaming DLOAD engines/workers are exercised end-to-end and not
// just through tests.
package cli

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the operator's remembered port/baud/directory defaults.
// Engines themselves never read this — they take every parameter
// explicitly, per spec.md 6's "no environment variables" rule; only
// this CLI layer consults it, and only to prefill flag defaults.
type Config struct {
	Port         string `yaml:"port"`
	Baud         int    `yaml:"baud"`
	ImageDir     string `yaml:"image_dir"`
	DumpDir      string `yaml:"dump_dir"`
}

// DefaultConfig returns the built-in defaults used when no config file
// exists.
func DefaultConfig() *Config {
	return &Config{Baud: 115200}
}

// configPath returns ~/.config/qcboot/config.yaml.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qcboot", "config.yaml"), nil
}

// LoadConfig reads the config file if present, falling back to
// DefaultConfig when it doesn't exist.
func LoadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists cfg to the config path, creating parent directories as
// needed.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

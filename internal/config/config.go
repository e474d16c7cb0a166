// Package config loads optional on-disk engine settings, supplementing the
// engine's functional-option constructor for deployments that prefer a
// persisted settings file over command-line flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the persisted subset of engine tuning knobs. Zero values mean
// "use the engine default".
type Config struct {
	BufferCapacity  int  `yaml:"buffer_capacity"`
	MaxDocumentSize int  `yaml:"max_document_size"`
	SkipValidation  bool `yaml:"skip_validation"`
	Compression     bool `yaml:"compression"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// Save writes c to path as YAML, creating or truncating the file.
func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

package capability

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the registry YAML. KnownFields(true) makes typos and unused
// fields fail immediately instead of silently defaulting thresholds.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode registry config: %w", err)
	}

	// Categories may omit thresholds; inherit the default entry
	for name, entry := range cfg.Categories {
		if entry.FreshnessThresholdHours == 0 {
			entry.FreshnessThresholdHours = cfg.Default.FreshnessThresholdHours
		}
		if entry.MinimumRows == 0 && cfg.Default.MinimumRows > 0 {
			entry.MinimumRows = cfg.Default.MinimumRows
		}
		cfg.Categories[name] = entry
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate registry config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads the YAML when it exists, otherwise falls back to the
// built-in table
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save serializes a configuration layer to YAML at path, creating parent
// directories as needed. Unlike Load, failures are returned to the caller:
// the write was explicitly requested, so it must not fail silently.
func Save(path string, layer Layer) error {
	data, err := yaml.Marshal(layer)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a host-config stand-in for CLI use. YAML is the primary
// format; JSON documents parse too since YAML is a superset.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var conf map[string]any
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, configErrorf("parse config file %s: %v", path, err)
	}
	return Flatten(conf), nil
}

package network

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var defaultManifest []byte

// Defaults returns the built in networks and parameter sets.
func Defaults() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultManifest, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default networks: %w", err)
	}

	return &cfg, nil
}

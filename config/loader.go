package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file and unmarshals it into the specified type.
// T must be a struct type that can be unmarshaled from YAML.
func LoadConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadServerConfig reads a server configuration, applies defaults and validates it.
func LoadServerConfig(path string) (*Server, error) {
	logger := log.With().Str("com", "config-loader").Logger()

	cfg, err := LoadConfig[Server](path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Info().
		Str("listen", cfg.Listen.Address()).
		Int("max_clients", cfg.MaxClients).
		Bool("remote", cfg.Remote.Enabled).
		Msg("loaded server configuration")
	return cfg, nil
}

// LoadClientConfig reads a client configuration, applies defaults and validates it.
func LoadClientConfig(path string) (*Client, error) {
	cfg, err := LoadConfig[Client](path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

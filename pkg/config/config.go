// Package config provides configuration loading and management for the
// qtdmri command. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"qtdmri/pkg/qtdmri"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Model holds the basis and regularization options passed to the fitting
	// engine. Weightings accept a number or a selection keyword ("GCV" for
	// the Laplacian weight, "CV" for the sparsity weight).
	Model qtdmri.Options `yaml:"model"`

	// Input parameters
	Input struct {
		// SchemePath is the acquisition scheme file: one sample per line with
		// columns q, bvecX, bvecY, bvecZ, bigDelta, smallDelta
		SchemePath string `yaml:"schemePath"`

		// SignalPath is the measured signal file, one value per line in
		// scheme order
		SignalPath string `yaml:"signalPath"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// ReportPath is where the fitted index report is written; empty
		// means stdout only
		ReportPath string `yaml:"reportPath"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Model = qtdmri.DefaultOptions()
	cfg.Output.Verbose = true
	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

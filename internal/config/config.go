// Package config holds the explicit configuration object passed into the
// engine's constructors. The engine itself keeps no process-wide mutable
// state; everything tunable lives here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mbucher/cotrace/internal/label"
)

// Config is the full engine configuration.
type Config struct {
	// Label controls retrieval-label derivation on save.
	Label label.Config `yaml:"label"`

	// ReflectBrightProb is the 0-100 percent chance that a reflect step seeds
	// the completion request with the bright-node text instead of session text
	// only. Drawn independently per invocation.
	ReflectBrightProb int `yaml:"reflect_bright_prob"`

	// RetrievalTimeoutSeconds bounds the AI retrieval pass. Values below 5
	// are raised to 5; the deterministic substring fallback takes over on
	// timeout.
	RetrievalTimeoutSeconds int `yaml:"retrieval_timeout_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Label:                   label.DefaultConfig(),
		ReflectBrightProb:       50,
		RetrievalTimeoutSeconds: 30,
	}
}

// Load reads a YAML config file, merging it over the defaults. A missing file
// is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Clamp()
	return cfg, nil
}

// Save writes the configuration back to disk.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Clamp forces all values into their documented ranges.
func (c *Config) Clamp() {
	if c.ReflectBrightProb < 0 {
		c.ReflectBrightProb = 0
	}
	if c.ReflectBrightProb > 100 {
		c.ReflectBrightProb = 100
	}
	if c.RetrievalTimeoutSeconds < 5 {
		c.RetrievalTimeoutSeconds = 5
	}
	if c.Label.AfterFirstLimit <= 0 {
		c.Label.AfterFirstLimit = 300
	}
	if c.Label.BeforeLastLimit <= 0 {
		c.Label.BeforeLastLimit = 300
	}
	if c.Label.OutputMaxLen <= 0 {
		c.Label.OutputMaxLen = 500
	}
	if c.Label.RawParts == "" {
		c.Label.RawParts = label.PartsAfterFirstBeforeLast
	}
	if c.Label.FormatMode == "" {
		c.Label.FormatMode = label.FormatAI
	}
	if c.Label.AIPrompt == "" {
		c.Label.AIPrompt = label.DefaultAIPrompt
	}
	if c.Label.CustomTemplate == "" {
		c.Label.CustomTemplate = "{raw_label}"
	}
}

// Package config holds runtime configuration for an s3invreport run.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for one report run.
type Config struct {
	ManifestURI  string
	Depth        int
	Out          string
	CacheDir     string
	Concurrency  int
	SkipChecksum bool
	Debug        bool
	Human        bool
}

// FileConfig is the on-disk YAML structure for default settings. Pointer
// fields distinguish "absent" from zero values.
type FileConfig struct {
	CacheDir     string `yaml:"cache_dir"`
	Depth        *int   `yaml:"depth"`
	Concurrency  int    `yaml:"concurrency"`
	SkipChecksum *bool  `yaml:"skip_checksum"`
}

// LoadFile reads a YAML defaults file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.ManifestURI == "" {
		return fmt.Errorf("--manifest is required")
	}
	if !strings.HasPrefix(c.ManifestURI, "s3://") {
		return fmt.Errorf("--manifest must be an s3:// location")
	}
	if c.Depth < 0 {
		return fmt.Errorf("--depth must not be negative")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	return nil
}

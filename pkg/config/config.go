// Package config loads abra settings from ~/.abra/sources.yaml with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coboxhq/abra/pkg/crm"
)

// Config is the parsed sources.yaml.
type Config struct {
	Store struct {
		// Path is the SQLite database file.
		Path string `yaml:"path"`
	} `yaml:"store"`

	// Scope is the default binding scope for CLI operations.
	Scope string `yaml:"scope"`

	// EmbeddingDim is the fixed dimension of content embeddings.
	EmbeddingDim int `yaml:"embedding_dim"`

	Sinks struct {
		CRM crm.Config `yaml:"crm"`
	} `yaml:"sinks"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.Store.Path = filepath.Join(home, ".abra", "abra.db")
	c.Scope = "golda"
	c.EmbeddingDim = 384
	return c
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".abra", "sources.yaml")
}

// Load reads path, layering file values over defaults and environment
// overrides over both. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return c, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if v := os.Getenv("ABRA_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("ABRA_SCOPE"); v != "" {
		c.Scope = v
	}
	if v := os.Getenv("ODOO_API_KEY"); v != "" {
		c.Sinks.CRM.APIKey = v
	}
	return c, nil
}

// Package config loads Quill's host configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/quillworks/quill/internal/domain/capability"
)

// DefaultFileName is the host configuration file name.
const DefaultFileName = "quill.toml"

// Config is the host configuration.
type Config struct {
	Plugins Plugins `toml:"plugins"`
}

// Plugins configures the plugin extension subsystem.
type Plugins struct {
	// Root is the directory scanned for plugin packages.
	Root string `toml:"root"`

	// Capabilities names the capabilities the operator allows plugins
	// to request. Empty means the locked-down default.
	Capabilities []string `toml:"capabilities"`
}

// Default returns the configuration used when no file exists: plugins
// under the user config directory and the locked-down policy.
func Default() *Config {
	root := "plugins"
	if dir, err := os.UserConfigDir(); err == nil {
		root = filepath.Join(dir, "quill", "plugins")
	}
	return &Config{Plugins: Plugins{Root: root}}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Plugins.Root == "" {
		cfg.Plugins.Root = Default().Plugins.Root
	}
	return cfg, nil
}

// LoadOrDefault loads a configuration file, treating a missing file as
// the default configuration.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Policy builds the capability policy from the configured allow-list.
// No configured capabilities means locked down.
func (c *Config) Policy() (*capability.Policy, error) {
	if len(c.Plugins.Capabilities) == 0 {
		return capability.LockedDown(), nil
	}
	caps := make([]capability.Capability, 0, len(c.Plugins.Capabilities))
	for _, raw := range c.Plugins.Capabilities {
		parsed, err := capability.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		caps = append(caps, parsed)
	}
	return capability.AllowOnly(caps...), nil
}

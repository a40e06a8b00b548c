// Package config loads and saves the aastools YAML configuration, which also
// remembers the paths used in the last session.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ernie/aastools/internal/assets"
)

// DefaultPath is where the config is looked for when none is given.
const DefaultPath = "aastools.yaml"

// DefaultCompilerArgs are the mbspc flags Q3Rally maps are built with. The
// BSP path is appended after them.
var DefaultCompilerArgs = []string{"-bsp2aas", "-forcesidesvisible", "-optimize", "-reach"}

// Config is the on-disk configuration.
type Config struct {
	Paths    Paths    `yaml:"paths"`
	AAS      AAS      `yaml:"aas"`
	Compiler Compiler `yaml:"compiler"`
	History  History  `yaml:"history"`
	Log      Log      `yaml:"log"`
}

// Paths are remembered between runs.
type Paths struct {
	BSPFile   string `yaml:"bsp_file,omitempty"`
	MBSPC     string `yaml:"mbspc,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
	AASFile   string `yaml:"aas_file,omitempty"`
}

type AAS struct {
	// Magic is the expected 4-byte signature of compiled AAS files.
	Magic string `yaml:"magic"`
}

type Compiler struct {
	Args []string `yaml:"args"`
}

type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		AAS:      AAS{Magic: assets.AASMagic},
		Compiler: Compiler{Args: append([]string(nil), DefaultCompilerArgs...)},
		History:  History{Enabled: true, Path: "aastools.db"},
		Log:      Log{Level: "info", Format: "console"},
	}
}

// Load reads the config at path over the defaults. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would make later steps fail in confusing ways.
func (c *Config) Validate() error {
	if len(c.AAS.Magic) != 4 {
		return fmt.Errorf("aas.magic must be exactly 4 bytes, got %q", c.AAS.Magic)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json; got %q", c.Log.Format)
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path is required when history is enabled")
	}
	return nil
}

// Save writes the config to path, creating its directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Package config holds the shared run configuration for rigup.
//
// Config is stored at $XDG_CONFIG_HOME/rigup/config.yaml (defaults to
// ~/.config/rigup/config.yaml). Flags override file values; components never
// read ambient global state — the orchestrator passes one Config through.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults for a stock car directory layout.
const (
	DefaultService     = "rig.service"
	DefaultVenv        = "env"
	DefaultRemote      = "origin"
	DefaultBranch      = "main"
	DefaultPairTimeout = 60 // seconds
)

// Config describes one provisioning target.
type Config struct {
	Service     string `yaml:"service,omitempty"`      // systemd unit name
	CarDir      string `yaml:"car-dir,omitempty"`      // working copy root
	Venv        string `yaml:"venv,omitempty"`         // venv dir, relative to CarDir unless absolute
	Remote      string `yaml:"remote,omitempty"`       // git remote name
	Branch      string `yaml:"branch,omitempty"`       // upstream branch
	PairTimeout int    `yaml:"pair-timeout,omitempty"` // discovery window, seconds
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/rigup/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "rigup", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "rigup", "config.yaml")
}

// Load reads the config file at path (or Path() when empty) and fills in
// defaults for anything unset. A missing file yields pure defaults, not an
// error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to path (or Path() when empty), creating
// directories as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Service == "" {
		c.Service = DefaultService
	}
	if c.CarDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.CarDir = filepath.Join(home, "mycar")
		} else {
			c.CarDir = "mycar"
		}
	}
	if c.Venv == "" {
		c.Venv = DefaultVenv
	}
	if c.Remote == "" {
		c.Remote = DefaultRemote
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.PairTimeout <= 0 {
		c.PairTimeout = DefaultPairTimeout
	}
}

// VenvPath resolves the venv directory against CarDir.
func (c *Config) VenvPath() string {
	if filepath.IsAbs(c.Venv) {
		return c.Venv
	}
	return filepath.Join(c.CarDir, c.Venv)
}

// Manifests returns the dependency manifest files that participate in the
// car environment, in a stable order. Only files that exist are returned.
func (c *Config) Manifests() []string {
	candidates := []string{
		filepath.Join(c.CarDir, "requirements.txt"),
		filepath.Join(c.CarDir, "requirements-extra.txt"),
	}
	out := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

// DataDir returns the rigup data root, honoring XDG_DATA_HOME.
func DataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "rigup")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "rigup")
}

// JournalPath returns the provisioning journal database location.
func JournalPath() string {
	return filepath.Join(DataDir(), "journal.db")
}

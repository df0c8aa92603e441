// Package config handles loading and saving gcb configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/gcb/config.yaml
//   - State:   ~/.local/state/gcb/ (last browsed project and model)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied by ResolveProject.
const (
	EnvEndpoint = "GCB_ENDPOINT"
	EnvToken    = "GCB_TOKEN"
	EnvDatabase = "GCB_DATABASE"
)

// ErrUnknownProject is returned when a named project is not configured.
var ErrUnknownProject = errors.New("unknown project")

// Project is a named connection. Database, when set, selects the offline
// SQLite backend instead of the GraphQL endpoint.
type Project struct {
	Name           string `yaml:"name"`
	Endpoint       string `yaml:"endpoint,omitempty"`
	SystemEndpoint string `yaml:"system_endpoint,omitempty"`
	Token          string `yaml:"token,omitempty"`
	Database       string `yaml:"database,omitempty"`
}

// BrowserConfig tunes the data browser.
type BrowserConfig struct {
	PageSize         int           `yaml:"page_size,omitempty"`
	ImportChunkSize  int           `yaml:"import_chunk_size,omitempty"`
	BatchConcurrency int           `yaml:"batch_concurrency,omitempty"`
	RequestTimeout   time.Duration `yaml:"request_timeout,omitempty"`
	RowHeight        int           `yaml:"row_height,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	ShowDetail bool   `yaml:"show_detail,omitempty"` // Detail pane open at startup
	Theme      string `yaml:"theme,omitempty"`       // auto, dark, light
}

// Config is the top-level configuration for gcb.
type Config struct {
	Projects       []Project     `yaml:"projects,omitempty"`
	DefaultProject string        `yaml:"default_project,omitempty"`
	Browser        BrowserConfig `yaml:"browser,omitempty"`
	UI             UIConfig      `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Browser: BrowserConfig{
			PageSize:         50,
			ImportChunkSize:  10,
			BatchConcurrency: 8,
			RequestTimeout:   30 * time.Second,
			RowHeight:        1,
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// ConfigDir returns the XDG config directory for gcb.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gcb")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gcb")
}

// StateDir returns the XDG state directory for gcb.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "gcb")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "gcb")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()

	for i := range cfg.Projects {
		cfg.Projects[i].Database = ExpandHome(cfg.Projects[i].Database)
	}
	return cfg, nil
}

// normalize replaces non-positive tuning values with their defaults.
func (c *Config) normalize() {
	def := DefaultConfig().Browser
	b := &c.Browser
	if b.PageSize <= 0 {
		b.PageSize = def.PageSize
	}
	if b.ImportChunkSize <= 0 {
		b.ImportChunkSize = def.ImportChunkSize
	}
	if b.BatchConcurrency <= 0 {
		b.BatchConcurrency = def.BatchConcurrency
	}
	if b.RequestTimeout <= 0 {
		b.RequestTimeout = def.RequestTimeout
	}
	if b.RowHeight <= 0 {
		b.RowHeight = def.RowHeight
	}
	if c.UI.Theme == "" {
		c.UI.Theme = "auto"
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path. Tokens end up on disk, so the
// file is only readable by its owner.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindProject returns the project with the given name, or nil.
func (c Config) FindProject(name string) *Project {
	for i := range c.Projects {
		if strings.EqualFold(c.Projects[i].Name, name) {
			return &c.Projects[i]
		}
	}
	return nil
}

// ResolveProject picks the connection to open. An empty name selects the
// default project, or the only project when exactly one is configured.
// Environment overrides are applied last, so a connection can be given
// entirely through the environment.
func (c Config) ResolveProject(name string) (Project, error) {
	if name == "" {
		name = c.DefaultProject
	}
	var p Project
	switch {
	case name != "":
		found := c.FindProject(name)
		if found == nil {
			return Project{}, fmt.Errorf("%w: %q", ErrUnknownProject, name)
		}
		p = *found
	case len(c.Projects) == 1:
		p = c.Projects[0]
	}

	if v := os.Getenv(EnvEndpoint); v != "" {
		p.Endpoint = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		p.Token = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		p.Database = ExpandHome(v)
	}
	return p, nil
}

// IsOffline reports whether the project reads a local database.
func (p Project) IsOffline() bool { return p.Database != "" }

// Target describes where the project connects, for status lines.
func (p Project) Target() string {
	if p.IsOffline() {
		return p.Database
	}
	return p.Endpoint
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// File names looked up in the config directories.
const (
	FileName       = "config.yaml"
	LegacyFileName = "config.ini"
	StyleFileName  = "style.css"
)

// Defaults and limits.
const (
	DefaultIconSize         = 32
	DefaultSearcherIconSize = 64
	DefaultPollIntervalMS   = 1000
	DefaultPort             = 7373
	MaxIconSize             = 256
)

// APIConfig configures the HTTP presenter.
type APIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Port    int  `json:"port" yaml:"port" mapstructure:"port"`
}

// Config represents the dock configuration
type Config struct {
	PinnedApps       []string  `json:"pinned_apps" yaml:"pinned_apps" mapstructure:"pinned_apps"`
	IconSize         int       `json:"icon_size" yaml:"icon_size" mapstructure:"icon_size"`
	SearcherIconSize int       `json:"searcher_icon_size" yaml:"searcher_icon_size" mapstructure:"searcher_icon_size"`
	PollIntervalMS   int       `json:"poll_interval_ms" yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	LogLevel         string    `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	StylePath        string    `json:"style_path,omitempty" yaml:"style_path,omitempty" mapstructure:"style_path"`
	API              APIConfig `json:"api" yaml:"api" mapstructure:"api"`
}

// PollInterval returns the polling fallback interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Paths are the directories searched for configuration. The user directory
// wins; the system directory is read-only.
type Paths struct {
	UserDir   string
	SystemDir string
}

// DefaultPaths returns $XDG_CONFIG_HOME/hyprdock and /usr/share/hyprdock.
func DefaultPaths() (Paths, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get config directory: %w", err)
	}
	return Paths{
		UserDir:   filepath.Join(dir, "hyprdock"),
		SystemDir: "/usr/share/hyprdock",
	}, nil
}

// Manager handles configuration
type Manager struct {
	paths      Paths
	configPath string // file the config was read from
	savePath   string // file Save writes to
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a configuration manager using the default directories.
// A non-empty configFile is used for both reading and saving.
func NewManager(configFile string) (*Manager, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	return Open(configFile, paths)
}

// Open creates a configuration manager over explicit directories.
//
// Lookup order is configFile, the user config.yaml, the system config.yaml,
// then a legacy user config.ini which is migrated to YAML. With nothing
// found a default config is written to the user directory.
func Open(configFile string, paths Paths) (*Manager, error) {
	log := logger.WithComponent("config")

	m := &Manager{
		paths:    paths,
		savePath: filepath.Join(paths.UserDir, FileName),
	}
	if configFile != "" {
		m.savePath = configFile
	}
	m.configPath = m.findConfigPath(configFile)

	err := m.load()
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		cfg, migrated, lerr := m.loadLegacy()
		if lerr != nil {
			log.Warn().Err(lerr).Msg("Failed to read legacy config, using defaults")
		}
		if migrated {
			log.Info().
				Str("from", filepath.Join(paths.UserDir, LegacyFileName)).
				Str("to", m.savePath).
				Msg("Migrating legacy config")
		} else {
			log.Info().
				Str("path", m.savePath).
				Msg("Config file not found, creating new config")
		}
		m.config = cfg
		m.configPath = m.savePath
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	log.Info().
		Str("path", m.configPath).
		Int("pinned_apps", len(m.config.PinnedApps)).
		Msg("Config loaded")

	return m, nil
}

func (m *Manager) findConfigPath(configFile string) string {
	if configFile != "" {
		return configFile
	}
	user := filepath.Join(m.paths.UserDir, FileName)
	if _, err := os.Stat(user); err == nil {
		return user
	}
	if m.paths.SystemDir != "" {
		system := filepath.Join(m.paths.SystemDir, FileName)
		if _, err := os.Stat(system); err == nil {
			return system
		}
	}
	return user
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		PinnedApps:       []string{},
		IconSize:         DefaultIconSize,
		SearcherIconSize: DefaultSearcherIconSize,
		PollIntervalMS:   DefaultPollIntervalMS,
		LogLevel:         "info",
		API: APIConfig{
			Enabled: true,
			Port:    DefaultPort,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.GetConfigPath())
	if err != nil {
		return err
	}

	cfg, err := Parse(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Parse decodes YAML config data on top of the defaults and normalizes it.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// loadLegacy reads [dock] icon_size and [pinned] apps from the user
// config.ini. migrated is false when no legacy file exists.
func (m *Manager) loadLegacy() (cfg *Config, migrated bool, err error) {
	cfg = Defaults()
	path := filepath.Join(m.paths.UserDir, LegacyFileName)
	if _, statErr := os.Stat(path); statErr != nil {
		return cfg, false, nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return cfg, false, err
	}

	if key := f.Section("dock").Key("icon_size"); key.String() != "" {
		if n, err := key.Int(); err == nil {
			cfg.IconSize = n
		}
	}
	cfg.PinnedApps = strings.Split(f.Section("pinned").Key("apps").String(), ",")
	cfg.Normalize()
	return cfg, true, nil
}

// Normalize trims pinned ids, drops empty and duplicate ones, and replaces
// out-of-range sizes and intervals with their defaults.
func (c *Config) Normalize() {
	pinned := make([]string, 0, len(c.PinnedApps))
	for _, id := range c.PinnedApps {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(pinned, id) {
			continue
		}
		pinned = append(pinned, id)
	}
	c.PinnedApps = pinned

	if c.IconSize <= 0 || c.IconSize > MaxIconSize {
		c.IconSize = DefaultIconSize
	}
	if c.SearcherIconSize <= 0 || c.SearcherIconSize > MaxIconSize {
		c.SearcherIconSize = DefaultSearcherIconSize
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = DefaultPollIntervalMS
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		c.API.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Reload re-reads the config file. On failure the previous config is kept.
func (m *Manager) Reload() error {
	if err := m.load(); err != nil {
		logger.WithComponent("config").Warn().
			Err(err).
			Str("path", m.GetConfigPath()).
			Msg("Failed to reload config, keeping previous")
		return err
	}
	logger.WithComponent("config").Debug().
		Str("path", m.GetConfigPath()).
		Msg("Config reloaded")
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	cfg := *m.config
	cfg.PinnedApps = slices.Clone(m.config.PinnedApps)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")

	configDir := filepath.Dir(m.savePath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.savePath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("path", m.savePath).
			Msg("Failed to write config")
		return err
	}

	// Subsequent reloads follow the file we wrote.
	m.mu.Lock()
	m.configPath = m.savePath
	m.mu.Unlock()

	log.Debug().
		Str("path", m.savePath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration and saves it.
func (m *Manager) Update(cfg *Config) error {
	c := *cfg
	c.PinnedApps = slices.Clone(cfg.PinnedApps)
	c.Normalize()

	m.mu.Lock()
	m.config = &c
	m.mu.Unlock()
	return m.Save()
}

// AddPinnedApp appends a desktop id to the pinned list. Pinning an id twice
// is a no-op.
func (m *Manager) AddPinnedApp(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("empty application id")
	}

	m.mu.Lock()
	if m.config == nil {
		m.config = Defaults()
	}
	if slices.Contains(m.config.PinnedApps, id) {
		m.mu.Unlock()
		logger.WithComponent("config").Debug().
			Str("app_id", id).
			Msg("App already pinned, skipping")
		return nil
	}
	m.config.PinnedApps = append(slices.Clone(m.config.PinnedApps), id)
	total := len(m.config.PinnedApps)
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		return err
	}

	logger.WithComponent("config").Info().
		Str("app_id", id).
		Int("total_count", total).
		Msg("Pinned app")
	return nil
}

// RemovePinnedApp removes a desktop id from the pinned list. It reports
// whether the id was pinned.
func (m *Manager) RemovePinnedApp(id string) (bool, error) {
	id = strings.TrimSpace(id)

	m.mu.Lock()
	if m.config == nil || !slices.Contains(m.config.PinnedApps, id) {
		m.mu.Unlock()
		return false, nil
	}
	m.config.PinnedApps = slices.DeleteFunc(slices.Clone(m.config.PinnedApps), func(p string) bool {
		return p == id
	})
	total := len(m.config.PinnedApps)
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		return true, err
	}

	logger.WithComponent("config").Info().
		Str("app_id", id).
		Int("total_count", total).
		Msg("Unpinned app")
	return true, nil
}

// Viper returns a viper instance holding the current configuration, keyed by
// the YAML field names.
func (m *Manager) Viper() (*viper.Viper, error) {
	data, err := yaml.Marshal(m.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to load config into viper: %w", err)
	}
	return v, nil
}

// Set assigns a single key (dotted for nested fields, e.g. api.port) and
// saves the result.
func (m *Manager) Set(key string, value any) error {
	v, err := m.Viper()
	if err != nil {
		return err
	}
	if !v.IsSet(key) && key != "style_path" {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	v.Set(key, value)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return m.Update(&cfg)
}

// GetConfigPath returns the path the config was read from
func (m *Manager) GetConfigPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// GetConfigDir returns the user config directory
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.savePath)
}

// StylePath returns the style sheet path: style_path when set, otherwise
// style.css in the user config directory.
func (m *Manager) StylePath() string {
	if p := m.Get().StylePath; p != "" {
		return p
	}
	return filepath.Join(m.paths.UserDir, StyleFileName)
}

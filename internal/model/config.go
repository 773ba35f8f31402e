package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig points the client at the planning service.
type ServerConfig struct {
	// BaseURL is the root URL of the service (without the /api prefix).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every individual request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a rate-limited request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// CacheConfig controls the local snapshot cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// InboxConfig describes the IMAP mailbox used for task capture.
// The password lives in the keyring, never in this file.
type InboxConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      string `mapstructure:"port" yaml:"port"`
	Username  string `mapstructure:"username" yaml:"username"`
	TLS       bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox   string `mapstructure:"mailbox" yaml:"mailbox"`
	SinceDays int    `mapstructure:"since_days" yaml:"since_days"`
	Limit     int    `mapstructure:"limit" yaml:"limit"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	Language string        `mapstructure:"language" yaml:"language"`
	Cache    CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log      LogConfig     `mapstructure:"log" yaml:"log"`
	Inbox    InboxConfig   `mapstructure:"inbox" yaml:"inbox"`
	Display  DisplayConfig `mapstructure:"display" yaml:"display"`
}

// ConfigDir returns ~/.config/deletion-planner.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "deletion-planner")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/deletion-planner/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		Language: "en",
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(ConfigDir(), "cache.db"),
		},
		Inbox: InboxConfig{
			Port:      "993",
			TLS:       true,
			Mailbox:   "INBOX",
			SinceDays: 7,
			Limit:     50,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// setDefaults mirrors defaultAppConfig so missing keys resolve to the
// same values whether or not a file exists.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	v.SetDefault("server.max_retries", d.Server.MaxRetries)
	v.SetDefault("language", d.Language)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("log.debug", false)
	v.SetDefault("inbox.host", "")
	v.SetDefault("inbox.port", d.Inbox.Port)
	v.SetDefault("inbox.username", "")
	v.SetDefault("inbox.tls", d.Inbox.TLS)
	v.SetDefault("inbox.mailbox", d.Inbox.Mailbox)
	v.SetDefault("inbox.since_days", d.Inbox.SinceDays)
	v.SetDefault("inbox.limit", d.Inbox.Limit)
	v.SetDefault("display.theme", d.Display.Theme)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with PLANNER_ (e.g. PLANNER_SERVER_BASE_URL)
// override file values. If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Cache.Path = expandHome(cfg.Cache.Path)
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Leaf keys keep the written YAML in the same shape LoadConfig reads.
	v.Set("server.base_url", cfg.Server.BaseURL)
	v.Set("server.timeout_sec", cfg.Server.TimeoutSec)
	v.Set("server.max_retries", cfg.Server.MaxRetries)
	v.Set("language", cfg.Language)
	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("log.debug", cfg.Log.Debug)
	v.Set("inbox.host", cfg.Inbox.Host)
	v.Set("inbox.port", cfg.Inbox.Port)
	v.Set("inbox.username", cfg.Inbox.Username)
	v.Set("inbox.tls", cfg.Inbox.TLS)
	v.Set("inbox.mailbox", cfg.Inbox.Mailbox)
	v.Set("inbox.since_days", cfg.Inbox.SinceDays)
	v.Set("inbox.limit", cfg.Inbox.Limit)
	v.Set("display.theme", cfg.Display.Theme)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

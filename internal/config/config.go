package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/scienceol/screenwake/pkg/wakelock"
)

const (
	DefaultReason  = "Keeping the display awake"
	DefaultSeconds = 10
)

type Config struct {
	Reason            string `yaml:"reason" toml:"reason"`
	Seconds           int    `yaml:"seconds" toml:"seconds"`
	ApplicationID     string `yaml:"application_id" toml:"application_id"`
	InhibitSuspend    bool   `yaml:"inhibit_suspend" toml:"inhibit_suspend"`
	BusTimeoutSeconds int    `yaml:"bus_timeout_seconds" toml:"bus_timeout_seconds"`
	LogLevel          string `yaml:"log_level" toml:"log_level"`
	LogFormat         string `yaml:"log_format" toml:"log_format"`

	// Path is the config file that was read, if any.
	Path string `yaml:"-" toml:"-"`
}

// Overrides carries command-line values. Nil pointers and empty strings
// leave the lower layers untouched.
type Overrides struct {
	ConfigPath     string
	Reason         string
	ApplicationID  string
	LogLevel       string
	LogFormat      string
	Seconds        *int
	InhibitSuspend *bool
}

// Load resolves configuration from flags > env > config file > defaults.
func Load(o Overrides) (*Config, error) {
	cfg := &Config{
		Reason:    DefaultReason,
		Seconds:   DefaultSeconds,
		LogLevel:  "info",
		LogFormat: "text",
	}

	// 1. Config file as base
	path, explicit := configFilePath(o.ConfigPath)
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			cfg.Path = path
		}
	}

	// 2. Environment variables override config file
	if v := os.Getenv("SCREENWAKE_REASON"); v != "" {
		cfg.Reason = v
	}
	if v := os.Getenv("SCREENWAKE_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SCREENWAKE_SECONDS: %w", err)
		}
		cfg.Seconds = n
	}
	if v := os.Getenv("SCREENWAKE_APP_ID"); v != "" {
		cfg.ApplicationID = v
	}
	if v := os.Getenv("SCREENWAKE_INHIBIT_SUSPEND"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SCREENWAKE_INHIBIT_SUSPEND: %w", err)
		}
		cfg.InhibitSuspend = b
	}
	if v := os.Getenv("SCREENWAKE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCREENWAKE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	// 3. CLI flags override everything
	if o.Reason != "" {
		cfg.Reason = o.Reason
	}
	if o.ApplicationID != "" {
		cfg.ApplicationID = o.ApplicationID
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if o.Seconds != nil {
		cfg.Seconds = *o.Seconds
	}
	if o.InhibitSuspend != nil {
		cfg.InhibitSuspend = *o.InhibitSuspend
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Seconds < 0 {
		return fmt.Errorf("seconds must not be negative (got %d)", c.Seconds)
	}
	if c.BusTimeoutSeconds < 0 {
		return fmt.Errorf("bus_timeout_seconds must not be negative (got %d)", c.BusTimeoutSeconds)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	return nil
}

// Duration is how long hold keeps the display awake; zero means until
// interrupted.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.Seconds) * time.Second
}

// LinuxOptions maps the config onto inhibitor options.
func (c *Config) LinuxOptions() wakelock.LinuxOptions {
	opts := wakelock.LinuxOptions{ApplicationID: c.ApplicationID}
	if c.InhibitSuspend {
		opts.Inhibit = wakelock.InhibitIdle | wakelock.InhibitSuspend
	}
	return opts
}

// BusTimeout is the per-call D-Bus timeout; zero selects the library default.
func (c *Config) BusTimeout() time.Duration {
	return time.Duration(c.BusTimeoutSeconds) * time.Second
}

// configFilePath picks the file to read and reports whether the caller
// named it explicitly (so a missing file is an error).
func configFilePath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if v := os.Getenv("SCREENWAKE_CONFIG"); v != "" {
		return v, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(home, ".screenwake", name)
		if _, err := os.Stat(p); err == nil {
			return p, false
		}
	}
	return "", false
}

func decodeFile(path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

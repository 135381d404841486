// Package config loads the yaml configuration file and applies PLANNERD_*
// environment overrides on top of it.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes one subscribed ICS feed.
type FeedConfig struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

type Config struct {
	// DBPath is the sqlite database file.
	DBPath string `yaml:"db_path"`

	// LogLevel is debug, info or error.
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA zone used for display; empty means local time.
	Timezone string `yaml:"timezone"`

	// Strategy selects the work-session ordering preference:
	// "morning" or "procrastinator".
	Strategy string `yaml:"strategy"`

	// SessionLength is the default work-session length for tasks that do
	// not set their own, in time.ParseDuration form ("1h", "90m").
	SessionLength string `yaml:"session_length"`

	// HorizonDays bounds feed imports and agenda views.
	HorizonDays int `yaml:"horizon_days"`

	// Feeds are imported as busy events.
	Feeds []FeedConfig `yaml:"feeds"`
}

func Default() *Config {
	return &Config{
		DBPath:        defaultDBPath(),
		LogLevel:      "info",
		Strategy:      "morning",
		SessionLength: "1h",
		HorizonDays:   30,
		Feeds:         []FeedConfig{},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "plannerd.db"
	}
	return filepath.Join(home, ".plannerd", "plannerd.db")
}

// Normalize fills zero values so partially written config files still load.
func (c *Config) Normalize() {
	if c.DBPath == "" {
		c.DBPath = defaultDBPath()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.Strategy {
	case "morning", "procrastinator":
	default:
		c.Strategy = "morning"
	}
	if _, err := time.ParseDuration(c.SessionLength); err != nil {
		c.SessionLength = "1h"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

// Load reads the config from path. A missing file is created with defaults;
// environment overrides are applied last either way.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if saveErr := Save(path, cfg); saveErr != nil {
				return cfg, saveErr
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.applyEnv()
	return &cfg, nil
}

// Save writes the config atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".plannerd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) applyEnv() {
	if v, ok := getEnv("PLANNERD_DB"); ok {
		c.DBPath = v
	}
	if v, ok := getEnv("PLANNERD_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := getEnv("PLANNERD_TIMEZONE"); ok {
		c.Timezone = v
	}
	if v, ok := getEnv("PLANNERD_STRATEGY"); ok {
		switch v {
		case "morning", "procrastinator":
			c.Strategy = v
		}
	}
	if v, ok := getEnv("PLANNERD_SESSION_LENGTH"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.SessionLength = v
		}
	}
	if v, ok := getEnvInt("PLANNERD_HORIZON_DAYS"); ok && v > 0 {
		c.HorizonDays = v
	}
}

// SessionDuration returns the parsed default session length.
func (c *Config) SessionDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionLength)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnv(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

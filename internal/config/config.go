// Package config loads and manages calendarik configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (CALENDARIK_API_URL, CALENDARIK_LOG_LEVEL, etc.)
// 2. Config file path specified via --config flag
// 3. ~/.config/calendarik/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the backend used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000"

// ChatConfig holds chat defaults applied when the profile has no preference.
type ChatConfig struct {
	// Personality overrides the profile's assistant personality for this client.
	// Empty = use the personality stored in the user profile.
	Personality string `yaml:"personality"`

	// Language is passed to the assistant with every message (e.g. "en", "ru").
	Language string `yaml:"language"`

	// HistoryDB overrides the local transcript cache path.
	// Empty = ~/.local/share/calendarik/chats.db.
	HistoryDB string `yaml:"history_db"`
}

// CalendarConfig holds calendar view settings.
type CalendarConfig struct {
	// WeekStart: "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start"`

	// Timezone overrides the profile timezone for display (IANA name).
	Timezone string `yaml:"timezone"`
}

// Config is the complete configuration structure for calendarik.
type Config struct {
	// APIURL is the backend base URL, without the /api prefix.
	APIURL string `yaml:"api_url"`

	// RequestTimeoutSec bounds every backend call. 0 = default (30s).
	RequestTimeoutSec int `yaml:"request_timeout_sec"`

	// LogLevel: debug | info | warn | error. Default info.
	LogLevel string `yaml:"log_level"`

	// Chat holds chat defaults.
	Chat ChatConfig `yaml:"chat"`

	// Calendar holds calendar view settings.
	Calendar CalendarConfig `yaml:"calendar"`
}

// RequestTimeout returns the configured backend timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIURL:   DefaultAPIURL,
		LogLevel: "info",
		Chat: ChatConfig{
			Language: "en",
		},
		Calendar: CalendarConfig{
			WeekStart: "monday",
		},
	}
}

// DefaultPath returns ~/.config/calendarik/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "calendarik", "config.yaml"), nil
}

// Load reads the config file and merges environment variable overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// A .env in the working directory supplies env vars for development setups.
	_ = godotenv.Load()

	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}

	// Read config file (use defaults if not found)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Save persists the given fields into the config file, preserving all other
// user settings and unknown keys.
func Save(configPath string, cfg *Config) error {
	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		configPath = p
	}

	// Read existing file into a generic map to preserve unknown fields.
	raw := make(map[string]any)
	if data, err := os.ReadFile(configPath); err == nil {
		_ = yaml.Unmarshal(data, &raw) // ignore errors; start fresh if corrupt
	}

	raw["api_url"] = cfg.APIURL
	if cfg.RequestTimeoutSec > 0 {
		raw["request_timeout_sec"] = cfg.RequestTimeoutSec
	}
	if cfg.LogLevel != "" {
		raw["log_level"] = cfg.LogLevel
	}

	chat, _ := raw["chat"].(map[string]any)
	if chat == nil {
		chat = make(map[string]any)
	}
	if cfg.Chat.Personality != "" {
		chat["personality"] = cfg.Chat.Personality
	}
	if cfg.Chat.Language != "" {
		chat["language"] = cfg.Chat.Language
	}
	if cfg.Chat.HistoryDB != "" {
		chat["history_db"] = cfg.Chat.HistoryDB
	}
	if len(chat) > 0 {
		raw["chat"] = chat
	}

	cal, _ := raw["calendar"].(map[string]any)
	if cal == nil {
		cal = make(map[string]any)
	}
	if cfg.Calendar.WeekStart != "" {
		cal["week_start"] = cfg.Calendar.WeekStart
	}
	if cfg.Calendar.Timezone != "" {
		cal["timezone"] = cfg.Calendar.Timezone
	}
	if len(cal) > 0 {
		raw["calendar"] = cal
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CALENDARIK_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("CALENDARIK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CALENDARIK_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSec = n
		}
	}
	if v := os.Getenv("CALENDARIK_PERSONALITY"); v != "" {
		cfg.Chat.Personality = v
	}
	if v := os.Getenv("CALENDARIK_LANGUAGE"); v != "" {
		cfg.Chat.Language = v
	}
}

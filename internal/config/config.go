// Package config loads and saves the persistent application
// configuration from ~/.daybook/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config is the persistent application configuration.
type Config struct {
	// Backend is the search backend base URL.
	Backend string `json:"backend"`

	// PushURL is the websocket push endpoint. Empty disables the push
	// channel.
	PushURL string `json:"push_url,omitempty"`

	// Timezone is the IANA zone buckets are computed in. Empty means
	// the system local zone.
	Timezone string `json:"timezone,omitempty"`

	// WeekStart is "monday" or "sunday".
	WeekStart string `json:"week_start"`

	// TopStoryScheme is the taxonomy vocabulary that flags editorial
	// prominence. Empty disables top-story promotion.
	TopStoryScheme string `json:"top_story_scheme"`

	// CoveragePromotion lifts items with coverages in bucket ordering.
	CoveragePromotion bool `json:"coverage_promotion"`

	// PageSize is the number of items requested per page.
	PageSize int `json:"page_size"`

	// ReconnectSeconds is the push channel retry interval.
	ReconnectSeconds int `json:"reconnect_seconds"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:           "http://localhost:5050",
		WeekStart:         "monday",
		TopStoryScheme:    "top_stories",
		CoveragePromotion: true,
		PageSize:          25,
		ReconnectSeconds:  5,
	}
}

// Home returns the application home directory (~/.daybook).
func Home() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".daybook")
}

// Path returns the path to the config file.
func Path() string {
	return filepath.Join(Home(), "config.json")
}

// Load reads the config from disk. A missing or corrupt file yields
// defaults rather than an error: the feed must come up regardless.
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), nil
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(Home(), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(), data, 0644)
}

// Normalize fills in zero values so partially-filled configs from
// older versions still behave.
func (c *Config) Normalize() {
	if c.Backend == "" {
		c.Backend = "http://localhost:5050"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.PageSize <= 0 {
		c.PageSize = 25
	}
	if c.ReconnectSeconds <= 0 {
		c.ReconnectSeconds = 5
	}
}

// WeekStartDay maps the configured week start onto a weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Location resolves the configured timezone, falling back to local.
func (c *Config) Location() *time.Location {
	if c.Timezone != "" {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			return loc
		}
	}
	return time.Local
}

// ReconnectInterval returns the push retry interval as a duration.
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectSeconds) * time.Second
}

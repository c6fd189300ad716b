// Package config loads the recognized agentslack configuration keys from a
// YAML file on disk, falling back to the same zero-value defaults the store
// ships with when no file is present.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ChannelSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type DefaultChannels struct {
	Global  []ChannelSeed `yaml:"global"`
	Project []ChannelSeed `yaml:"project"`
}

type DefaultSubscriptions struct {
	Global  []string `yaml:"global"`
	Project []string `yaml:"project"`
}

type ProjectLink struct {
	Source  string `yaml:"source"`
	Target  string `yaml:"target"`
	Type    string `yaml:"type"`
	Enabled bool   `yaml:"enabled"`
}

type Semantic struct {
	Enabled              bool    `yaml:"enabled"`
	DefaultProfile       string  `yaml:"default_profile"`
	HalfLifeHoursOverride float64 `yaml:"half_life_hours_override"`
}

type Config struct {
	DefaultChannels        DefaultChannels      `yaml:"default_channels"`
	DefaultAgentSubscriptions DefaultSubscriptions `yaml:"default_agent_subscriptions"`
	ProjectLinks           []ProjectLink        `yaml:"project_links"`
	DedupWindowMinutes     int                  `yaml:"dedup_window_minutes"`
	SessionRetentionHours  int                  `yaml:"session_retention_hours"`
	Semantic               Semantic             `yaml:"semantic"`
}

func Default() Config {
	return Config{
		DefaultChannels: DefaultChannels{
			Global:  []ChannelSeed{{Name: "general", Description: "cross-project coordination"}},
			Project: []ChannelSeed{{Name: "general", Description: "project coordination"}},
		},
		DefaultAgentSubscriptions: DefaultSubscriptions{
			Global:  []string{"general"},
			Project: []string{"general"},
		},
		DedupWindowMinutes:    10,
		SessionRetentionHours: 24,
		Semantic: Semantic{
			Enabled:        false,
			DefaultProfile: "balanced",
		},
	}
}

// Load reads a YAML config file at path, overlaying it onto Default().
// A missing file is not an error — it just means every key is defaulted.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) DedupWindow() time.Duration {
	if c.DedupWindowMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.DedupWindowMinutes) * time.Minute
}

func (c Config) SessionRetention() time.Duration {
	if c.SessionRetentionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.SessionRetentionHours) * time.Hour
}

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Providers ProvidersConfig `yaml:"providers"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Redis     RedisConfig     `yaml:"redis"`

	// Secrets come from the environment only, never from the config file.
	OpenAIAPIKey    string `yaml:"-"`
	FluxAPIKey      string `yaml:"-"`
	ReplicateAPIKey string `yaml:"-"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
}

type ProvidersConfig struct {
	OpenAIModel      string `yaml:"openai_model"`
	FluxBaseURL      string `yaml:"flux_base_url"`
	ReplicateBaseURL string `yaml:"replicate_base_url"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
	MaxPollAttempts  int    `yaml:"max_poll_attempts"`
}

type SessionsConfig struct {
	TTLHours      int    `yaml:"ttl_hours"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads config.yaml (optional) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server:   ServerConfig{Port: "8000"},
		Paths:    PathsConfig{Output: "output"},
		Sessions: SessionsConfig{TTLHours: 24, SweepSchedule: "@hourly"},
		Providers: ProvidersConfig{
			PollIntervalMS:  500,
			MaxPollAttempts: 240,
		},
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.FrontendURL = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Paths.Output = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = v
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.FluxAPIKey = os.Getenv("FLUX_API_KEY")
	cfg.ReplicateAPIKey = os.Getenv("REPLICATE_API_KEY")
}

// PollInterval returns the provider poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Providers.PollIntervalMS) * time.Millisecond
}

// SessionTTL returns the idle lifetime of a session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLHours) * time.Hour
}

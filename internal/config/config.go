package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 8787
	defaultEnv        = "development"
	defaultDailyLimit = 100
	defaultCacheTTL   = 24 * time.Hour
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string // "development" | "production"
	RedisURL       string // empty = in-memory stores
	AllowedOrigins []string
	JWTSecret      string

	Quota  QuotaConfig
	Cache  CacheConfig
	AI     AIConfig
	Vision VisionConfig
	Search SearchConfig
	Alert  AlertConfig
}

// QuotaConfig bounds analysis spend per caller.
type QuotaConfig struct {
	DailyLimit int `yaml:"daily_limit"`
}

// CacheConfig tunes the verdict cache.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// TTL returns the verdict cache TTL.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// AIProvider describes one judgment-capable model provider.
type AIProvider struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"` // openai | anthropic | openai-compatible | openrouter
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Enabled  bool   `yaml:"enabled"`
}

// AIModelAssignment pins a role (judgment) to a provider and optional model.
type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
}

// AIConfig lists providers and role assignments for the judgment stage.
type AIConfig struct {
	Providers []AIProvider       `yaml:"providers"`
	Judgment  *AIModelAssignment `yaml:"judgment"`
}

// VisionConfig selects the visual-description provider.
type VisionConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// SearchConfig selects the corroboration-search provider.
type SearchConfig struct {
	Endpoint        string   `yaml:"endpoint"`
	APIKey          string   `yaml:"api_key"`
	ResultCap       int      `yaml:"result_cap"`
	MinTextLen      int      `yaml:"min_text_len"`
	ExcludedDomains []string `yaml:"excluded_domains"`
}

// AlertConfig configures the ops push channel (Bark-compatible).
type AlertConfig struct {
	Key       string `yaml:"key"`
	ServerURL string `yaml:"server_url"`
	Title     string `yaml:"title"`
}

type rawAppConfig struct {
	Port           int          `yaml:"port"`
	Env            string       `yaml:"env"`
	RedisURL       string       `yaml:"redis_url"`
	AllowedOrigins []string     `yaml:"allowed_origins"`
	JWTSecret      string       `yaml:"jwt_secret"`
	Quota          QuotaConfig  `yaml:"quota"`
	Cache          CacheConfig  `yaml:"cache"`
	AI             AIConfig     `yaml:"ai"`
	Vision         VisionConfig `yaml:"vision"`
	Search         SearchConfig `yaml:"search"`
	Alert          AlertConfig  `yaml:"alert"`
}

// Load reads and normalizes the YAML config. A missing file yields defaults
// so the server can boot with env-var-only configuration.
func Load(path string) (*AppConfig, error) {
	raw := rawAppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
		// defaults only
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := normalize(raw)
	return &cfg, nil
}

func normalize(raw rawAppConfig) AppConfig {
	cfg := AppConfig{
		Port:           raw.Port,
		Env:            strings.TrimSpace(raw.Env),
		RedisURL:       strings.TrimSpace(expandSecret(raw.RedisURL, "CL_REDIS_URL")),
		AllowedOrigins: raw.AllowedOrigins,
		JWTSecret:      expandSecret(raw.JWTSecret, "CL_JWT_SECRET"),
		Quota:          raw.Quota,
		Cache:          raw.Cache,
		AI:             raw.AI,
		Vision:         raw.Vision,
		Search:         raw.Search,
		Alert:          raw.Alert,
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Quota.DailyLimit <= 0 {
		cfg.Quota.DailyLimit = defaultDailyLimit
	}

	for i := range cfg.AI.Providers {
		p := &cfg.AI.Providers[i]
		p.ID = strings.TrimSpace(p.ID)
		p.APIKey = expandSecret(p.APIKey, "")
		p.Endpoint = strings.TrimSpace(p.Endpoint)
	}
	cfg.Vision.APIKey = expandSecret(cfg.Vision.APIKey, "CL_VISION_API_KEY")
	cfg.Search.APIKey = expandSecret(cfg.Search.APIKey, "CL_SEARCH_API_KEY")

	return cfg
}

// expandSecret resolves ${ENV} references in secret fields and falls back to
// a well-known env var when the field is empty.
func expandSecret(value, fallbackEnv string) string {
	value = strings.TrimSpace(os.ExpandEnv(value))
	if value == "" && fallbackEnv != "" {
		value = strings.TrimSpace(os.Getenv(fallbackEnv))
	}
	return value
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// Package config builds the validated configuration value object the
// orchestrator and client are constructed from. Configuration is read
// once at process start from an optional YAML file with environment
// overrides; nothing reads the environment at call sites.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zen-systems/structura/pkg/merge"
	"github.com/zen-systems/structura/pkg/policy"
	"github.com/zen-systems/structura/pkg/trigger"
)

// Config is the full application configuration.
type Config struct {
	Mode       string          `yaml:"mode"`
	Remote     RemoteConfig    `yaml:"remote"`
	Timeouts   TimeoutConfig   `yaml:"timeouts"`
	Retry      RetryConfig     `yaml:"retry"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// RemoteConfig selects the transport adapter and model.
type RemoteConfig struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
	// BaseURL overrides the OpenAI endpoint, for OpenAI-compatible
	// services.
	BaseURL string `yaml:"base_url,omitempty"`

	// API keys come from the environment only, never from the file.
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GoogleAPIKey    string `yaml:"-"`
}

// TimeoutConfig holds the timeout policy inputs, in seconds.
type TimeoutConfig struct {
	BaseS    float64 `yaml:"base_s"`
	ConnectS float64 `yaml:"connect_s"`
	MaxS     float64 `yaml:"max_s"`
}

// RetryConfig holds the retry policy inputs.
type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts"`
	BackoffBaseS float64 `yaml:"backoff_base_s"`
}

// ThresholdConfig holds the trigger and merge thresholds.
type ThresholdConfig struct {
	HeadingLength    int     `yaml:"heading_length"`
	ShortBody        int     `yaml:"short_body"`
	AcceptConfidence float64 `yaml:"accept_confidence"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Mode: "hybrid",
		Remote: RemoteConfig{
			Adapter: "openai",
			Model:   "gpt-4o",
		},
		Timeouts: TimeoutConfig{
			BaseS:    60,
			ConnectS: 10,
			MaxS:     120,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BackoffBaseS: 1,
		},
		Thresholds: ThresholdConfig{
			HeadingLength:    trigger.DefaultHeadingLength,
			ShortBody:        trigger.DefaultShortBody,
			AcceptConfidence: merge.DefaultAcceptConfidence,
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides, then validates. path may be empty.
func Load(path string) (*Config, error) {
	// A .env next to the binary is a convenience for local runs.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over the file values.
// Credentials come from the environment only.
func applyEnv(cfg *Config) {
	cfg.Remote.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Remote.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Remote.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")

	if v := os.Getenv("LLM_MODE"); v != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LLM_ADAPTER"); v != "" {
		cfg.Remote.Adapter = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Remote.Model = strings.TrimSpace(v)
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.Remote.BaseURL = strings.TrimSpace(v)
	}
}

// Validate fails fast on malformed values. This is the only fatal
// condition of the core: it runs before any document is processed.
func (c *Config) Validate() error {
	if c.Timeouts.BaseS <= 0 {
		return fmt.Errorf("timeouts.base_s must be positive, got %g", c.Timeouts.BaseS)
	}
	if c.Timeouts.ConnectS <= 0 {
		return fmt.Errorf("timeouts.connect_s must be positive, got %g", c.Timeouts.ConnectS)
	}
	if c.Timeouts.MaxS < c.Timeouts.BaseS {
		return fmt.Errorf("timeouts.max_s %g below base_s %g", c.Timeouts.MaxS, c.Timeouts.BaseS)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BackoffBaseS < 0 {
		return fmt.Errorf("retry.backoff_base_s must be non-negative, got %g", c.Retry.BackoffBaseS)
	}
	if c.Thresholds.HeadingLength <= 0 {
		return fmt.Errorf("thresholds.heading_length must be positive, got %d", c.Thresholds.HeadingLength)
	}
	if c.Thresholds.ShortBody <= 0 {
		return fmt.Errorf("thresholds.short_body must be positive, got %d", c.Thresholds.ShortBody)
	}
	if c.Thresholds.AcceptConfidence < 0 || c.Thresholds.AcceptConfidence > 1 {
		return fmt.Errorf("thresholds.accept_confidence %g out of range [0,1]", c.Thresholds.AcceptConfidence)
	}
	if c.Remote.Model == "" {
		return fmt.Errorf("remote.model is required")
	}
	return nil
}

// TimeoutPolicy converts the timeout section into the policy object.
func (c *Config) TimeoutPolicy() policy.TimeoutPolicy {
	return policy.TimeoutPolicy{
		Base:         secondsToDuration(c.Timeouts.BaseS),
		PerParagraph: policy.DefaultPerParagraph,
		Max:          secondsToDuration(c.Timeouts.MaxS),
	}
}

// RetryPolicy converts the retry section into the policy object.
func (c *Config) RetryPolicy() policy.RetryPolicy {
	return policy.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BackoffBase: secondsToDuration(c.Retry.BackoffBaseS),
	}
}

// ConnectTimeout returns the fixed connection-establishment timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return secondsToDuration(c.Timeouts.ConnectS)
}

// TriggerThresholds converts the threshold section for the evaluator.
func (c *Config) TriggerThresholds() trigger.Thresholds {
	return trigger.Thresholds{
		HeadingLength: c.Thresholds.HeadingLength,
		ShortBody:     c.Thresholds.ShortBody,
	}
}

// HasAdapter returns true if the API key for the given adapter is set.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "openai":
		return c.Remote.OpenAIAPIKey != ""
	case "anthropic":
		return c.Remote.AnthropicAPIKey != ""
	case "google":
		return c.Remote.GoogleAPIKey != ""
	default:
		return false
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

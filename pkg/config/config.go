package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no LLM credential is configured.
var ErrMissingAPIKey = errors.New("API key is not set (ANALYST_API_KEY)")

const (
	DefaultBaseURL          = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel            = "gemini-2.0-flash"
	DefaultMarketBaseURL    = "https://query1.finance.yahoo.com"
	DefaultTask             = "Analyze Alphabet Inc. stock performance and visualize the price history"
	DefaultSystemMessage    = "Analyze stock data for a ticker. Plot history and mention the chart filename. Manage the resource token carefully"
	DefaultAutoReply        = "Please continue using available tools"
	DefaultMaxAutoReplies   = 5
	DefaultTemperature      = 0.7
	DefaultWorkDir          = "coding"
	DefaultRequestsPerSec   = 2
	DefaultRequestTimeoutMS = 30000
)

// Config holds all runtime configuration for the analyst.
type Config struct {
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	Temperature         float64 `yaml:"temperature"`
	MaxCompletionTokens int64   `yaml:"max_completion_tokens"`

	AssistantName    string `yaml:"assistant_name"`
	ExecutorName     string `yaml:"executor_name"`
	SystemMessage    string `yaml:"system_message"`
	DefaultAutoReply string `yaml:"default_auto_reply"`
	MaxAutoReplies   int    `yaml:"max_consecutive_auto_reply"`
	WorkDir          string `yaml:"work_dir"`
	Task             string `yaml:"task"`

	Market MarketConfig `yaml:"market"`

	LogLevel string `yaml:"log_level"`
	Verbose  bool   `yaml:"verbose"`
}

// MarketConfig configures the market data client.
type MarketConfig struct {
	BaseURL          string  `yaml:"base_url"`
	RequestsPerSec   float64 `yaml:"requests_per_sec"`
	RequestTimeoutMS int     `yaml:"request_timeout_ms"`
}

// DefaultConfig returns a baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		Model:            DefaultModel,
		Temperature:      DefaultTemperature,
		AssistantName:    "Financial_Analyst",
		ExecutorName:     "User_Proxy",
		SystemMessage:    DefaultSystemMessage,
		DefaultAutoReply: DefaultAutoReply,
		MaxAutoReplies:   DefaultMaxAutoReplies,
		WorkDir:          DefaultWorkDir,
		Task:             DefaultTask,
		Market: MarketConfig{
			BaseURL:          DefaultMarketBaseURL,
			RequestsPerSec:   DefaultRequestsPerSec,
			RequestTimeoutMS: DefaultRequestTimeoutMS,
		},
		LogLevel: "info",
	}
}

// Load reads config from a YAML file on top of DefaultConfig, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return Normalize(cfg), nil
}

func applyEnv(cfg *Config) {
	if v := firstEnv("ANALYST_API_KEY", "GEMINI_API_KEY", "API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ANALYST_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ANALYST_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("ANALYST_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("ANALYST_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("ANALYST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		cfg.Market.BaseURL = v
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	defaults := DefaultConfig()

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.WorkDir = strings.TrimSpace(cfg.WorkDir)
	cfg.Task = strings.TrimSpace(cfg.Task)
	cfg.Market.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Market.BaseURL), "/")

	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = defaults.AssistantName
	}
	if cfg.ExecutorName == "" {
		cfg.ExecutorName = defaults.ExecutorName
	}
	if strings.TrimSpace(cfg.SystemMessage) == "" {
		cfg.SystemMessage = defaults.SystemMessage
	}
	if strings.TrimSpace(cfg.DefaultAutoReply) == "" {
		cfg.DefaultAutoReply = defaults.DefaultAutoReply
	}
	if cfg.MaxAutoReplies <= 0 {
		cfg.MaxAutoReplies = defaults.MaxAutoReplies
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = defaults.Temperature
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if cfg.Task == "" {
		cfg.Task = defaults.Task
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = defaults.Market.BaseURL
	}
	if cfg.Market.RequestsPerSec <= 0 {
		cfg.Market.RequestsPerSec = defaults.Market.RequestsPerSec
	}
	if cfg.Market.RequestTimeoutMS <= 0 {
		cfg.Market.RequestTimeoutMS = defaults.Market.RequestTimeoutMS
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	return cfg
}

// Validate checks that all required fields are set.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model is not set")
	}
	if c.MaxAutoReplies <= 0 {
		return errors.New("max_consecutive_auto_reply must be positive")
	}
	return nil
}

// Package config loads application configuration from a YAML file and the
// environment. Environment variables win over file values; a .env file is
// honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	Port string `yaml:"port"`

	// LLM provider settings
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	AnthropicModel  string  `yaml:"anthropic_model"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	OpenAIBaseURL   string  `yaml:"openai_base_url"`
	OpenAIModel     string  `yaml:"openai_model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`

	// Orchestration settings
	MaxSteps    int      `yaml:"max_steps"`
	StepTimeout Duration `yaml:"step_timeout"`
	RunTimeout  Duration `yaml:"run_timeout"`

	// Memory settings
	MemoryBackend     string   `yaml:"memory_backend"` // "jsonfile", "sqlite", or "none"
	MemoryPath        string   `yaml:"memory_path"`
	ShortTermMaxItems int      `yaml:"short_term_max_items"`
	ShortTermTTL      Duration `yaml:"short_term_ttl"`

	// Search settings
	SearXNGURL    string `yaml:"searxng_url"`
	UseMockSearch bool   `yaml:"use_mock_search"`

	// Guardrails settings
	ToxicityThreshold float64  `yaml:"toxicity_threshold"`
	RateLimitRPS      float64  `yaml:"rate_limit_rps"`
	RateLimitBurst    int      `yaml:"rate_limit_burst"`
	AllowedTools      []string `yaml:"allowed_tools"`

	LogLevel string `yaml:"log_level"`
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment variables. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:              "8000",
		AnthropicModel:    "claude-sonnet-4-20250514",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIModel:       "gpt-4.1-mini",
		MaxTokens:         1000,
		Temperature:       0.7,
		MaxSteps:          10,
		StepTimeout:       Duration(30 * time.Second),
		RunTimeout:        Duration(2 * time.Minute),
		MemoryBackend:     "jsonfile",
		MemoryPath:        "agent_memory.json",
		ShortTermMaxItems: 100,
		ShortTermTTL:      Duration(time.Hour),
		SearXNGURL:        "http://localhost:8080",
		ToxicityThreshold: 0.7,
		RateLimitRPS:      5,
		RateLimitBurst:    10,
		LogLevel:          "info",
	}
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = getEnv("ANTHROPIC_MODEL", c.AnthropicModel)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_API_BASE", c.OpenAIBaseURL)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.MaxTokens = getIntEnv("MAX_TOKENS", c.MaxTokens)
	c.Temperature = getFloatEnv("TEMPERATURE", c.Temperature)
	c.MaxSteps = getIntEnv("MAX_ORCHESTRATOR_STEPS", c.MaxSteps)
	c.StepTimeout = getDurationEnv("STEP_TIMEOUT", c.StepTimeout)
	c.RunTimeout = getDurationEnv("RUN_TIMEOUT", c.RunTimeout)
	c.MemoryBackend = getEnv("MEMORY_BACKEND", c.MemoryBackend)
	c.MemoryPath = getEnv("MEMORY_PATH", c.MemoryPath)
	c.ShortTermMaxItems = getIntEnv("SHORT_TERM_MAX_ITEMS", c.ShortTermMaxItems)
	c.ShortTermTTL = getDurationEnv("SHORT_TERM_TTL", c.ShortTermTTL)
	c.SearXNGURL = getEnv("SEARXNG_URL", c.SearXNGURL)
	c.UseMockSearch = getBoolEnv("USE_MOCK_SEARCH", c.UseMockSearch)
	c.ToxicityThreshold = getFloatEnv("TOXICITY_THRESHOLD", c.ToxicityThreshold)
	c.RateLimitRPS = getFloatEnv("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", c.RateLimitBurst)
	if value := os.Getenv("ALLOWED_TOOLS"); value != "" {
		c.AllowedTools = splitList(value)
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return Duration(parsed)
		}
	}
	return defaultValue
}

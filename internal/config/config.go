// Package config loads the server configuration from a YAML file and applies
// environment variable overrides. The environment names match the ones the
// hook scripts and dashboard already use, so a plain .env file configures
// both sides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file or individual keys are absent.
const (
	DefaultPort               = 4000
	DefaultDatabasePath       = "events.db"
	DefaultMaxEventsRetained  = 100
	DefaultMaxEventsDisplayed = 100
	DefaultSummaryTimeoutSecs = 20
	DefaultMaxConcurrentSumm  = 4
	DefaultAnthropicModel     = "claude-3-haiku-20240307"
	DefaultOpenRouterModel    = "meta-llama/llama-3.2-3b-instruct"
)

// Config holds the full server configuration.
type Config struct {
	// Host is the bind address. Empty means all interfaces.
	Host string `yaml:"host"`
	// Port is the HTTP listen port.
	Port int `yaml:"port"`
	// Debug enables verbose logging and gin debug mode.
	Debug bool `yaml:"debug"`
	// DatabasePath is the SQLite file backing the event store.
	DatabasePath string `yaml:"database-path"`
	// MaxEventsRetained clamps the limit accepted by recent-event queries.
	MaxEventsRetained int `yaml:"max-events-retained"`
	// MaxEventsDisplayed bounds the initial snapshot sent to new stream
	// subscribers. Distinct from the retention clamp.
	MaxEventsDisplayed int `yaml:"max-events-displayed"`

	Logging       LoggingConfig       `yaml:"logging"`
	Summarization SummarizationConfig `yaml:"summarization"`
}

// LoggingConfig controls log level and optional file output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `yaml:"level"`
	// File, when set, mirrors logs to a size-rotated file.
	File string `yaml:"file"`
}

// SummarizationConfig selects and configures the summary provider.
type SummarizationConfig struct {
	// Provider is "anthropic" or "openrouter". Empty disables enrichment
	// unless an Anthropic key is present, in which case Anthropic is used.
	Provider string `yaml:"provider"`
	// AnthropicKey is the Anthropic API key.
	AnthropicKey string `yaml:"anthropic-key"`
	// AnthropicModel overrides the default Anthropic model id.
	AnthropicModel string `yaml:"anthropic-model"`
	// OpenRouterKey is the OpenRouter API key.
	OpenRouterKey string `yaml:"openrouter-key"`
	// OpenRouterModel overrides the default OpenRouter model id.
	OpenRouterModel string `yaml:"openrouter-model"`
	// TimeoutSeconds bounds each summarization call.
	TimeoutSeconds int `yaml:"timeout-seconds"`
	// MaxConcurrent bounds in-flight summarization calls.
	MaxConcurrent int `yaml:"max-concurrent"`
	// EngineerName personalizes prompts when set.
	EngineerName string `yaml:"engineer-name"`
}

// Load reads the YAML config at path and applies environment overrides.
// A missing file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv maps the environment variables used by the original hook tooling
// onto the config. Environment wins over the YAML file.
func (c *Config) applyEnv() {
	if v, ok := lookupEnv("SERVER_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v, ok := lookupEnv("EVENTS_DB_PATH"); ok {
		c.DatabasePath = v
	}
	if v, ok := lookupEnv("MAX_EVENTS_TO_DISPLAY"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxEventsDisplayed = n
		}
	}
	if v, ok := lookupEnv("ACTIVE_SUMMARIZATION_PROVIDER"); ok {
		c.Summarization.Provider = strings.ToLower(v)
	}
	if v, ok := lookupEnv("ANTHROPIC_KEY"); ok {
		c.Summarization.AnthropicKey = v
	}
	if v, ok := lookupEnv("ANTHROPIC_MODEL"); ok {
		c.Summarization.AnthropicModel = v
	}
	if v, ok := lookupEnv("OPENROUTER_KEY"); ok {
		c.Summarization.OpenRouterKey = v
	}
	if v, ok := lookupEnv("OPENROUTER_MODEL"); ok {
		c.Summarization.OpenRouterModel = v
	}
	if v, ok := lookupEnv("ENGINEER_NAME"); ok {
		c.Summarization.EngineerName = v
	}
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.MaxEventsRetained <= 0 {
		c.MaxEventsRetained = DefaultMaxEventsRetained
	}
	if c.MaxEventsDisplayed <= 0 {
		c.MaxEventsDisplayed = DefaultMaxEventsDisplayed
	}
	if c.Summarization.TimeoutSeconds <= 0 {
		c.Summarization.TimeoutSeconds = DefaultSummaryTimeoutSecs
	}
	if c.Summarization.MaxConcurrent <= 0 {
		c.Summarization.MaxConcurrent = DefaultMaxConcurrentSumm
	}
	if c.Summarization.AnthropicModel == "" {
		c.Summarization.AnthropicModel = DefaultAnthropicModel
	}
	if c.Summarization.OpenRouterModel == "" {
		c.Summarization.OpenRouterModel = DefaultOpenRouterModel
	}
}

// Validate performs basic semantic checks and returns non-fatal warnings.
func Validate(c *Config) ([]string, error) {
	var warnings []string
	if c.Port < 1 || c.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Summarization.Provider {
	case "", "anthropic", "openrouter":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown summarization provider %q, enrichment disabled", c.Summarization.Provider))
	}
	if c.Summarization.Provider == "openrouter" && c.Summarization.OpenRouterKey == "" {
		warnings = append(warnings, "openrouter provider selected but OPENROUTER_KEY is not set, falling back to anthropic")
	}
	return warnings, nil
}

func lookupEnv(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidYAML(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantPort int
		check    func(t *testing.T, cfg *Config)
	}{
		{
			name:     "minimal config gets defaults",
			yaml:     "port: 9000\n",
			wantPort: 9000,
			check: func(t *testing.T, cfg *Config) {
				if cfg.DatabasePath != DefaultDatabasePath {
					t.Errorf("DatabasePath = %q, want default %q", cfg.DatabasePath, DefaultDatabasePath)
				}
				if cfg.MaxEventsRetained != DefaultMaxEventsRetained {
					t.Errorf("MaxEventsRetained = %d, want %d", cfg.MaxEventsRetained, DefaultMaxEventsRetained)
				}
				if cfg.Summarization.AnthropicModel != DefaultAnthropicModel {
					t.Errorf("AnthropicModel = %q, want default", cfg.Summarization.AnthropicModel)
				}
			},
		},
		{
			name: "full config",
			yaml: `
host: 127.0.0.1
port: 4001
database-path: /tmp/watch.db
max-events-retained: 500
max-events-displayed: 50
logging:
  level: debug
summarization:
  provider: openrouter
  openrouter-key: "or-key"
  openrouter-model: "qwen/qwen-2.5-7b-instruct"
  timeout-seconds: 15
  engineer-name: Dana
`,
			wantPort: 4001,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Host != "127.0.0.1" {
					t.Errorf("Host = %q", cfg.Host)
				}
				if cfg.MaxEventsDisplayed != 50 {
					t.Errorf("MaxEventsDisplayed = %d, want 50", cfg.MaxEventsDisplayed)
				}
				if cfg.Summarization.Provider != "openrouter" {
					t.Errorf("Provider = %q", cfg.Summarization.Provider)
				}
				if cfg.Summarization.TimeoutSeconds != 15 {
					t.Errorf("TimeoutSeconds = %d, want 15", cfg.Summarization.TimeoutSeconds)
				}
				if cfg.Summarization.EngineerName != "Dana" {
					t.Errorf("EngineerName = %q, want Dana", cfg.Summarization.EngineerName)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := Load(configPath)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Port, tt.wantPort)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("port: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: 4000
summarization:
  provider: anthropic
  anthropic-key: file-key
`
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_PORT", "5055")
	t.Setenv("ACTIVE_SUMMARIZATION_PROVIDER", "OpenRouter")
	t.Setenv("OPENROUTER_KEY", "env-or-key")
	t.Setenv("MAX_EVENTS_TO_DISPLAY", "42")
	t.Setenv("ENGINEER_NAME", "Robin")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 5055 {
		t.Errorf("Port = %d, want env override 5055", cfg.Port)
	}
	if cfg.Summarization.Provider != "openrouter" {
		t.Errorf("Provider = %q, want lowercased env override", cfg.Summarization.Provider)
	}
	if cfg.Summarization.OpenRouterKey != "env-or-key" {
		t.Errorf("OpenRouterKey = %q", cfg.Summarization.OpenRouterKey)
	}
	if cfg.Summarization.AnthropicKey != "file-key" {
		t.Errorf("AnthropicKey = %q, file value should survive", cfg.Summarization.AnthropicKey)
	}
	if cfg.MaxEventsDisplayed != 42 {
		t.Errorf("MaxEventsDisplayed = %d, want 42", cfg.MaxEventsDisplayed)
	}
	if cfg.Summarization.EngineerName != "Robin" {
		t.Errorf("EngineerName = %q, want Robin", cfg.Summarization.EngineerName)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: 4000, Summarization: SummarizationConfig{Provider: "openrouter"}}
	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one about missing openrouter key", warnings)
	}

	cfg = &Config{Port: -1}
	if _, err = Validate(cfg); err == nil {
		t.Error("Validate() error = nil for invalid port, want error")
	}
}

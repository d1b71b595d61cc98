// Package config loads guardiand settings from a file, a URL or the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Provider types.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config is the top-level guardiand configuration.
type Config struct {
	Server    ServerConfig              `json:"server" yaml:"server"`
	DataDir   string                    `json:"data_dir" yaml:"data_dir"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Pipeline  PipelineConfig            `json:"pipeline" yaml:"pipeline"`
	Broadcast BroadcastConfig           `json:"broadcast" yaml:"broadcast"`
	Export    ExportConfig              `json:"export" yaml:"export"`
}

// ServerConfig holds REST API server settings.
type ServerConfig struct {
	Host      string `json:"host" yaml:"host"`
	Port      int    `json:"port" yaml:"port"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	StaticDir string `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"` // "openai" (default), "anthropic" or "gemini"
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// PipelineConfig selects the provider the ticket pipeline runs on.
type PipelineConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Attempts int    `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// BroadcastConfig enables ticket announcements.
type BroadcastConfig struct {
	Slack    *SlackConfig    `json:"slack,omitempty" yaml:"slack,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
}

// SlackConfig holds Slack bot settings.
type SlackConfig struct {
	Token   string `json:"token" yaml:"token"`
	Channel string `json:"channel" yaml:"channel"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token  string `json:"token" yaml:"token"`
	ChatID int64  `json:"chat_id" yaml:"chat_id"`
}

// ExportConfig schedules the ticket export job. An empty schedule disables it.
type ExportConfig struct {
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Load reads configuration from a file. .yaml and .yml files are parsed as
// YAML, anything else as JSON with comments and trailing commas allowed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := parse(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func parse(data []byte, asYAML bool) (*Config, error) {
	var cfg Config
	if asYAML {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the
// GUARDIAN_ prefix. GOOGLE_API_KEY is accepted for the Gemini provider.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      getenv("GUARDIAN_HOST", "0.0.0.0"),
			Port:      getenvInt("GUARDIAN_PORT", 8000),
			APIKey:    os.Getenv("GUARDIAN_API_KEY"),
			StaticDir: os.Getenv("GUARDIAN_STATIC_DIR"),
		},
		DataDir:   getenv("GUARDIAN_DATA_DIR", "./data"),
		Providers: make(map[string]ProviderConfig),
		Pipeline: PipelineConfig{
			Attempts: getenvInt("GUARDIAN_PIPELINE_ATTEMPTS", 0),
		},
		Export: ExportConfig{
			Schedule: os.Getenv("GUARDIAN_EXPORT_SCHEDULE"),
			Dir:      os.Getenv("GUARDIAN_EXPORT_DIR"),
		},
	}

	// Default provider from env
	model := os.Getenv("GUARDIAN_MODEL")
	if apiKey := getenv("GUARDIAN_GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{Type: ProviderGemini, APIKey: apiKey, Model: model}
	} else if apiKey := os.Getenv("GUARDIAN_ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{Type: ProviderAnthropic, APIKey: apiKey, Model: model}
	} else if apiKey := os.Getenv("GUARDIAN_OPENAI_API_KEY"); apiKey != "" {
		cfg.Providers["default"] = ProviderConfig{
			Type:    ProviderOpenAI,
			APIKey:  apiKey,
			BaseURL: os.Getenv("GUARDIAN_OPENAI_BASE_URL"),
			Model:   model,
		}
	}

	if token := os.Getenv("GUARDIAN_SLACK_TOKEN"); token != "" {
		cfg.Broadcast.Slack = &SlackConfig{Token: token, Channel: os.Getenv("GUARDIAN_SLACK_CHANNEL")}
	}
	if token := os.Getenv("GUARDIAN_TELEGRAM_TOKEN"); token != "" {
		cfg.Broadcast.Telegram = &TelegramConfig{Token: token}
		if id := os.Getenv("GUARDIAN_TELEGRAM_CHAT_ID"); id != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config: GUARDIAN_TELEGRAM_CHAT_ID: invalid integer %q", id)
			}
			cfg.Broadcast.Telegram.ChatID = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Pipeline.Provider == "" {
		c.Pipeline.Provider = "default"
		if len(c.Providers) == 1 {
			for name := range c.Providers {
				c.Pipeline.Provider = name
			}
		}
	}
	for name, p := range c.Providers {
		if p.Type == "" {
			p.Type = ProviderOpenAI
			c.Providers[name] = p
		}
	}
	if c.Export.Schedule != "" && c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(c.DataDir, "tickets")
	}
}

// DBPath is the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "guardian.db")
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(c.Providers) == 0 {
		errs = append(errs, "at least one provider is required")
	}
	for name, p := range c.Providers {
		if p.APIKey == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.api_key is required", name))
		}
		switch p.Type {
		case "", ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		default:
			errs = append(errs, fmt.Sprintf("providers.%s.type %q is not one of openai, anthropic, gemini", name, p.Type))
		}
	}
	if len(c.Providers) > 0 {
		if _, ok := c.Providers[c.Pipeline.Provider]; !ok {
			errs = append(errs, fmt.Sprintf("pipeline.provider references unknown provider %q", c.Pipeline.Provider))
		}
	}

	if s := c.Broadcast.Slack; s != nil {
		if s.Token == "" {
			errs = append(errs, "broadcast.slack.token is required")
		}
		if s.Channel == "" {
			errs = append(errs, "broadcast.slack.channel is required")
		}
	}
	if tg := c.Broadcast.Telegram; tg != nil {
		if tg.Token == "" {
			errs = append(errs, "broadcast.telegram.token is required")
		}
		if tg.ChatID == 0 {
			errs = append(errs, "broadcast.telegram.chat_id is required")
		}
	}

	if c.Export.Schedule != "" {
		if _, err := cron.ParseStandard(c.Export.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("export.schedule %q is invalid: %v", c.Export.Schedule, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

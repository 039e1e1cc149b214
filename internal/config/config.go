package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full gateway configuration loaded from config.yaml
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Directory DirectoryConfig `yaml:"directory"`
	Schedules SchedulesConfig `yaml:"schedules"`
	Audio     AudioConfig     `yaml:"audio"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Events    EventsConfig    `yaml:"events"`
	Workers   WorkersConfig   `yaml:"workers"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WebhookConfig holds the platform webhook registration secret
type WebhookConfig struct {
	VerifyToken string `yaml:"verify_token"`
}

// WhatsAppConfig points at the credential file for the Cloud API
type WhatsAppConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	APIBaseURL      string `yaml:"api_base_url"`
	MediaDir        string `yaml:"media_dir"`
}

// OpenAIConfig holds online TTS settings
type OpenAIConfig struct {
	KeyPath string `yaml:"key_path"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// DirectoryConfig holds the authorized-sender directory settings
type DirectoryConfig struct {
	Path string `yaml:"path"`
	// AllowUnknown maps unknown senders to the teacher role instead of
	// rejecting them. Off by default.
	AllowUnknown bool `yaml:"allow_unknown"`
}

// SchedulesConfig points at the persisted bell schedule file
type SchedulesConfig struct {
	Path string `yaml:"path"`
}

// AssemblyDay is one weekday's assembly material
type AssemblyDay struct {
	Label    string `yaml:"label"`
	Prayer   string `yaml:"prayer"`
	Birthday string `yaml:"birthday"`
}

// AudioConfig holds player command and audio file locations
type AudioConfig struct {
	Player            string                 `yaml:"player"`
	OfflineTTSCommand string                 `yaml:"offline_tts_command"`
	BellFile          string                 `yaml:"bell_file"`
	AnthemFile        string                 `yaml:"anthem_file"`
	Extra1File        string                 `yaml:"extra1_file"`
	Extra2File        string                 `yaml:"extra2_file"`
	Assembly          map[string]AssemblyDay `yaml:"assembly"`
}

// TelegramConfig holds the optional Telegram channel settings
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// ChannelsConfig enables chat channels beyond the WhatsApp webhook
type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// EventsConfig holds the optional Redis audit stream settings
type EventsConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Stream    string `yaml:"stream"`
}

// WorkersConfig sizes the background action pool
type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

// Load reads and parses the config file, applying defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.WhatsApp.CredentialsPath == "" {
		c.WhatsApp.CredentialsPath = "wa_config.txt"
	}
	if c.WhatsApp.APIBaseURL == "" {
		c.WhatsApp.APIBaseURL = "https://graph.facebook.com/v20.0"
	}
	if c.WhatsApp.MediaDir == "" {
		c.WhatsApp.MediaDir = "."
	}
	if c.OpenAI.KeyPath == "" {
		c.OpenAI.KeyPath = "openai_key.txt"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini-tts"
	}
	if c.Directory.Path == "" {
		c.Directory.Path = "authorized.txt"
	}
	if c.Schedules.Path == "" {
		c.Schedules.Path = "schedules.yaml"
	}
	if c.Audio.Player == "" {
		c.Audio.Player = "mpg123"
	}
	if c.Audio.OfflineTTSCommand == "" {
		c.Audio.OfflineTTSCommand = "espeak"
	}
	if c.Audio.BellFile == "" {
		c.Audio.BellFile = "bell.mp3"
	}
	if c.Events.Stream == "" {
		c.Events.Stream = "jothi:events"
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 4
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 64
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Webhook.VerifyToken == "" {
		return fmt.Errorf("webhook verify_token is required")
	}
	if c.Channels.Telegram.Enabled && c.Channels.Telegram.Token == "" {
		return fmt.Errorf("telegram channel enabled but no token set")
	}
	for day := range c.Audio.Assembly {
		switch strings.ToLower(day) {
		case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		default:
			return fmt.Errorf("unknown assembly weekday: %q", day)
		}
	}
	return nil
}

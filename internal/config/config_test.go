package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	yaml := []byte(`
server:
  port: 5000
  host: 0.0.0.0
webhook:
  verify_token: JOTHI_VERIFY
directory:
  path: authorized.txt
  allow_unknown: false
audio:
  player: mpg123
  bell_file: bell.mp3
  assembly:
    monday:
      label: English Day
      prayer: english_prayer.mp3
      birthday: english_birthday.mp3
`)
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.Write(yaml)
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Server.Port)
	}
	if cfg.Webhook.VerifyToken != "JOTHI_VERIFY" {
		t.Errorf("Expected verify token JOTHI_VERIFY, got %s", cfg.Webhook.VerifyToken)
	}
	if cfg.Audio.Assembly["monday"].Prayer != "english_prayer.mp3" {
		t.Errorf("Expected monday prayer file, got %s", cfg.Audio.Assembly["monday"].Prayer)
	}
}

func TestLoadDefaults(t *testing.T) {
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.WriteString("webhook:\n  verify_token: x\n")
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.WhatsApp.APIBaseURL != "https://graph.facebook.com/v20.0" {
		t.Errorf("Unexpected default API base URL: %s", cfg.WhatsApp.APIBaseURL)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini-tts" {
		t.Errorf("Unexpected default TTS model: %s", cfg.OpenAI.Model)
	}
	if cfg.Workers.Count != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Workers.Count)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 5000, Host: "0.0.0.0"},
		Webhook: WebhookConfig{VerifyToken: "JOTHI_VERIFY"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: -1}, Webhook: WebhookConfig{VerifyToken: "x"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for invalid port")
	}
}

func TestValidateMissingVerifyToken(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 5000}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for missing verify token")
	}
}

func TestValidateBadAssemblyDay(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 5000},
		Webhook: WebhookConfig{VerifyToken: "x"},
		Audio:   AudioConfig{Assembly: map[string]AssemblyDay{"someday": {}}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for unknown weekday")
	}
}

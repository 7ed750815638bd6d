package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Speech.Mode != "mock" {
		t.Fatalf("expected mock speech mode, got %q", cfg.Speech.Mode)
	}
	if cfg.Speech.GradingSystem != "HundredMark" || cfg.Speech.Granularity != "Phoneme" {
		t.Fatalf("unexpected scoring defaults: %+v", cfg.Speech)
	}
	if !cfg.Speech.Prosody {
		t.Fatal("expected prosody enabled by default")
	}
	if cfg.HTTP.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.HTTP.Port)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accent.yaml")
	data := []byte(`
speech:
  mode: azure
  key: secret
  region: westeurope
  language: de-DE
history:
  retention_mode: ephemeral
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Speech.Mode != "azure" || cfg.Speech.Region != "westeurope" {
		t.Fatalf("file values not applied: %+v", cfg.Speech)
	}
	if cfg.Speech.Language != "de-DE" {
		t.Fatalf("expected language override, got %q", cfg.Speech.Language)
	}
	if cfg.History.RetentionMode != "ephemeral" {
		t.Fatalf("expected ephemeral history, got %q", cfg.History.RetentionMode)
	}
	// untouched sections keep defaults
	if cfg.HTTP.Port != 8000 {
		t.Fatalf("expected default port, got %d", cfg.HTTP.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ACCENT_SPEECH_MODE", "azure")
	t.Setenv("ACCENT_SPEECH_KEY", "k123")
	t.Setenv("ACCENT_SPEECH_REGION", "northeurope")
	t.Setenv("ACCENT_SPEECH_PROSODY", "false")
	t.Setenv("ACCENT_HTTP_PORT", "9100")
	t.Setenv("ACCENT_BUS_ENABLED", "true")
	t.Setenv("ACCENT_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("ACCENT_HISTORY_RETENTION_DAYS", "7")
	t.Setenv("ACCENT_HISTORY_MAX_RECORDS", "123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Speech.Mode != "azure" || cfg.Speech.Key != "k123" || cfg.Speech.Region != "northeurope" {
		t.Fatalf("speech overrides not applied: %+v", cfg.Speech)
	}
	if cfg.Speech.Prosody {
		t.Fatal("expected prosody override false")
	}
	if cfg.HTTP.Port != 9100 {
		t.Fatalf("expected port 9100, got %d", cfg.HTTP.Port)
	}
	if !cfg.Bus.Enabled || len(cfg.Bus.Servers) != 2 {
		t.Fatalf("bus overrides not applied: %+v", cfg.Bus)
	}
	if cfg.History.RetentionDays != 7 || cfg.History.MaxRecords != 123 {
		t.Fatalf("history overrides not applied: %+v", cfg.History)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"azure without key": func(c *Config) {
			c.Speech.Mode = "azure"
			c.Speech.Key = ""
		},
		"unknown speech mode": func(c *Config) {
			c.Speech.Mode = "sphinx"
		},
		"unknown grading system": func(c *Config) {
			c.Speech.GradingSystem = "TenPoint"
		},
		"unknown granularity": func(c *Config) {
			c.Speech.Granularity = "Sentence"
		},
		"bad retention mode": func(c *Config) {
			c.History.RetentionMode = "session"
		},
		"bad port": func(c *Config) {
			c.HTTP.Port = 0
		},
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.SpeedTest.DefaultPayloadBytes != 10<<20 {
		t.Errorf("Expected default payload 10 MiB, got %d", cfg.SpeedTest.DefaultPayloadBytes)
	}
	if cfg.SpeedTest.MaxPayloadBytes != 100<<20 {
		t.Errorf("Expected max payload 100 MiB, got %d", cfg.SpeedTest.MaxPayloadBytes)
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.yaml")
	content := `
port: "9000"
speedtest:
  max_payload_bytes: 52428800
  default_payload_bytes: 1048576
auth:
  token_ttl: 1h
reports:
  retention: 48h
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("PORT", "9100")
	t.Setenv("SPEEDTEST_DEFAULT_PAYLOAD_BYTES", "2097152")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("Expected env to override port, got %s", cfg.Port)
	}
	if cfg.SpeedTest.MaxPayloadBytes != 50<<20 {
		t.Errorf("Expected max payload from YAML, got %d", cfg.SpeedTest.MaxPayloadBytes)
	}
	if cfg.SpeedTest.DefaultPayloadBytes != 2<<20 {
		t.Errorf("Expected default payload from env, got %d", cfg.SpeedTest.DefaultPayloadBytes)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("Expected token TTL 1h, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Reports.Retention != 48*time.Hour {
		t.Errorf("Expected retention 48h, got %s", cfg.Reports.Retention)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Errorf("Expected mongo URI from env, got %s", cfg.Mongo.URI)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("SPEEDTEST_MAX_PAYLOAD_BYTES", "lots")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for non-numeric payload ceiling")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"zero ceiling", func(c *Config) { c.SpeedTest.MaxPayloadBytes = 0 }},
		{"default above ceiling", func(c *Config) { c.SpeedTest.DefaultPayloadBytes = c.SpeedTest.MaxPayloadBytes + 1 }},
		{"zero chunk", func(c *Config) { c.SpeedTest.ChunkBytes = 0 }},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"negative retention", func(c *Config) { c.Reports.Retention = -time.Hour }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config should be valid, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

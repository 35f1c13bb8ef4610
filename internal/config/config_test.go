package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.SQLiteDBPath != "./data/spendwise.db" {
		t.Errorf("SQLiteDBPath = %q, want ./data/spendwise.db", cfg.SQLiteDBPath)
	}
	if cfg.ReportQueue != "report_requests" {
		t.Errorf("ReportQueue = %q, want report_requests", cfg.ReportQueue)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GOOGLE_CLOUD_VISION_API_KEY", "test-key")
	t.Setenv("RECURRING_INTERVAL", "30m")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if !cfg.OCREnabled() {
		t.Error("OCREnabled() = false with API key set")
	}
	if cfg.RecurringInterval != 30*time.Minute {
		t.Errorf("RecurringInterval = %v, want 30m", cfg.RecurringInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "abc" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"empty db path", func(c *Config) { c.SQLiteDBPath = "" }, "database path"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://localhost" }, "AMQP URL scheme"},
		{"smtp host without from", func(c *Config) { c.SMTPHost = "smtp.example.com" }, "SMTP_HOST and SMTP_FROM"},
		{"bad smtp port", func(c *Config) { c.SMTPPort = "nope" }, "invalid SMTP port"},
		{"recurring interval too small", func(c *Config) { c.RecurringInterval = time.Second }, "recurring interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

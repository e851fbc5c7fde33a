package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
participant:
  first_name: "Test"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected default host '127.0.0.1', got '%s'", cfg.Server.Host)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("Expected default port 8088, got %d", cfg.Server.Port)
	}

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected default shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}

	if cfg.Server.ActivityWindow != 7*24*time.Hour {
		t.Errorf("Expected default activity window 168h, got %v", cfg.Server.ActivityWindow)
	}

	if cfg.Harness.AppConfigFile != "AppConfig.json" {
		t.Errorf("Expected default app config file 'AppConfig.json', got '%s'", cfg.Harness.AppConfigFile)
	}

	if cfg.Participant.FirstName != "Test" {
		t.Errorf("Expected first name 'Test', got '%s'", cfg.Participant.FirstName)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("Expected default port 8088, got %d", cfg.Server.Port)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9999
  activity_window: "48h"

harness:
  resources_dir: "/fixtures"
  app_config_file: "Config.json"

participant:
  first_name: "Ada"
  email: "ada@example.org"
  phone: "206-555-0000"
  data_groups:
    - "control"

schedules:
  - identifier: "Tapping"
    cron: "0 9 * * *"
    expires: "12h"
  - identifier: "Mood"
    type: "survey"
    cron: "0 20 * * 1"
    days: 14

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.Server.Port)
	}

	if cfg.Server.ActivityWindow != 48*time.Hour {
		t.Errorf("Expected activity window 48h, got %v", cfg.Server.ActivityWindow)
	}

	if cfg.Harness.ResourcesDir != "/fixtures" || cfg.Harness.AppConfigFile != "Config.json" {
		t.Errorf("Unexpected harness config: %+v", cfg.Harness)
	}

	if len(cfg.Participant.DataGroups) != 1 || cfg.Participant.DataGroups[0] != "control" {
		t.Errorf("Expected data groups [control], got %v", cfg.Participant.DataGroups)
	}

	if len(cfg.Schedules) != 2 {
		t.Fatalf("Expected 2 schedules, got %d", len(cfg.Schedules))
	}

	tapping := cfg.Schedules[0]
	if tapping.Type != "task" || tapping.Days != 7 || tapping.Expires != 12*time.Hour {
		t.Errorf("Expected task defaults for Tapping, got %+v", tapping)
	}

	mood := cfg.Schedules[1]
	if mood.Type != "survey" || mood.Days != 14 || mood.Expires != 0 {
		t.Errorf("Unexpected Mood schedule: %+v", mood)
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected json format, got '%s'", cfg.Logging.Format)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid port", "server:\n  port: 70000\n"},
		{"empty app config file", "harness:\n  app_config_file: \"\"\n"},
		{"invalid email", "participant:\n  email: \"not an email\"\n"},
		{"schedule without identifier", "schedules:\n  - cron: \"0 9 * * *\"\n"},
		{"schedule with bad cron", "schedules:\n  - identifier: \"x\"\n    cron: \"every day\"\n"},
		{"schedule with bad type", "schedules:\n  - identifier: \"x\"\n    type: \"quiz\"\n    cron: \"0 9 * * *\"\n"},
		{"invalid log level", "logging:\n  level: \"loud\"\n"},
		{"invalid log format", "logging:\n  format: \"xml\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestDisabledServerSkipsPortValidation(t *testing.T) {
	path := writeConfig(t, "server:\n  enabled: false\n  port: 0\n")

	if _, err := Load(path); err != nil {
		t.Errorf("Expected disabled server to skip validation, got %v", err)
	}
}

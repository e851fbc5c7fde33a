package config

import (
	"testing"
)

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("BRIDGE_SERVER_PORT", "9123")
	t.Setenv("BRIDGE_LOGGING_LEVEL", "debug")

	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9123 {
		t.Fatalf("expected port from env 9123, got %d", cfg.Server.Port)
	}

	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level from env 'debug', got %q", cfg.Logging.Level)
	}
}

func TestEnvironmentHarnessPaths(t *testing.T) {
	t.Setenv("BRIDGE_HARNESS_RESOURCES_DIR", "/env/fixtures")

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Harness.ResourcesDir != "/env/fixtures" {
		t.Fatalf("expected resources dir from env, got %q", cfg.Harness.ResourcesDir)
	}
}

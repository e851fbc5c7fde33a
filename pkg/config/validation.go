package config

import (
	"fmt"
	"net/mail"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
)

// validate validates the configuration
func validate(config *Config) error {
	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateHarness(&config.Harness); err != nil {
		return fmt.Errorf("harness config: %w", err)
	}

	if err := validateParticipant(&config.Participant); err != nil {
		return fmt.Errorf("participant config: %w", err)
	}

	for i := range config.Schedules {
		if err := validateSchedule(&config.Schedules[i]); err != nil {
			return fmt.Errorf("schedule config[%d]: %w", i, err)
		}
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// validateServer validates server configuration
func validateServer(config *ServerConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Port)
	}

	if config.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	if config.ActivityWindow <= 0 {
		return fmt.Errorf("activity_window must be positive")
	}

	return nil
}

func validateHarness(config *HarnessConfig) error {
	if config.AppConfigFile == "" {
		return fmt.Errorf("app_config_file cannot be empty")
	}
	return nil
}

func validateParticipant(config *ParticipantConfig) error {
	if config.Email != "" {
		if _, err := mail.ParseAddress(config.Email); err != nil {
			return fmt.Errorf("invalid email %q: %w", config.Email, err)
		}
	}
	return nil
}

// validateSchedule validates a cron-seeded schedule
func validateSchedule(config *ScheduleConfig) error {
	if config.Identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if config.Type != "task" && config.Type != "survey" {
		return fmt.Errorf("invalid type %q (expected task or survey)", config.Type)
	}

	if _, err := cron.ParseStandard(config.Cron); err != nil {
		return fmt.Errorf("invalid cron %q: %w", config.Cron, err)
	}

	if config.Days < 0 {
		return fmt.Errorf("days cannot be negative")
	}

	if config.Expires < 0 {
		return fmt.Errorf("expires cannot be negative")
	}

	return nil
}

// validateLogging validates logging configuration
func validateLogging(config *LoggingConfig) error {
	if _, err := zapcore.ParseLevel(config.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}

	if config.Format != "text" && config.Format != "json" && config.Format != "console" {
		return fmt.Errorf("invalid format %q (expected text, json or console)", config.Format)
	}

	return nil
}

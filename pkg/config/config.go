package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the harness configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Harness     HarnessConfig     `mapstructure:"harness"`
	Participant ParticipantConfig `mapstructure:"participant"`
	Schedules   []ScheduleConfig  `mapstructure:"schedules"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the mock backend HTTP server configuration
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// ActivityWindow is how far before and after now the activity list looks
	// when a request does not give explicit bounds
	ActivityWindow time.Duration `mapstructure:"activity_window"`
}

// HarnessConfig controls where fixtures are loaded from
type HarnessConfig struct {
	ResourcesDir  string `mapstructure:"resources_dir"`
	AppConfigFile string `mapstructure:"app_config_file"`
}

// ParticipantConfig describes the signed-in mock participant. Empty fields
// fall back to the default mock participant.
type ParticipantConfig struct {
	FirstName  string   `mapstructure:"first_name"`
	LastName   string   `mapstructure:"last_name"`
	Email      string   `mapstructure:"email"`
	Phone      string   `mapstructure:"phone"`
	ExternalID string   `mapstructure:"external_id"`
	DataGroups []string `mapstructure:"data_groups"`
}

// ScheduleConfig seeds the mock activity manager from a cron expression
type ScheduleConfig struct {
	Identifier string        `mapstructure:"identifier"`
	Type       string        `mapstructure:"type"`    // "task" or "survey" (default: "task")
	Cron       string        `mapstructure:"cron"`    // Standard five-field cron spec
	Days       int           `mapstructure:"days"`    // How many days ahead of startup to expand
	Expires    time.Duration `mapstructure:"expires"` // Zero means persistent
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Load loads configuration from file and BRIDGE_* environment variables
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("harness")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyScheduleDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.activity_window", "168h")

	v.SetDefault("harness.resources_dir", "./testdata")
	v.SetDefault("harness.app_config_file", "AppConfig.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
}

// applyScheduleDefaults fills per-entry defaults viper cannot express for list items
func applyScheduleDefaults(cfg *Config) {
	for i := range cfg.Schedules {
		s := &cfg.Schedules[i]
		if s.Type == "" {
			s.Type = "task"
		}
		if s.Days == 0 {
			s.Days = 7
		}
	}
}

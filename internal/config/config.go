package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config describes runtime settings. Every key can be set in an optional
// config file and overridden by the upper-cased environment variable.
type Config struct {
	TasksFile       string        `mapstructure:"tasks_file" validate:"required"`
	SaveQueueSize   int           `mapstructure:"save_queue_size" validate:"gt=0"`
	StatsInterval   time.Duration `mapstructure:"stats_interval" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=text json"`
}

var defaults = map[string]any{
	"tasks_file":       "tasks.json",
	"save_queue_size":  64,
	"stats_interval":   30 * time.Second,
	"shutdown_timeout": 10 * time.Second,
	"log_level":        "info",
	"log_format":       "text",
}

// Load reads configuration from the environment, applying defaults when necessary.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an additional config file; an empty path skips it.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

package app

import (
	"errors"
	"fmt"
	"log/slog"
)

// Config holds the process-level settings an App is started with. Values
// set here win over the HCL configuration.
type Config struct {
	ConfigPaths []string // hcl files or directories

	LogFormat string
	LogLevel  string
	// Port overrides server.port when positive.
	Port int
	// Branches overrides pipeline.branch_count when positive.
	Branches int
	// Watch reloads the configuration when its files change.
	Watch bool
	// APIKey is used when generative.api_key is not configured.
	APIKey string
}

// LogValue keeps the API key out of the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("config_paths", c.ConfigPaths),
		slog.String("log_format", c.LogFormat),
		slog.String("log_level", c.LogLevel),
		slog.Int("port", c.Port),
		slog.Int("branches", c.Branches),
		slog.Bool("watch", c.Watch),
		slog.Bool("api_key_set", c.APIKey != ""),
	)
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if cfg.Branches < 0 {
		return nil, errors.New("branches must not be negative")
	}
	if cfg.Watch && len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("watch requires a configuration path")
	}
	return &cfg, nil
}

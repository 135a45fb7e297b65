// Package config loads panelsync configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/panelsync/pkg/binding"
	"github.com/odvcencio/panelsync/pkg/debounce"
	"github.com/odvcencio/panelsync/pkg/errors"
)

// Config is the complete panelsync configuration.
type Config struct {
	Sync      SyncConfig      `yaml:"sync"`
	Bus       BusConfig       `yaml:"bus"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SyncConfig tunes input writes and output refreshes.
type SyncConfig struct {
	WriteDebounce   time.Duration `yaml:"write_debounce"`
	RefreshDebounce time.Duration `yaml:"refresh_debounce"`
	// UnmountPolicy is "drop" or "flush".
	UnmountPolicy string `yaml:"unmount_policy"`
	DashboardID   string `yaml:"dashboard_id"`
}

// BusConfig selects the message bus the reference host speaks over.
type BusConfig struct {
	// Kind is "memory" or "nats".
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	// InputRate is input writes per second accepted per panel.
	InputRate  float64 `yaml:"input_rate"`
	InputBurst int     `yaml:"input_burst"`
}

// StorageConfig configures output slot persistence.
type StorageConfig struct {
	// SlotsPath is the sqlite database for output panel ids; empty keeps
	// them in memory.
	SlotsPath string `yaml:"slots_path"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Tracing     bool   `yaml:"tracing"`
	ServiceName string `yaml:"service_name"`
}

const defaultNATSURL = "nats://127.0.0.1:4222"

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			WriteDebounce:   debounce.DefaultWindow,
			RefreshDebounce: debounce.DefaultWindow,
			UnmountPolicy:   string(binding.PolicyDrop),
			DashboardID:     "default",
		},
		Bus: BusConfig{
			Kind:    "memory",
			URL:     defaultNATSURL,
			Name:    "panelsync",
			Timeout: 5 * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled:    true,
			Bind:       "127.0.0.1:8642",
			InputRate:  20,
			InputBurst: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "panelsync",
		},
	}
}

// Load loads configuration from default locations with proper precedence:
// defaults, ~/.panelsync/config.yaml, ./panelsync.yaml, then PANELSYNC_*
// environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".panelsync", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "loading user config").WithContext("path", userConfigPath)
		}
	}

	projectConfigPath := filepath.Join(".", "panelsync.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "loading project config").WithContext("path", projectConfigPath)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, path); err != nil {
		if errors.GetCode(err) == errors.ErrCodeConfigParse {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigLoad, "loading config").WithContext("path", path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PANELSYNC_WRITE_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.WriteDebounce = d
		}
	}
	if v := os.Getenv("PANELSYNC_REFRESH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.RefreshDebounce = d
		}
	}
	if v := os.Getenv("PANELSYNC_UNMOUNT_POLICY"); v != "" {
		cfg.Sync.UnmountPolicy = v
	}

	if v := os.Getenv("PANELSYNC_BUS"); v != "" {
		cfg.Bus.Kind = v
	}
	if v := os.Getenv("PANELSYNC_NATS_URL"); v != "" {
		cfg.Bus.URL = v
		if os.Getenv("PANELSYNC_BUS") == "" {
			cfg.Bus.Kind = "nats"
		}
	}

	if v := os.Getenv("PANELSYNC_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if val, ok := envBool("PANELSYNC_GATEWAY"); ok {
		cfg.Gateway.Enabled = val
	}
	if v := os.Getenv("PANELSYNC_INPUT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Gateway.InputRate = f
		}
	}

	if v := os.Getenv("PANELSYNC_SLOTS_PATH"); v != "" {
		cfg.Storage.SlotsPath = v
	}

	if v := os.Getenv("PANELSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PANELSYNC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if val, ok := envBool("PANELSYNC_TRACING"); ok {
		cfg.Telemetry.Tracing = val
	}
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Policy returns the parsed unmount policy.
func (c *Config) Policy() binding.Policy {
	p, err := binding.ParsePolicy(c.Sync.UnmountPolicy)
	if err != nil {
		return binding.PolicyDrop
	}
	return p
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
	}

	if c.Sync.WriteDebounce < 0 {
		return invalid("sync.write_debounce must not be negative: %s", c.Sync.WriteDebounce)
	}
	if c.Sync.RefreshDebounce < 0 {
		return invalid("sync.refresh_debounce must not be negative: %s", c.Sync.RefreshDebounce)
	}
	if _, err := binding.ParsePolicy(c.Sync.UnmountPolicy); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(c.Bus.Kind)) {
	case "memory":
	case "nats":
		if strings.TrimSpace(c.Bus.URL) == "" {
			return invalid("bus.url is required for the nats bus")
		}
	default:
		return invalid("invalid bus kind: %s (valid: memory, nats)", c.Bus.Kind)
	}
	if c.Bus.Timeout <= 0 {
		return invalid("bus.timeout must be positive")
	}

	if c.Gateway.Enabled {
		if strings.TrimSpace(c.Gateway.Bind) == "" {
			return invalid("gateway.bind is required when the gateway is enabled")
		}
		if c.Gateway.InputRate <= 0 || c.Gateway.InputBurst <= 0 {
			return invalid("gateway.input_rate and gateway.input_burst must be positive")
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return invalid("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}
	return nil
}

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/panelsync/pkg/errors"
)

// loadAndMerge loads a YAML file and merges it into the config.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Zero values only override
// when the key is present in raw.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if fieldSet(raw, "sync", "write_debounce") {
		base.Sync.WriteDebounce = override.Sync.WriteDebounce
	}
	if fieldSet(raw, "sync", "refresh_debounce") {
		base.Sync.RefreshDebounce = override.Sync.RefreshDebounce
	}
	if override.Sync.UnmountPolicy != "" {
		base.Sync.UnmountPolicy = override.Sync.UnmountPolicy
	}
	if override.Sync.DashboardID != "" {
		base.Sync.DashboardID = override.Sync.DashboardID
	}

	if override.Bus.Kind != "" {
		base.Bus.Kind = override.Bus.Kind
	}
	if override.Bus.URL != "" {
		base.Bus.URL = override.Bus.URL
	}
	if override.Bus.Name != "" {
		base.Bus.Name = override.Bus.Name
	}
	if override.Bus.Timeout != 0 {
		base.Bus.Timeout = override.Bus.Timeout
	}

	if fieldSet(raw, "gateway", "enabled") {
		base.Gateway.Enabled = override.Gateway.Enabled
	}
	if override.Gateway.Bind != "" {
		base.Gateway.Bind = override.Gateway.Bind
	}
	if override.Gateway.InputRate != 0 {
		base.Gateway.InputRate = override.Gateway.InputRate
	}
	if override.Gateway.InputBurst != 0 {
		base.Gateway.InputBurst = override.Gateway.InputBurst
	}

	if fieldSet(raw, "storage", "slots_path") {
		base.Storage.SlotsPath = override.Storage.SlotsPath
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if fieldSet(raw, "telemetry", "tracing") {
		base.Telemetry.Tracing = override.Telemetry.Tracing
	}
	if override.Telemetry.ServiceName != "" {
		base.Telemetry.ServiceName = override.Telemetry.ServiceName
	}
}

func fieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}

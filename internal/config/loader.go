// Package config provides configuration management for Chimera.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
)

// Loader handles configuration loading: built-in defaults, overridden
// by an optional JSON file, overridden by `CHIMERA_SECTION_KEY`
// environment variables (spec §6.3).
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("CHIMERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{".", "/etc/chimera"},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for a config file.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, chimeraerrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, chimeraerrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	l.expandEnvVars(cfg)

	return cfg, nil
}

// setDefaults seeds Viper with DefaultConfig so an unset file key or
// env var falls back to the built-in default rather than a zero value.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("nix.binary", d.Nix.Binary)
	l.v.SetDefault("nix.flake", d.Nix.Flake)
	l.v.SetDefault("nix.build_timeout", d.Nix.BuildTimeout)
	l.v.SetDefault("nix.extra_substituters", d.Nix.ExtraSubstituters)

	l.v.SetDefault("fleet.default_targets", d.Fleet.DefaultTargets)
	l.v.SetDefault("fleet.production_node_ids", d.Fleet.ProductionNodeIDs)
	l.v.SetDefault("fleet.max_concurrent_sync", d.Fleet.MaxConcurrentSync)

	l.v.SetDefault("watch.interval_seconds", d.Watch.IntervalSeconds)
	l.v.SetDefault("watch.once", d.Watch.Once)
	l.v.SetDefault("watch.rebuild_command", d.Watch.RebuildCommand)
	l.v.SetDefault("watch.restart_command", d.Watch.RestartCommand)

	l.v.SetDefault("agent.node_id", d.Agent.NodeID)
	l.v.SetDefault("agent.heartbeat_seconds", d.Agent.HeartbeatSeconds)
	l.v.SetDefault("agent.drift_interval_seconds", d.Agent.DriftIntervalSeconds)
	l.v.SetDefault("agent.no_auto_heal", d.Agent.NoAutoHeal)
	l.v.SetDefault("agent.orchestrator_endpoint", d.Agent.OrchestratorEndpoint)

	l.v.SetDefault("web.host", d.Web.Host)
	l.v.SetDefault("web.port", d.Web.Port)

	l.v.SetDefault("mcp.host", d.MCP.Host)
	l.v.SetDefault("mcp.port", d.MCP.Port)

	l.v.SetDefault("telemetry.tracing.enabled", d.Telemetry.Tracing.Enabled)
	l.v.SetDefault("telemetry.tracing.endpoint", d.Telemetry.Tracing.Endpoint)
	l.v.SetDefault("telemetry.tracing.insecure", d.Telemetry.Tracing.Insecure)
	l.v.SetDefault("telemetry.tracing.sample_rate", d.Telemetry.Tracing.SampleRate)
	l.v.SetDefault("telemetry.metrics.enabled", d.Telemetry.Metrics.Enabled)
	l.v.SetDefault("telemetry.metrics.endpoint", d.Telemetry.Metrics.Endpoint)
	l.v.SetDefault("telemetry.metrics.port", d.Telemetry.Metrics.Port)

	l.v.SetDefault("itsm.enabled", d.ITSM.Enabled)
	l.v.SetDefault("itsm.provider", d.ITSM.Provider)
	l.v.SetDefault("itsm.base_url", d.ITSM.BaseURL)
	l.v.SetDefault("itsm.api_key", d.ITSM.APIKey)
	l.v.SetDefault("itsm.timeout", d.ITSM.Timeout)

	l.v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	l.v.SetDefault("notifications.webhook_url", d.Notifications.WebhookURL)
	l.v.SetDefault("notifications.min_severity", d.Notifications.MinSeverity)

	l.v.SetDefault("log_level", d.LogLevel)
}

// loadConfigFile loads the JSON config file, if one is found. Absence
// of a config file is not an error; defaults and env vars still apply.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	for _, searchPath := range l.searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					l.v.SetConfigFile(configFile)
					if err := l.v.ReadInConfig(); err != nil {
						return fmt.Errorf("reading config file %s: %w", configFile, err)
					}
					return nil
				}
			}
		}
	}

	return nil
}

// expandEnvVars expands `${VAR}` references in fields that commonly
// carry secrets or environment-specific values, so a checked-in config
// file never needs to hold a literal credential.
func (l *Loader) expandEnvVars(cfg *Config) {
	cfg.ITSM.APIKey = os.ExpandEnv(cfg.ITSM.APIKey)
	cfg.ITSM.BaseURL = os.ExpandEnv(cfg.ITSM.BaseURL)
	cfg.Notifications.WebhookURL = os.ExpandEnv(cfg.Notifications.WebhookURL)
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration by searching a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// MustLoad loads configuration and panics on error.
func MustLoad() *Config {
	cfg, err := NewLoader().Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "/etc/chimera"}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, nil
				}
			}
		}
	}

	return "", chimeraerrors.NotFound("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}

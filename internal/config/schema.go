// Package config provides configuration management for Chimera.
package config

import "time"

// Config is the root configuration for a Chimera instance, per spec
// §6.3: sections nix, fleet, watch, agent, web, mcp, telemetry, itsm,
// notifications, log_level.
type Config struct {
	// Nix configures the build port's invocation of the Nix toolchain.
	Nix NixConfig `mapstructure:"nix" json:"nix"`
	// Fleet configures the default set of managed targets.
	Fleet FleetConfig `mapstructure:"fleet" json:"fleet"`
	// Watch configures the autonomous drift-check loop.
	Watch WatchConfig `mapstructure:"watch" json:"watch"`
	// Agent configures the `agent` command's heartbeat and drift cadence.
	Agent AgentConfig `mapstructure:"agent" json:"agent"`
	// Web configures the `web` dashboard server.
	Web WebConfig `mapstructure:"web" json:"web"`
	// MCP configures the `mcp` tool/resource server.
	MCP MCPConfig `mapstructure:"mcp" json:"mcp"`
	// Telemetry configures tracing and metrics export.
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
	// ITSM configures the incident-ticketing adapter.
	ITSM ITSMConfig `mapstructure:"itsm" json:"itsm"`
	// Notifications configures the alert-sink adapter.
	Notifications NotificationsConfig `mapstructure:"notifications" json:"notifications"`
	// LogLevel is the process-wide log level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// NixConfig configures how the build port shells out to Nix.
type NixConfig struct {
	// Binary is the path to the nix executable (default: "nix").
	Binary string `mapstructure:"binary" json:"binary"`
	// Flake is a flake reference. It is loaded and defaulted, but no
	// command reads it; commands do not fall back to it when no config
	// path is given.
	Flake string `mapstructure:"flake" json:"flake,omitempty"`
	// BuildTimeout bounds a single build invocation.
	BuildTimeout time.Duration `mapstructure:"build_timeout" json:"build_timeout"`
	// ExtraSubstituters lists additional binary caches. The build adapter
	// does not pass them to nix.
	ExtraSubstituters []string `mapstructure:"extra_substituters" json:"extra_substituters,omitempty"`
}

// FleetConfig configures the default managed node set.
type FleetConfig struct {
	// DefaultTargets is a comma-separated `user@host[:port]` list. It is
	// validated on load, but no command reads it; a command that omits
	// `-t` does not fall back to it.
	DefaultTargets string `mapstructure:"default_targets" json:"default_targets,omitempty"`
	// ProductionNodeIDs tags nodes as production for drift-severity
	// classification (spec §4.2).
	ProductionNodeIDs []string `mapstructure:"production_node_ids" json:"production_node_ids,omitempty"`
	// MaxConcurrentSync must be positive. Deploy and rollback do not read
	// it; their per-node fan-out is unbounded.
	MaxConcurrentSync int `mapstructure:"max_concurrent_sync" json:"max_concurrent_sync"`
}

// WatchConfig configures the autonomous drift-check loop (spec §4.10).
type WatchConfig struct {
	// IntervalSeconds is the pause between drift-check cycles.
	IntervalSeconds int `mapstructure:"interval_seconds" json:"interval_seconds"`
	// Once runs a single cycle and exits, matching `watch --once`.
	Once bool `mapstructure:"once" json:"once"`
	// RebuildCommand is run on nodes when the healing plan calls for
	// ACTION_REBUILD_CONFIG.
	RebuildCommand string `mapstructure:"rebuild_command" json:"rebuild_command,omitempty"`
	// RestartCommand is run on nodes when the healing plan calls for
	// ACTION_RESTART_SERVICE.
	RestartCommand string `mapstructure:"restart_command" json:"restart_command,omitempty"`
}

// AgentConfig configures the long-running `agent` process (spec §4.11).
type AgentConfig struct {
	// NodeID identifies this agent to the fleet registry.
	NodeID string `mapstructure:"node_id" json:"node_id,omitempty"`
	// HeartbeatSeconds is the interval between heartbeat reports.
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds" json:"heartbeat_seconds"`
	// DriftIntervalSeconds is the interval between self-reported drift
	// checks.
	DriftIntervalSeconds int `mapstructure:"drift_interval_seconds" json:"drift_interval_seconds"`
	// NoAutoHeal disables automatic healing action execution; drift is
	// still reported but never acted on locally.
	NoAutoHeal bool `mapstructure:"no_auto_heal" json:"no_auto_heal"`
	// OrchestratorEndpoint is the grpc address of the external fleet
	// orchestrator that reportHealth/reportDrift/healing-command RPCs
	// target.
	OrchestratorEndpoint string `mapstructure:"orchestrator_endpoint" json:"orchestrator_endpoint,omitempty"`
}

// WebConfig configures the dashboard HTTP server.
type WebConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// MCPConfig configures the MCP tool/resource server (spec §6.4).
type MCPConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// TelemetryConfig configures observability export.
type TelemetryConfig struct {
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled" json:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Insecure   bool    `mapstructure:"insecure" json:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" json:"sample_rate"`
}

// MetricsConfig configures Prometheus metrics export.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Port     int    `mapstructure:"port" json:"port"`
}

// ITSMConfig configures the incident-ticketing port adapter.
type ITSMConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	Provider string        `mapstructure:"provider" json:"provider,omitempty"`
	BaseURL  string        `mapstructure:"base_url" json:"base_url,omitempty"`
	APIKey   string        `mapstructure:"api_key" json:"api_key,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// NotificationsConfig configures the alert-sink port adapter.
type NotificationsConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	WebhookURL  string `mapstructure:"webhook_url" json:"webhook_url,omitempty"`
	MinSeverity string `mapstructure:"min_severity" json:"min_severity"`
}

// DefaultConfig returns Chimera's built-in defaults, the base layer of
// the file-then-env override chain described in spec §6.3.
func DefaultConfig() *Config {
	return &Config{
		Nix: NixConfig{
			Binary:       "nix",
			BuildTimeout: 5 * time.Minute,
		},
		Fleet: FleetConfig{
			MaxConcurrentSync: 8,
		},
		Watch: WatchConfig{
			IntervalSeconds: 30,
		},
		Agent: AgentConfig{
			HeartbeatSeconds:     10,
			DriftIntervalSeconds: 60,
			OrchestratorEndpoint: "127.0.0.1:9090",
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		MCP: MCPConfig{
			Host: "127.0.0.1",
			Port: 8081,
		},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{SampleRate: 1.0},
		},
		ITSM: ITSMConfig{
			Timeout: 10 * time.Second,
		},
		Notifications: NotificationsConfig{
			MinSeverity: "MEDIUM",
		},
		LogLevel: "info",
	}
}

// ConfigFileNames to search for. Only chimera.json is supported per
// spec §6.3, which pins the file format to JSON.
var ConfigFileNames = []string{"chimera"}

// ConfigFileExtensions supported by Viper for the config file.
var ConfigFileExtensions = []string{"json"}

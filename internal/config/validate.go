// Package config provides configuration management for Chimera.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: &ValidationError{}}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}
var validSeverities = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

// Validate validates the configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateNix(cfg.Nix)
	v.validateFleet(cfg.Fleet)
	v.validateWatch(cfg.Watch)
	v.validateAgent(cfg.Agent)
	v.validateWeb(cfg.Web)
	v.validateMCP(cfg.MCP)
	v.validateITSM(cfg.ITSM)
	v.validateNotifications(cfg.Notifications)

	if !slices.Contains(validLogLevels, cfg.LogLevel) {
		v.errors.Addf("log_level: must be one of %v, got %q", validLogLevels, cfg.LogLevel)
	}

	if v.errors.HasErrors() {
		return chimeraerrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

func (v *Validator) validateNix(cfg NixConfig) {
	if cfg.Binary == "" {
		v.errors.Addf("nix.binary: must not be empty")
	}
	if cfg.BuildTimeout <= 0 {
		v.errors.Addf("nix.build_timeout: must be positive, got %s", cfg.BuildTimeout)
	}
}

func (v *Validator) validateFleet(cfg FleetConfig) {
	if cfg.DefaultTargets != "" {
		for _, target := range strings.Split(cfg.DefaultTargets, ",") {
			if !strings.Contains(target, "@") {
				v.errors.Addf("fleet.default_targets: %q is not a valid user@host[:port] target", target)
			}
		}
	}
	if cfg.MaxConcurrentSync <= 0 {
		v.errors.Addf("fleet.max_concurrent_sync: must be positive, got %d", cfg.MaxConcurrentSync)
	}
}

func (v *Validator) validateWatch(cfg WatchConfig) {
	if cfg.IntervalSeconds <= 0 {
		v.errors.Addf("watch.interval_seconds: must be positive, got %d", cfg.IntervalSeconds)
	}
}

func (v *Validator) validateAgent(cfg AgentConfig) {
	if cfg.HeartbeatSeconds <= 0 {
		v.errors.Addf("agent.heartbeat_seconds: must be positive, got %d", cfg.HeartbeatSeconds)
	}
	if cfg.DriftIntervalSeconds <= 0 {
		v.errors.Addf("agent.drift_interval_seconds: must be positive, got %d", cfg.DriftIntervalSeconds)
	}
}

func (v *Validator) validateWeb(cfg WebConfig) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		v.errors.Addf("web.port: must be in (0, 65535], got %d", cfg.Port)
	}
}

func (v *Validator) validateMCP(cfg MCPConfig) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		v.errors.Addf("mcp.port: must be in (0, 65535], got %d", cfg.Port)
	}
}

func (v *Validator) validateITSM(cfg ITSMConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.BaseURL == "" {
		v.errors.Addf("itsm.base_url: required when itsm is enabled")
	} else if _, err := url.Parse(cfg.BaseURL); err != nil {
		v.errors.Addf("itsm.base_url: invalid URL: %s", cfg.BaseURL)
	}
	if cfg.APIKey == "" {
		v.errors.Warnf("itsm.api_key: enabled but no API key configured")
	}
}

func (v *Validator) validateNotifications(cfg NotificationsConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.WebhookURL == "" {
		v.errors.Addf("notifications.webhook_url: required when notifications is enabled")
	} else if _, err := url.Parse(cfg.WebhookURL); err != nil {
		v.errors.Addf("notifications.webhook_url: invalid URL: %s", cfg.WebhookURL)
	}
	if !slices.Contains(validSeverities, cfg.MinSeverity) {
		v.errors.Addf("notifications.min_severity: must be one of %v, got %q", validSeverities, cfg.MinSeverity)
	}
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultConfigPasses(t *testing.T) {
	err := NewValidator().Validate(DefaultConfig())
	require.NoError(t, err)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidateRejectsMalformedFleetTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fleet.DefaultTargets = "not-a-target"
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fleet.default_targets")
}

func TestValidateRejectsZeroPorts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Web.Port = 0
	cfg.MCP.Port = 70000
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "web.port")
	assert.Contains(t, err.Error(), "mcp.port")
}

func TestValidateITSMRequiresBaseURLWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ITSM.Enabled = true
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "itsm.base_url")
}

func TestValidateNotificationsRequiresWebhookWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notifications.Enabled = true
	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifications.webhook_url")
}

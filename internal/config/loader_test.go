package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromDirectory(dir)
	require.NoError(t, err)

	assert.Equal(t, "nix", cfg.Nix.Binary)
	assert.Equal(t, 5*time.Minute, cfg.Nix.BuildTimeout)
	assert.Equal(t, 8, cfg.Fleet.MaxConcurrentSync)
	assert.Equal(t, 30, cfg.Watch.IntervalSeconds)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chimera.json")
	body, err := json.Marshal(map[string]any{
		"log_level": "debug",
		"watch":     map[string]any{"interval_seconds": 15},
		"web":       map[string]any{"port": 9090},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 15, cfg.Watch.IntervalSeconds)
	assert.Equal(t, 9090, cfg.Web.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8, cfg.Fleet.MaxConcurrentSync)
}

func TestEnvVarOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chimera.json")
	body, err := json.Marshal(map[string]any{"log_level": "debug"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	t.Setenv("CHIMERA_LOG_LEVEL", "error")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestEnvVarOverridesNestedSection(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHIMERA_WEB_PORT", "9999")

	cfg, err := LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Web.Port)
}

func TestFindConfigFileNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := FindConfigFile(dir)
	assert.Error(t, err)
	assert.False(t, ConfigExists(dir))
}

func TestFindConfigFileFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chimera.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	found, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, path, found)
	assert.True(t, ConfigExists(dir))
}

func TestExpandEnvVarsInSecretFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHIMERA_TEST_TOKEN", "s3cr3t")
	path := filepath.Join(dir, "chimera.json")
	body, err := json.Marshal(map[string]any{
		"itsm": map[string]any{"api_key": "${CHIMERA_TEST_TOKEN}"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.ITSM.APIKey)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "en", cfg.Language)
	assert.True(t, cfg.Writer.Verify)
	assert.Equal(t, uint64(128e9), cfg.Drives.LargeDriveSize)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logLevel: debug
language: de
writer:
  bufferSize: 1048576
  verify: false
  progressInterval: 250ms
drives:
  includeSystem: true
  largeDriveSize: 64000000000
notifications:
  desktop: false
api:
  listenAddr: 0.0.0.0:9000
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "de", cfg.Language)
	assert.Equal(t, 1048576, cfg.Writer.BufferSize)
	assert.False(t, cfg.Writer.Verify)
	assert.Equal(t, 250*time.Millisecond, cfg.Writer.ProgressInterval)
	assert.True(t, cfg.Drives.IncludeSystem)
	assert.Equal(t, uint64(64e9), cfg.Drives.LargeDriveSize)
	assert.False(t, cfg.Notifications.Desktop)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.ListenAddr)
	// untouched sections keep defaults
	assert.Equal(t, 5, cfg.Writer.OpenRetries)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", "language: de\nwriter:\n  verify: false\n")
	t.Setenv("IMGFLASH_LANGUAGE", "en")
	t.Setenv("IMGFLASH_WRITER_VERIFY", "yes")
	t.Setenv("IMGFLASH_DRIVES_POLL_INTERVAL", "2s")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
	assert.True(t, cfg.Writer.Verify)
	assert.Equal(t, 2*time.Second, cfg.Drives.PollInterval)
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("IMGFLASH_WRITER_OPEN_RETRIES", "many")
	t.Setenv("IMGFLASH_WRITER_VERIFY", "maybe")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Writer.OpenRetries)
	assert.True(t, cfg.Writer.Verify)
}

func TestLoad_UnknownFieldIsRejected(t *testing.T) {
	path := writeConfig(t, "config.yaml", "language: en\nunknownField: should_fail\n")

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnknownConfigField)
	assert.Contains(t, err.Error(), "unknownField")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "config.yml", "")
	_, err := NewLoader(path, "").Load()
	require.NoError(t, err)
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := writeConfig(t, "config.json", "{}")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_InvalidDurationInFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", "drives:\n  debounce: soon\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drives.debounce")
}

func TestLoad_MultipleDocuments(t *testing.T) {
	path := writeConfig(t, "config.yaml", "language: en\n---\nlanguage: de\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Writer.BufferSize = 10
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Exporter = "zipkin"
	cfg.API.ListenAddr = "no-port"

	err := Validate(cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, want := range []string{"logLevel", "writer.bufferSize", "telemetry.exporter", "api.listenAddr"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"TRUE": true, "1": true, "yes": true, "no": false, "0": false, "False": false} {
		got, err := parseBool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseBool("perhaps")
	require.Error(t, err)
}

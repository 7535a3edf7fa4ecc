// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. An empty configPath skips
// the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	dataDir := filepath.Join(os.TempDir(), "imgflash")
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "imgflash")
	}
	return AppConfig{
		LogLevel: "info",
		Language: "en",
		DataDir:  dataDir,
		Writer: WriterConfig{
			BufferSize:       4 * 1024 * 1024,
			Verify:           true,
			ProgressInterval: 500 * time.Millisecond,
			OpenRetries:      5,
			OpenRetryDelay:   time.Second,
		},
		Drives: DrivesConfig{
			SysRoot:        "/sys",
			DevRoot:        "/dev",
			MountsFile:     "/proc/mounts",
			Watch:          true,
			Debounce:       250 * time.Millisecond,
			PollInterval:   5 * time.Second,
			LargeDriveSize: 128e9,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
			Command: "notify-send",
			Timeout: 5 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:8099",
			RateLimit:  120,
			RateWindow: time.Minute,
		},
	}
}

// Load builds the configuration: defaults, then the strict YAML file, then
// IMGFLASH_* environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses a YAML file in strict mode; unknown keys are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.Language, f.Language)
	setString(&cfg.DataDir, f.DataDir)

	if w := f.Writer; w != nil {
		setPtr(&cfg.Writer.BufferSize, w.BufferSize)
		setPtr(&cfg.Writer.Verify, w.Verify)
		setPtr(&cfg.Writer.OpenRetries, w.OpenRetries)
		if err := setDuration(&cfg.Writer.ProgressInterval, "writer.progressInterval", w.ProgressInterval); err != nil {
			return err
		}
		if err := setDuration(&cfg.Writer.OpenRetryDelay, "writer.openRetryDelay", w.OpenRetryDelay); err != nil {
			return err
		}
	}
	if d := f.Drives; d != nil {
		setString(&cfg.Drives.SysRoot, d.SysRoot)
		setString(&cfg.Drives.DevRoot, d.DevRoot)
		setString(&cfg.Drives.MountsFile, d.MountsFile)
		setPtr(&cfg.Drives.IncludeSystem, d.IncludeSystem)
		setPtr(&cfg.Drives.Watch, d.Watch)
		setPtr(&cfg.Drives.LargeDriveSize, d.LargeDriveSize)
		setPtr(&cfg.Drives.RecommendedSize, d.RecommendedSize)
		if err := setDuration(&cfg.Drives.Debounce, "drives.debounce", d.Debounce); err != nil {
			return err
		}
		if err := setDuration(&cfg.Drives.PollInterval, "drives.pollInterval", d.PollInterval); err != nil {
			return err
		}
	}
	if n := f.Notifications; n != nil {
		setPtr(&cfg.Notifications.Desktop, n.Desktop)
		setString(&cfg.Notifications.Command, n.Command)
		setString(&cfg.Notifications.IconPath, n.IconPath)
		if err := setDuration(&cfg.Notifications.Timeout, "notifications.timeout", n.Timeout); err != nil {
			return err
		}
	}
	if a := f.Analytics; a != nil {
		setPtr(&cfg.Analytics.Enabled, a.Enabled)
		setPtr(&cfg.Analytics.Persist, a.Persist)
	}
	if t := f.Telemetry; t != nil {
		setPtr(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setPtr(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}
	if a := f.API; a != nil {
		setString(&cfg.API.ListenAddr, a.ListenAddr)
		setPtr(&cfg.API.RateLimit, a.RateLimit)
		if err := setDuration(&cfg.API.RateWindow, "api.rateWindow", a.RateWindow); err != nil {
			return err
		}
	}
	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = ParseString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.Language = ParseString(EnvPrefix+"LANGUAGE", cfg.Language)
	cfg.DataDir = ParseString(EnvPrefix+"DATA_DIR", cfg.DataDir)

	cfg.Writer.BufferSize = ParseInt(EnvPrefix+"WRITER_BUFFER_SIZE", cfg.Writer.BufferSize)
	cfg.Writer.Verify = ParseBool(EnvPrefix+"WRITER_VERIFY", cfg.Writer.Verify)
	cfg.Writer.ProgressInterval = ParseDuration(EnvPrefix+"WRITER_PROGRESS_INTERVAL", cfg.Writer.ProgressInterval)
	cfg.Writer.OpenRetries = ParseInt(EnvPrefix+"WRITER_OPEN_RETRIES", cfg.Writer.OpenRetries)
	cfg.Writer.OpenRetryDelay = ParseDuration(EnvPrefix+"WRITER_OPEN_RETRY_DELAY", cfg.Writer.OpenRetryDelay)

	cfg.Drives.SysRoot = ParseString(EnvPrefix+"DRIVES_SYS_ROOT", cfg.Drives.SysRoot)
	cfg.Drives.DevRoot = ParseString(EnvPrefix+"DRIVES_DEV_ROOT", cfg.Drives.DevRoot)
	cfg.Drives.MountsFile = ParseString(EnvPrefix+"DRIVES_MOUNTS_FILE", cfg.Drives.MountsFile)
	cfg.Drives.IncludeSystem = ParseBool(EnvPrefix+"DRIVES_INCLUDE_SYSTEM", cfg.Drives.IncludeSystem)
	cfg.Drives.Watch = ParseBool(EnvPrefix+"DRIVES_WATCH", cfg.Drives.Watch)
	cfg.Drives.Debounce = ParseDuration(EnvPrefix+"DRIVES_DEBOUNCE", cfg.Drives.Debounce)
	cfg.Drives.PollInterval = ParseDuration(EnvPrefix+"DRIVES_POLL_INTERVAL", cfg.Drives.PollInterval)
	cfg.Drives.LargeDriveSize = ParseUint64(EnvPrefix+"DRIVES_LARGE_SIZE", cfg.Drives.LargeDriveSize)
	cfg.Drives.RecommendedSize = ParseUint64(EnvPrefix+"DRIVES_RECOMMENDED_SIZE", cfg.Drives.RecommendedSize)

	cfg.Notifications.Desktop = ParseBool(EnvPrefix+"NOTIFY_DESKTOP", cfg.Notifications.Desktop)
	cfg.Notifications.Command = ParseString(EnvPrefix+"NOTIFY_COMMAND", cfg.Notifications.Command)
	cfg.Notifications.IconPath = ParseString(EnvPrefix+"NOTIFY_ICON", cfg.Notifications.IconPath)
	cfg.Notifications.Timeout = ParseDuration(EnvPrefix+"NOTIFY_TIMEOUT", cfg.Notifications.Timeout)

	cfg.Analytics.Enabled = ParseBool(EnvPrefix+"ANALYTICS_ENABLED", cfg.Analytics.Enabled)
	cfg.Analytics.Persist = ParseBool(EnvPrefix+"ANALYTICS_PERSIST", cfg.Analytics.Persist)

	cfg.Telemetry.Enabled = ParseBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.API.ListenAddr = ParseString(EnvPrefix+"API_LISTEN", cfg.API.ListenAddr)
	cfg.API.RateLimit = ParseInt(EnvPrefix+"API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.RateWindow = ParseDuration(EnvPrefix+"API_RATE_WINDOW", cfg.API.RateWindow)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, v, err)
	}
	*dst = d
	return nil
}

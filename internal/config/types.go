// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the merged runtime configuration.
type AppConfig struct {
	Version  string
	LogLevel string
	Language string
	DataDir  string

	Writer        WriterConfig
	Drives        DrivesConfig
	Notifications NotificationsConfig
	Analytics     AnalyticsConfig
	Telemetry     TelemetryConfig
	API           APIConfig
}

// WriterConfig tunes the image writer.
type WriterConfig struct {
	BufferSize       int
	Verify           bool
	ProgressInterval time.Duration
	OpenRetries      int
	OpenRetryDelay   time.Duration
}

// DrivesConfig tunes drive enumeration and the compatibility checker.
type DrivesConfig struct {
	SysRoot        string
	DevRoot        string
	MountsFile     string
	IncludeSystem  bool
	Watch          bool
	Debounce       time.Duration
	PollInterval   time.Duration
	LargeDriveSize uint64
	// RecommendedSize is the minimum target size suggested for the image.
	RecommendedSize uint64
}

// NotificationsConfig selects notification sinks.
type NotificationsConfig struct {
	Desktop  bool
	Command  string
	IconPath string
	Timeout  time.Duration
}

// AnalyticsConfig controls usage events and exception reporting.
type AnalyticsConfig struct {
	Enabled bool
	// Persist stores records in DataDir/analytics.db.
	Persist bool
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// APIConfig controls the HTTP status surface.
type APIConfig struct {
	ListenAddr string
	// RateLimit is the per-client request budget per RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

// FileConfig is the on-disk YAML representation. Pointer fields distinguish
// "unset" from zero values.
type FileConfig struct {
	LogLevel string `yaml:"logLevel,omitempty"`
	Language string `yaml:"language,omitempty"`
	DataDir  string `yaml:"dataDir,omitempty"`

	Writer        *WriterFileConfig        `yaml:"writer,omitempty"`
	Drives        *DrivesFileConfig        `yaml:"drives,omitempty"`
	Notifications *NotificationsFileConfig `yaml:"notifications,omitempty"`
	Analytics     *AnalyticsFileConfig     `yaml:"analytics,omitempty"`
	Telemetry     *TelemetryFileConfig     `yaml:"telemetry,omitempty"`
	API           *APIFileConfig           `yaml:"api,omitempty"`
}

type WriterFileConfig struct {
	BufferSize       *int   `yaml:"bufferSize,omitempty"`
	Verify           *bool  `yaml:"verify,omitempty"`
	ProgressInterval string `yaml:"progressInterval,omitempty"`
	OpenRetries      *int   `yaml:"openRetries,omitempty"`
	OpenRetryDelay   string `yaml:"openRetryDelay,omitempty"`
}

type DrivesFileConfig struct {
	SysRoot         string  `yaml:"sysRoot,omitempty"`
	DevRoot         string  `yaml:"devRoot,omitempty"`
	MountsFile      string  `yaml:"mountsFile,omitempty"`
	IncludeSystem   *bool   `yaml:"includeSystem,omitempty"`
	Watch           *bool   `yaml:"watch,omitempty"`
	Debounce        string  `yaml:"debounce,omitempty"`
	PollInterval    string  `yaml:"pollInterval,omitempty"`
	LargeDriveSize  *uint64 `yaml:"largeDriveSize,omitempty"`
	RecommendedSize *uint64 `yaml:"recommendedSize,omitempty"`
}

type NotificationsFileConfig struct {
	Desktop  *bool  `yaml:"desktop,omitempty"`
	Command  string `yaml:"command,omitempty"`
	IconPath string `yaml:"iconPath,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

type AnalyticsFileConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	Persist *bool `yaml:"persist,omitempty"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

type APIFileConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	RateLimit  *int   `yaml:"rateLimit,omitempty"`
	RateWindow string `yaml:"rateWindow,omitempty"`
}

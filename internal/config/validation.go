// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// Validate checks the merged configuration and joins every problem found.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		add("logLevel %q is not a zerolog level", cfg.LogLevel)
	}
	if cfg.DataDir == "" {
		add("dataDir must not be empty")
	}

	if cfg.Writer.BufferSize < 4096 {
		add("writer.bufferSize must be at least 4096, got %d", cfg.Writer.BufferSize)
	}
	if cfg.Writer.ProgressInterval <= 0 {
		add("writer.progressInterval must be positive")
	}
	if cfg.Writer.OpenRetries < 1 {
		add("writer.openRetries must be at least 1, got %d", cfg.Writer.OpenRetries)
	}
	if cfg.Writer.OpenRetryDelay < 0 {
		add("writer.openRetryDelay must not be negative")
	}

	if cfg.Drives.Debounce <= 0 {
		add("drives.debounce must be positive")
	}
	if cfg.Drives.PollInterval < 0 {
		add("drives.pollInterval must not be negative")
	}
	if cfg.Drives.LargeDriveSize == 0 {
		add("drives.largeDriveSize must be positive")
	}

	if cfg.Notifications.Desktop && cfg.Notifications.Command == "" {
		add("notifications.command is required when desktop notifications are enabled")
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			add("telemetry.exporter must be grpc or http, got %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			add("telemetry.endpoint is required when telemetry is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		add("telemetry.samplingRate must be within [0, 1], got %v", cfg.Telemetry.SamplingRate)
	}

	if _, _, err := net.SplitHostPort(cfg.API.ListenAddr); err != nil {
		add("api.listenAddr %q: %v", cfg.API.ListenAddr, err)
	}
	if cfg.API.RateLimit < 0 {
		add("api.rateLimit must not be negative")
	}
	if cfg.API.RateLimit > 0 && cfg.API.RateWindow <= 0 {
		add("api.rateWindow must be positive when rate limiting is enabled")
	}

	return errors.Join(errs...)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus collectors of the flash pipeline.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flashAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_flash_attempts_total",
		Help: "Total number of flash attempts by result",
	}, []string{"result"})

	flashErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_flash_errors_total",
		Help: "Total number of writer errors by code",
	}, []string{"code"})

	driveWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_drive_warnings_total",
		Help: "Total number of drive compatibility warnings shown, by kind",
	}, []string{"kind"})

	stateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_state_transitions_total",
		Help: "Total number of flash state machine transitions",
	}, []string{"from", "to"})

	deviceResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_device_results_total",
		Help: "Total number of per-device flash results",
	}, []string{"result"})

	bytesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgflash_bytes_written_total",
		Help: "Total number of bytes written to target devices",
	})

	flashing = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "imgflash_flashing",
		Help: "1 while a flash is in progress",
	})
)

// RecordAttempt counts one finished attempt. result is one of
// succeeded, failed, cancelled, skipped.
func RecordAttempt(result string) {
	flashAttemptsTotal.WithLabelValues(normalizeResult(result)).Inc()
}

// RecordFlashError counts a writer error by code.
func RecordFlashError(code string) {
	flashErrorsTotal.WithLabelValues(normalizeCode(code)).Inc()
}

// RecordDriveWarning counts a compatibility warning of the given kind.
func RecordDriveWarning(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	driveWarningsTotal.WithLabelValues(kind).Inc()
}

// RecordTransition counts a state machine edge.
func RecordTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordDeviceResults counts per-device results of one flash.
func RecordDeviceResults(successful, failed int) {
	if successful > 0 {
		deviceResultsTotal.WithLabelValues("successful").Add(float64(successful))
	}
	if failed > 0 {
		deviceResultsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}

// AddBytesWritten adds n written bytes.
func AddBytesWritten(n uint64) {
	bytesWrittenTotal.Add(float64(n))
}

// SetFlashing toggles the in-progress gauge.
func SetFlashing(active bool) {
	if active {
		flashing.Set(1)
		return
	}
	flashing.Set(0)
}

func normalizeResult(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "succeeded", "failed", "cancelled", "skipped":
		return strings.ToLower(strings.TrimSpace(result))
	default:
		return "unknown"
	}
}

func normalizeCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "EVALIDATION", "EUNPLUGGED", "EIO", "ENOSPC", "ECHILDDIED":
		return strings.ToUpper(strings.TrimSpace(code))
	default:
		return "unclassified"
	}
}

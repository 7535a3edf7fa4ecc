// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "time"

// DeviceTally counts per-device results of one flash.
type DeviceTally struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Total is the number of devices that reported a result.
func (t DeviceTally) Total() int {
	return t.Successful + t.Failed
}

// DeviceError records the failure of a single target.
type DeviceError struct {
	Device string `json:"device"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// Outcome is the aggregate result of one flash across all targets.
type Outcome struct {
	Devices      DeviceTally   `json:"devices"`
	Skipped      bool          `json:"skipped"`
	Cancelled    bool          `json:"cancelled"`
	Errors       []DeviceError `json:"errors,omitempty"`
	BytesWritten uint64        `json:"bytesWritten"`
	AverageSpeed float64       `json:"averageSpeed"`
	Duration     time.Duration `json:"duration"`
}

// Step is the phase reported by the writer while flashing.
type Step string

const (
	StepDecompressing Step = "decompressing"
	StepFlashing      Step = "flashing"
	StepVerifying     Step = "verifying"
)

// Progress is the live state of an ongoing flash.
type Progress struct {
	Step       Step     `json:"step"`
	Percentage float64  `json:"percentage"`
	Position   uint64   `json:"position"`
	Active     int      `json:"active"`
	Failed     int      `json:"failed"`
	Speed      *float64 `json:"speed,omitempty"`
	ETA        *float64 `json:"eta,omitempty"`
}

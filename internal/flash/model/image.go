// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the data types shared by the flash orchestrator and
// its collaborators.
package model

import "path/filepath"

// Image is the source image selected for flashing.
type Image struct {
	Path         string `json:"path"`
	Size         uint64 `json:"size"`
	Checksum     string `json:"checksum,omitempty"`
	ChecksumType string `json:"checksumType,omitempty"`
}

// Basename returns the final path element of the image path.
func (i Image) Basename() string {
	if i.Path == "" {
		return ""
	}
	return filepath.Base(i.Path)
}

// Drive is a target storage device.
type Drive struct {
	Device      string   `json:"device"`
	DevicePath  string   `json:"devicePath,omitempty"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Size        uint64   `json:"size"`
	Mountpoints []string `json:"mountpoints,omitempty"`
	IsSystem    bool     `json:"isSystem"`
	IsRemovable bool     `json:"isRemovable"`
	IsReadOnly  bool     `json:"isReadOnly"`
	IsUSB       bool     `json:"isUSB"`
}

// WritePath is the filesystem path the writer opens for this drive.
func (d Drive) WritePath() string {
	if d.DevicePath != "" {
		return d.DevicePath
	}
	return d.Device
}

// Label is the human description used in notifications: "desc (name)".
func (d Drive) Label() string {
	switch {
	case d.Description != "" && d.DisplayName != "":
		return d.Description + " (" + d.DisplayName + ")"
	case d.Description != "":
		return d.Description
	case d.DisplayName != "":
		return d.DisplayName
	default:
		return d.Device
	}
}

// FlashRequest is built once per attempt from the current selection.
type FlashRequest struct {
	AttemptID string
	Image     Image
	Drives    []Drive
}

// Devices lists the device identifiers of the request.
func (r FlashRequest) Devices() []string {
	out := make([]string, 0, len(r.Drives))
	for _, d := range r.Drives {
		out = append(out, d.Device)
	}
	return out
}

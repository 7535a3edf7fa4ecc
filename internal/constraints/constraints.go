// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package constraints evaluates whether a drive is a safe target for an image.
package constraints

import (
	"path/filepath"
	"strings"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

const (
	// DefaultLargeDriveSize is the size above which a drive is flagged as large.
	DefaultLargeDriveSize uint64 = 128e9
)

// Config tunes the checker thresholds.
type Config struct {
	LargeDriveSize uint64
	// RecommendedSize is the minimum drive size suggested by the image
	// publisher; zero disables the check.
	RecommendedSize uint64
}

// Checker evaluates drive/image compatibility.
type Checker struct {
	cfg Config
}

// New returns a checker; a zero LargeDriveSize selects the default.
func New(cfg Config) *Checker {
	if cfg.LargeDriveSize == 0 {
		cfg.LargeDriveSize = DefaultLargeDriveSize
	}
	return &Checker{cfg: cfg}
}

// IsDriveLocked reports whether the drive is write protected.
func IsDriveLocked(d model.Drive) bool {
	return d.IsReadOnly
}

// IsSystemDrive reports whether the drive hosts the running system.
func IsSystemDrive(d model.Drive) bool {
	return d.IsSystem
}

// IsSourceDrive reports whether the image file lives on one of the drive's
// mountpoints.
func IsSourceDrive(d model.Drive, img *model.Image) bool {
	if img == nil || img.Path == "" {
		return false
	}
	imgPath := filepath.Clean(img.Path)
	for _, mp := range d.Mountpoints {
		mp = filepath.Clean(mp)
		if mp == "/" {
			// Root contains everything; only a system drive can own it.
			if d.IsSystem {
				return true
			}
			continue
		}
		if imgPath == mp || strings.HasPrefix(imgPath, mp+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// IsDriveLargeEnough reports whether the image fits on the drive.
func IsDriveLargeEnough(d model.Drive, img *model.Image) bool {
	if img == nil {
		return true
	}
	return d.Size >= img.Size
}

// IsDriveSizeLarge reports whether the drive exceeds the large threshold.
func (c *Checker) IsDriveSizeLarge(d model.Drive) bool {
	return d.Size > c.cfg.LargeDriveSize
}

// IsDriveSizeRecommended reports whether the drive meets the recommended size.
func (c *Checker) IsDriveSizeRecommended(d model.Drive, img *model.Image) bool {
	if img == nil || c.cfg.RecommendedSize == 0 {
		return true
	}
	return d.Size >= c.cfg.RecommendedSize
}

// IsDriveValid reports whether the drive may be selected as a target at all.
func (c *Checker) IsDriveValid(d model.Drive, img *model.Image, write bool) bool {
	if write && IsDriveLocked(d) {
		return false
	}
	return IsDriveLargeEnough(d, img) && !IsSourceDrive(d, img)
}

// Statuses returns the compatibility statuses of drive for img. img may be
// nil, in which case only drive-intrinsic statuses are reported. strict
// treats a locked drive as an error.
func (c *Checker) Statuses(d model.Drive, img *model.Image, strict bool) []model.DriveStatus {
	var out []model.DriveStatus

	if strict && IsDriveLocked(d) {
		out = append(out, model.DriveStatus{Kind: model.StatusLocked, Type: model.StatusTypeError, Message: "Locked"})
	}
	if !IsDriveLargeEnough(d, img) {
		out = append(out, model.DriveStatus{Kind: model.StatusSmall, Type: model.StatusTypeError, Message: "Too small"})
	} else {
		if IsSystemDrive(d) {
			out = append(out, model.DriveStatus{Kind: model.StatusSystem, Type: model.StatusTypeWarning, Message: "System drive"})
		}
		if c.IsDriveSizeLarge(d) {
			out = append(out, model.DriveStatus{Kind: model.StatusLarge, Type: model.StatusTypeWarning, Message: "Large drive"})
		}
	}
	if IsSourceDrive(d, img) {
		out = append(out, model.DriveStatus{Kind: model.StatusContainsImage, Type: model.StatusTypeError, Message: "Source drive"})
	}
	if !c.IsDriveSizeRecommended(d, img) {
		out = append(out, model.DriveStatus{Kind: model.StatusSizeNotRecommended, Type: model.StatusTypeWarning, Message: "Not recommended"})
	}
	return out
}

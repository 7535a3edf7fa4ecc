// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

// Writer performs the physical write.
type Writer interface {
	Flash(ctx context.Context, img model.Image, drives []model.Drive) error
	Cancel()
}

// FlashState is the flash-in-progress flag and last outcome.
type FlashState interface {
	IsFlashing() bool
	WasLastFlashCancelled() bool
	Results() model.Outcome
	Reset()
}

// Selection is the selected image and target devices.
type Selection interface {
	Image() (model.Image, bool)
	SelectedDevices() []string
	SelectedDrives() []model.Drive
	SelectAll(devices []string)
	Clear()
}

// DriveList is the last enumeration result.
type DriveList interface {
	Drives() []model.Drive
	Set(drives []model.Drive)
}

// Checker reports compatibility statuses for a drive.
type Checker interface {
	Statuses(d model.Drive, img *model.Image, strict bool) []model.DriveStatus
}

// Notifier sends fire-and-forget OS notifications.
type Notifier interface {
	Send(title, body, icon string)
}

// Analytics records usage events and diagnostic exceptions.
type Analytics interface {
	LogEvent(name string, data map[string]string)
	LogException(err error)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

var (
	// ErrAlreadyFlashing is returned when Flash is called during a flash.
	ErrAlreadyFlashing = errors.New("a flash is already in progress")
	// ErrNoTargets is returned when Flash is called without drives.
	ErrNoTargets = errors.New("no target drives")
	// errChecksumMismatch marks a read-back verification failure.
	errChecksumMismatch = errors.New("checksum mismatch after write")
)

// CodeUnknown tags target errors that match no known class.
const CodeUnknown = "EUNKNOWN"

// classify maps an OS-level failure on device onto a tagged FlashError.
func classify(device string, err error) *model.FlashError {
	var fe *model.FlashError
	if errors.As(err, &fe) {
		return fe
	}
	code := CodeUnknown
	switch {
	case errors.Is(err, errChecksumMismatch):
		code = model.CodeValidation
	case errors.Is(err, syscall.ENOSPC), errors.Is(err, io.ErrShortWrite):
		code = model.CodeNoSpace
	case errors.Is(err, syscall.EIO):
		code = model.CodeIO
	case errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO), errors.Is(err, os.ErrNotExist):
		code = model.CodeUnplugged
	}
	return model.NewFlashError(code, device, err)
}

// sourceFailure tags a failure reading the image while writing device.
// It is never classified by errno: a vanished image is not an unplugged
// drive.
func sourceFailure(device string, err error) *model.FlashError {
	return model.NewFlashError(CodeUnknown, device, err)
}

// childDied converts a recovered worker panic into a FlashError.
func childDied(device string, recovered any) *model.FlashError {
	return model.NewFlashError(model.CodeChildDied, device, fmt.Errorf("writer worker died: %v", recovered))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"errors"

	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/ManuGH/imgflash/internal/messages"
)

// messageForCode returns the localized message of a known writer error
// code, or "" when the code is not recognised.
func messageForCode(msgs *messages.Messages, code string) string {
	switch code {
	case model.CodeValidation:
		return msgs.Validation()
	case model.CodeUnplugged:
		return msgs.DriveUnplugged()
	case model.CodeIO:
		return msgs.InputOutput()
	case model.CodeNoSpace:
		return msgs.NotEnoughSpaceInDrive()
	case model.CodeChildDied:
		return msgs.ChildWriterDied()
	default:
		return ""
	}
}

// withImage attaches the image basename to err for diagnostics.
func withImage(err error, basename string) error {
	var fe *model.FlashError
	if errors.As(err, &fe) {
		fe.Image = basename
		return err
	}
	return &model.FlashError{Message: err.Error(), Image: basename, Err: err}
}

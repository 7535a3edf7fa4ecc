// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"errors"
	"fmt"
)

// Machine-readable writer error codes.
const (
	CodeValidation = "EVALIDATION"
	CodeUnplugged  = "EUNPLUGGED"
	CodeIO         = "EIO"
	CodeNoSpace    = "ENOSPC"
	CodeChildDied  = "ECHILDDIED"
)

// FlashError is a tagged writer error.
type FlashError struct {
	Code    string
	Message string
	Device  string
	// Image is the image basename, attached for diagnostics when the code
	// is not recognised.
	Image string
	Err   error
}

func (e *FlashError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Code == "":
		return msg
	case e.Device != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Device, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

func (e *FlashError) Unwrap() error { return e.Err }

// NewFlashError builds a FlashError wrapping cause.
func NewFlashError(code, device string, cause error) *FlashError {
	fe := &FlashError{Code: code, Device: device, Err: cause}
	if cause != nil {
		fe.Message = cause.Error()
	}
	return fe
}

// ErrorCode extracts the code of a FlashError anywhere in err's chain.
func ErrorCode(err error) string {
	var fe *FlashError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messages

import (
	"strings"

	"github.com/ManuGH/imgflash/internal/flash/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	builder   = newCatalog()
	supported = []language.Tag{language.English, language.German}
	matcher   = language.NewMatcher(supported)
)

// Messages renders texts in one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns messages for the BCP 47 language tag lang.
// Unknown or empty tags fall back to English.
func New(lang string) *Messages {
	tag := language.English
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			tag = parsed
		}
	}
	_, idx, _ := matcher.Match(tag)
	tag = supported[idx]
	return &Messages{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// Language is the resolved language tag.
func (m *Messages) Language() language.Tag { return m.tag }

func (m *Messages) FlashCompleteTitle() string { return m.printer.Sprintf(keyFlashCompleteTitle) }

func (m *Messages) FlashFailureTitle() string { return m.printer.Sprintf(keyFlashFailureTitle) }

// FlashComplete describes a finished flash with its per-device tally.
func (m *Messages) FlashComplete(imageBasename string, drives []model.Drive, devices model.DeviceTally) string {
	if devices.Total() == 1 && len(drives) > 0 && devices.Successful == 1 {
		return m.printer.Sprintf(keyFlashedToOne, imageBasename, drives[0].Label())
	}
	var parts []string
	if devices.Successful > 0 {
		parts = append(parts, m.printer.Sprintf(keyFlashedToMany, imageBasename, devices.Successful))
	} else {
		parts = append(parts, m.printer.Sprintf(keyFlashedNone, imageBasename))
	}
	if devices.Failed > 0 {
		parts = append(parts, m.printer.Sprintf(keyAndFailedMany, devices.Failed))
	}
	return strings.Join(parts, " ")
}

// FlashFailure describes a failed flash of imageBasename onto drives.
func (m *Messages) FlashFailure(imageBasename string, drives []model.Drive) string {
	if len(drives) == 1 {
		return m.printer.Sprintf(keyFlashFailure, imageBasename, drives[0].Label())
	}
	return m.printer.Sprintf(keyFlashFailureMany, imageBasename, len(drives))
}

func (m *Messages) Validation() string { return m.printer.Sprintf(keyValidation) }

func (m *Messages) DriveUnplugged() string { return m.printer.Sprintf(keyDriveUnplugged) }

func (m *Messages) InputOutput() string { return m.printer.Sprintf(keyInputOutput) }

func (m *Messages) NotEnoughSpaceInDrive() string { return m.printer.Sprintf(keyNotEnoughSpace) }

func (m *Messages) ChildWriterDied() string { return m.printer.Sprintf(keyChildWriterDied) }

// GenericFlashError wraps an unclassified error message.
func (m *Messages) GenericFlashError(err error) string {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return m.printer.Sprintf(keyGenericFlashError, detail)
}

// FailedTargets is the progress caption for failed devices.
func (m *Messages) FailedTargets(n int) string { return m.printer.Sprintf(keyFailedTargets, n) }

func (m *Messages) SpeedShort(speed string) string { return m.printer.Sprintf(keySpeedShort, speed) }

func (m *Messages) ETA(eta string) string { return m.printer.Sprintf(keyETA, eta) }

// DriveWarning is the body of the confirmation dialog.
func (m *Messages) DriveWarning(system bool) string {
	if system {
		return m.printer.Sprintf(keyWarningSystem)
	}
	return m.printer.Sprintf(keyWarningLarge)
}

func (m *Messages) WarningContinue() string { return m.printer.Sprintf(keyWarningContinue) }

func (m *Messages) WarningChangeTarget() string { return m.printer.Sprintf(keyWarningChange) }

func (m *Messages) ErrorTitle() string { return m.printer.Sprintf(keyErrorTitle) }

func (m *Messages) Retry() string { return m.printer.Sprintf(keyRetry) }

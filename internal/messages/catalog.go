// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package messages renders the user-facing texts of the flash step.
package messages

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// Message keys. Keys double as the English source text.
const (
	keyFlashCompleteTitle = "Flash complete!"
	keyFlashFailureTitle  = "Oops! Looks like the flash failed."
	keyFlashedToOne       = "%[1]s was successfully flashed to %[2]s"
	keyFlashedToMany      = "%[1]s was successfully flashed to %[2]d targets"
	keyFlashedNone        = "%[1]s was not flashed"
	keyAndFailedMany      = "and failed to be flashed to %[1]d targets"
	keyFlashFailure       = "Something went wrong while writing %[1]s to %[2]s."
	keyFlashFailureMany   = "Something went wrong while writing %[1]s to %[2]d targets."
	keyValidation         = "The write has been completed successfully but corruption was detected when reading the image back from the drive.\n\nPlease consider writing the image to a different drive."
	keyDriveUnplugged     = "Looks like the drive was lost. Did it get unplugged accidentally?\n\nSometimes this error is caused by faulty readers that don't provide stable access to the drive."
	keyInputOutput        = "Looks like the drive cannot be written at this location. This error is usually caused by a faulty drive, reader, or port.\n\nPlease try again with another drive, reader, or port."
	keyNotEnoughSpace     = "Not enough space on the drive. Please insert larger one and try again."
	keyChildWriterDied    = "The writer process ended unexpectedly. Please try again, and contact the maintainers if the problem persists."
	keyGenericFlashError  = "Something went wrong. If it is a compressed image, please check that the archive is not corrupted.\n%[1]s"
	keyFailedTargets      = "%[1]d failed targets"
	keySpeedShort         = "%[1]s MB/s"
	keyETA                = "ETA: %[1]s"
	keyWarningSystem      = "You are about to erase a system drive. Continuing may leave the machine unable to boot."
	keyWarningLarge       = "You are about to erase an unusually large drive. Make sure it is the drive you intend to flash."
	keyWarningContinue    = "Yes, continue"
	keyWarningChange      = "Change target"
	keyErrorTitle         = "Attention"
	keyRetry              = "Retry"
)

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	en := language.English
	setString(b, en, keyFlashCompleteTitle, keyFlashCompleteTitle)
	setString(b, en, keyFlashFailureTitle, keyFlashFailureTitle)
	setString(b, en, keyFlashedToOne, keyFlashedToOne)
	set(b, en, keyFlashedToMany, plural.Selectf(2, "%d",
		"=1", "%[1]s was successfully flashed to %[2]d target",
		"other", "%[1]s was successfully flashed to %[2]d targets",
	))
	setString(b, en, keyFlashedNone, keyFlashedNone)
	set(b, en, keyAndFailedMany, plural.Selectf(1, "%d",
		"=1", "and failed to be flashed to %[1]d target",
		"other", "and failed to be flashed to %[1]d targets",
	))
	setString(b, en, keyFlashFailure, keyFlashFailure)
	setString(b, en, keyFlashFailureMany, keyFlashFailureMany)
	setString(b, en, keyValidation, keyValidation)
	setString(b, en, keyDriveUnplugged, keyDriveUnplugged)
	setString(b, en, keyInputOutput, keyInputOutput)
	setString(b, en, keyNotEnoughSpace, keyNotEnoughSpace)
	setString(b, en, keyChildWriterDied, keyChildWriterDied)
	setString(b, en, keyGenericFlashError, keyGenericFlashError)
	set(b, en, keyFailedTargets, plural.Selectf(1, "%d",
		"=1", "%[1]d failed target",
		"other", "%[1]d failed targets",
	))
	setString(b, en, keySpeedShort, keySpeedShort)
	setString(b, en, keyETA, keyETA)
	setString(b, en, keyWarningSystem, keyWarningSystem)
	setString(b, en, keyWarningLarge, keyWarningLarge)
	setString(b, en, keyWarningContinue, keyWarningContinue)
	setString(b, en, keyWarningChange, keyWarningChange)
	setString(b, en, keyErrorTitle, keyErrorTitle)
	setString(b, en, keyRetry, keyRetry)

	de := language.German
	setString(b, de, keyFlashCompleteTitle, "Flashen abgeschlossen!")
	setString(b, de, keyFlashFailureTitle, "Hoppla! Das Flashen ist fehlgeschlagen.")
	setString(b, de, keyFlashedToOne, "%[1]s wurde erfolgreich auf %[2]s geschrieben")
	set(b, de, keyFlashedToMany, plural.Selectf(2, "%d",
		"=1", "%[1]s wurde erfolgreich auf %[2]d Ziel geschrieben",
		"other", "%[1]s wurde erfolgreich auf %[2]d Ziele geschrieben",
	))
	setString(b, de, keyFlashedNone, "%[1]s wurde nicht geschrieben")
	set(b, de, keyAndFailedMany, plural.Selectf(1, "%d",
		"=1", "und konnte auf %[1]d Ziel nicht geschrieben werden",
		"other", "und konnte auf %[1]d Ziele nicht geschrieben werden",
	))
	setString(b, de, keyFlashFailure, "Beim Schreiben von %[1]s auf %[2]s ist ein Fehler aufgetreten.")
	setString(b, de, keyFlashFailureMany, "Beim Schreiben von %[1]s auf %[2]d Ziele ist ein Fehler aufgetreten.")
	setString(b, de, keyValidation, "Der Schreibvorgang wurde abgeschlossen, beim Zurücklesen wurden jedoch Beschädigungen festgestellt.\n\nBitte verwende ein anderes Laufwerk.")
	setString(b, de, keyDriveUnplugged, "Der Zugriff auf das Laufwerk ging verloren. Wurde es versehentlich entfernt?\n\nManchmal liegt die Ursache bei fehlerhaften Kartenlesern.")
	setString(b, de, keyInputOutput, "An diese Stelle des Laufwerks kann nicht geschrieben werden. Meist ist ein defektes Laufwerk, Lesegerät oder Anschluss die Ursache.\n\nBitte versuche es mit einem anderen Laufwerk, Lesegerät oder Anschluss.")
	setString(b, de, keyNotEnoughSpace, "Nicht genügend Platz auf dem Laufwerk. Bitte verwende ein größeres und versuche es erneut.")
	setString(b, de, keyChildWriterDied, "Der Schreibprozess wurde unerwartet beendet. Bitte versuche es erneut.")
	setString(b, de, keyGenericFlashError, "Etwas ist schiefgelaufen. Falls es sich um ein komprimiertes Abbild handelt, prüfe bitte, ob das Archiv beschädigt ist.\n%[1]s")
	set(b, de, keyFailedTargets, plural.Selectf(1, "%d",
		"=1", "%[1]d fehlgeschlagenes Ziel",
		"other", "%[1]d fehlgeschlagene Ziele",
	))
	setString(b, de, keySpeedShort, "%[1]s MB/s")
	setString(b, de, keyETA, "Restzeit: %[1]s")
	setString(b, de, keyWarningSystem, "Du bist dabei, ein Systemlaufwerk zu löschen. Danach startet der Rechner möglicherweise nicht mehr.")
	setString(b, de, keyWarningLarge, "Du bist dabei, ein ungewöhnlich großes Laufwerk zu löschen. Stelle sicher, dass es das richtige Laufwerk ist.")
	setString(b, de, keyWarningContinue, "Ja, fortfahren")
	setString(b, de, keyWarningChange, "Ziel ändern")
	setString(b, de, keyErrorTitle, "Achtung")
	setString(b, de, keyRetry, "Erneut versuchen")

	return b
}

// Catalog construction only fails on malformed selectors, which are static.
func setString(b *catalog.Builder, tag language.Tag, key, msg string) {
	if err := b.SetString(tag, key, msg); err != nil {
		panic(err)
	}
}

func set(b *catalog.Builder, tag language.Tag, key string, msg catalog.Message) {
	if err := b.Set(tag, key, msg); err != nil {
		panic(err)
	}
}

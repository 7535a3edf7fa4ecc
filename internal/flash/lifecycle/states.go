// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lifecycle defines the flash attempt state machine.
package lifecycle

// State is a phase of a flash attempt as seen by the UI.
type State string

const (
	StateIdle           State = "idle"
	StateWarningPending State = "warning_pending"
	StateFlashing       State = "flashing"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
	StateCancelled      State = "cancelled"
)

// IsFinished reports whether the attempt has left Flashing.
func (s State) IsFinished() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Event drives a transition.
type Event string

const (
	EvWarn        Event = "warn"
	EvStart       Event = "start"
	EvConfirm     Event = "confirm"
	EvDecline     Event = "decline"
	EvAbandon     Event = "abandon" // nothing left to flash after a warning
	EvSucceed     Event = "succeed"
	EvFail        Event = "fail"
	EvCancel      Event = "cancel"
	EvAcknowledge Event = "acknowledge"
	EvRetry       Event = "retry"
	EvDismiss     Event = "dismiss"
)

// States lists every state, in declaration order.
func States() []State {
	return []State{StateIdle, StateWarningPending, StateFlashing, StateSucceeded, StateFailed, StateCancelled}
}

// Events lists every event, in declaration order.
func Events() []Event {
	return []Event{EvWarn, EvStart, EvConfirm, EvDecline, EvAbandon, EvSucceed, EvFail, EvCancel, EvAcknowledge, EvRetry, EvDismiss}
}

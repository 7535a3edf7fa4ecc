// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import "github.com/ManuGH/imgflash/internal/fsm"

// Edge is a single allowed edge in the attempt state machine.
type Edge struct {
	From  State
	Event Event
	To    State
}

var transitionsTable = []Edge{
	// Attempt start
	{From: StateIdle, Event: EvWarn, To: StateWarningPending},
	{From: StateIdle, Event: EvStart, To: StateFlashing},

	// Warning dialog
	{From: StateWarningPending, Event: EvConfirm, To: StateFlashing},
	{From: StateWarningPending, Event: EvDecline, To: StateIdle},
	{From: StateWarningPending, Event: EvAbandon, To: StateIdle},

	// Writer resolution
	{From: StateFlashing, Event: EvSucceed, To: StateSucceeded},
	{From: StateFlashing, Event: EvFail, To: StateFailed},
	{From: StateFlashing, Event: EvCancel, To: StateCancelled},

	// Back to idle
	{From: StateSucceeded, Event: EvAcknowledge, To: StateIdle},
	{From: StateCancelled, Event: EvAcknowledge, To: StateIdle},
	{From: StateFailed, Event: EvRetry, To: StateIdle},
	{From: StateFailed, Event: EvDismiss, To: StateIdle},
}

// EdgeFor returns the allowed edge for a given state+event.
func EdgeFor(from State, ev Event) (Edge, bool) {
	for _, e := range transitionsTable {
		if e.From == from && e.Event == ev {
			return e, true
		}
	}
	return Edge{}, false
}

// NewMachine returns a machine in StateIdle loaded with the transitions table.
func NewMachine() (*fsm.Machine[State, Event], error) {
	edges := make([]fsm.Transition[State, Event], 0, len(transitionsTable))
	for _, e := range transitionsTable {
		edges = append(edges, fsm.Transition[State, Event]{From: e.From, Event: e.Event, To: e.To})
	}
	return fsm.New(StateIdle, edges)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package appstate owns the mutable application state of the flash step:
// the current selection, the enumerated drives and the flash state.
// All access goes through methods; nothing is package-global.
package appstate

// State bundles the three stores the orchestrator works with.
type State struct {
	Selection *Selection
	Drives    *AvailableDrives
	Flash     *FlashState
}

// New returns an empty application state.
func New() *State {
	drives := NewAvailableDrives()
	return &State{
		Selection: NewSelection(drives),
		Drives:    drives,
		Flash:     NewFlashState(),
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package appstate

import (
	"sync"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

// FlashState tracks whether a flash is running and what the last one produced.
type FlashState struct {
	mu            sync.RWMutex
	flashing      bool
	lastCancelled bool
	results       model.Outcome
	progress      model.Progress
}

func NewFlashState() *FlashState {
	return &FlashState{}
}

// SetFlashing marks a flash as started and clears the previous outcome.
// It returns false when a flash is already running.
func (f *FlashState) SetFlashing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flashing {
		return false
	}
	f.flashing = true
	f.lastCancelled = false
	f.results = model.Outcome{}
	f.progress = model.Progress{Step: model.StepFlashing}
	return true
}

// UnsetFlashing records the outcome of the finished flash.
// userCancelled is true only when the user explicitly aborted.
func (f *FlashState) UnsetFlashing(results model.Outcome, userCancelled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashing = false
	f.lastCancelled = userCancelled
	f.results = results
	f.progress.Speed = nil
	f.progress.ETA = nil
}

func (f *FlashState) IsFlashing() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flashing
}

func (f *FlashState) WasLastFlashCancelled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastCancelled
}

// Results returns the outcome of the last finished flash.
func (f *FlashState) Results() model.Outcome {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.results
}

// SetProgress publishes live progress while flashing.
func (f *FlashState) SetProgress(p model.Progress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.flashing {
		return
	}
	f.progress = p
}

// Progress returns the most recent progress.
func (f *FlashState) Progress() model.Progress {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.progress
}

// Reset clears results and progress. A running flash is left alone.
func (f *FlashState) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flashing {
		return
	}
	f.lastCancelled = false
	f.results = model.Outcome{}
	f.progress = model.Progress{}
}

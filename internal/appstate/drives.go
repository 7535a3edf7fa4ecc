// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package appstate

import (
	"slices"
	"sync"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

// AvailableDrives holds the last enumeration result.
type AvailableDrives struct {
	mu       sync.RWMutex
	drives   []model.Drive
	revision uint64
}

func NewAvailableDrives() *AvailableDrives {
	return &AvailableDrives{}
}

// Set replaces the enumerated drives. Set(nil) forces re-enumeration.
func (a *AvailableDrives) Set(drives []model.Drive) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.drives = slices.Clone(drives)
	a.revision++
}

// Drives returns a copy of the enumerated drives.
func (a *AvailableDrives) Drives() []model.Drive {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.drives)
}

// Lookup finds an enumerated drive by device id.
func (a *AvailableDrives) Lookup(device string) (model.Drive, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, d := range a.drives {
		if d.Device == device {
			return d, true
		}
	}
	return model.Drive{}, false
}

// Revision increments on every Set.
func (a *AvailableDrives) Revision() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.revision
}

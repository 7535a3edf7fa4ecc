// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package appstate

import (
	"slices"
	"sync"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

// Selection holds the selected image and target device ids.
// Device ids survive re-enumeration; SelectedDrives joins them with the
// currently available drives.
type Selection struct {
	mu      sync.RWMutex
	image   *model.Image
	devices []string
	drives  *AvailableDrives
}

func NewSelection(drives *AvailableDrives) *Selection {
	return &Selection{drives: drives}
}

// SetImage selects the source image.
func (s *Selection) SetImage(img model.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = &img
}

// Image returns the selected image, if any.
func (s *Selection) Image() (model.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.image == nil {
		return model.Image{}, false
	}
	return *s.image, true
}

// SelectDrive adds device to the selection; duplicates are ignored.
func (s *Selection) SelectDrive(device string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.devices, device) {
		s.devices = append(s.devices, device)
	}
}

// DeselectDrive removes device from the selection.
func (s *Selection) DeselectDrive(device string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = slices.DeleteFunc(s.devices, func(d string) bool { return d == device })
}

// SelectAll replaces the selected devices.
func (s *Selection) SelectAll(devices []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = s.devices[:0]
	for _, d := range devices {
		if !slices.Contains(s.devices, d) {
			s.devices = append(s.devices, d)
		}
	}
}

// SelectedDevices returns the selected device ids in selection order.
func (s *Selection) SelectedDevices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.devices)
}

// IsSelected reports whether device is selected.
func (s *Selection) IsSelected(device string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.devices, device)
}

// SelectedDrives returns the selected devices that are currently available.
func (s *Selection) SelectedDrives() []model.Drive {
	devices := s.SelectedDevices()
	out := make([]model.Drive, 0, len(devices))
	for _, d := range devices {
		if drive, ok := s.drives.Lookup(d); ok {
			out = append(out, drive)
		}
	}
	return out
}

// Clear drops the image and all selected devices.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	s.devices = nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// StatusKind identifies a compatibility warning about a target drive.
type StatusKind string

const (
	StatusLocked             StatusKind = "locked"
	StatusSystem             StatusKind = "system"
	StatusContainsImage      StatusKind = "containsImage"
	StatusLarge              StatusKind = "large"
	StatusSmall              StatusKind = "small"
	StatusSizeNotRecommended StatusKind = "sizeNotRecommended"
)

// StatusType is the severity of a DriveStatus.
type StatusType string

const (
	StatusTypeWarning StatusType = "warning"
	StatusTypeError   StatusType = "error"
)

// DriveStatus is an advisory compatibility note for one drive.
type DriveStatus struct {
	Kind    StatusKind `json:"kind"`
	Type    StatusType `json:"type"`
	Message string     `json:"message"`
}

// HasStatus reports whether statuses contains kind.
func HasStatus(statuses []DriveStatus, kind StatusKind) bool {
	for _, s := range statuses {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// DriveWithWarnings pairs a drive with its evaluated statuses.
type DriveWithWarnings struct {
	Drive
	Statuses []DriveStatus `json:"statuses"`
}

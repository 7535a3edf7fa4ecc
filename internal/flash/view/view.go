// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package view projects orchestrator state and writer progress into a
// render-ready model. It holds no state of its own.
package view

import (
	"strconv"
	"strings"

	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/ManuGH/imgflash/internal/flash/orchestrator"
	"github.com/ManuGH/imgflash/internal/messages"
	"github.com/ManuGH/imgflash/internal/util"
)

const (
	completedPercentage = 100
	speedPrecision      = 2
)

// Input collects everything the projection reads.
type Input struct {
	Snapshot orchestrator.Snapshot
	Progress model.Progress
	Flashing bool
	HasImage bool
	Selected []model.Drive
}

// Button is the progress button.
type Button struct {
	Type       model.Step `json:"type"`
	Active     bool       `json:"active"`
	Percentage float64    `json:"percentage"`
	Position   uint64     `json:"position"`
	Disabled   bool       `json:"disabled"`
	Warning    bool       `json:"warning"`
}

// DriveWarning is one row of the warning dialog.
type DriveWarning struct {
	Device   string   `json:"device"`
	Label    string   `json:"label"`
	Statuses []string `json:"statuses"`
}

// WarningModal asks the user to confirm risky targets.
type WarningModal struct {
	System   bool           `json:"system"`
	Message  string         `json:"message"`
	Continue string         `json:"continue"`
	Change   string         `json:"change"`
	Drives   []DriveWarning `json:"drives"`
}

// ErrorModal offers retry after a failed flash.
type ErrorModal struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
	Retry string   `json:"retry"`
}

// Model is the render-ready projection.
type Model struct {
	State             string         `json:"state"`
	AttemptID         string         `json:"attemptId,omitempty"`
	Button            Button         `json:"button"`
	Speed             string         `json:"speed,omitempty"`
	ETA               string         `json:"eta,omitempty"`
	FailedCount       int            `json:"failedCount,omitempty"`
	Failed            string         `json:"failed,omitempty"`
	WarningModal      *WarningModal  `json:"warningModal,omitempty"`
	ErrorModal        *ErrorModal    `json:"errorModal,omitempty"`
	DriveSelectorOpen bool           `json:"driveSelectorOpen"`
	Outcome           *model.Outcome `json:"outcome,omitempty"`
}

// Project builds the view model.
func Project(in Input, msgs *messages.Messages) Model {
	p := in.Progress
	step := p.Step
	if step == "" {
		step = model.StepFlashing
	}
	m := Model{
		State:     string(in.Snapshot.State),
		AttemptID: in.Snapshot.AttemptID,
		Button: Button{
			Type:       step,
			Active:     in.Flashing,
			Percentage: p.Percentage,
			Position:   p.Position,
			Disabled:   !in.HasImage || len(in.Selected) == 0,
			Warning:    hasListWarnings(in.Selected, in.Flashing),
		},
		DriveSelectorOpen: in.Snapshot.DriveSelectorOpen,
		Outcome:           in.Snapshot.LastOutcome,
	}

	if p.Speed != nil && p.Percentage != completedPercentage {
		m.Speed = msgs.SpeedShort(strconv.FormatFloat(*p.Speed, 'f', speedPrecision, 64))
		if p.ETA != nil {
			m.ETA = msgs.ETA(util.FormatSeconds(*p.ETA))
		}
	}

	if p.Failed > 0 {
		m.FailedCount = p.Failed
		m.Failed = msgs.FailedTargets(p.Failed)
	}

	if w := in.Snapshot.Warning; w != nil {
		modal := &WarningModal{
			System:   w.SystemDrives,
			Message:  msgs.DriveWarning(w.SystemDrives),
			Continue: msgs.WarningContinue(),
			Change:   msgs.WarningChangeTarget(),
		}
		for _, d := range w.DrivesWithWarnings {
			row := DriveWarning{Device: d.Device, Label: d.Label()}
			for _, st := range d.Statuses {
				row.Statuses = append(row.Statuses, st.Message)
			}
			modal.Drives = append(modal.Drives, row)
		}
		m.WarningModal = modal
	}

	if in.Snapshot.ErrorMessage != "" {
		m.ErrorModal = &ErrorModal{
			Title: msgs.ErrorTitle(),
			Lines: strings.Split(in.Snapshot.ErrorMessage, "\n"),
			Retry: msgs.Retry(),
		}
	}
	return m
}

// hasListWarnings flags the button when a selected drive is a system drive.
func hasListWarnings(drives []model.Drive, flashing bool) bool {
	if len(drives) == 0 || flashing {
		return false
	}
	for _, d := range drives {
		if d.IsSystem {
			return true
		}
	}
	return false
}

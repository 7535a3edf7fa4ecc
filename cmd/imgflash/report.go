// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/google/renameio/v2"
)

// report is the JSON document written by --report.
type report struct {
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Image     string         `json:"image"`
	Targets   []string       `json:"targets"`
	State     string         `json:"state"`
	AttemptID string         `json:"attemptId,omitempty"`
	ExitCode  int            `json:"exitCode"`
	Error     string         `json:"error,omitempty"`
	Outcome   *model.Outcome `json:"outcome,omitempty"`
}

func (a *app) buildReport(code int) report {
	snap := a.orch.Snapshot()
	r := report{
		Version:   version,
		Timestamp: time.Now().UTC(),
		Targets:   a.targets,
		State:     string(a.finalState),
		AttemptID: snap.AttemptID,
		ExitCode:  code,
		Error:     a.lastError,
		Outcome:   snap.LastOutcome,
	}
	if r.State == "" {
		r.State = string(snap.State)
	}
	if a.image != nil {
		r.Image = filepath.Base(a.image.Path)
	}
	if r.Outcome == nil {
		if res := a.state.Flash.Results(); res.Devices.Total() > 0 || res.Cancelled {
			r.Outcome = &res
		}
	}
	return r
}

// writeReport replaces path atomically so readers never see a partial file.
func writeReport(path string, r report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

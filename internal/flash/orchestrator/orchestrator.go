// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orchestrator sequences a flash attempt: compatibility warning,
// the writer call, outcome interpretation, notifications and the retry
// dialog. Public operations never return writer errors; failures surface
// as the error message of the snapshot.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ManuGH/imgflash/internal/flash/lifecycle"
	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/ManuGH/imgflash/internal/fsm"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/ManuGH/imgflash/internal/messages"
	"github.com/ManuGH/imgflash/internal/metrics"
	"github.com/ManuGH/imgflash/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventRestartAfterFailure is logged when the user retries a failed flash.
const EventRestartAfterFailure = "Restart after failure"

// Deps are the collaborators of the orchestrator. All are required except
// IconPath.
type Deps struct {
	Writer    Writer
	Flash     FlashState
	Selection Selection
	Drives    DriveList
	Checker   Checker
	Notifier  Notifier
	Analytics Analytics
	Messages  *messages.Messages
	IconPath  string
}

func (d Deps) validate() error {
	switch {
	case d.Writer == nil:
		return errors.New("orchestrator: writer is required")
	case d.Flash == nil:
		return errors.New("orchestrator: flash state is required")
	case d.Selection == nil:
		return errors.New("orchestrator: selection is required")
	case d.Drives == nil:
		return errors.New("orchestrator: drive list is required")
	case d.Checker == nil:
		return errors.New("orchestrator: checker is required")
	case d.Notifier == nil:
		return errors.New("orchestrator: notifier is required")
	case d.Analytics == nil:
		return errors.New("orchestrator: analytics is required")
	case d.Messages == nil:
		return errors.New("orchestrator: messages are required")
	}
	return nil
}

// Warning is the payload of the drive warning dialog.
type Warning struct {
	// SystemDrives is true when any selected drive is a system drive.
	SystemDrives       bool
	DrivesWithWarnings []model.DriveWithWarnings
}

// Snapshot is a read-only copy of the orchestrator state.
type Snapshot struct {
	State             lifecycle.State
	AttemptID         string
	Warning           *Warning
	ErrorMessage      string
	DriveSelectorOpen bool
	LastOutcome       *model.Outcome
}

// Orchestrator drives the flash attempt state machine.
type Orchestrator struct {
	deps    Deps
	machine *fsm.Machine[lifecycle.State, lifecycle.Event]
	logger  zerolog.Logger
	tracer  trace.Tracer

	mu            sync.Mutex
	attemptID     string
	warning       *Warning
	errorMessage  string
	driveSelector bool
	lastOutcome   *model.Outcome
}

// New wires an orchestrator starting in idle.
func New(deps Deps) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	machine, err := lifecycle.NewMachine()
	if err != nil {
		return nil, fmt.Errorf("build flash state machine: %w", err)
	}
	o := &Orchestrator{
		deps:    deps,
		machine: machine,
		logger:  xglog.WithComponent("orchestrator"),
		tracer:  telemetry.Tracer("imgflash/orchestrator"),
	}
	machine.Observe(func(from, to lifecycle.State, ev lifecycle.Event) {
		metrics.RecordTransition(string(from), string(to))
		o.logger.Debug().
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Str(xglog.FieldEvent, string(ev)).
			Msg("flash state transition")
	})
	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() lifecycle.State {
	return o.machine.State()
}

// Snapshot returns a copy of the current state for rendering.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := Snapshot{
		State:             o.machine.State(),
		AttemptID:         o.attemptID,
		ErrorMessage:      o.errorMessage,
		DriveSelectorOpen: o.driveSelector,
	}
	if o.warning != nil {
		w := Warning{SystemDrives: o.warning.SystemDrives, DrivesWithWarnings: slices.Clone(o.warning.DrivesWithWarnings)}
		s.Warning = &w
	}
	if o.lastOutcome != nil {
		out := *o.lastOutcome
		s.LastOutcome = &out
	}
	return s
}

// TryFlash starts an attempt for the current selection. An empty selection
// or a flash already in progress makes it a no-op. Drives with any
// compatibility status divert to the warning dialog.
func (o *Orchestrator) TryFlash(ctx context.Context) {
	if o.machine.State() != lifecycle.StateIdle {
		return
	}
	selected := o.deps.Selection.SelectedDrives()
	drives := make([]model.DriveWithWarnings, 0, len(selected))
	for _, d := range selected {
		drives = append(drives, model.DriveWithWarnings{Drive: d, Statuses: o.deps.Checker.Statuses(d, nil, true)})
	}
	if len(drives) == 0 || o.deps.Flash.IsFlashing() {
		return
	}

	if w := buildWarning(drives); w != nil {
		if !o.fire(ctx, lifecycle.EvWarn) {
			return
		}
		for _, d := range drives {
			for _, st := range d.Statuses {
				metrics.RecordDriveWarning(string(st.Kind))
			}
		}
		o.mu.Lock()
		o.warning = w
		o.mu.Unlock()
		return
	}
	o.flash(ctx, lifecycle.EvStart)
}

// buildWarning returns nil when no drive carries a status.
func buildWarning(drives []model.DriveWithWarnings) *Warning {
	flagged := slices.ContainsFunc(drives, func(d model.DriveWithWarnings) bool { return len(d.Statuses) > 0 })
	if !flagged {
		return nil
	}
	system := slices.ContainsFunc(drives, func(d model.DriveWithWarnings) bool {
		return model.HasStatus(d.Statuses, model.StatusSystem)
	})
	w := &Warning{SystemDrives: system}
	for _, d := range drives {
		if d.IsSystem || (!system && model.HasStatus(d.Statuses, model.StatusLarge)) {
			w.DrivesWithWarnings = append(w.DrivesWithWarnings, d)
		}
	}
	return w
}

// RespondToWarning answers the warning dialog. Declining opens the drive
// selector instead of flashing.
func (o *Orchestrator) RespondToWarning(ctx context.Context, proceed bool) {
	if o.machine.State() != lifecycle.StateWarningPending {
		return
	}
	o.mu.Lock()
	o.warning = nil
	o.mu.Unlock()

	if !proceed {
		if o.fire(ctx, lifecycle.EvDecline) {
			o.mu.Lock()
			o.driveSelector = true
			o.mu.Unlock()
		}
		return
	}
	o.flash(ctx, lifecycle.EvConfirm)
}

// flash runs one writer call. enter is the event leading into flashing.
func (o *Orchestrator) flash(ctx context.Context, enter lifecycle.Event) {
	devices := o.deps.Selection.SelectedDevices()
	img, hasImage := o.deps.Selection.Image()
	drives := slices.DeleteFunc(o.deps.Drives.Drives(), func(d model.Drive) bool {
		return !slices.Contains(devices, d.Device)
	})

	if len(drives) == 0 || !hasImage || o.deps.Flash.IsFlashing() {
		if enter == lifecycle.EvConfirm {
			o.fire(ctx, lifecycle.EvAbandon)
		}
		return
	}
	if !o.fire(ctx, enter) {
		return
	}

	attemptID := uuid.NewString()
	o.mu.Lock()
	o.attemptID = attemptID
	o.errorMessage = ""
	o.lastOutcome = nil
	o.mu.Unlock()

	basename := img.Basename()
	ctx = xglog.ContextWithAttemptID(ctx, attemptID)
	logger := xglog.WithContext(ctx, o.logger)
	ctx, span := o.tracer.Start(ctx, "flash.attempt",
		trace.WithAttributes(telemetry.FlashAttributes(attemptID, basename, img.Size, len(drives))...))
	defer span.End()

	logger.Info().
		Str(xglog.FieldImage, basename).
		Strs(xglog.FieldDevices, model.FlashRequest{Drives: drives}.Devices()).
		Msg("flash started")

	err := o.deps.Writer.Flash(ctx, img, drives)
	o.deps.Drives.Set(nil)

	if err != nil {
		o.fail(ctx, logger, span, err, basename, drives)
		return
	}

	if o.deps.Flash.WasLastFlashCancelled() {
		metrics.RecordAttempt("cancelled")
		logger.Info().Msg("flash cancelled by user")
		span.SetAttributes(attribute.String(telemetry.FlashStateKey, string(lifecycle.StateCancelled)))
		if o.fire(ctx, lifecycle.EvCancel) {
			o.fire(ctx, lifecycle.EvAcknowledge)
		}
		return
	}

	results := o.deps.Flash.Results()
	span.SetAttributes(telemetry.OutcomeAttributes(results.Devices.Successful, results.Devices.Failed)...)
	switch {
	case results.Skipped:
		metrics.RecordAttempt("skipped")
	case results.Cancelled:
		metrics.RecordAttempt("cancelled")
	case results.Devices.Successful > 0:
		metrics.RecordAttempt("succeeded")
		o.deps.Notifier.Send(o.deps.Messages.FlashCompleteTitle(),
			o.deps.Messages.FlashComplete(basename, drives, results.Devices), o.deps.IconPath)
	default:
		metrics.RecordAttempt("failed")
		o.deps.Notifier.Send(o.deps.Messages.FlashFailureTitle(),
			o.deps.Messages.FlashFailure(basename, drives), o.deps.IconPath)
	}

	o.mu.Lock()
	o.lastOutcome = &results
	o.mu.Unlock()

	logger.Info().
		Int("successful", results.Devices.Successful).
		Int("failed", results.Devices.Failed).
		Bool("skipped", results.Skipped).
		Bool("cancelled", results.Cancelled).
		Msg("flash finished")
	span.SetAttributes(attribute.String(telemetry.FlashStateKey, string(lifecycle.StateSucceeded)))
	o.fire(ctx, lifecycle.EvSucceed)
}

// fail handles a rejected writer call: failure notification first, then
// classification into a user-facing message.
func (o *Orchestrator) fail(ctx context.Context, logger zerolog.Logger, span trace.Span, err error, basename string, drives []model.Drive) {
	o.deps.Notifier.Send(o.deps.Messages.FlashFailureTitle(),
		o.deps.Messages.FlashFailure(basename, drives), o.deps.IconPath)

	code := model.ErrorCode(err)
	msg := messageForCode(o.deps.Messages, code)
	if msg == "" {
		o.deps.Analytics.LogException(withImage(err, basename))
		msg = o.deps.Messages.GenericFlashError(err)
	}

	metrics.RecordAttempt("failed")
	metrics.RecordFlashError(code)
	span.RecordError(err)
	span.SetAttributes(telemetry.ErrorAttributes(code)...)
	span.SetStatus(codes.Error, err.Error())
	logger.Warn().Err(err).Str(xglog.FieldCode, code).Msg("flash failed")

	o.mu.Lock()
	o.errorMessage = msg
	o.mu.Unlock()
	o.fire(ctx, lifecycle.EvFail)
}

// RespondToError answers the retry dialog. Retrying keeps the selection;
// cancelling clears it.
func (o *Orchestrator) RespondToError(ctx context.Context, retry bool) {
	if o.machine.State() != lifecycle.StateFailed {
		return
	}
	o.mu.Lock()
	o.errorMessage = ""
	attemptID := o.attemptID
	o.mu.Unlock()
	o.deps.Flash.Reset()

	if retry {
		o.deps.Analytics.LogEvent(EventRestartAfterFailure, map[string]string{xglog.FieldAttemptID: attemptID})
		o.fire(ctx, lifecycle.EvRetry)
		return
	}
	o.deps.Selection.Clear()
	o.fire(ctx, lifecycle.EvDismiss)
}

// Acknowledge leaves the finish view so another flash can start. The
// image stays selected; targets are deselected.
func (o *Orchestrator) Acknowledge(ctx context.Context) {
	switch o.machine.State() {
	case lifecycle.StateSucceeded, lifecycle.StateCancelled:
	default:
		return
	}
	o.deps.Flash.Reset()
	o.deps.Selection.SelectAll(nil)
	o.fire(ctx, lifecycle.EvAcknowledge)
}

// Cancel asks the writer to abort the running flash.
func (o *Orchestrator) Cancel() {
	if o.machine.State() != lifecycle.StateFlashing {
		return
	}
	o.deps.Writer.Cancel()
}

// SelectTargets replaces the selected devices and closes the drive selector.
func (o *Orchestrator) SelectTargets(devices []string) {
	o.deps.Selection.SelectAll(devices)
	o.CloseDriveSelector()
}

// CloseDriveSelector hides the drive selector.
func (o *Orchestrator) CloseDriveSelector() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.driveSelector = false
}

// fire applies ev and reports whether it took effect. A rejected event
// means another caller moved the machine first.
func (o *Orchestrator) fire(ctx context.Context, ev lifecycle.Event) bool {
	if _, err := o.machine.Fire(ctx, ev); err != nil {
		level := zerolog.ErrorLevel
		if errors.Is(err, fsm.ErrInvalidTransition) {
			level = zerolog.DebugLevel
		}
		o.logger.WithLevel(level).Err(err).Str(xglog.FieldEvent, string(ev)).Msg("flash transition refused")
		return false
	}
	return true
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/ManuGH/imgflash/internal/appstate"
	"github.com/ManuGH/imgflash/internal/constraints"
	"github.com/ManuGH/imgflash/internal/flash/lifecycle"
	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/ManuGH/imgflash/internal/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter drives the real flash state the way the image writer does.
type fakeWriter struct {
	state     *appstate.FlashState
	outcome   model.Outcome
	cancelled bool
	err       error
	during    func()

	calls       int
	cancelCalls int
	gotDrives   []model.Drive
}

func (w *fakeWriter) Flash(_ context.Context, _ model.Image, drives []model.Drive) error {
	w.calls++
	w.gotDrives = drives
	w.state.SetFlashing()
	if w.during != nil {
		w.during()
	}
	w.state.UnsetFlashing(w.outcome, w.cancelled)
	return w.err
}

func (w *fakeWriter) Cancel() { w.cancelCalls++ }

type sent struct{ title, body, icon string }

type fakeNotifier struct{ sent []sent }

func (n *fakeNotifier) Send(title, body, icon string) {
	n.sent = append(n.sent, sent{title, body, icon})
}

type fakeAnalytics struct {
	events     []string
	exceptions []error
}

func (a *fakeAnalytics) LogEvent(name string, _ map[string]string) { a.events = append(a.events, name) }

func (a *fakeAnalytics) LogException(err error) { a.exceptions = append(a.exceptions, err) }

type harness struct {
	o         *Orchestrator
	app       *appstate.State
	writer    *fakeWriter
	notifier  *fakeNotifier
	analytics *fakeAnalytics
	msgs      *messages.Messages
}

var (
	usbStick = model.Drive{Device: "/dev/sdb", DisplayName: "/dev/sdb", Description: "SanDisk Ultra", Size: 32e9, IsRemovable: true}
	usbOther = model.Drive{Device: "/dev/sdc", DisplayName: "/dev/sdc", Description: "Kingston", Size: 16e9, IsRemovable: true}
	sysDisk  = model.Drive{Device: "/dev/sda", DisplayName: "/dev/sda", Description: "Samsung SSD", Size: 500e9, IsSystem: true}
	bigDisk  = model.Drive{Device: "/dev/sdd", DisplayName: "/dev/sdd", Description: "WD Elements", Size: 2e12, IsRemovable: true}
	osImage  = model.Image{Path: "/home/me/images/os.img", Size: 1e9}
)

func newHarness(t *testing.T, available ...model.Drive) *harness {
	t.Helper()
	app := appstate.New()
	app.Drives.Set(available)
	app.Selection.SetImage(osImage)

	h := &harness{
		app:       app,
		writer:    &fakeWriter{state: app.Flash, outcome: model.Outcome{Devices: model.DeviceTally{Successful: 1}}},
		notifier:  &fakeNotifier{},
		analytics: &fakeAnalytics{},
		msgs:      messages.New("en"),
	}
	o, err := New(Deps{
		Writer:    h.writer,
		Flash:     app.Flash,
		Selection: app.Selection,
		Drives:    app.Drives,
		Checker:   constraints.New(constraints.Config{}),
		Notifier:  h.notifier,
		Analytics: h.analytics,
		Messages:  h.msgs,
		IconPath:  "icon.png",
	})
	require.NoError(t, err)
	h.o = o
	return h
}

func (h *harness) selectDevices(devices ...string) {
	h.app.Selection.SelectAll(devices)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestTryFlash_EmptySelectionIsNoop(t *testing.T) {
	h := newHarness(t, usbStick)

	h.o.TryFlash(context.Background())

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Zero(t, h.writer.calls)
	assert.Empty(t, h.notifier.sent)
}

func TestTryFlash_SelectionOfUnavailableDriveIsNoop(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices("/dev/sdz")

	h.o.TryFlash(context.Background())

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Zero(t, h.writer.calls)
}

func TestTryFlash_FlashInProgressIsNoop(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	require.True(t, h.app.Flash.SetFlashing())

	h.o.TryFlash(context.Background())

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Zero(t, h.writer.calls)
}

func TestTryFlash_SystemDriveWarns(t *testing.T) {
	h := newHarness(t, usbStick, sysDisk, bigDisk)
	h.selectDevices(usbStick.Device, sysDisk.Device, bigDisk.Device)

	h.o.TryFlash(context.Background())

	assert.Equal(t, lifecycle.StateWarningPending, h.o.State())
	assert.Zero(t, h.writer.calls)

	snap := h.o.Snapshot()
	require.NotNil(t, snap.Warning)
	assert.True(t, snap.Warning.SystemDrives)
	require.Len(t, snap.Warning.DrivesWithWarnings, 1)
	assert.Equal(t, sysDisk.Device, snap.Warning.DrivesWithWarnings[0].Device)
}

func TestTryFlash_LargeDriveWarnsWithoutSystem(t *testing.T) {
	h := newHarness(t, usbStick, bigDisk)
	h.selectDevices(usbStick.Device, bigDisk.Device)

	h.o.TryFlash(context.Background())

	snap := h.o.Snapshot()
	require.NotNil(t, snap.Warning)
	assert.False(t, snap.Warning.SystemDrives)
	require.Len(t, snap.Warning.DrivesWithWarnings, 1)
	assert.Equal(t, bigDisk.Device, snap.Warning.DrivesWithWarnings[0].Device)
	assert.True(t, model.HasStatus(snap.Warning.DrivesWithWarnings[0].Statuses, model.StatusLarge))
}

func TestRespondToWarning_DeclineOpensDriveSelector(t *testing.T) {
	h := newHarness(t, sysDisk)
	h.selectDevices(sysDisk.Device)
	h.o.TryFlash(context.Background())

	h.o.RespondToWarning(context.Background(), false)

	snap := h.o.Snapshot()
	assert.Equal(t, lifecycle.StateIdle, snap.State)
	assert.Nil(t, snap.Warning)
	assert.True(t, snap.DriveSelectorOpen)
	assert.Zero(t, h.writer.calls)

	h.o.SelectTargets([]string{usbStick.Device})
	assert.False(t, h.o.Snapshot().DriveSelectorOpen)
	assert.Equal(t, []string{usbStick.Device}, h.app.Selection.SelectedDevices())
}

func TestRespondToWarning_ProceedFlashes(t *testing.T) {
	h := newHarness(t, sysDisk)
	h.selectDevices(sysDisk.Device)
	h.o.TryFlash(context.Background())

	h.o.RespondToWarning(context.Background(), true)

	assert.Equal(t, 1, h.writer.calls)
	assert.Equal(t, lifecycle.StateSucceeded, h.o.State())
	assert.Nil(t, h.o.Snapshot().Warning)
}

func TestRespondToWarning_ProceedWithNothingLeftReturnsToIdle(t *testing.T) {
	h := newHarness(t, sysDisk)
	h.selectDevices(sysDisk.Device)
	h.o.TryFlash(context.Background())
	h.app.Drives.Set(nil)

	h.o.RespondToWarning(context.Background(), true)

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Zero(t, h.writer.calls)
}

func TestRespondToWarning_OutsideWarningIsNoop(t *testing.T) {
	h := newHarness(t, usbStick)
	h.o.RespondToWarning(context.Background(), true)
	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Zero(t, h.writer.calls)
}

func TestFlash_SuccessNotifiesWithTally(t *testing.T) {
	h := newHarness(t, usbStick, usbOther)
	h.selectDevices(usbStick.Device, usbOther.Device)
	h.writer.outcome = model.Outcome{Devices: model.DeviceTally{Successful: 1, Failed: 1}}

	h.o.TryFlash(context.Background())

	snap := h.o.Snapshot()
	assert.Equal(t, lifecycle.StateSucceeded, snap.State)
	assert.Empty(t, snap.ErrorMessage)
	assert.NotEmpty(t, snap.AttemptID)
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, 1, snap.LastOutcome.Devices.Failed)

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, sent{
		title: h.msgs.FlashCompleteTitle(),
		body:  h.msgs.FlashComplete("os.img", h.writer.gotDrives, h.writer.outcome.Devices),
		icon:  "icon.png",
	}, h.notifier.sent[0])
	assert.Len(t, h.writer.gotDrives, 2)
	assert.Empty(t, h.app.Drives.Drives(), "available drives are cleared after every flash")
}

func TestFlash_ZeroSuccessfulSendsFailureNotification(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.writer.outcome = model.Outcome{Devices: model.DeviceTally{Failed: 1}}

	h.o.TryFlash(context.Background())

	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, h.msgs.FlashFailureTitle(), h.notifier.sent[0].title)
	assert.Equal(t, h.msgs.FlashFailure("os.img", []model.Drive{usbStick}), h.notifier.sent[0].body)
	assert.Equal(t, lifecycle.StateSucceeded, h.o.State())
	assert.Empty(t, h.o.Snapshot().ErrorMessage)
}

func TestFlash_SkippedOrCancelledOutcomeSuppressesNotification(t *testing.T) {
	for name, outcome := range map[string]model.Outcome{
		"skipped":   {Skipped: true, Devices: model.DeviceTally{Successful: 1}},
		"cancelled": {Cancelled: true},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, usbStick)
			h.selectDevices(usbStick.Device)
			h.writer.outcome = outcome

			h.o.TryFlash(context.Background())

			assert.Empty(t, h.notifier.sent)
			assert.Empty(t, h.o.Snapshot().ErrorMessage)
			assert.Equal(t, lifecycle.StateSucceeded, h.o.State())
		})
	}
}

func TestFlash_UserCancelReturnsToIdleSilently(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.writer.cancelled = true
	h.writer.outcome = model.Outcome{Cancelled: true}

	h.o.TryFlash(context.Background())

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Empty(t, h.notifier.sent)
	assert.Empty(t, h.o.Snapshot().ErrorMessage)
	assert.Empty(t, h.app.Drives.Drives())
}

func TestCancel_ForwardsToWriterWhileFlashing(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.writer.during = h.o.Cancel

	h.o.Cancel()
	assert.Zero(t, h.writer.cancelCalls, "cancel outside a flash is ignored")

	h.o.TryFlash(context.Background())
	assert.Equal(t, 1, h.writer.cancelCalls)
}

func TestFlash_KnownErrorCodes(t *testing.T) {
	msgs := messages.New("en")
	tests := []struct {
		code string
		want string
	}{
		{model.CodeValidation, msgs.Validation()},
		{model.CodeUnplugged, msgs.DriveUnplugged()},
		{model.CodeIO, msgs.InputOutput()},
		{model.CodeNoSpace, msgs.NotEnoughSpaceInDrive()},
		{model.CodeChildDied, msgs.ChildWriterDied()},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newHarness(t, usbStick)
			h.selectDevices(usbStick.Device)
			h.writer.err = model.NewFlashError(tt.code, usbStick.Device, errors.New("boom"))

			h.o.TryFlash(context.Background())

			snap := h.o.Snapshot()
			assert.Equal(t, lifecycle.StateFailed, snap.State)
			assert.Equal(t, tt.want, snap.ErrorMessage)
			assert.Empty(t, h.analytics.exceptions, "known codes are not reported as exceptions")
			require.Len(t, h.notifier.sent, 1)
			assert.Equal(t, h.msgs.FlashFailureTitle(), h.notifier.sent[0].title)
			assert.Empty(t, h.app.Drives.Drives())
		})
	}
}

func TestFlash_UnclassifiedErrorIsReported(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	cause := errors.New("permission denied")
	h.writer.err = cause

	h.o.TryFlash(context.Background())

	snap := h.o.Snapshot()
	assert.Equal(t, lifecycle.StateFailed, snap.State)
	assert.Equal(t, h.msgs.GenericFlashError(cause), snap.ErrorMessage)

	require.Len(t, h.analytics.exceptions, 1)
	var fe *model.FlashError
	require.ErrorAs(t, h.analytics.exceptions[0], &fe)
	assert.Equal(t, "os.img", fe.Image)
	assert.ErrorIs(t, h.analytics.exceptions[0], cause)
	require.Len(t, h.notifier.sent, 1)
}

func TestFlash_UnknownFlashErrorCodeGetsImage(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	fe := model.NewFlashError("EPERM", usbStick.Device, errors.New("operation not permitted"))
	h.writer.err = fe

	h.o.TryFlash(context.Background())

	require.Len(t, h.analytics.exceptions, 1)
	assert.Equal(t, "os.img", fe.Image)
	assert.Equal(t, h.msgs.GenericFlashError(fe), h.o.Snapshot().ErrorMessage)
}

func TestRespondToError_RetryKeepsSelection(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.writer.err = model.NewFlashError(model.CodeIO, usbStick.Device, errors.New("io"))
	h.o.TryFlash(context.Background())

	h.o.RespondToError(context.Background(), true)

	snap := h.o.Snapshot()
	assert.Equal(t, lifecycle.StateIdle, snap.State)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, []string{EventRestartAfterFailure}, h.analytics.events)
	assert.Equal(t, []string{usbStick.Device}, h.app.Selection.SelectedDevices())
	_, hasImage := h.app.Selection.Image()
	assert.True(t, hasImage)
}

func TestRespondToError_CancelClearsSelection(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.writer.err = model.NewFlashError(model.CodeIO, usbStick.Device, errors.New("io"))
	h.o.TryFlash(context.Background())

	h.o.RespondToError(context.Background(), false)

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Empty(t, h.analytics.events)
	assert.Empty(t, h.app.Selection.SelectedDevices())
	_, hasImage := h.app.Selection.Image()
	assert.False(t, hasImage)
}

func TestRespondToError_OutsideFailedIsNoop(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.o.RespondToError(context.Background(), false)
	assert.Equal(t, []string{usbStick.Device}, h.app.Selection.SelectedDevices())
}

func TestAcknowledge_FlashAnother(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.o.TryFlash(context.Background())
	require.Equal(t, lifecycle.StateSucceeded, h.o.State())

	h.o.Acknowledge(context.Background())

	assert.Equal(t, lifecycle.StateIdle, h.o.State())
	assert.Empty(t, h.app.Selection.SelectedDevices())
	_, hasImage := h.app.Selection.Image()
	assert.True(t, hasImage)

	// A second attempt needs re-enumeration and a fresh selection.
	h.app.Drives.Set([]model.Drive{usbStick})
	h.selectDevices(usbStick.Device)
	h.o.TryFlash(context.Background())
	assert.Equal(t, 2, h.writer.calls)
}

func TestTryFlash_OnlyFromIdle(t *testing.T) {
	h := newHarness(t, usbStick)
	h.selectDevices(usbStick.Device)
	h.o.TryFlash(context.Background())
	require.Equal(t, lifecycle.StateSucceeded, h.o.State())

	h.app.Drives.Set([]model.Drive{usbStick})
	h.o.TryFlash(context.Background())
	assert.Equal(t, 1, h.writer.calls)
}

func TestBuildWarning(t *testing.T) {
	assert.Nil(t, buildWarning([]model.DriveWithWarnings{{Drive: usbStick}}))

	w := buildWarning([]model.DriveWithWarnings{
		{Drive: usbStick},
		{Drive: bigDisk, Statuses: []model.DriveStatus{{Kind: model.StatusLarge}}},
	})
	require.NotNil(t, w)
	assert.False(t, w.SystemDrives)
	assert.Len(t, w.DrivesWithWarnings, 1)
}

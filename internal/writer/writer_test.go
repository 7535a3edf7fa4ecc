// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package writer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ManuGH/imgflash/internal/appstate"
	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// hookedState runs onProgress once, on the first progress report.
type hookedState struct {
	*appstate.FlashState
	once       sync.Once
	onProgress func()
}

func (h *hookedState) SetProgress(p model.Progress) {
	h.FlashState.SetProgress(p)
	if h.onProgress != nil {
		h.once.Do(h.onProgress)
	}
}

func testConfig() Config {
	return Config{
		BufferSize:       64,
		Verify:           true,
		ProgressInterval: time.Millisecond,
		OpenRetries:      1,
	}
}

func writeImage(t *testing.T, size int) model.Image {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "os.img")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return model.Image{Path: path, Size: uint64(size)}
}

func fileTarget(t *testing.T, name string) model.Drive {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return model.Drive{Device: path, DisplayName: name}
}

func TestFlash_SingleTargetSucceeds(t *testing.T) {
	img := writeImage(t, 4096)
	drive := fileTarget(t, "a.img")
	state := appstate.NewFlashState()
	w := New(testConfig(), state)

	require.NoError(t, w.Flash(context.Background(), img, []model.Drive{drive}))

	got, err := os.ReadFile(drive.Device)
	require.NoError(t, err)
	want, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	res := state.Results()
	assert.Equal(t, model.DeviceTally{Successful: 1}, res.Devices)
	assert.Equal(t, uint64(4096), res.BytesWritten)
	assert.False(t, res.Cancelled)
	assert.False(t, res.Skipped)
	assert.False(t, state.IsFlashing())
	assert.False(t, state.WasLastFlashCancelled())
}

func TestFlash_TruncatesExistingFileTarget(t *testing.T) {
	img := writeImage(t, 128)
	drive := fileTarget(t, "a.img")
	require.NoError(t, os.WriteFile(drive.Device, make([]byte, 1024), 0o600))

	w := New(testConfig(), appstate.NewFlashState())
	require.NoError(t, w.Flash(context.Background(), img, []model.Drive{drive}))

	info, err := os.Stat(drive.Device)
	require.NoError(t, err)
	assert.Equal(t, int64(128), info.Size())
}

func TestFlash_SingleTargetFailureReturnsFlashError(t *testing.T) {
	img := writeImage(t, 256)
	missing := model.Drive{Device: filepath.Join(t.TempDir(), "gone", "sdz")}
	state := appstate.NewFlashState()
	w := New(testConfig(), state)

	err := w.Flash(context.Background(), img, []model.Drive{missing})
	require.Error(t, err)

	var fe *model.FlashError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, model.CodeUnplugged, fe.Code)
	assert.Equal(t, missing.Device, fe.Device)
	assert.False(t, state.IsFlashing())
}

func TestFlash_MultiTargetCountsFailures(t *testing.T) {
	img := writeImage(t, 1024)
	good := fileTarget(t, "good.img")
	missing := model.Drive{Device: filepath.Join(t.TempDir(), "gone", "sdz")}
	state := appstate.NewFlashState()
	w := New(testConfig(), state)

	require.NoError(t, w.Flash(context.Background(), img, []model.Drive{good, missing}))

	res := state.Results()
	assert.Equal(t, model.DeviceTally{Successful: 1, Failed: 1}, res.Devices)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, model.CodeUnplugged, res.Errors[0].Code)
	assert.Equal(t, missing.Device, res.Errors[0].Device)
}

func TestFlash_UserCancel(t *testing.T) {
	img := writeImage(t, 64*1024)
	drive := fileTarget(t, "a.img")
	state := &hookedState{FlashState: appstate.NewFlashState()}
	w := New(testConfig(), state)
	state.onProgress = w.Cancel

	require.NoError(t, w.Flash(context.Background(), img, []model.Drive{drive}))

	assert.True(t, state.WasLastFlashCancelled())
	res := state.Results()
	assert.True(t, res.Cancelled)
	assert.Equal(t, 0, res.Devices.Successful)
}

func TestFlash_ParentContextCancelled(t *testing.T) {
	img := writeImage(t, 1024)
	drive := fileTarget(t, "a.img")
	state := appstate.NewFlashState()
	w := New(testConfig(), state)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Flash(ctx, img, []model.Drive{drive}))

	assert.False(t, state.WasLastFlashCancelled())
	assert.True(t, state.Results().Cancelled)
}

func TestFlash_SkipValidation(t *testing.T) {
	img := writeImage(t, 8192)
	drive := fileTarget(t, "a.img")
	state := &hookedState{FlashState: appstate.NewFlashState()}
	w := New(testConfig(), state)
	state.onProgress = w.SkipValidation

	require.NoError(t, w.Flash(context.Background(), img, []model.Drive{drive}))

	res := state.Results()
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, res.Devices.Successful)
}

func TestFlash_RejectsConcurrentFlash(t *testing.T) {
	state := appstate.NewFlashState()
	require.True(t, state.SetFlashing())
	w := New(testConfig(), state)

	err := w.Flash(context.Background(), writeImage(t, 16), []model.Drive{fileTarget(t, "a.img")})
	require.ErrorIs(t, err, ErrAlreadyFlashing)
}

func TestFlash_NoTargets(t *testing.T) {
	w := New(testConfig(), appstate.NewFlashState())
	require.ErrorIs(t, w.Flash(context.Background(), model.Image{}, nil), ErrNoTargets)
}

func TestFlash_MissingImage(t *testing.T) {
	state := appstate.NewFlashState()
	w := New(testConfig(), state)

	err := w.Flash(context.Background(), model.Image{Path: filepath.Join(t.TempDir(), "nope.img")}, []model.Drive{fileTarget(t, "a.img")})
	require.Error(t, err)
	assert.Empty(t, model.ErrorCode(err))
	assert.False(t, state.IsFlashing())
}

func TestCancel_IdleIsNoop(t *testing.T) {
	w := New(testConfig(), appstate.NewFlashState())
	w.Cancel()
	assert.False(t, w.userCancelled.Load())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no space", fmt.Errorf("write target: %w", &os.PathError{Op: "write", Path: "/dev/sdb", Err: syscall.ENOSPC}), model.CodeNoSpace},
		{"io", &os.PathError{Op: "read", Path: "/dev/sdb", Err: syscall.EIO}, model.CodeIO},
		{"unplugged", &os.PathError{Op: "open", Path: "/dev/sdb", Err: syscall.ENODEV}, model.CodeUnplugged},
		{"checksum", errChecksumMismatch, model.CodeValidation},
		{"unknown", errors.New("weird"), CodeUnknown},
		{"already tagged", model.NewFlashError(model.CodeChildDied, "/dev/sdb", nil), model.CodeChildDied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := classify("/dev/sdb", tt.err)
			assert.Equal(t, tt.want, fe.Code)
			assert.Equal(t, "/dev/sdb", fe.Device)
		})
	}
}

func TestWriteTarget_MissingSourceIsNotUnplugged(t *testing.T) {
	w := New(testConfig(), appstate.NewFlashState())
	drive := fileTarget(t, "a.img")
	img := model.Image{Path: filepath.Join(t.TempDir(), "gone.img")}

	err := w.writeTarget(context.Background(), img, newTarget(context.Background(), drive), func() {})
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)

	fe := classify(drive.Device, err)
	assert.Equal(t, CodeUnknown, fe.Code)
	assert.Equal(t, drive.Device, fe.Device)
	assert.Contains(t, fe.Error(), "open image")
}

func TestWriteTarget_TargetMissingIsUnplugged(t *testing.T) {
	w := New(testConfig(), appstate.NewFlashState())
	img := writeImage(t, 128)
	drive := model.Drive{Device: filepath.Join(t.TempDir(), "removed", "sdz")}

	err := w.writeTarget(context.Background(), img, newTarget(context.Background(), drive), func() {})
	require.Error(t, err)
	assert.Equal(t, model.CodeUnplugged, classify(drive.Device, err).Code)
}

func TestChildDied(t *testing.T) {
	fe := childDied("/dev/sdb", "nil map write")
	assert.Equal(t, model.CodeChildDied, fe.Code)
	assert.Contains(t, fe.Error(), "nil map write")
}

func TestProgress_SlowestTargetWins(t *testing.T) {
	w := New(testConfig(), appstate.NewFlashState())
	a, b := &target{}, &target{}
	a.position.Store(800)
	b.position.Store(200)

	p := w.progress(model.StepFlashing, 1000, []*target{a, b}, time.Now().Add(-time.Second))
	assert.Equal(t, uint64(200), p.Position)
	assert.InDelta(t, 20.0, p.Percentage, 0.001)
	assert.Equal(t, 2, p.Active)
	require.NotNil(t, p.Speed)
	require.NotNil(t, p.ETA)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package writer writes an image to one or more targets concurrently,
// publishing progress into the flash state.
package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ManuGH/imgflash/internal/flash/model"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/ManuGH/imgflash/internal/metrics"
	"github.com/ManuGH/imgflash/internal/util"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBufferSize       = 4 * 1024 * 1024
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultOpenRetries      = 5
	DefaultOpenRetryDelay   = time.Second
)

// State is the flash state the writer reports into.
type State interface {
	SetFlashing() bool
	UnsetFlashing(results model.Outcome, userCancelled bool)
	SetProgress(p model.Progress)
}

// Config tunes the writer.
type Config struct {
	BufferSize       int
	Verify           bool
	ProgressInterval time.Duration
	OpenRetries      int
	OpenRetryDelay   time.Duration
}

// DefaultConfig returns the production defaults with verification on.
func DefaultConfig() Config {
	return Config{
		BufferSize:       DefaultBufferSize,
		Verify:           true,
		ProgressInterval: DefaultProgressInterval,
		OpenRetries:      DefaultOpenRetries,
		OpenRetryDelay:   DefaultOpenRetryDelay,
	}
}

// Writer is the image writer collaborator.
type Writer struct {
	cfg    Config
	state  State
	logger zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc

	userCancelled  atomic.Bool
	skipValidation atomic.Bool
}

// New returns a writer reporting into state.
func New(cfg Config, state State) *Writer {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.OpenRetries <= 0 {
		cfg.OpenRetries = 1
	}
	return &Writer{
		cfg:    cfg,
		state:  state,
		logger: xglog.WithComponent("writer"),
	}
}

// Cancel aborts the running flash. It is a no-op when idle.
func (w *Writer) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return
	}
	w.userCancelled.Store(true)
	w.cancel()
}

// SkipValidation skips read-back verification of the running flash.
func (w *Writer) SkipValidation() {
	w.skipValidation.Store(true)
}

// target tracks one destination during a flash.
type target struct {
	drive    model.Drive
	logger   zerolog.Logger
	position atomic.Uint64
	written  atomic.Uint64
	done     atomic.Bool
	err      atomic.Pointer[model.FlashError]
}

// newTarget returns a target with a logger tagged with its device.
func newTarget(ctx context.Context, d model.Drive) *target {
	logger := xglog.Derive(func(c *zerolog.Context) {
		*c = c.Str(xglog.FieldComponent, "writer").Str(xglog.FieldDevice, d.Device)
	})
	return &target{drive: d, logger: xglog.WithContext(ctx, logger)}
}

func (t *target) fail(fe *model.FlashError) {
	if t.err.CompareAndSwap(nil, fe) {
		t.logger.Warn().Err(fe).Str(xglog.FieldCode, fe.Code).Msg("target failed")
	}
}

func (t *target) failure() *model.FlashError { return t.err.Load() }

// Flash writes img to every drive. A single target that fails returns its
// *model.FlashError; with several targets failures are counted in the
// outcome instead. Cancellation is reported through the outcome.
func (w *Writer) Flash(ctx context.Context, img model.Image, drives []model.Drive) error {
	if len(drives) == 0 {
		return ErrNoTargets
	}
	if !w.state.SetFlashing() {
		return ErrAlreadyFlashing
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.userCancelled.Store(false)
	w.skipValidation.Store(false)
	w.mu.Unlock()

	metrics.SetFlashing(true)
	start := time.Now()
	logger := xglog.WithContext(ctx, w.logger)

	targets := make([]*target, len(drives))
	for i, d := range drives {
		targets[i] = newTarget(ctx, d)
	}

	size, sourceSum, srcErr := w.sourceInfo(img)
	if srcErr == nil {
		w.run(ctx, img, size, sourceSum, targets, start)
	}

	cancelled := ctx.Err() != nil
	cancel()
	w.mu.Lock()
	w.cancel = nil
	w.mu.Unlock()

	outcome := w.outcome(targets, start, cancelled)
	userCancelled := w.userCancelled.Load()

	metrics.SetFlashing(false)
	metrics.RecordDeviceResults(outcome.Devices.Successful, outcome.Devices.Failed)
	metrics.AddBytesWritten(outcome.BytesWritten)

	if srcErr != nil {
		w.state.UnsetFlashing(model.Outcome{Devices: model.DeviceTally{Failed: len(drives)}}, false)
		logger.Error().Err(srcErr).Str(xglog.FieldImage, img.Path).Msg("cannot read source image")
		return srcErr
	}

	w.state.UnsetFlashing(outcome, userCancelled)
	logger.Info().
		Int("successful", outcome.Devices.Successful).
		Int("failed", outcome.Devices.Failed).
		Bool("cancelled", outcome.Cancelled).
		Bool("skipped", outcome.Skipped).
		Dur("duration", outcome.Duration).
		Msg("flash finished")

	if fe := targets[0].failure(); len(targets) == 1 && fe != nil && !cancelled {
		return fe
	}
	return nil
}

// sourceInfo sizes the image and, when verifying, hashes it.
func (w *Writer) sourceInfo(img model.Image) (uint64, uint64, error) {
	f, err := os.Open(img.Path) // #nosec G304
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat image: %w", err)
	}
	size := uint64(info.Size()) // #nosec G115
	if !w.cfg.Verify {
		return size, 0, nil
	}
	h := xxhash.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, w.cfg.BufferSize)); err != nil {
		return 0, 0, fmt.Errorf("hash image: %w", err)
	}
	return size, h.Sum64(), nil
}

func (w *Writer) run(ctx context.Context, img model.Image, size, sum uint64, targets []*target, start time.Time) {
	throttle := rate.Sometimes{Interval: w.cfg.ProgressInterval}
	var step atomic.Value
	step.Store(model.StepFlashing)

	report := func(force bool) {
		publish := func() { w.state.SetProgress(w.progress(step.Load().(model.Step), size, targets, start)) }
		if force {
			publish()
			return
		}
		throttle.Do(publish)
	}

	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					t.fail(childDied(t.drive.Device, r))
				}
				t.done.Store(true)
				report(true)
			}()
			if werr := w.writeTarget(ctx, img, t, func() { report(false) }); werr != nil && ctx.Err() == nil {
				t.fail(classify(t.drive.Device, werr))
			}
			return nil
		})
	}
	_ = g.Wait()

	if !w.cfg.Verify || ctx.Err() != nil || w.skipValidation.Load() {
		return
	}

	step.Store(model.StepVerifying)
	for _, t := range targets {
		if t.failure() == nil {
			t.done.Store(false)
			t.position.Store(0)
		}
	}
	report(true)

	var vg errgroup.Group
	for _, t := range targets {
		if t.failure() != nil {
			continue
		}
		vg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					t.fail(childDied(t.drive.Device, r))
				}
				t.done.Store(true)
			}()
			if verr := w.verifyTarget(ctx, t, size, sum, func() { report(false) }); verr != nil && ctx.Err() == nil {
				t.fail(classify(t.drive.Device, verr))
			}
			return nil
		})
	}
	_ = vg.Wait()
}

func (w *Writer) openTarget(ctx context.Context, t *target) (*os.File, error) {
	path := t.drive.WritePath()
	flags := os.O_WRONLY
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		flags |= os.O_TRUNC
	}
	var lastErr error
	for attempt := 0; attempt < w.cfg.OpenRetries; attempt++ {
		if attempt > 0 {
			util.Delay(w.cfg.OpenRetryDelay)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, flags, 0) // #nosec G304
		if err == nil {
			return f, nil
		}
		lastErr = err
		if !errors.Is(err, syscall.EBUSY) {
			break
		}
		t.logger.Debug().Err(err).Int("attempt", attempt+1).Msg("target busy, retrying")
	}
	return nil, fmt.Errorf("open target: %w", lastErr)
}

func (w *Writer) writeTarget(ctx context.Context, img model.Image, t *target, tick func()) error {
	src, err := os.Open(img.Path) // #nosec G304
	if err != nil {
		return sourceFailure(t.drive.Device, fmt.Errorf("open image: %w", err))
	}
	defer func() { _ = src.Close() }()

	dst, err := w.openTarget(ctx, t)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	buf := make([]byte, w.cfg.BufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			written, werr := dst.Write(buf[:n])
			t.position.Add(uint64(written)) // #nosec G115
			t.written.Add(uint64(written))  // #nosec G115
			if werr != nil {
				return fmt.Errorf("write target: %w", werr)
			}
			tick()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return sourceFailure(t.drive.Device, fmt.Errorf("read image: %w", rerr))
		}
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("sync target: %w", err)
	}
	return nil
}

func (w *Writer) verifyTarget(ctx context.Context, t *target, size, sum uint64, tick func()) error {
	f, err := os.Open(t.drive.WritePath()) // #nosec G304
	if err != nil {
		return fmt.Errorf("open target for verification: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	buf := make([]byte, w.cfg.BufferSize)
	r := io.LimitReader(f, int64(size)) // #nosec G115
	for {
		if ctx.Err() != nil || w.skipValidation.Load() {
			return nil
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
			t.position.Add(uint64(n)) // #nosec G115
			tick()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read back target: %w", rerr)
		}
	}
	if t.position.Load() < size || h.Sum64() != sum {
		return errChecksumMismatch
	}
	return nil
}

// progress aggregates per-target positions. The slowest active target
// drives the reported position.
func (w *Writer) progress(step model.Step, size uint64, targets []*target, start time.Time) model.Progress {
	p := model.Progress{Step: step}
	var (
		minPos uint64
		first  = true
	)
	for _, t := range targets {
		if t.failure() != nil {
			p.Failed++
			continue
		}
		if !t.done.Load() {
			p.Active++
		}
		pos := t.position.Load()
		if first || pos < minPos {
			minPos = pos
			first = false
		}
	}
	p.Position = minPos
	if size > 0 {
		p.Percentage = float64(minPos) / float64(size) * 100
		if p.Percentage > 100 {
			p.Percentage = 100
		}
	}
	elapsed := time.Since(start).Seconds()
	if elapsed > 0 && minPos > 0 {
		speed := float64(minPos) / elapsed / 1e6
		p.Speed = &speed
		if size > minPos {
			eta := float64(size-minPos) / (float64(minPos) / elapsed)
			p.ETA = &eta
		}
	}
	return p
}

func (w *Writer) outcome(targets []*target, start time.Time, cancelled bool) model.Outcome {
	o := model.Outcome{
		Cancelled: cancelled,
		Skipped:   w.skipValidation.Load(),
		Duration:  time.Since(start),
	}
	for _, t := range targets {
		if fe := t.failure(); fe != nil {
			o.Devices.Failed++
			o.Errors = append(o.Errors, model.DeviceError{Device: t.drive.Device, Code: fe.Code, Error: fe.Error()})
			continue
		}
		if cancelled {
			continue
		}
		o.Devices.Successful++
		o.BytesWritten += t.written.Load()
	}
	if secs := o.Duration.Seconds(); secs > 0 {
		o.AverageSpeed = float64(o.BytesWritten) / secs / 1e6
	}
	return o
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package drives

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/imgflash/internal/flash/model"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Sink receives each enumeration result.
type Sink interface {
	Set(drives []model.Drive)
}

// WatcherConfig tunes the hotplug watcher.
type WatcherConfig struct {
	// WatchDirs are watched for entries appearing or disappearing,
	// typically /dev.
	WatchDirs []string
	// Debounce coalesces bursts of device events into one rescan.
	Debounce time.Duration
	// PollInterval forces a periodic rescan; zero disables polling.
	PollInterval time.Duration
}

// Watcher rescans on device changes and publishes the result to a Sink.
type Watcher struct {
	scanner Scanner
	sink    Sink
	cfg     WatcherConfig
	logger  zerolog.Logger
}

// NewWatcher returns a watcher. A zero Debounce selects 250ms.
func NewWatcher(scanner Scanner, sink Sink, cfg WatcherConfig) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	return &Watcher{
		scanner: scanner,
		sink:    sink,
		cfg:     cfg,
		logger:  xglog.WithComponent("drives"),
	}
}

// Rescan enumerates once and publishes the result.
func (w *Watcher) Rescan(ctx context.Context) error {
	drives, err := w.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	w.sink.Set(drives)
	w.logger.Debug().Int("count", len(drives)).Str(xglog.FieldEvent, "drives.scanned").Msg("drive list updated")
	return nil
}

// Run performs an initial scan and then rescans on change until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Rescan(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("initial drive scan failed")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, dir := range w.cfg.WatchDirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	debounce := time.NewTimer(w.cfg.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	var poll <-chan time.Time
	if w.cfg.PollInterval > 0 {
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug().Str(xglog.FieldPath, ev.Name).Str("op", ev.Op.String()).Msg("device change")
			debounce.Reset(w.cfg.Debounce)
		case <-debounce.C:
			if err := w.Rescan(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn().Err(err).Msg("drive rescan failed")
			}
		case <-poll:
			if err := w.Rescan(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn().Err(err).Msg("drive rescan failed")
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			w.logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/imgflash/internal/analytics"
	"github.com/ManuGH/imgflash/internal/api"
	"github.com/ManuGH/imgflash/internal/appstate"
	"github.com/ManuGH/imgflash/internal/config"
	"github.com/ManuGH/imgflash/internal/constraints"
	"github.com/ManuGH/imgflash/internal/drives"
	"github.com/ManuGH/imgflash/internal/flash/lifecycle"
	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/ManuGH/imgflash/internal/flash/orchestrator"
	"github.com/ManuGH/imgflash/internal/flash/view"
	"github.com/ManuGH/imgflash/internal/health"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/ManuGH/imgflash/internal/messages"
	"github.com/ManuGH/imgflash/internal/notification"
	"github.com/ManuGH/imgflash/internal/telemetry"
	"github.com/ManuGH/imgflash/internal/writer"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// app holds the wired collaborators of one CLI invocation.
type app struct {
	cfg     config.AppConfig
	opts    options
	logger  zerolog.Logger
	image   *model.Image
	targets []string

	state    *appstate.State
	msgs     *messages.Messages
	checker  *constraints.Checker
	writer   *writer.Writer
	orch     *orchestrator.Orchestrator
	scanner  drives.Scanner
	watcher  *drives.Watcher
	store    *analytics.Store
	health   *health.Manager
	provider *telemetry.Provider

	// finalState and lastError describe the attempt for --report; the
	// orchestrator clears both once the dialogs are answered.
	finalState lifecycle.State
	lastError  string
}

func newApp(ctx context.Context, cfg config.AppConfig, opts options) (*app, error) {
	a := &app{
		cfg:    cfg,
		opts:   opts,
		logger: xglog.WithComponent("cli"),
		state:  appstate.New(),
		msgs:   messages.New(cfg.Language),
		health: health.NewManager(version),
	}

	if err := health.CheckDataDir(cfg.DataDir); err != nil {
		return nil, err
	}
	a.health.RegisterChecker(health.NewFuncChecker("data_dir", func(context.Context) error {
		return health.CheckDataDir(cfg.DataDir)
	}))

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "imgflash",
		ServiceVersion: version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.provider = provider

	if cfg.Analytics.Enabled && cfg.Analytics.Persist {
		store, err := analytics.OpenStore(ctx, filepath.Join(cfg.DataDir, "analytics.db"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open analytics store: %w", err)
		}
		a.store = store
		a.health.RegisterChecker(health.NewOptionalChecker("analytics_store", store.Check))
	}
	tracker := analytics.New(analytics.Options{Enabled: cfg.Analytics.Enabled, Store: a.store})

	sinks := []notification.Sink{notification.NewLogSink()}
	if cfg.Notifications.Desktop {
		desktop := notification.NewDesktopSink(cfg.Notifications.Command, nil)
		if desktop.Available() {
			sinks = append(sinks, desktop)
		} else {
			a.logger.Debug().Str("command", desktop.Command).Msg("desktop notifications unavailable")
		}
	}
	dispatcher := notification.NewDispatcher(cfg.Notifications.Timeout, sinks...)

	a.checker = constraints.New(constraints.Config{
		LargeDriveSize:  cfg.Drives.LargeDriveSize,
		RecommendedSize: cfg.Drives.RecommendedSize,
	})

	a.writer = writer.New(writer.Config{
		BufferSize:       cfg.Writer.BufferSize,
		Verify:           cfg.Writer.Verify,
		ProgressInterval: cfg.Writer.ProgressInterval,
		OpenRetries:      cfg.Writer.OpenRetries,
		OpenRetryDelay:   cfg.Writer.OpenRetryDelay,
	}, a.state.Flash)

	if opts.image != "" {
		img, err := imageFromPath(opts.image)
		if err != nil {
			a.close()
			return nil, err
		}
		a.image = &img
		a.state.Selection.SetImage(img)
	}
	a.scanner, a.targets = a.buildScanner(opts.targets)

	orch, err := orchestrator.New(orchestrator.Deps{
		Writer:    a.writer,
		Flash:     a.state.Flash,
		Selection: a.state.Selection,
		Drives:    a.state.Drives,
		Checker:   a.checker,
		Notifier:  dispatcher,
		Analytics: tracker,
		Messages:  a.msgs,
		IconPath:  cfg.Notifications.IconPath,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.orch = orch

	a.watcher = drives.NewWatcher(a.scanner, a.state.Drives, drives.WatcherConfig{
		WatchDirs:    []string{cfg.Drives.DevRoot},
		Debounce:     cfg.Drives.Debounce,
		PollInterval: cfg.Drives.PollInterval,
	})
	return a, nil
}

func imageFromPath(path string) (model.Image, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.Image{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return model.Image{}, fmt.Errorf("image: %w", err)
	}
	if info.IsDir() {
		return model.Image{}, fmt.Errorf("image %s is a directory", abs)
	}
	return model.Image{Path: abs, Size: uint64(info.Size())}, nil // #nosec G115
}

// buildScanner splits targets into block devices under DevRoot and regular
// files, and returns the scanner covering both plus the device ids to select.
func (a *app) buildScanner(targets []string) (drives.Scanner, []string) {
	devRoot := filepath.Clean(a.cfg.Drives.DevRoot) + string(filepath.Separator)
	var files, ids []string
	for _, t := range targets {
		if strings.HasPrefix(t, devRoot) {
			ids = append(ids, filepath.Clean(t))
			continue
		}
		abs, err := filepath.Abs(t)
		if err != nil {
			abs = t
		}
		files = append(files, abs)
		ids = append(ids, abs)
	}

	var multi drives.MultiScanner
	if a.usesDevices(targets) {
		multi = append(multi, &drives.SysfsScanner{
			SysRoot:       a.cfg.Drives.SysRoot,
			DevRoot:       a.cfg.Drives.DevRoot,
			MountsFile:    a.cfg.Drives.MountsFile,
			IncludeSystem: a.cfg.Drives.IncludeSystem,
		})
	}
	if len(files) > 0 {
		var capacity uint64
		if a.image != nil {
			capacity = a.image.Size
		}
		multi = append(multi, &drives.FileScanner{Paths: files, Capacity: capacity})
	}
	return multi, ids
}

// usesDevices reports whether the sysfs scanner is needed.
func (a *app) usesDevices(targets []string) bool {
	if a.opts.list || len(targets) == 0 {
		return true
	}
	devRoot := filepath.Clean(a.cfg.Drives.DevRoot) + string(filepath.Separator)
	for _, t := range targets {
		if strings.HasPrefix(t, devRoot) {
			return true
		}
	}
	return false
}

// View implements api.Controller.
func (a *app) View() view.Model {
	_, hasImage := a.state.Selection.Image()
	return view.Project(view.Input{
		Snapshot: a.orch.Snapshot(),
		Progress: a.state.Flash.Progress(),
		Flashing: a.state.Flash.IsFlashing(),
		HasImage: hasImage,
		Selected: a.state.Selection.SelectedDrives(),
	}, a.msgs)
}

// Cancel implements api.Controller.
func (a *app) Cancel() { a.orch.Cancel() }

// SkipValidation implements api.Controller.
func (a *app) SkipValidation() { a.writer.SkipValidation() }

// startBackground runs the hotplug watcher and, with --serve, the status API.
// The returned stop function blocks until both have exited.
func (a *app) startBackground(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Drives.Watch && a.usesDevices(a.opts.targets) {
		g.Go(func() error {
			if err := a.watcher.Run(gctx); err != nil {
				a.logger.Warn().Err(err).Msg("drive watcher stopped")
			}
			return nil
		})
	}

	if a.opts.serve {
		var events api.EventSource
		if a.store != nil {
			events = a.store
		}
		srv, err := api.New(api.Config{
			ListenAddr:     a.cfg.API.ListenAddr,
			RateLimit:      a.cfg.API.RateLimit,
			RateWindow:     a.cfg.API.RateWindow,
			TracingService: tracingService(a.cfg),
		}, a, a.state.Drives, events, a.health)
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, fmt.Errorf("build status API: %w", err)
		}
		_, errCh, err := srv.Start()
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, fmt.Errorf("start status API: %w", err)
		}
		g.Go(func() error {
			select {
			case err := <-errCh:
				return err
			case <-gctx.Done():
			}
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return func() {
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("background task failed")
		}
	}, nil
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return "imgflash-api"
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close analytics store")
		}
	}
	if a.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.provider.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}
}

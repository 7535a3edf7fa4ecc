// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notification

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/rs/zerolog"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink() *LogSink {
	return &LogSink{logger: xglog.WithComponent("notification")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(_ context.Context, n Notification) error {
	s.logger.Info().
		Str(xglog.FieldEvent, "notification").
		Str("title", n.Title).
		Str("body", n.Body).
		Msg("notification")
	return nil
}

// Runner executes an external command. It exists so tests can stub exec.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() // #nosec G204
}

// DesktopSink shows notifications through notify-send.
type DesktopSink struct {
	Command string
	AppName string
	run     Runner
}

// NewDesktopSink returns a sink using notify-send. A nil runner execs the
// command for real.
func NewDesktopSink(command string, run Runner) *DesktopSink {
	if command == "" {
		command = "notify-send"
	}
	if run == nil {
		run = execRunner
	}
	return &DesktopSink{Command: command, AppName: "imgflash", run: run}
}

func (s *DesktopSink) Name() string { return "desktop" }

func (s *DesktopSink) Notify(ctx context.Context, n Notification) error {
	args := []string{"--app-name=" + s.AppName}
	if n.Icon != "" {
		args = append(args, "--icon="+n.Icon)
	}
	args = append(args, n.Title, n.Body)
	out, err := s.run(ctx, s.Command, args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", s.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Available reports whether the desktop command is on PATH.
func (s *DesktopSink) Available() bool {
	_, err := exec.LookPath(s.Command)
	return err == nil
}

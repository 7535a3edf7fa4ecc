// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/imgflash/internal/flash/lifecycle"
	"github.com/ManuGH/imgflash/internal/flash/orchestrator"
	"github.com/ManuGH/imgflash/internal/flash/view"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/ManuGH/imgflash/internal/util"
)

const renderInterval = 500 * time.Millisecond

// prompter asks yes/no questions on the terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newPrompter(in io.Reader, out io.Writer, yes bool) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, yes: yes}
}

// confirm returns def on EOF or empty input. With --yes it answers
// autoAnswer without reading.
func (p *prompter) confirm(question string, def, autoAnswer bool) bool {
	if p.yes {
		return autoAnswer
	}
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	_, _ = fmt.Fprintf(p.out, "%s %s ", question, hint)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(p.out)
		return def
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// runSession drives one flash with the warning and retry dialogs and
// returns the process exit code.
func (a *app) runSession(ctx context.Context, p *prompter, out io.Writer) int {
	// Flashing runs on its own context: a signal cancels through the
	// writer so the outcome is recorded as a user cancel.
	flashCtx, cancelFlash := context.WithCancel(xglog.ContextWithRequestID(context.Background(), "cli"))
	defer cancelFlash()
	stopBackground, err := a.startBackground(flashCtx)
	if err != nil {
		a.logger.Error().Err(err).Msg("start background tasks")
		return exitFailure
	}
	defer stopBackground()

	var interrupted atomic.Bool
	go func() {
		select {
		case <-ctx.Done():
			interrupted.Store(true)
			a.orch.Cancel()
		case <-flashCtx.Done():
		}
	}()

	code := a.flashLoop(flashCtx, p, out)
	if interrupted.Load() && code != exitOK {
		code = exitCanceled
	}
	if a.opts.report != "" {
		if err := writeReport(a.opts.report, a.buildReport(code)); err != nil {
			a.logger.Error().Err(err).Str(xglog.FieldPath, a.opts.report).Msg("write report")
			if code == exitOK {
				code = exitFailure
			}
		}
	}
	return code
}

func (a *app) flashLoop(ctx context.Context, p *prompter, out io.Writer) int {
	for {
		if err := a.watcher.Rescan(ctx); err != nil {
			a.logger.Error().Err(err).Msg("drive scan failed")
			return exitFailure
		}
		a.state.Selection.SelectAll(a.targets)
		if missing := a.missingTargets(); len(missing) > 0 {
			_, _ = fmt.Fprintf(out, "Target not available: %s\n", strings.Join(missing, ", "))
			return exitFailure
		}

		stopRender := a.renderProgress(out)
		a.orch.TryFlash(ctx)
		if a.orch.State() == lifecycle.StateWarningPending {
			stopRender()
			warning := a.orch.Snapshot().Warning
			proceed := p.confirm(a.renderWarning(out), false, true)
			if !proceed {
				a.orch.RespondToWarning(ctx, false)
				remaining := a.dropWarned(warning)
				if len(remaining) == 0 || !p.confirm("Flash the remaining targets only?", false, false) {
					a.orch.CloseDriveSelector()
					return exitDeclined
				}
				a.orch.SelectTargets(remaining)
				a.targets = remaining
				continue
			}
			stopRender = a.renderProgress(out)
			a.orch.RespondToWarning(ctx, true)
		}
		stopRender()

		a.finalState = a.orch.State()
		switch a.finalState {
		case lifecycle.StateSucceeded:
			code := a.renderOutcome(out)
			a.orch.Acknowledge(ctx)
			return code
		case lifecycle.StateFailed:
			m := a.View()
			a.lastError = a.orch.Snapshot().ErrorMessage
			if m.ErrorModal != nil {
				_, _ = fmt.Fprintf(out, "%s\n  %s\n", m.ErrorModal.Title, strings.Join(m.ErrorModal.Lines, "\n  "))
			}
			retry := p.confirm(a.msgs.Retry()+"?", false, false)
			a.orch.RespondToError(ctx, retry)
			if retry {
				continue
			}
			return exitFailure
		default:
			if a.state.Flash.WasLastFlashCancelled() {
				a.finalState = lifecycle.StateCancelled
				_, _ = fmt.Fprintln(out, "Flash cancelled.")
				return exitCanceled
			}
			_, _ = fmt.Fprintln(out, "Nothing to flash.")
			return exitFailure
		}
	}
}

// dropWarned deselects the flagged drives, acting as the drive selector,
// and returns what is left selected.
func (a *app) dropWarned(w *orchestrator.Warning) []string {
	if w != nil {
		for _, d := range w.DrivesWithWarnings {
			a.state.Selection.DeselectDrive(d.Device)
		}
	}
	return a.state.Selection.SelectedDevices()
}

func (a *app) missingTargets() []string {
	var missing []string
	for _, id := range a.targets {
		if _, ok := a.state.Drives.Lookup(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// renderProgress prints the progress line while a flash is running.
func (a *app) renderProgress(out io.Writer) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(renderInterval)
		defer ticker.Stop()
		printed := false
		for {
			select {
			case <-done:
				if printed {
					_, _ = fmt.Fprintln(out)
				}
				return
			case <-ticker.C:
				if !a.state.Flash.IsFlashing() {
					continue
				}
				_, _ = fmt.Fprintf(out, "\r%s", progressLine(a.View()))
				printed = true
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func progressLine(m view.Model) string {
	parts := []string{fmt.Sprintf("%-13s %5.1f%%", m.Button.Type, m.Button.Percentage)}
	for _, s := range []string{m.Speed, m.ETA, m.Failed} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "  ")
}

// renderWarning prints the warning dialog and returns its question.
func (a *app) renderWarning(out io.Writer) string {
	m := a.View()
	w := m.WarningModal
	if w == nil {
		return a.msgs.WarningContinue() + "?"
	}
	_, _ = fmt.Fprintln(out, w.Message)
	for _, d := range w.Drives {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", d.Label, strings.Join(d.Statuses, ", "))
	}
	return w.Continue + "?"
}

func (a *app) renderOutcome(out io.Writer) int {
	res := a.state.Flash.Results()
	switch {
	case res.Cancelled:
		_, _ = fmt.Fprintln(out, "Flash cancelled.")
		return exitCanceled
	case res.Devices.Successful == 0:
		_, _ = fmt.Fprintf(out, "%s: %s\n", a.msgs.FlashFailureTitle(), a.msgs.FailedTargets(res.Devices.Failed))
		return exitFailure
	}
	_, _ = fmt.Fprintf(out, "%s: %d succeeded, %d failed, %s in %s\n",
		a.msgs.FlashCompleteTitle(),
		res.Devices.Successful,
		res.Devices.Failed,
		formatBytes(res.BytesWritten),
		util.FormatSeconds(res.Duration.Seconds()),
	)
	for _, e := range res.Errors {
		_, _ = fmt.Fprintf(out, "  %s: %s (%s)\n", e.Device, e.Error, e.Code)
	}
	if res.Devices.Failed > 0 {
		return exitFailure
	}
	return exitOK
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// listDrives prints every scanned drive with its compatibility statuses.
func (a *app) listDrives(ctx context.Context, out io.Writer) error {
	if err := a.watcher.Rescan(ctx); err != nil {
		return err
	}
	for _, id := range a.targets {
		a.state.Selection.SelectDrive(id)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SEL\tDEVICE\tNAME\tSIZE\tVALID\tSTATUS")
	for _, d := range a.state.Drives.Drives() {
		mark := ""
		if a.state.Selection.IsSelected(d.Device) {
			mark = "*"
		}
		var notes []string
		for _, st := range a.checker.Statuses(d, a.image, false) {
			notes = append(notes, st.Message)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			mark,
			d.Device, d.DisplayName, formatBytes(d.Size), a.checker.IsDriveValid(d, a.image, true), strings.Join(notes, "; "))
	}
	return tw.Flush()
}

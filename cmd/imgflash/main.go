// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command imgflash writes a disk image to one or more drives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/imgflash/internal/config"
	xglog "github.com/ManuGH/imgflash/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitDeclined = 3
	exitCanceled = 130
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty value")
	}
	*s = append(*s, v)
	return nil
}

type options struct {
	configPath string
	image      string
	targets    stringList
	yes        bool
	list       bool
	serve      bool
	report     string
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(sigCtx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("imgflash", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	fs.StringVar(&opts.image, "image", "", "path to the image to flash")
	fs.Var(&opts.targets, "target", "target device or file (repeatable)")
	fs.BoolVar(&opts.yes, "yes", false, "accept drive warnings without prompting")
	fs.BoolVar(&opts.list, "list", false, "list available drives and exit")
	fs.BoolVar(&opts.serve, "serve", false, "serve the status API while flashing")
	fs.StringVar(&opts.report, "report", "", "write a JSON report of the attempt to this path")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *showVersion {
		_, _ = fmt.Fprintf(stdout, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return exitOK
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Output:  stderr,
		Service: "imgflash",
		Version: version,
	})
	logger := xglog.WithComponent("cli")

	cfg, err := config.NewLoader(opts.configPath, version).Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", opts.configPath).
			Msg("failed to load configuration")
		return exitUsage
	}
	xglog.Reconfigure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  stderr,
		Service: "imgflash",
		Version: version,
	})

	if !opts.list && (opts.image == "" || len(opts.targets) == 0) {
		_, _ = fmt.Fprintln(stderr, "imgflash: --image and at least one --target are required (or use --list)")
		fs.Usage()
		return exitUsage
	}

	a, err := newApp(sigCtx, cfg, opts)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "startup.failed").Msg("startup failed")
		return exitFailure
	}
	defer a.close()

	if opts.list {
		if err := a.listDrives(sigCtx, stdout); err != nil {
			logger.Error().Err(err).Msg("list drives")
			return exitFailure
		}
		return exitOK
	}

	return a.runSession(sigCtx, newPrompter(stdin, stdout, opts.yes), stdout)
}

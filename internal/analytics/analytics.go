// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package analytics records fire-and-forget usage events and diagnostic
// exceptions.
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/imgflash/internal/flash/model"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/ManuGH/imgflash/internal/metrics"
	"github.com/ManuGH/imgflash/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const persistTimeout = 2 * time.Second

// Tracker implements the analytics collaborator.
type Tracker struct {
	enabled bool
	logger  zerolog.Logger
	tracer  trace.Tracer
	store   *Store
}

// Options configures a Tracker. Store may be nil.
type Options struct {
	Enabled bool
	Store   *Store
	Logger  *zerolog.Logger
}

// New returns a Tracker. A disabled tracker still logs exceptions at debug.
func New(opts Options) *Tracker {
	logger := xglog.WithComponent("analytics")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Tracker{
		enabled: opts.Enabled,
		logger:  logger,
		tracer:  telemetry.Tracer("imgflash/analytics"),
		store:   opts.Store,
	}
}

// LogEvent records a named usage event.
func (t *Tracker) LogEvent(name string, data map[string]string) {
	if !t.enabled {
		return
	}
	metrics.IncAnalyticsEvent(name)

	ev := t.logger.Info().Str(xglog.FieldEvent, name)
	for k, v := range data {
		ev = ev.Str(k, v)
	}
	ev.Msg("analytics event")

	_, span := t.tracer.Start(context.Background(), "analytics.event",
		trace.WithAttributes(attribute.String(telemetry.AnalyticsEventKey, name)))
	span.End()

	t.persist(Record{Kind: KindEvent, Name: name})
}

// LogException reports an error for diagnostics. FlashError code and image
// are extracted when present.
func (t *Tracker) LogException(err error) {
	if err == nil {
		return
	}
	var code, image string
	var fe *model.FlashError
	if errors.As(err, &fe) {
		code = fe.Code
		image = fe.Image
	}

	if !t.enabled {
		t.logger.Debug().Err(err).Str(xglog.FieldCode, code).Msg("exception (analytics disabled)")
		return
	}
	metrics.IncAnalyticsException()

	t.logger.Error().
		Err(err).
		Str(xglog.FieldCode, code).
		Str(xglog.FieldImage, image).
		Str(xglog.FieldEvent, "analytics.exception").
		Msg("unclassified flash error")

	_, span := t.tracer.Start(context.Background(), "analytics.exception",
		trace.WithAttributes(telemetry.ErrorAttributes(code)...))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()

	t.persist(Record{Kind: KindException, Name: "exception", Code: code, Image: image, Detail: err.Error()})
}

func (t *Tracker) persist(r Record) {
	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := t.store.Insert(ctx, r); err != nil {
		t.logger.Warn().Err(err).Str(xglog.FieldEvent, "analytics.persist_failed").Msg("failed to persist analytics record")
	}
}

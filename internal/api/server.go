// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the flash status, a cancel endpoint, health checks and
// Prometheus metrics over HTTP. The /api/v1 surface is described by
// openapi.yaml and requests are validated against it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/imgflash/internal/analytics"
	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/ManuGH/imgflash/internal/flash/view"
	"github.com/ManuGH/imgflash/internal/health"
	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Controller is the flash surface the API drives.
type Controller interface {
	View() view.Model
	Cancel()
	SkipValidation()
}

// DriveSource lists the currently available drives. Revision changes on
// every rescan.
type DriveSource interface {
	Drives() []model.Drive
	Revision() uint64
}

const headerDrivesRevision = "X-Drives-Revision"

// EventSource lists recent analytics records.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]analytics.Record, error)
}

// Config configures the HTTP server.
type Config struct {
	ListenAddr string
	RateLimit  int
	RateWindow time.Duration
	// TracingService enables otelhttp spans when non-empty.
	TracingService string
}

// Server is the HTTP status surface.
type Server struct {
	cfg        Config
	controller Controller
	drives     DriveSource
	events     EventSource
	health     *health.Manager
	logger     zerolog.Logger
	openapi    routers.Router

	httpServer *http.Server
}

// New builds the server. drives and events may be nil.
func New(cfg Config, controller Controller, drives DriveSource, events EventSource, hm *health.Manager) (*Server, error) {
	router, err := newOpenAPIRouter(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:        cfg,
		controller: controller,
		drives:     drives,
		events:     events,
		health:     hm,
		logger:     xglog.WithComponent("api"),
		openapi:    router,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(accessLog)
	if s.cfg.TracingService != "" {
		r.Use(tracing(s.cfg.TracingService))
	}

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
		}
		r.Use(validateRequests(s.openapi))
		r.Get("/flash", s.GetFlash)
		r.Post("/flash/cancel", s.CancelFlash)
		r.Post("/flash/skip-validation", s.SkipValidation)
		r.Get("/drives", s.ListDrives)
		r.Get("/analytics/events", s.ListAnalyticsEvents)
	})
	return r
}

// Start listens and serves until Shutdown. It returns once the listener
// is bound so callers can rely on the address being reachable.
func (s *Server) Start() (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return nil, nil, err
	}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("status API listening")
	return ln.Addr(), errCh, nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetFlash returns the current view model.
func (s *Server) GetFlash(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.View())
}

// CancelFlash requests cancellation of the running flash.
func (s *Server) CancelFlash(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "api")
	logger.Info().Str(xglog.FieldEvent, "flash.cancel_requested").Msg("cancel requested")
	s.controller.Cancel()
	w.WriteHeader(http.StatusAccepted)
}

// SkipValidation skips the verification pass.
func (s *Server) SkipValidation(w http.ResponseWriter, _ *http.Request) {
	s.controller.SkipValidation()
	w.WriteHeader(http.StatusAccepted)
}

// ListDrives returns the latest scan with its revision in a header.
func (s *Server) ListDrives(w http.ResponseWriter, _ *http.Request) {
	if s.drives == nil {
		writeJSON(w, http.StatusOK, []model.Drive{})
		return
	}
	w.Header().Set(headerDrivesRevision, strconv.FormatUint(s.drives.Revision(), 10))
	drives := s.drives.Drives()
	if drives == nil {
		drives = []model.Drive{}
	}
	writeJSON(w, http.StatusOK, drives)
}

// ListAnalyticsEvents returns recent analytics records, newest first.
func (s *Server) ListAnalyticsEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "analytics persistence disabled"})
		return
	}
	limit := 50
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil || limit <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}
	recs, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list analytics events")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if recs == nil {
		recs = []analytics.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notification delivers user-visible OS notifications.
package notification

import (
	"context"
	"time"

	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/ManuGH/imgflash/internal/metrics"
	"github.com/rs/zerolog"
)

// Notification is one message to display.
type Notification struct {
	Title string
	Body  string
	Icon  string
}

// Sink delivers a notification to one destination.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher fans a notification out to every sink. Delivery failures are
// logged and never reported to the caller.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDispatcher returns a dispatcher over sinks. A zero timeout selects 5s.
func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  xglog.WithComponent("notification"),
	}
}

// Send delivers title and body with an optional icon path.
func (d *Dispatcher) Send(title, body, icon string) {
	n := Notification{Title: title, Body: body, Icon: icon}
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := s.Notify(ctx, n)
		cancel()
		if err != nil {
			metrics.IncNotification(s.Name(), "error")
			d.logger.Warn().Err(err).Str("sink", s.Name()).Msg("notification delivery failed")
			continue
		}
		metrics.IncNotification(s.Name(), "sent")
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analyticsEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_analytics_events_total",
		Help: "Total number of analytics events logged",
	}, []string{"event"})

	analyticsExceptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imgflash_analytics_exceptions_total",
		Help: "Total number of exceptions reported for diagnostics",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imgflash_notifications_total",
		Help: "Total number of notifications dispatched, by sink and result",
	}, []string{"sink", "result"})
)

// IncAnalyticsEvent counts a logged analytics event.
func IncAnalyticsEvent(event string) {
	if event == "" {
		event = "unknown"
	}
	analyticsEventsTotal.WithLabelValues(event).Inc()
}

// IncAnalyticsException counts a reported exception.
func IncAnalyticsException() {
	analyticsExceptionsTotal.Inc()
}

// IncNotification counts a dispatched notification.
func IncNotification(sink, result string) {
	notificationsTotal.WithLabelValues(sink, result).Inc()
}

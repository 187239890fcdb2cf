// Package observability defines the Prometheus metrics exported on the dev console.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"modelwire/internal/core"
)

var (
	// SelectionsTotal counts resolved beans by capability, provider and outcome.
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelwire",
			Subsystem: "beans",
			Name:      "selections_total",
			Help:      "Provider selections made while building the bean graph",
		},
		[]string{"capability", "provider", "outcome"},
	)

	// ResolutionErrorsTotal counts configuration errors by type.
	ResolutionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelwire",
			Subsystem: "beans",
			Name:      "resolution_errors_total",
			Help:      "Provider resolution failures",
		},
		[]string{"type"},
	)

	// DevServiceStartsTotal counts container start attempts.
	DevServiceStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelwire",
			Subsystem: "devservices",
			Name:      "starts_total",
			Help:      "Dev service container start attempts",
		},
		[]string{"service", "outcome"},
	)

	// DevServiceStartDuration observes how long a container took to become ready.
	DevServiceStartDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelwire",
			Subsystem: "devservices",
			Name:      "start_duration_seconds",
			Help:      "Time until a dev service container was ready",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)

	// DevServicesRunning is 1 while the dev service trio is running.
	DevServicesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelwire",
			Subsystem: "devservices",
			Name:      "running",
			Help:      "Whether dev services are running",
		},
	)

	// HTTPRequestsTotal counts dev console requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dev console HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Outcome label values.
const (
	OutcomeSelected = "selected"
	OutcomeUserBean = "user_bean"
	OutcomeStarted  = "started"
	OutcomeLocated  = "located"
	OutcomeFailed   = "failed"
)

// RecordSelection counts one resolver outcome.
func RecordSelection(sel core.Selection) {
	if sel.Selected {
		SelectionsTotal.WithLabelValues(string(sel.Capability), sel.Provider, OutcomeSelected).Inc()
		return
	}
	SelectionsTotal.WithLabelValues(string(sel.Capability), "", OutcomeUserBean).Inc()
}

// RecordResolutionError counts a failed build by configuration error type.
func RecordResolutionError(err error) {
	var cfgErr *core.ConfigurationError
	if errors.As(err, &cfgErr) {
		ResolutionErrorsTotal.WithLabelValues(string(cfgErr.Type)).Inc()
		return
	}
	ResolutionErrorsTotal.WithLabelValues("other").Inc()
}

// RecordDevServiceStart counts a container start attempt and, when it succeeded, its duration.
func RecordDevServiceStart(service, outcome string, took time.Duration) {
	DevServiceStartsTotal.WithLabelValues(service, outcome).Inc()
	if outcome != OutcomeFailed {
		DevServiceStartDuration.WithLabelValues(service).Observe(took.Seconds())
	}
}

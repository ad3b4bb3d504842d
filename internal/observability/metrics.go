// Package observability provides the Prometheus metrics shared by the authority and gateway.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess            = "success"
	OutcomeValidationFailed   = "validation_failed"
	OutcomeUsernameTaken      = "username_taken"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeStorageFailure     = "storage_failure"

	UpstreamAuthenticated = "authenticated"
	UpstreamAnonymous     = "anonymous"
	UpstreamSkipped       = "skipped"
	UpstreamTimeout       = "timeout"
	UpstreamUnavailable   = "unavailable"
)

// Metrics contains the custom counters. A nil *Metrics records nothing.
type Metrics struct {
	SignupsTotal        *prometheus.CounterVec
	LoginsTotal         *prometheus.CounterVec
	UpstreamChecksTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the counters
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pinauth_signups_total",
				Help: "Total number of signup attempts by outcome",
			},
			[]string{"outcome"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pinauth_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pinauth_gateway_upstream_checks_total",
				Help: "Total number of gateway identity checks by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.SignupsTotal, m.LoginsTotal, m.UpstreamChecksTotal)
	return m
}

// NewRegistry creates a registry with the standard Go and process collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// Handler serves the registry in the Prometheus exposition format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordSignup counts a signup attempt
func (m *Metrics) RecordSignup(outcome string) {
	if m == nil {
		return
	}
	m.SignupsTotal.WithLabelValues(outcome).Inc()
}

// RecordLogin counts a login attempt
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordUpstreamCheck counts a gateway identity check
func (m *Metrics) RecordUpstreamCheck(result string) {
	if m == nil {
		return
	}
	m.UpstreamChecksTotal.WithLabelValues(result).Inc()
}

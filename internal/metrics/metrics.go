// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the prometheus collectors for research runs. Each
// Metrics value owns a private registry so tests and servers do not collide
// on the global default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/equity-research/pkg/types"
)

const namespace = "equity_research"

// Call kinds.
const (
	KindGenerate = "generate"
	KindSearch   = "search"
	KindQuote    = "quote"
)

// Metrics groups the run collectors. All methods are safe on a nil receiver
// so callers can leave metrics unset.
type Metrics struct {
	Registry     *prometheus.Registry
	Calls        *prometheus.CounterVec
	Tokens       *prometheus.CounterVec
	Cost         prometheus.Counter
	Runs         *prometheus.CounterVec
	GateInFlight *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "External capability calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Generation tokens by direction.",
		}, []string{"direction"}),
		Cost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Estimated generation cost in USD.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished research runs by terminal status.",
		}, []string{"status"}),
		GateInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_in_flight",
			Help:      "Current holders of each concurrency gate.",
		}, []string{"gate"}),
	}
	m.Registry.MustRegister(m.Calls, m.Tokens, m.Cost, m.Runs, m.GateInFlight)
	return m
}

// ObserveCall counts one capability call.
func (m *Metrics) ObserveCall(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Calls.WithLabelValues(kind, outcome).Inc()
}

// ObserveUsage adds one generation call's usage.
func (m *Metrics) ObserveUsage(u types.TokenUsage) {
	if m == nil {
		return
	}
	m.Tokens.WithLabelValues("input").Add(float64(u.InputTokens))
	m.Tokens.WithLabelValues("output").Add(float64(u.OutputTokens))
	m.Cost.Add(u.Cost)
}

// ObserveRun counts a run reaching a terminal status.
func (m *Metrics) ObserveRun(status types.Status) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(status)).Inc()
}

// Gauge returns the in-flight gauge for a named gate, or nil.
func (m *Metrics) Gauge(gate string) prometheus.Gauge {
	if m == nil {
		return nil
	}
	return m.GateInFlight.WithLabelValues(gate)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

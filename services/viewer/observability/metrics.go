// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics for the well log viewer.
//
// # Description
//
// This package implements Prometheus metrics for the viewer. Metrics include:
//   - External call counters and latency (well service, AI service)
//   - Stale response counters
//   - Chart build counters, including rejected specs
//   - Axis ranges cached
//   - Active session gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every method is a no-op on a nil *Metrics, so components built without
// metrics need no guards.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "welllog"

const viewerSubsystem = "viewer"

// Service labels an external dependency.
type Service string

const (
	ServiceWell Service = "well_service"
	ServiceAI   Service = "ai_service"
)

// ChartKind labels the chart a build produced.
type ChartKind string

const (
	ChartCurves  ChartKind = "curves"
	ChartCleaned ChartKind = "cleaned"
	ChartPNG     ChartKind = "png"
)

// Metrics holds all Prometheus metrics of the viewer.
//
// # Fields
//
//   - ExternalCallsTotal: Calls to well/AI services by service, operation and outcome
//   - ExternalCallDuration: Latency of those calls
//   - StaleResponsesTotal: Responses dropped because the session moved on
//   - ChartBuildsTotal: Successful chart builds by kind
//   - InvalidSpecsTotal: Chart builds rejected as inconsistent
//   - RangesCachedTotal: Axis ranges fixed by a first batch
//   - ActiveSessions: Sessions currently held by the registry
type Metrics struct {
	ExternalCallsTotal   *prometheus.CounterVec
	ExternalCallDuration *prometheus.HistogramVec
	StaleResponsesTotal  *prometheus.CounterVec
	ChartBuildsTotal     *prometheus.CounterVec
	InvalidSpecsTotal    prometheus.Counter
	RangesCachedTotal    prometheus.Counter
	ActiveSessions       prometheus.Gauge
}

// NewMetrics creates the viewer metrics and registers them with reg.
//
// # Inputs
//
//   - reg: Target registry. Pass prometheus.DefaultRegisterer in main and a
//     fresh prometheus.NewRegistry() in tests.
//
// # Limitations
//
//   - Panics on duplicate registration against the same registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExternalCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "external_calls_total",
				Help:      "External service calls by service, operation and status",
			},
			[]string{"service", "operation", "status"},
		),

		ExternalCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "external_call_duration_seconds",
				Help:      "External service call latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service", "operation"},
		),

		StaleResponsesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "stale_responses_total",
				Help:      "Responses discarded because the session changed while they were in flight",
			},
			[]string{"operation"},
		),

		ChartBuildsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "chart_builds_total",
				Help:      "Charts built by kind",
			},
			[]string{"kind"},
		),

		InvalidSpecsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "invalid_specs_total",
				Help:      "Chart builds rejected as internally inconsistent",
			},
		),

		RangesCachedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "axis_ranges_cached_total",
				Help:      "Axis ranges fixed from a first sample batch",
			},
		),

		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: viewerSubsystem,
				Name:      "active_sessions",
				Help:      "Number of live viewer sessions",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordCall records one external call and its latency.
func (m *Metrics) RecordCall(service Service, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ExternalCallsTotal.WithLabelValues(string(service), operation, status).Inc()
	m.ExternalCallDuration.WithLabelValues(string(service), operation).Observe(elapsed.Seconds())
}

// RecordStale records a discarded response.
func (m *Metrics) RecordStale(operation string) {
	if m == nil {
		return
	}
	m.StaleResponsesTotal.WithLabelValues(operation).Inc()
}

// RecordChart records a successful chart build.
func (m *Metrics) RecordChart(kind ChartKind) {
	if m == nil {
		return
	}
	m.ChartBuildsTotal.WithLabelValues(string(kind)).Inc()
}

// RecordInvalidSpec records a rejected chart build.
func (m *Metrics) RecordInvalidSpec() {
	if m == nil {
		return
	}
	m.InvalidSpecsTotal.Inc()
}

// RecordRangesCached adds n newly cached axis ranges.
func (m *Metrics) RecordRangesCached(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RangesCachedTotal.Add(float64(n))
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

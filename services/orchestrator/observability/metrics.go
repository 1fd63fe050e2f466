// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring KSI validation
// runs. Metrics include:
//   - Run counters (by status and trigger source)
//   - Per-category validator invocation counters and latency histograms
//   - KSI throughput counters
//   - Active-run gauge
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "sentinel"

// Subsystem for validation run metrics
const validationSubsystem = "validation"

// ValidationMetrics holds all Prometheus metrics for KSI validation runs.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring orchestration
// throughput and validator health. Initialize once at startup via
// InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type ValidationMetrics struct {
	// RunsTotal counts orchestration runs by final status and trigger source.
	// Labels: status (COMPLETED, FAILED), trigger_source (manual, scheduler name)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures whole-run duration.
	// Labels: status
	RunDurationSeconds *prometheus.HistogramVec

	// ValidatorInvocationsTotal counts per-category validator invocations.
	// Labels: category (cna, svc, iam, mla, cmt), status (SUCCESS, ERROR)
	ValidatorInvocationsTotal *prometheus.CounterVec

	// ValidatorDurationSeconds measures per-category invocation latency.
	// Labels: category
	ValidatorDurationSeconds *prometheus.HistogramVec

	// KSIsValidatedTotal counts KSIs handed to validators.
	KSIsValidatedTotal prometheus.Counter

	// ActiveRuns tracks currently executing orchestration runs.
	ActiveRuns prometheus.Gauge

	// ConfigFetchErrorsTotal counts tenant configuration read failures.
	// Labels: tenant_id
	ConfigFetchErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of ValidationMetrics.
// Initialized by InitMetrics(). A nil DefaultMetrics is tolerated by all
// callers so tests can run without touching the global registry.
var DefaultMetrics *ValidationMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once at
// application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *ValidationMetrics {
	DefaultMetrics = &ValidationMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "runs_total",
				Help:      "Total orchestration runs by final status and trigger source",
			},
			[]string{"status", "trigger_source"},
		),

		RunDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "run_duration_seconds",
				Help:      "Whole-run duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),

		ValidatorInvocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "validator_invocations_total",
				Help:      "Per-category validator invocations by outcome",
			},
			[]string{"category", "status"},
		),

		ValidatorDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "validator_duration_seconds",
				Help:      "Per-category validator invocation latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"category"},
		),

		KSIsValidatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "ksis_validated_total",
				Help:      "Total KSIs handed to category validators",
			},
		),

		ActiveRuns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "active_runs",
				Help:      "Number of orchestration runs currently executing",
			},
		),

		ConfigFetchErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "config_fetch_errors_total",
				Help:      "Tenant configuration read failures",
			},
			[]string{"tenant_id"},
		),
	}

	return DefaultMetrics
}

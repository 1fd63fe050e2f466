// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services provides business logic services for the orchestrator.
//
// This package contains service structs that encapsulate business logic,
// separating it from HTTP handlers. Services are responsible for:
//   - Coordinating calls to external collaborators (stores, validators)
//   - Applying run semantics and error isolation
//   - Emitting metrics, traces, and run lifecycle events
//
// Services are designed to be:
//   - Testable: Dependencies are injected via constructors
//   - Traceable: All methods accept context for distributed tracing
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/events"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/grouping"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/observability"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/store"
)

var runTracer = otel.Tracer("orchestrator.validation")

// defaultMaxParallel caps concurrent category invocations. Five known
// categories exist, so this effectively runs every bucket at once while
// staying bounded if the category set grows.
const defaultMaxParallel = 5

// =============================================================================
// Run Coordinator
// =============================================================================

// RunRequest is the scope of one validation run.
type RunRequest struct {
	// TenantID is a single tenant id, or datatypes.TenantAll for every
	// configured tenant.
	TenantID string

	// Source labels the trigger origin ("manual" or a scheduler name).
	Source string
}

// RunCoordinator drives one full validation run: resolve configurations,
// group by category, fan out to the category validators, aggregate, and
// persist the execution record.
//
// # Run Semantics
//
// The execution record is written exactly twice on the happy path: once
// with STARTED before any invocation (so a run that dies mid-flight is
// still observable), and once with the complete COMPLETED record. A run
// that cannot resolve its configurations or persist its record finalizes
// as FAILED (best effort) and returns an error.
//
// Category invocations run concurrently but the aggregated output is
// deterministic: validators_requested, validators_completed, and
// validation_results are all ordered by category name.
//
// A failed category invocation never aborts the run; the invoker converts
// every failure into an ERROR-tagged result and the run completes.
//
// # Thread Safety
//
// Safe for concurrent use. Each run allocates its own execution id and
// record, so concurrent runs share no mutable state beyond the
// append-only execution store.
type RunCoordinator struct {
	configs     store.TenantConfigStore
	executions  store.ExecutionStore
	invoker     invoker.Invoker
	bus         *events.Bus
	maxParallel int
	now         func() time.Time
}

// NewRunCoordinator wires a coordinator from its collaborators. bus may be
// nil when no live event observers are wanted. maxParallel <= 0 uses the
// default cap.
func NewRunCoordinator(configs store.TenantConfigStore, executions store.ExecutionStore,
	inv invoker.Invoker, bus *events.Bus, maxParallel int) *RunCoordinator {

	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &RunCoordinator{
		configs:     configs,
		executions:  executions,
		invoker:     inv,
		bus:         bus,
		maxParallel: maxParallel,
		now:         time.Now,
	}
}

// Run executes one validation run for the requested scope.
//
// The returned RunSummary always carries the execution id once one has
// been allocated, including on the error path, so callers can surface it
// alongside the failure.
func (rc *RunCoordinator) Run(ctx context.Context, req RunRequest) (datatypes.RunSummary, error) {
	ctx, span := runTracer.Start(ctx, "validation.Run",
		trace.WithAttributes(
			attribute.String("tenant_id", req.TenantID),
			attribute.String("trigger_source", req.Source),
		),
	)
	defer span.End()

	if m := observability.DefaultMetrics; m != nil {
		m.ActiveRuns.Inc()
		defer m.ActiveRuns.Dec()
	}

	startedAt := rc.now()
	record := datatypes.NewExecutionRecord(req.TenantID, req.Source, startedAt)
	span.SetAttributes(attribute.String("execution_id", record.ExecutionID))

	slog.Info("Starting validation run",
		"execution_id", record.ExecutionID,
		"tenant_id", req.TenantID,
		"trigger_source", req.Source)

	// Resolve the configuration set for the requested scope.
	configs, degraded, err := rc.resolveConfigs(ctx, req.TenantID)
	if err != nil {
		return rc.failRun(ctx, span, record, startedAt, fmt.Errorf("failed to resolve tenant configurations: %w", err))
	}
	record.DegradedTenants = degraded

	groups := grouping.GroupByCategory(configs)
	categories := grouping.SortedCategories(groups)
	record.ValidatorsRequested = categories

	// Write #1: the run is observable as STARTED before any invocation.
	if err := rc.executions.Put(ctx, record); err != nil {
		return rc.failRun(ctx, span, record, startedAt, fmt.Errorf("failed to persist initial execution record: %w", err))
	}
	rc.bus.Publish(events.RunEvent{
		Type:        events.EventRunStarted,
		ExecutionID: record.ExecutionID,
		TenantID:    record.TenantID,
		Timestamp:   record.Timestamp,
	})

	// Concurrent fan-out, one invocation per category. The invoker never
	// returns an error, so the group exists purely for bounded
	// parallelism and joining.
	results := make([]datatypes.ValidatorResult, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.maxParallel)
	for idx, category := range categories {
		g.Go(func() error {
			invokeStart := rc.now()
			result := rc.invoker.Invoke(gctx, category, invoker.Payload{
				ExecutionID: record.ExecutionID,
				TenantID:    record.TenantID,
				KSIs:        groups[category],
				Timestamp:   record.Timestamp,
			})
			results[idx] = result

			if m := observability.DefaultMetrics; m != nil {
				m.ValidatorInvocationsTotal.WithLabelValues(category, result.Status).Inc()
				m.ValidatorDurationSeconds.WithLabelValues(category).
					Observe(rc.now().Sub(invokeStart).Seconds())
			}
			rc.bus.Publish(events.RunEvent{
				Type:        events.EventCategoryCompleted,
				ExecutionID: record.ExecutionID,
				TenantID:    record.TenantID,
				Category:    category,
				Status:      result.Status,
				Timestamp:   rc.now().UTC().Format(datatypes.TimestampFormat),
			})
			return nil
		})
	}
	_ = g.Wait()

	// Every category was attempted without an uncaught invoker fault, so
	// validators_completed tracks attempts, not clean validations - an
	// ERROR-tagged category still counts as completed.
	record.ValidatorsCompleted = append([]string{}, categories...)
	record.ValidationResults = results
	record.TotalKSIsValidated = grouping.TotalKSIs(groups)
	record.Status = datatypes.StatusCompleted
	record.CompletedAt = rc.now().UTC().Format(datatypes.TimestampFormat)

	// Write #2: same key, full record.
	if err := rc.executions.Put(ctx, record); err != nil {
		err = fmt.Errorf("failed to persist final execution record: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rc.observeRun(datatypes.StatusFailed, req.Source, startedAt)
		return rc.summarize(record), err
	}

	rc.observeRun(datatypes.StatusCompleted, req.Source, startedAt)
	if m := observability.DefaultMetrics; m != nil {
		m.KSIsValidatedTotal.Add(float64(record.TotalKSIsValidated))
	}
	rc.bus.Publish(events.RunEvent{
		Type:        events.EventRunFinished,
		ExecutionID: record.ExecutionID,
		TenantID:    record.TenantID,
		Status:      record.Status,
		Timestamp:   record.CompletedAt,
	})

	span.SetAttributes(
		attribute.Int("total_ksis", record.TotalKSIsValidated),
		attribute.Int("categories", len(categories)),
	)
	slog.Info("Validation run completed",
		"execution_id", record.ExecutionID,
		"tenant_id", record.TenantID,
		"categories", len(categories),
		"total_ksis", record.TotalKSIsValidated)

	return rc.summarize(record), nil
}

// =============================================================================
// Internals
// =============================================================================

// resolveConfigs gathers the configuration set for the run scope.
//
// For a single named tenant a fetch failure is fatal to the run. For the
// "all tenants" sentinel, one tenant's failure degrades only that tenant:
// its configurations are skipped, the tenant is reported in the degraded
// list, and every other tenant proceeds.
func (rc *RunCoordinator) resolveConfigs(ctx context.Context, tenantID string) ([]datatypes.TenantKSIConfig, []string, error) {
	if tenantID != datatypes.TenantAll {
		configs, err := rc.configs.FetchConfigs(ctx, tenantID)
		if err != nil {
			if m := observability.DefaultMetrics; m != nil {
				m.ConfigFetchErrorsTotal.WithLabelValues(tenantID).Inc()
			}
			return nil, nil, err
		}
		return configs, nil, nil
	}

	tenants, err := rc.configs.ListTenants(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate tenants: %w", err)
	}

	var all []datatypes.TenantKSIConfig
	var degraded []string
	for _, tenant := range tenants {
		configs, err := rc.configs.FetchConfigs(ctx, tenant)
		if err != nil {
			slog.Warn("Skipping tenant with unreadable configurations",
				"tenant_id", tenant,
				"error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.ConfigFetchErrorsTotal.WithLabelValues(tenant).Inc()
			}
			degraded = append(degraded, tenant)
			continue
		}
		all = append(all, configs...)
	}
	return all, degraded, nil
}

// failRun finalizes the record as FAILED (best effort) and returns the
// run error. The FAILED write may itself fail - for example when the
// execution store is the thing that is down - which is logged and
// otherwise ignored so the original error is the one reported.
func (rc *RunCoordinator) failRun(ctx context.Context, span trace.Span,
	record datatypes.ExecutionRecord, startedAt time.Time, runErr error) (datatypes.RunSummary, error) {

	span.RecordError(runErr)
	span.SetStatus(codes.Error, runErr.Error())
	slog.Error("Validation run failed",
		"execution_id", record.ExecutionID,
		"tenant_id", record.TenantID,
		"error", runErr)

	record.Status = datatypes.StatusFailed
	record.Error = runErr.Error()
	record.CompletedAt = rc.now().UTC().Format(datatypes.TimestampFormat)
	if err := rc.executions.Put(ctx, record); err != nil {
		slog.Error("Could not persist FAILED execution record",
			"execution_id", record.ExecutionID,
			"error", err)
	}

	rc.observeRun(datatypes.StatusFailed, record.TriggerSource, startedAt)
	return rc.summarize(record), runErr
}

// observeRun records the run-level metrics for a finished run.
func (rc *RunCoordinator) observeRun(status, source string, startedAt time.Time) {
	if m := observability.DefaultMetrics; m != nil {
		m.RunsTotal.WithLabelValues(status, source).Inc()
		m.RunDurationSeconds.WithLabelValues(status).
			Observe(rc.now().Sub(startedAt).Seconds())
	}
}

// summarize projects the record into the trigger endpoint's response shape.
func (rc *RunCoordinator) summarize(record datatypes.ExecutionRecord) datatypes.RunSummary {
	return datatypes.RunSummary{
		ExecutionID:       record.ExecutionID,
		TenantID:          record.TenantID,
		Status:            record.Status,
		ValidatorsInvoked: record.ValidatorsCompleted,
		TotalKSIs:         record.TotalKSIsValidated,
		Results:           record.ValidationResults,
		DegradedTenants:   record.DegradedTenants,
	}
}

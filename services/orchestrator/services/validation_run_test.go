// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/events"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/invoker"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeConfigStore serves scripted configurations per tenant.
type fakeConfigStore struct {
	tenants   []string
	configs   map[string][]datatypes.TenantKSIConfig
	fetchErrs map[string]error
	listErr   error
}

func (f *fakeConfigStore) ListTenants(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tenants, nil
}

func (f *fakeConfigStore) FetchConfigs(ctx context.Context, tenantID string) ([]datatypes.TenantKSIConfig, error) {
	if err := f.fetchErrs[tenantID]; err != nil {
		return nil, err
	}
	return f.configs[tenantID], nil
}

// fakeExecutionStore records every Put in order.
type fakeExecutionStore struct {
	mu      sync.Mutex
	puts    []datatypes.ExecutionRecord
	putErrs []error // consumed one per Put; nil entries succeed
}

func (f *fakeExecutionStore) Put(ctx context.Context, record datatypes.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, record)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		return err
	}
	return nil
}

func (f *fakeExecutionStore) Get(ctx context.Context, tenantID, executionID string) (datatypes.ExecutionRecord, error) {
	return datatypes.ExecutionRecord{}, errors.New("not implemented")
}

func (f *fakeExecutionStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]datatypes.ExecutionRecord, error) {
	return nil, errors.New("not implemented")
}

// fakeInvoker succeeds for every category except those in failing.
type fakeInvoker struct {
	mu      sync.Mutex
	invoked map[string]invoker.Payload
	failing map[string]bool
}

func newFakeInvoker(failing ...string) *fakeInvoker {
	f := &fakeInvoker{
		invoked: make(map[string]invoker.Payload),
		failing: make(map[string]bool),
	}
	for _, category := range failing {
		f.failing[category] = true
	}
	return f
}

func (f *fakeInvoker) FunctionName(category string) string {
	return fmt.Sprintf("sentinel-validator-%s-test", category)
}

func (f *fakeInvoker) Invoke(ctx context.Context, category string, payload invoker.Payload) datatypes.ValidatorResult {
	f.mu.Lock()
	f.invoked[category] = payload
	f.mu.Unlock()

	if f.failing[category] {
		return datatypes.ValidatorResult{
			Validator:    category,
			Status:       datatypes.ResultError,
			FunctionName: f.FunctionName(category),
			Error:        "validator blew up",
		}
	}
	return datatypes.ValidatorResult{
		Validator:    category,
		Status:       datatypes.ResultSuccess,
		FunctionName: f.FunctionName(category),
		Result:       map[string]interface{}{"checked": float64(len(payload.KSIs))},
	}
}

func makeConfig(tenant, ksiID string) datatypes.TenantKSIConfig {
	return datatypes.TenantKSIConfig{TenantID: tenant, KSIID: ksiID, Enabled: true}
}

func newTestCoordinator(configs *fakeConfigStore, executions *fakeExecutionStore, inv invoker.Invoker) *RunCoordinator {
	rc := NewRunCoordinator(configs, executions, inv, nil, 0)
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rc.now = func() time.Time { return base }
	return rc
}

// =============================================================================
// Single Tenant Runs
// =============================================================================

func TestRun_HappyPath(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {
				makeConfig("default", "KSI-CNA-01"),
				makeConfig("default", "KSI-CNA-02"),
				makeConfig("default", "KSI-IAM-01"),
			},
		},
	}
	executions := &fakeExecutionStore{}
	inv := newFakeInvoker()
	rc := newTestCoordinator(configs, executions, inv)

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	assert.Equal(t, datatypes.StatusCompleted, summary.Status)
	assert.Equal(t, "default", summary.TenantID)
	assert.Equal(t, 3, summary.TotalKSIs)
	assert.Equal(t, []string{"cna", "iam"}, summary.ValidatorsInvoked)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "cna", summary.Results[0].Validator)
	assert.Equal(t, "iam", summary.Results[1].Validator)
	assert.Empty(t, summary.DegradedTenants)
}

func TestRun_WritesRecordExactlyTwice(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {makeConfig("default", "KSI-SVC-01")},
		},
	}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	_, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	require.Len(t, executions.puts, 2)
	first, second := executions.puts[0], executions.puts[1]

	// Same key both times; the second write replaces the first
	assert.Equal(t, first.ExecutionID, second.ExecutionID)
	assert.Equal(t, first.TenantID, second.TenantID)

	assert.Equal(t, datatypes.StatusStarted, first.Status)
	assert.Empty(t, first.ValidationResults)
	assert.Equal(t, []string{"svc"}, first.ValidatorsRequested)
	assert.Empty(t, first.CompletedAt)

	assert.Equal(t, datatypes.StatusCompleted, second.Status)
	assert.Equal(t, []string{"svc"}, second.ValidatorsCompleted)
	assert.Len(t, second.ValidationResults, 1)
	assert.NotEmpty(t, second.CompletedAt)
	assert.Equal(t, 1, second.TotalKSIsValidated)
}

func TestRun_TTLOnBothWrites(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {makeConfig("default", "KSI-CMT-01")},
		},
	}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	_, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	expected := start.Add(datatypes.RetentionDays * 24 * time.Hour).Unix()
	require.Len(t, executions.puts, 2)
	assert.Equal(t, expected, executions.puts[0].TTL)
	assert.Equal(t, expected, executions.puts[1].TTL)
}

func TestRun_ValidatorErrorDoesNotAbortRun(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {
				makeConfig("default", "KSI-CNA-01"),
				makeConfig("default", "KSI-IAM-01"),
				makeConfig("default", "KSI-MLA-01"),
			},
		},
	}
	executions := &fakeExecutionStore{}
	inv := newFakeInvoker("iam")
	rc := newTestCoordinator(configs, executions, inv)

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	// The run completes; the failed category is attempted and recorded
	assert.Equal(t, datatypes.StatusCompleted, summary.Status)
	assert.Equal(t, []string{"cna", "iam", "mla"}, summary.ValidatorsInvoked)

	byCategory := make(map[string]datatypes.ValidatorResult)
	for _, result := range summary.Results {
		byCategory[result.Validator] = result
	}
	assert.Equal(t, datatypes.ResultError, byCategory["iam"].Status)
	assert.Equal(t, datatypes.ResultSuccess, byCategory["cna"].Status)
	assert.Equal(t, datatypes.ResultSuccess, byCategory["mla"].Status)

	// Errored categories still count toward the validated total
	assert.Equal(t, 3, summary.TotalKSIs)
}

func TestRun_PayloadCarriesCategoryBucket(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {
				makeConfig("default", "KSI-CNA-01"),
				makeConfig("default", "KSI-CNA-02"),
				makeConfig("default", "KSI-SVC-01"),
			},
		},
	}
	executions := &fakeExecutionStore{}
	inv := newFakeInvoker()
	rc := newTestCoordinator(configs, executions, inv)

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	require.Contains(t, inv.invoked, "cna")
	require.Contains(t, inv.invoked, "svc")
	assert.Len(t, inv.invoked["cna"].KSIs, 2)
	assert.Len(t, inv.invoked["svc"].KSIs, 1)
	assert.Equal(t, summary.ExecutionID, inv.invoked["cna"].ExecutionID)
	assert.Equal(t, "default", inv.invoked["cna"].TenantID)
}

func TestRun_MalformedConfigsDropped(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {
				makeConfig("default", "KSI-CNA-01"),
				makeConfig("default", "not-a-ksi"),
			},
		},
	}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	assert.Equal(t, []string{"cna"}, summary.ValidatorsInvoked)
	assert.Equal(t, 1, summary.TotalKSIs)
}

func TestRun_NoConfigsCompletesEmpty(t *testing.T) {
	configs := &fakeConfigStore{}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "empty-tenant", Source: "manual"})
	require.NoError(t, err)

	assert.Equal(t, datatypes.StatusCompleted, summary.Status)
	assert.Empty(t, summary.ValidatorsInvoked)
	assert.Equal(t, 0, summary.TotalKSIs)
	require.Len(t, executions.puts, 2)
}

// =============================================================================
// Failure Paths
// =============================================================================

func TestRun_ConfigFetchFailureFailsRun(t *testing.T) {
	configs := &fakeConfigStore{
		fetchErrs: map[string]error{"default": errors.New("dynamo down")},
	}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dynamo down")

	assert.Equal(t, datatypes.StatusFailed, summary.Status)
	assert.NotEmpty(t, summary.ExecutionID)

	// Best-effort FAILED record persisted
	require.Len(t, executions.puts, 1)
	assert.Equal(t, datatypes.StatusFailed, executions.puts[0].Status)
	assert.Contains(t, executions.puts[0].Error, "dynamo down")
}

func TestRun_InitialPersistFailureFailsRun(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {makeConfig("default", "KSI-CNA-01")},
		},
	}
	executions := &fakeExecutionStore{putErrs: []error{errors.New("write throttled")}}
	inv := newFakeInvoker()
	rc := newTestCoordinator(configs, executions, inv)

	_, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write throttled")

	// No validator runs when the STARTED record cannot be written
	assert.Empty(t, inv.invoked)
}

func TestRun_FinalPersistFailureReturnsError(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {makeConfig("default", "KSI-CNA-01")},
		},
	}
	executions := &fakeExecutionStore{putErrs: []error{nil, errors.New("write throttled")}}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.Error(t, err)

	// The summary still reflects the completed work so callers can log it
	assert.Equal(t, summary.ExecutionID, executions.puts[0].ExecutionID)
	assert.Equal(t, []string{"cna"}, summary.ValidatorsInvoked)
}

// =============================================================================
// All-Tenants Runs
// =============================================================================

func TestRun_AllTenantsAggregates(t *testing.T) {
	configs := &fakeConfigStore{
		tenants: []string{"acme-corp", "default"},
		configs: map[string][]datatypes.TenantKSIConfig{
			"acme-corp": {makeConfig("acme-corp", "KSI-CNA-01")},
			"default":   {makeConfig("default", "KSI-IAM-01")},
		},
	}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: datatypes.TenantAll, Source: "scheduled"})
	require.NoError(t, err)

	assert.Equal(t, datatypes.TenantAll, summary.TenantID)
	assert.Equal(t, []string{"cna", "iam"}, summary.ValidatorsInvoked)
	assert.Equal(t, 2, summary.TotalKSIs)
	assert.Empty(t, summary.DegradedTenants)
}

func TestRun_AllTenantsDegradesPerTenant(t *testing.T) {
	configs := &fakeConfigStore{
		tenants: []string{"broken", "default"},
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {makeConfig("default", "KSI-MLA-01")},
		},
		fetchErrs: map[string]error{"broken": errors.New("partition unreadable")},
	}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	summary, err := rc.Run(context.Background(), RunRequest{TenantID: datatypes.TenantAll, Source: "scheduled"})
	require.NoError(t, err)

	// One tenant's failure degrades only that tenant
	assert.Equal(t, datatypes.StatusCompleted, summary.Status)
	assert.Equal(t, []string{"broken"}, summary.DegradedTenants)
	assert.Equal(t, []string{"mla"}, summary.ValidatorsInvoked)
	assert.Equal(t, 1, summary.TotalKSIs)

	require.Len(t, executions.puts, 2)
	assert.Equal(t, []string{"broken"}, executions.puts[1].DegradedTenants)
}

func TestRun_AllTenantsListFailureFailsRun(t *testing.T) {
	configs := &fakeConfigStore{listErr: errors.New("scan failed")}
	executions := &fakeExecutionStore{}
	rc := newTestCoordinator(configs, executions, newFakeInvoker())

	_, err := rc.Run(context.Background(), RunRequest{TenantID: datatypes.TenantAll, Source: "scheduled"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}

// =============================================================================
// Events
// =============================================================================

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	configs := &fakeConfigStore{
		configs: map[string][]datatypes.TenantKSIConfig{
			"default": {makeConfig("default", "KSI-CNA-01")},
		},
	}
	bus := events.NewBus()
	sub, cancel := bus.Subscribe()
	defer cancel()

	rc := NewRunCoordinator(configs, &fakeExecutionStore{}, newFakeInvoker(), bus, 0)
	_, err := rc.Run(context.Background(), RunRequest{TenantID: "default", Source: "manual"})
	require.NoError(t, err)

	var types []string
	for len(sub) > 0 {
		types = append(types, (<-sub).Type)
	}
	assert.Equal(t, []string{
		events.EventRunStarted,
		events.EventCategoryCompleted,
		events.EventRunFinished,
	}, types)
}

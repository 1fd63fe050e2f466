// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Execution Lifecycle
// =============================================================================

// Execution record statuses. A run moves STARTED -> COMPLETED; FAILED is
// the terminal state when configuration resolution or persistence fails
// before the run can complete normally.
const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Per-category validator invocation outcomes.
const (
	ResultSuccess = "SUCCESS"
	ResultError   = "ERROR"
)

// TenantAll is the sentinel tenant scope meaning "every configured tenant".
const TenantAll = "all"

// RetentionDays is how long execution records are kept before the store's
// native TTL expiry deletes them.
const RetentionDays = 90

// TimestampFormat is the wire format for all execution timestamps
// (ISO-8601 UTC).
const TimestampFormat = time.RFC3339

// =============================================================================
// Validator Result
// =============================================================================

// ValidatorResult is the outcome of invoking one category validator.
// Exactly one of Result or Error is populated, according to Status.
type ValidatorResult struct {
	// Validator is the category name, e.g. "cna".
	Validator string `json:"validator" dynamodbav:"validator"`

	// Status is ResultSuccess or ResultError.
	Status string `json:"status" dynamodbav:"status"`

	// FunctionName identifies the invoked validator process.
	FunctionName string `json:"function_name" dynamodbav:"function_name"`

	// Result is the validator's opaque response payload (SUCCESS only).
	Result map[string]interface{} `json:"result,omitempty" dynamodbav:"result,omitempty"`

	// Error describes the invocation failure (ERROR only).
	Error string `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

// =============================================================================
// Execution Record
// =============================================================================

// ExecutionRecord is the persisted audit trail of one orchestration run,
// keyed by (tenant_id, execution_id). It is written exactly twice during a
// successful run: once with StatusStarted before any validator is invoked,
// and once in full with StatusCompleted when every category has been
// attempted. The second write overwrites the first at the same key.
type ExecutionRecord struct {
	ExecutionID         string            `json:"execution_id" dynamodbav:"execution_id"`
	TenantID            string            `json:"tenant_id" dynamodbav:"tenant_id"`
	Timestamp           string            `json:"timestamp" dynamodbav:"timestamp"`
	Status              string            `json:"status" dynamodbav:"status"`
	TriggerSource       string            `json:"trigger_source" dynamodbav:"trigger_source"`
	ValidatorsRequested []string          `json:"validators_requested" dynamodbav:"validators_requested"`
	ValidatorsCompleted []string          `json:"validators_completed" dynamodbav:"validators_completed"`
	ValidationResults   []ValidatorResult `json:"validation_results" dynamodbav:"validation_results"`
	TotalKSIsValidated  int               `json:"total_ksis_validated" dynamodbav:"total_ksis_validated"`
	CompletedAt         string            `json:"completed_at,omitempty" dynamodbav:"completed_at,omitempty"`

	// Error is set when Status is StatusFailed.
	Error string `json:"error,omitempty" dynamodbav:"error,omitempty"`

	// DegradedTenants lists tenants whose configuration read failed during
	// an "all tenants" run. Their KSIs are absent from this record but the
	// run itself still completes.
	DegradedTenants []string `json:"degraded_tenants,omitempty" dynamodbav:"degraded_tenants,omitempty"`

	// TTL is the epoch-seconds expiry consumed by the store's native
	// background deletion.
	TTL int64 `json:"ttl" dynamodbav:"ttl"`
}

// NewExecutionRecord builds the initial StatusStarted record for a fresh
// run: new execution id, start timestamp, empty progress fields, and a TTL
// of now plus the retention window.
func NewExecutionRecord(tenantID, triggerSource string, now time.Time) ExecutionRecord {
	return ExecutionRecord{
		ExecutionID:         uuid.NewString(),
		TenantID:            tenantID,
		Timestamp:           now.UTC().Format(TimestampFormat),
		Status:              StatusStarted,
		TriggerSource:       triggerSource,
		ValidatorsRequested: []string{},
		ValidatorsCompleted: []string{},
		ValidationResults:   []ValidatorResult{},
		TTL:                 now.Add(RetentionDays * 24 * time.Hour).Unix(),
	}
}

// =============================================================================
// Run Summary
// =============================================================================

// RunSummary is the trigger endpoint's response body for a finished run.
type RunSummary struct {
	ExecutionID       string            `json:"execution_id"`
	TenantID          string            `json:"tenant_id"`
	Status            string            `json:"status"`
	ValidatorsInvoked []string          `json:"validators_invoked"`
	TotalKSIs         int               `json:"total_ksis"`
	Results           []ValidatorResult `json:"results"`
	DegradedTenants   []string          `json:"degraded_tenants,omitempty"`
}

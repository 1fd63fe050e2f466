// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianSentinel/pkg/validation"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/store"
)

// defaultResultLimit bounds the results listing when the caller names no
// limit.
const defaultResultLimit = 100

// ResultFilters echoes back the query parameters a results request was
// answered with.
type ResultFilters struct {
	TenantID    string `json:"tenant_id"`
	ExecutionID string `json:"execution_id,omitempty"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
	Limit       int    `json:"limit"`
}

// ResultView is the reduced execution record served by the results
// endpoint.
type ResultView struct {
	ExecutionID         string                      `json:"execution_id"`
	TenantID            string                      `json:"tenant_id"`
	Timestamp           string                      `json:"timestamp"`
	Status              string                      `json:"status"`
	ValidationResults   []datatypes.ValidatorResult `json:"validation_results"`
	ValidatorsCompleted []string                    `json:"validators_completed"`
	Summary             ResultSummary               `json:"summary"`
}

// ResultSummary is the per-record summary block.
type ResultSummary struct {
	ValidatorsRequested []string `json:"validators_requested"`
	TotalKSIsValidated  int      `json:"total_ksis_validated"`
	TriggerSource       string   `json:"trigger_source"`
	CompletedAt         string   `json:"completed_at,omitempty"`
	Error               string   `json:"error,omitempty"`
	DegradedTenants     []string `json:"degraded_tenants,omitempty"`
}

// HandleListExecutions serves persisted execution records.
//
// Query parameters (all optional): tenant_id (default "default"),
// execution_id, category, status, limit (default 100). When execution_id
// is present the record is fetched by key and a miss is a 404 - never an
// empty success list. Category and status filters are applied in memory
// over the fetched set.
func HandleListExecutions(executions store.ExecutionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := ResultFilters{
			TenantID:    c.DefaultQuery("tenant_id", DefaultTenant),
			ExecutionID: c.Query("execution_id"),
			Category:    c.Query("category"),
			Status:      c.Query("status"),
			Limit:       defaultResultLimit,
		}
		if err := validation.ValidateTenantID(filters.TenantID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			filters.Limit = limit
		}

		var records []datatypes.ExecutionRecord
		if filters.ExecutionID != "" {
			record, err := executions.Get(c.Request.Context(), filters.TenantID, filters.ExecutionID)
			if errors.Is(err, store.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"error":        "no execution record found",
					"execution_id": filters.ExecutionID,
					"tenant_id":    filters.TenantID,
				})
				return
			}
			if err != nil {
				slog.Error("Failed to fetch execution record",
					"execution_id", filters.ExecutionID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "failed to fetch execution record",
					"message": err.Error(),
				})
				return
			}
			records = []datatypes.ExecutionRecord{record}
		} else {
			var err error
			records, err = executions.ListRecent(c.Request.Context(), filters.TenantID, filters.Limit)
			if err != nil {
				slog.Error("Failed to list execution records",
					"tenant_id", filters.TenantID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "failed to list execution records",
					"message": err.Error(),
				})
				return
			}
		}

		results := make([]ResultView, 0, len(records))
		for _, record := range records {
			if filters.Status != "" && record.Status != filters.Status {
				continue
			}
			if filters.Category != "" && !containsCategory(record.ValidatorsRequested, filters.Category) {
				continue
			}
			results = append(results, toResultView(record))
		}

		c.JSON(http.StatusOK, gin.H{
			"results": results,
			"count":   len(results),
			"filters": filters,
		})
	}
}

func containsCategory(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

func toResultView(record datatypes.ExecutionRecord) ResultView {
	return ResultView{
		ExecutionID:         record.ExecutionID,
		TenantID:            record.TenantID,
		Timestamp:           record.Timestamp,
		Status:              record.Status,
		ValidationResults:   record.ValidationResults,
		ValidatorsCompleted: record.ValidatorsCompleted,
		Summary: ResultSummary{
			ValidatorsRequested: record.ValidatorsRequested,
			TotalKSIsValidated:  record.TotalKSIsValidated,
			TriggerSource:       record.TriggerSource,
			CompletedAt:         record.CompletedAt,
			Error:               record.Error,
			DegradedTenants:     record.DegradedTenants,
		},
	}
}

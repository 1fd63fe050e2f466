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
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/AleutianAI/AleutianSentinel/pkg/validation"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/services"
)

// Runner abstracts the run coordinator so handler tests can substitute a
// fake without store or Lambda plumbing.
type Runner interface {
	Run(ctx context.Context, req services.RunRequest) (datatypes.RunSummary, error)
}

// TriggerRequest is the trigger endpoint's body. Both fields are optional:
// tenant_id defaults to "default" (the sentinel "all" selects every
// configured tenant) and source defaults to "manual".
type TriggerRequest struct {
	TenantID string `json:"tenant_id" binding:"omitempty,max=128"`
	Source   string `json:"source" binding:"omitempty,max=128"`
}

// DefaultTenant is the tenant scope used when the caller names none.
const DefaultTenant = "default"

// HandleValidationRun triggers one validation run and waits for it.
//
// Responds 200 with the run summary when the run completes - including
// runs in which individual categories errored, since the invoker isolates
// those - or 500 with {error, execution_id} on a top-level failure.
func HandleValidationRun(runner Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TriggerRequest
		// BodyWith so the rate-limit middleware and this handler can both
		// read the request body.
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger payload: " + err.Error()})
			return
		}
		if req.TenantID == "" {
			req.TenantID = DefaultTenant
		}
		if req.Source == "" {
			req.Source = "manual"
		}
		if err := validation.ValidateTenantID(req.TenantID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		slog.Info("Received validation trigger",
			"tenant_id", req.TenantID,
			"source", req.Source)

		summary, err := runner.Run(c.Request.Context(), services.RunRequest{
			TenantID: req.TenantID,
			Source:   req.Source,
		})
		if err != nil {
			slog.Error("Validation run failed", "error", err,
				"execution_id", summary.ExecutionID)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":        err.Error(),
				"execution_id": summary.ExecutionID,
			})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

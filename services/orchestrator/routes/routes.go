// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/events"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/handlers"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/invoker"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/middleware"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/store"
)

// SetupRoutes registers every route of the orchestrator service.
//
// limiter may be nil to disable trigger rate limiting (tests do this);
// bus may be nil when no event stream observers are wanted.
func SetupRoutes(router *gin.Engine, runner handlers.Runner, executions store.ExecutionStore,
	inv invoker.Invoker, bus *events.Bus, limiter *middleware.TenantRateLimiter) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		trigger := []gin.HandlerFunc{}
		if limiter != nil {
			trigger = append(trigger, middleware.TriggerRateLimit(limiter))
		}
		trigger = append(trigger, handlers.HandleValidationRun(runner))
		v1.POST("/validate", trigger...)

		v1.GET("/executions", handlers.HandleListExecutions(executions))
		v1.GET("/executions/ws", handlers.HandleExecutionEvents(bus))
		v1.GET("/categories", handlers.HandleListCategories(inv))
	}
}

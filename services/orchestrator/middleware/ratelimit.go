// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the orchestrator
// service.
package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"golang.org/x/time/rate"
)

// TenantRateLimiter applies a per-tenant token bucket to the validation
// trigger endpoint. A tenant whose scheduler misfires (or an operator
// mashing the manual trigger) gets 429s instead of a pile of concurrent
// runs against the same configuration set.
//
// Thread-safe; one limiter is lazily created per tenant id.
type TenantRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewTenantRateLimiter creates a limiter allowing ratePerMinute trigger
// requests per tenant with the given burst.
func NewTenantRateLimiter(ratePerMinute float64, burst int) *TenantRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &TenantRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(ratePerMinute / 60.0),
		burst:    burst,
	}
}

// Allow reports whether the tenant may trigger a run now.
func (l *TenantRateLimiter) Allow(tenantID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[tenantID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tenantID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// triggerScope is the subset of the trigger body the middleware needs.
type triggerScope struct {
	TenantID string `json:"tenant_id"`
}

// TriggerRateLimit is gin middleware enforcing the per-tenant limit on
// the trigger endpoint. It binds the body with ShouldBindBodyWith so the
// downstream handler can bind it again.
func TriggerRateLimit(limiter *TenantRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var scope triggerScope
		// Binding errors are left for the handler to report; an unreadable
		// body rate-limits under the default tenant key.
		_ = c.ShouldBindBodyWith(&scope, binding.JSON)
		tenant := scope.TenantID
		if tenant == "" {
			tenant = "default"
		}

		if !limiter.Allow(tenant) {
			slog.Warn("Rejecting over-limit validation trigger", "tenant_id", tenant)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "validation trigger rate limit exceeded",
				"tenant_id": tenant,
			})
			return
		}
		c.Next()
	}
}

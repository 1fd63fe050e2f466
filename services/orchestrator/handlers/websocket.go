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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleExecutionEvents streams run lifecycle events over a websocket.
//
// Events are delivered best-effort: a subscriber that cannot keep up with
// the bus loses events rather than stalling in-flight runs. An optional
// tenant_id query parameter narrows the stream to one tenant.
func HandleExecutionEvents(bus *events.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bus == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream is not enabled"})
			return
		}
		tenantFilter := c.Query("tenant_id")

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sub, cancel := bus.Subscribe()
		defer cancel()

		// Reader goroutine: we never expect client messages, but reading
		// is what surfaces the close frame.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-c.Request.Context().Done():
				return
			case event, ok := <-sub:
				if !ok {
					return
				}
				if tenantFilter != "" && event.TenantID != tenantFilter {
					continue
				}
				if err := ws.WriteJSON(event); err != nil {
					slog.Warn("Failed to write run event to websocket", "error", err)
					return
				}
			}
		}
	}
}

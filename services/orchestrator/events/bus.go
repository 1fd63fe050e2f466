// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events provides an in-process broadcast bus for run lifecycle
// events. Observers (the websocket endpoint) see category completions as
// they happen; the persisted execution record is unaffected and still
// receives exactly its two writes.
package events

import (
	"sync"
)

// Run event types.
const (
	EventRunStarted        = "run_started"
	EventCategoryCompleted = "category_completed"
	EventRunFinished       = "run_finished"
)

// RunEvent is one lifecycle notification from an in-flight run.
type RunEvent struct {
	Type        string `json:"type"`
	ExecutionID string `json:"execution_id"`
	TenantID    string `json:"tenant_id"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// subscriberBuffer is each subscriber's channel capacity. A subscriber
// that falls this far behind starts losing events rather than blocking
// the publishing run.
const subscriberBuffer = 16

// Bus fans RunEvents out to subscribers. The zero value is not usable;
// call NewBus. A nil *Bus is safe to publish to, so components can treat
// the bus as optional.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan RunEvent
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan RunEvent)}
}

// Subscribe registers a new observer. The returned cancel function must be
// called when the observer is done; it closes the channel.
func (b *Bus) Subscribe() (<-chan RunEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan RunEvent, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Slow
// subscribers lose events.
func (b *Bus) Publish(event RunEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

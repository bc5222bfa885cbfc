// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/tessera-works/tessera/lib/clock"
)

// Event is a sign request published on a Bus, tagged with the
// correlation ID that a response must carry.
type Event struct {
	CorrelationID string
	Request       Request
}

// Bus carries sign-request events from an EventStrategy to
// subscribers (typically a UI layer) and routes correlated responses
// back. Safe for concurrent use.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]func(Event)
	nextSub     int
	pending     map[string]chan Response
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]func(Event)),
		pending:     make(map[string]chan Response),
	}
}

// Subscribe registers a handler for sign-request events. Handlers run
// in their own goroutine per event so a slow subscriber never blocks
// the strategy. The returned function cancels the subscription.
func (b *Bus) Subscribe(handler func(Event)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Respond delivers a response for a pending request. Returns false if
// no wait with that correlation ID is pending (already answered,
// timed out, or never existed).
func (b *Bus) Respond(correlationID string, response Response) bool {
	b.mu.Lock()
	waiter, ok := b.pending[correlationID]
	if ok {
		delete(b.pending, correlationID)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	waiter <- response // buffered, never blocks
	return true
}

// publish registers a pending wait and fans the event out to
// subscribers. The returned channel receives at most one response.
func (b *Bus) publish(event Event) <-chan Response {
	waiter := make(chan Response, 1)

	b.mu.Lock()
	b.pending[event.CorrelationID] = waiter
	handlers := make([]func(Event), 0, len(b.subscribers))
	for _, handler := range b.subscribers {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		go handler(event)
	}
	return waiter
}

// abandon removes a pending wait that resolved without a response
// (timeout or cancellation), so a late Respond returns false instead
// of leaking the waiter.
func (b *Bus) abandon(correlationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, correlationID)
}

// EventStrategy publishes each request as a sign-request event and
// waits for the correlated response. The wait always resolves: a
// response, the mandatory timeout (denial with reason "timeout"), or
// context cancellation.
type EventStrategy struct {
	// Bus carries events to subscribers. Required.
	Bus *Bus

	// Timeout bounds each wait. Required and positive — there is no
	// default, the deployment must choose one.
	Timeout time.Duration

	// Clock defaults to clock.Real(). Tests inject a fake to drive
	// the timeout deterministically.
	Clock clock.Clock
}

// Resolve implements Strategy.
func (s *EventStrategy) Resolve(ctx context.Context, request Request) (Response, error) {
	if s.Bus == nil {
		return Response{}, fmt.Errorf("%w: event strategy with no bus bound", ErrMisconfigured)
	}
	if s.Timeout <= 0 {
		return Response{}, fmt.Errorf("%w: event strategy requires a positive timeout", ErrMisconfigured)
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}

	correlationID, err := newCorrelationID()
	if err != nil {
		return Response{}, fmt.Errorf("approval: generating correlation ID: %w", err)
	}

	waiter := s.Bus.publish(Event{CorrelationID: correlationID, Request: request})

	select {
	case response := <-waiter:
		return response, nil
	case <-clk.After(s.Timeout):
		s.Bus.abandon(correlationID)
		return Response{Approved: false, Reason: "timeout"}, nil
	case <-ctx.Done():
		s.Bus.abandon(correlationID)
		return Response{}, ctx.Err()
	}
}

// newCorrelationID returns 16 random hex characters.
func newCorrelationID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

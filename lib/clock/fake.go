// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. Pending After channels fire when the
// clock advances past their deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.waitersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	waiters        []*fakeWaiter
	waitersChanged *sync.Cond
}

// fakeWaiter is a pending After channel.
type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives after duration d elapses. If
// d <= 0, the channel receives immediately without registering a
// waiter.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}

	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.waitersChanged.Broadcast()
	return channel
}

// Advance moves the clock forward by d and fires all waiters whose
// deadlines fall within the new time.
//
// Channel sends are non-blocking; After channels are buffered with
// capacity 1 so the receive is never lost.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current

	var toFire []*fakeWaiter
	var remaining []*fakeWaiter
	for _, waiter := range c.waiters {
		if !waiter.deadline.After(target) {
			toFire = append(toFire, waiter)
		} else {
			remaining = append(remaining, waiter)
		}
	}
	c.waiters = remaining
	c.mu.Unlock()

	for _, waiter := range toFire {
		select {
		case waiter.channel <- target:
		default:
		}
	}
}

// WaitForWaiters blocks until at least n After channels are pending.
// This eliminates the race between a goroutine registering a timeout
// and the test advancing the clock:
//
//	go func() { response <- strategy.Resolve(ctx, request) }()
//	fakeClock.WaitForWaiters(1) // Resolve registered its timeout
//	fakeClock.Advance(timeout)  // deterministically fires it
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.waitersChanged.Wait()
	}
}

// PendingCount returns the number of pending After channels.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

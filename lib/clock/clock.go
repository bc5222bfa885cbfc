// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject Fake() with deterministic time control.
//
// Everything time-sensitive in the SDK flows through a Clock:
// delegation expiry checks in the key registry, session resume
// validity, and the event-strategy approval timeout. Tests for the
// timeout contract ("an emitter wait always resolves, never hangs")
// would otherwise need real sleeps.
package clock

import "time"

// Clock is the time source injected into components that check expiry
// or wait with a deadline.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

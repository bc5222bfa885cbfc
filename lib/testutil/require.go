// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds shared test helpers. Channel operations in
// tests always carry a timeout so a broken strategy or controller
// fails the test instead of hanging the run.
package testutil

import (
	"fmt"
	"time"
)

// failer is the subset of *testing.T the helpers need.
type failer interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test.
//
//	response := testutil.RequireReceive(t, responses, 5*time.Second, "waiting for sign response")
func RequireReceive[T any](t failer, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

// RequireSend sends v on ch within timeout, or fails the test.
func RequireSend[T any](t failer, ch chan<- T, v T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case ch <- v:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
}

// formatMessage formats optional message arguments: a single string,
// or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if format, ok := msgAndArgs[0].(string); ok {
		if len(msgAndArgs) == 1 {
			return format
		}
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}

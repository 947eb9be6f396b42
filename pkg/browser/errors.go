package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LaunchError means a browser could not be started or is no longer running:
// missing native dependencies, resource exhaustion, or the session cap.
type LaunchError struct {
	Reason string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("launch failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("launch failed: %s", e.Reason)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// NavigationError means a page load did not complete.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ScriptError means injected JavaScript threw or an element interaction
// could not be performed.
type ScriptError struct {
	Detail string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script failed: %s: %v", e.Detail, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// TimeoutError means a command exceeded its deadline. The session stays
// usable afterwards.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ErrSessionNotFound is returned for commands against unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// ErrTooManySessions is wrapped by the LaunchError returned when Open is
// called with the session cap already reached.
var ErrTooManySessions = errors.New("too many sessions")

// isTimeout reports whether an underlying driver error is a deadline expiry.
// Playwright surfaces these as "Timeout Nms exceeded" messages; a cancelled
// caller context counts too.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Timeout") && strings.Contains(msg, "exceeded")
}

// isDisconnect reports whether an error means the browser process is gone.
func isDisconnect(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Target closed") ||
		strings.Contains(msg, "browser has been closed") ||
		strings.Contains(msg, "Connection closed")
}

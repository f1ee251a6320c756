package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transport-level failures: connection refused, DNS,
	// resets mid-stream. The session may be retried as a whole.
	ErrNetwork = errors.New("research host unreachable")

	// ErrTimeout marks a session that exceeded its time budget. Events
	// already delivered remain valid.
	ErrTimeout = errors.New("research session timed out")

	// ErrTokenRejected marks a 401 whose detail names the session token.
	// The caller should discard the cached token, obtain a fresh one and
	// retry the session exactly once.
	ErrTokenRejected = errors.New("session token rejected")

	// ErrContentType marks a response that is not an event stream.
	ErrContentType = errors.New("response is not an event stream")
)

// ServiceError is a structured failure reported by the host, either as a
// non-success status on session open or as an error event mid-stream. The
// detail is the host's own wording and is safe to show to the user.
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("research host error (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("research host error: %s", e.Detail)
}

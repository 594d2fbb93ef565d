package compile

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the worker does not complete within the
// configured deadline. It is a distinct kind so callers can treat "too
// slow" differently from hard failures (errors.Is).
var ErrTimeout = errors.New("compilation timed out")

// WorkerError is a failure reported by the worker itself or by the
// transport carrying its messages.
type WorkerError struct {
	Message string
	Cause   error
}

func (e *WorkerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("worker error: %s: %v", e.Message, e.Cause)
	}
	return "worker error: " + e.Message
}

func (e *WorkerError) Unwrap() error { return e.Cause }

// ExitError is returned when the worker process exits with a non-zero
// code before sending any response.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("worker exited with code %d", e.Code)
}

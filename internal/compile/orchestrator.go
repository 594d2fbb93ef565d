package compile

import (
	"context"
	"fmt"
	"time"
)

// Orchestrator runs one compilation per call in a freshly spawned
// worker, racing its completion signals against a wall-clock deadline.
// It is reentrant: concurrent calls each own an independent worker.
type Orchestrator struct {
	WorkerBinary string
	WorkerArgs   []string
}

// Run sends a single request to a new worker and waits for the first
// of {response, transport error, non-zero exit, deadline, ctx done}.
// Later signals for the same call are discarded. The deadline timer is
// cleared and the worker terminated on every path out of this
// function, including panics in the select arms.
func (o *Orchestrator) Run(ctx context.Context, req Request, timeout time.Duration) ([]byte, error) {
	h, err := Spawn(o.WorkerBinary, o.WorkerArgs...)
	if err != nil {
		return nil, fmt.Errorf("spawn worker: %w", err)
	}
	defer h.Terminate()

	fired, cancel := StartTimeout(timeout)
	defer cancel()

	if err := h.Send(req); err != nil {
		return nil, &WorkerError{Message: "request transmission failed", Cause: err}
	}

	select {
	case resp := <-h.Response():
		if resp.Error != nil {
			return nil, resp.Error.toError()
		}
		return []byte(resp.Payload), nil

	case err := <-h.Err():
		return nil, &WorkerError{Message: "worker transport failed", Cause: err}

	case code := <-h.Exit():
		return nil, &ExitError{Code: code}

	case <-fired:
		return nil, ErrTimeout

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

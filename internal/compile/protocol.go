package compile

import (
	"errors"
	"time"

	"github.com/meshworks/meshc/internal/modelgraph"
)

// Request is the single message sent to a worker process. It is
// immutable once constructed and lives for the duration of one call.
type Request struct {
	ProjectDir string                 `json:"project_dir"`
	Config     map[string]interface{} `json:"config"`
	Vars       map[string]interface{} `json:"vars,omitempty"`

	// MainResult selects the combined run-result payload encoding
	// instead of the raw manifest.
	MainResult bool `json:"main_result,omitempty"`
}

// Response is the single message a worker sends back. Exactly one of
// Payload and Error is set.
type Response struct {
	Payload string       `json:"payload,omitempty"`
	Error   *WorkerFault `json:"error,omitempty"`
}

// WorkerFault is the structured error shape on the wire.
type WorkerFault struct {
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

func (f *WorkerFault) toError() error {
	var cause error
	if f.Cause != "" {
		cause = errors.New(f.Cause)
	}
	return &WorkerError{Message: f.Message, Cause: cause}
}

// RunResult is the combined "main" payload variant: the manifest plus
// timing and provenance from one worker invocation.
type RunResult struct {
	Manifest      modelgraph.Manifest `json:"manifest"`
	CompiledAt    time.Time           `json:"compiled_at"`
	ElapsedMS     int64               `json:"elapsed_ms"`
	WorkerVersion string              `json:"worker_version"`
}

package compile

import (
	"encoding/json"
	"os"
	"time"

	"github.com/meshworks/meshc/internal/modelgraph"
)

// WorkerVersion identifies the worker protocol implementation in
// main-result payloads.
const WorkerVersion = "0.4.0"

// RunWorker is the main loop for a compile worker process: it reads
// requests from stdin and writes one response per request to stdout,
// returning when the parent closes stdin.
func RunWorker() {
	dec := json.NewDecoder(os.Stdin)
	enc := json.NewEncoder(os.Stdout)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(handleRequest(req)); err != nil {
			return
		}
	}
}

// handleRequest compiles one project and encodes the payload variant
// the request asked for.
func handleRequest(req Request) Response {
	started := time.Now()

	manifest, err := modelgraph.Compile(req.ProjectDir, modelgraph.Options{
		Config: req.Config,
		Vars:   req.Vars,
	})
	if err != nil {
		return Response{Error: &WorkerFault{
			Message: "compilation failed",
			Cause:   err.Error(),
		}}
	}

	var out interface{} = manifest
	if req.MainResult {
		out = RunResult{
			Manifest:      *manifest,
			CompiledAt:    started.UTC(),
			ElapsedMS:     time.Since(started).Milliseconds(),
			WorkerVersion: WorkerVersion,
		}
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return Response{Error: &WorkerFault{
			Message: "failed to encode result",
			Cause:   err.Error(),
		}}
	}
	return Response{Payload: string(payload)}
}

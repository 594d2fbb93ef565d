// Package compile invokes model-project compilation in an isolated
// worker process, enforcing a deadline and guaranteeing termination on
// every exit path.
package compile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/meshworks/meshc/internal/modelgraph"
	"github.com/meshworks/meshc/internal/project"
)

// Compiler is the public entry point. It loads and validates the
// project configuration, then hands a single request to a worker.
type Compiler struct {
	orch Orchestrator
}

// New creates a Compiler that spawns workerBinary for each call.
func New(workerBinary string, workerArgs ...string) *Compiler {
	return &Compiler{orch: Orchestrator{
		WorkerBinary: workerBinary,
		WorkerArgs:   workerArgs,
	}}
}

// Options describes one compilation request.
type Options struct {
	// ProjectDir is the directory holding meshproject.yml and the
	// models tree.
	ProjectDir string

	// Overrides is deep-merged over the on-disk project file; nested
	// keys combine rather than replace.
	Overrides map[string]interface{}

	// Vars are bound as `vars` for model interpolation, merged over
	// the project file's own vars block.
	Vars map[string]interface{}

	// Timeout bounds the worker's wall-clock time. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Compile runs one compilation and decodes the raw manifest payload.
func (c *Compiler) Compile(ctx context.Context, opts Options) (*modelgraph.Manifest, error) {
	payload, err := c.run(ctx, opts, false)
	if err != nil {
		return nil, err
	}

	var m modelgraph.Manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, &WorkerError{Message: "undecodable manifest payload", Cause: err}
	}
	return &m, nil
}

// CompileMain runs one compilation and decodes the combined run-result
// wrapper variant.
func (c *Compiler) CompileMain(ctx context.Context, opts Options) (*RunResult, error) {
	payload, err := c.run(ctx, opts, true)
	if err != nil {
		return nil, err
	}

	var res RunResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, &WorkerError{Message: "undecodable run result payload", Cause: err}
	}
	return &res, nil
}

// run performs the shared front half: load, merge, validate, then
// orchestrate. Config and file errors surface here, before any process
// is spawned.
func (c *Compiler) run(ctx context.Context, opts Options, main bool) ([]byte, error) {
	proj, err := project.Load(opts.ProjectDir, opts.Overrides)
	if err != nil {
		return nil, err
	}
	if err := project.Validate(proj.Fields()); err != nil {
		return nil, err
	}

	raw := proj.Raw()
	vars := map[string]interface{}{}
	if pv, ok := raw["vars"].(map[string]interface{}); ok {
		for k, v := range pv {
			vars[k] = v
		}
	}
	for k, v := range opts.Vars {
		vars[k] = v
	}

	req := Request{
		ProjectDir: opts.ProjectDir,
		Config:     raw,
		Vars:       vars,
		MainResult: main,
	}
	payload, err := c.orch.Run(ctx, req, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, &WorkerError{Message: "worker returned an empty payload"}
	}
	return payload, nil
}

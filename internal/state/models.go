// Package state provides MongoDB persistence for compile-run history.
package state

import "time"

// RunStatus represents the terminal or in-flight state of a compile run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunTimedOut  RunStatus = "timed_out"
)

// CompileRun records one invocation of the compiler.
type CompileRun struct {
	ID         string    `bson:"_id" json:"id"`
	Project    string    `bson:"project" json:"project"`
	ProjectDir string    `bson:"project_dir" json:"project_dir"`
	Status     RunStatus `bson:"status" json:"status"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
	ModelCount int       `bson:"model_count" json:"model_count"`
	ElapsedMS  int64     `bson:"elapsed_ms" json:"elapsed_ms"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	FinishedAt time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meshworks/meshc/internal/compile"
	"github.com/meshworks/meshc/internal/config"
	"github.com/meshworks/meshc/internal/events"
	"github.com/meshworks/meshc/internal/project"
	"github.com/meshworks/meshc/internal/state"
)

// Handler contains all HTTP handlers.
type Handler struct {
	config    *config.Config
	compiler  Compiler
	store     RunStore
	publisher *events.Publisher
}

// NewHandler creates a new handler.
func NewHandler(cfg *config.Config, compiler Compiler, store RunStore, publisher *events.Publisher) *Handler {
	return &Handler{
		config:    cfg,
		compiler:  compiler,
		store:     store,
		publisher: publisher,
	}
}

// CompileRequest is the compile endpoint's request body.
type CompileRequest struct {
	ProjectDir string                 `json:"project_dir"`
	Overrides  map[string]interface{} `json:"overrides,omitempty"`
	Vars       map[string]interface{} `json:"vars,omitempty"`
	TimeoutMS  int64                  `json:"timeout_ms,omitempty"`
	MainResult bool                   `json:"main_result,omitempty"`
}

// HealthCheck handles health check requests.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "meshc",
	})
}

// CompileProject handles compile requests.
func (h *Handler) CompileProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProjectDir == "" {
		h.errorResponse(w, "project_dir is required", http.StatusBadRequest)
		return
	}

	opts := compile.Options{
		ProjectDir: req.ProjectDir,
		Overrides:  req.Overrides,
		Vars:       req.Vars,
		Timeout:    time.Duration(req.TimeoutMS) * time.Millisecond,
	}
	if opts.Timeout == 0 {
		opts.Timeout = h.config.Compiler.DefaultTimeout
	}

	started := time.Now()
	run := &state.CompileRun{
		ID:         uuid.NewString(),
		ProjectDir: req.ProjectDir,
		CreatedAt:  started,
	}

	var result interface{}
	var compileErr error
	if req.MainResult {
		var res *compile.RunResult
		res, compileErr = h.compiler.CompileMain(ctx, opts)
		if compileErr == nil {
			result = res
			run.Project = res.Manifest.Project
			run.ModelCount = len(res.Manifest.Models)
		}
	} else {
		var manifest *modelManifest
		manifest, compileErr = h.compileManifest(ctx, opts)
		if compileErr == nil {
			result = manifest.value
			run.Project = manifest.project
			run.ModelCount = manifest.modelCount
		}
	}

	run.ElapsedMS = time.Since(started).Milliseconds()
	run.FinishedAt = time.Now()
	run.Status = state.RunCompleted
	if compileErr != nil {
		run.Error = compileErr.Error()
		run.Status = state.RunFailed
		if errors.Is(compileErr, compile.ErrTimeout) {
			run.Status = state.RunTimedOut
		}
	}

	h.recordRun(run)

	if compileErr != nil {
		h.errorResponse(w, compileErr.Error(), statusForError(compileErr))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": run.ID,
		"result": result,
	})
}

// modelManifest is the manifest plus the few fields the run record needs.
type modelManifest struct {
	value      interface{}
	project    string
	modelCount int
}

func (h *Handler) compileManifest(ctx context.Context, opts compile.Options) (*modelManifest, error) {
	m, err := h.compiler.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &modelManifest{value: m, project: m.Project, modelCount: len(m.Models)}, nil
}

// GetRun returns a single compile run record.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.errorResponse(w, "run history is not enabled", http.StatusNotFound)
		return
	}

	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorResponse(w, "failed to get run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		h.errorResponse(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// ListRuns returns recent compile runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.errorResponse(w, "run history is not enabled", http.StatusNotFound)
		return
	}

	runs, err := h.store.ListRuns(r.Context(), 50)
	if err != nil {
		h.errorResponse(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*state.CompileRun{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// recordRun persists the run record and publishes the completion
// event. Both are best-effort: a history or event failure never turns
// a settled compile outcome into an API error.
func (h *Handler) recordRun(run *state.CompileRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.SaveRun(ctx, run); err != nil {
			log.Printf("failed to save compile run %s: %v", run.ID, err)
		}
	}

	if h.publisher != nil {
		ev := events.CompileCompletedEvent{
			RunID:     run.ID,
			Project:   run.Project,
			Status:    string(run.Status),
			Error:     run.Error,
			ElapsedMS: run.ElapsedMS,
		}
		if err := h.publisher.PublishCompileCompleted(ctx, ev); err != nil {
			log.Printf("failed to publish compile event for run %s: %v", run.ID, err)
		}
	}
}

func statusForError(err error) int {
	var cfgErr *project.ConfigFileError
	switch {
	case errors.Is(err, project.ErrInvalidConfig), errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, compile.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

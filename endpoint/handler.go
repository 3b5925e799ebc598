package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/model/target"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/service/coordinator"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
)

// BasePath prefixes every route.
const BasePath = "/v1/api/recompiler"

// Runtime is the subset of the recompiler runtime served by the handler.
type Runtime interface {
	Progress() progress.Progress
	Stats() coordinator.Stats
	Job(ctx context.Context, id string) (*job.Job, error)
	Jobs(ctx context.Context, parameters ...*dao.Parameter) ([]*job.Job, error)
	Artifact(ctx context.Context, function string) (*artifact.Artifact, error)
}

// Job is the wire representation of a job.
type Job struct {
	ID          string       `json:"id"`
	Function    string       `json:"function"`
	State       string       `json:"state"`
	Error       string       `json:"error,omitempty"`
	Code        *target.Code `json:"code,omitempty"`
	SubmittedAt time.Time    `json:"submittedAt"`
	CompiledAt  *time.Time   `json:"compiledAt,omitempty"`
	InstalledAt *time.Time   `json:"installedAt,omitempty"`
}

// Stats is the wire representation of worker statistics.
type Stats struct {
	Pending     int     `json:"pending"`
	Completed   int     `json:"completed"`
	CompilingMs int64   `json:"compilingMs"`
	TotalMs     int64   `json:"totalMs"`
	UsefulWork  float64 `json:"usefulWork"`
}

type handler struct {
	runtime Runtime
}

// New returns an http.Handler serving runtime diagnostics under BasePath.
func New(runtime Runtime) http.Handler {
	h := &handler{runtime: runtime}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Route(BasePath, func(r chi.Router) {
		r.Get("/progress", h.handleProgress)
		r.Get("/stats", h.handleStats)
		r.Get("/jobs", h.handleJobs)
		r.Get("/jobs/{id}", h.handleJob)
		r.Get("/artifacts/{function}", h.handleArtifact)
	})
	return router
}

// GET /progress
func (h *handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	snapshot := h.runtime.Progress()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"startedAt": snapshot.StartedAt,
		"submitted": snapshot.Submitted,
		"pending":   snapshot.Pending,
		"compiling": snapshot.Compiling,
		"compiled":  snapshot.Compiled,
		"installed": snapshot.Installed,
		"failed":    snapshot.Failed,
	})
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.runtime.Stats()
	writeJSON(w, http.StatusOK, &Stats{
		Pending:     stats.Pending,
		Completed:   stats.Completed,
		CompilingMs: stats.Compiling.Milliseconds(),
		TotalMs:     stats.Total.Milliseconds(),
		UsefulWork:  stats.UsefulWork(),
	})
}

// GET /jobs?state=installed,failed
func (h *handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	var parameters []*dao.Parameter
	if state := r.URL.Query().Get("state"); state != "" {
		parameters = append(parameters, dao.NewParameter("State", strings.Split(state, ",")...))
	}
	jobs, err := h.runtime.Jobs(r.Context(), parameters...)
	if err != nil {
		writeError(w, err)
		return
	}
	ret := make([]*Job, 0, len(jobs))
	for _, aJob := range jobs {
		ret = append(ret, newJob(aJob))
	}
	writeJSON(w, http.StatusOK, ret)
}

// GET /jobs/{id}
func (h *handler) handleJob(w http.ResponseWriter, r *http.Request) {
	aJob, err := h.runtime.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJob(aJob))
}

// GET /artifacts/{function}
func (h *handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	anArtifact, err := h.runtime.Artifact(r.Context(), chi.URLParam(r, "function"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, anArtifact)
}

// newJob copies only the fields whose writer is done in the observed state:
// the worker's results once settled, Error and InstalledAt once the installer
// made its final transition.
func newJob(aJob *job.Job) *Job {
	state := aJob.State()
	ret := &Job{
		ID:          aJob.ID,
		Function:    aJob.Name(),
		State:       state.String(),
		SubmittedAt: aJob.SubmittedAt,
	}
	if !state.IsSettled() && state != job.StateInstalled {
		return ret
	}
	ret.Code = aJob.Code
	if !aJob.CompiledAt.IsZero() {
		compiledAt := aJob.CompiledAt
		ret.CompiledAt = &compiledAt
	}
	switch state {
	case job.StateFailed:
		ret.Error = aJob.Error
	case job.StateInstalled:
		ret.Error = aJob.Error
		installedAt := aJob.InstalledAt
		ret.InstalledAt = &installedAt
	}
	return ret
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, dao.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("endpoint: failed to encode response: %v", err)
	}
}

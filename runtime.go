package recompiler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/viant/recompiler/internal/idgen"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/model/target"
	"github.com/viant/recompiler/policy"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/runtime/heap"
	"github.com/viant/recompiler/service/coordinator"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
	"github.com/viant/recompiler/service/event"
)

var (
	ErrNilFunction   = errors.New("recompiler: function is nil")
	ErrAlreadyQueued = errors.New("recompiler: function is already queued for recompile")
	ErrNotAllowed    = errors.New("recompiler: recompilation not allowed by policy")
	ErrNoArtifacts   = errors.New("recompiler: artifact cache is not configured")
)

// Runtime represents the recompilation runtime. Submit, Install and Shutdown
// are meant to be called from a single control goroutine.
type Runtime struct {
	config      RecompilerConfig
	coordinator *coordinator.Service
	jobDAO      dao.Service[string, job.Job]
	artifactDAO dao.Service[string, artifact.Artifact]
	policy      *policy.Policy
	heap        *heap.Heap
	progress    *progress.Progress
	listener    *event.Listener[*job.Job]
}

// Start starts the background worker (when parallel recompilation is
// enabled) and the event listener.
func (r *Runtime) Start(ctx context.Context) error {
	if r.listener != nil {
		r.listener.Start(ctx)
	}
	if !r.config.Parallel {
		return nil
	}
	return r.coordinator.Start(ctx)
}

// Submit requests recompilation of fn. In parallel mode the job is handed to
// the background worker and the call returns immediately; otherwise the job
// is compiled and installed before Submit returns.
func (r *Runtime) Submit(ctx context.Context, fn *target.Function) (*job.Job, error) {
	if fn == nil {
		return nil, ErrNilFunction
	}
	aPolicy := r.policy
	if ctxPolicy := policy.FromContext(ctx); ctxPolicy != nil {
		aPolicy = ctxPolicy
	}
	if !aPolicy.Admit(ctx, fn) {
		return nil, fmt.Errorf("%w: %v", ErrNotAllowed, fn.Name)
	}
	if !fn.ClaimRecompile() {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyQueued, fn.Name)
	}

	aJob := job.New(idgen.New(), fn)
	if err := r.jobDAO.Save(ctx, aJob); err != nil {
		fn.ReleaseRecompile()
		return nil, fmt.Errorf("failed to register job for %v: %w", fn.Name, err)
	}

	if !r.config.Parallel {
		err := r.coordinator.CompileNow(ctx, aJob)
		if err != nil && aJob.State() == job.StateCreated {
			fn.ReleaseRecompile()
		}
		return aJob, err
	}
	if err := r.coordinator.Submit(ctx, aJob); err != nil {
		fn.ReleaseRecompile()
		if dErr := r.jobDAO.Delete(ctx, aJob.ID); dErr != nil {
			log.Printf("recompiler: failed to unregister job %v: %v", aJob.ID, dErr)
		}
		return nil, err
	}
	return aJob, nil
}

// IsQueueAvailable reports whether another job can be submitted without
// ErrQueueFull.
func (r *Runtime) IsQueueAvailable() bool {
	return r.coordinator.IsQueueAvailable()
}

// Install installs every compiled job that is ready, in submission order.
func (r *Runtime) Install(ctx context.Context) int {
	return r.coordinator.Install(ctx)
}

// Shutdown stops the worker, drains pending jobs when configured and stops
// the event listener.
func (r *Runtime) Shutdown(ctx context.Context) (int, error) {
	drained, err := r.coordinator.Shutdown(ctx)
	if r.listener != nil {
		r.listener.Stop()
	}
	return drained, err
}

// Job returns a job by id
func (r *Runtime) Job(ctx context.Context, id string) (*job.Job, error) {
	return r.jobDAO.Load(ctx, id)
}

// Jobs returns a list of jobs, optionally filtered by "State"
func (r *Runtime) Jobs(ctx context.Context, parameters ...*dao.Parameter) ([]*job.Job, error) {
	return r.jobDAO.List(ctx, parameters...)
}

// Artifact returns the last code installed for a function
func (r *Runtime) Artifact(ctx context.Context, function string) (*artifact.Artifact, error) {
	if r.artifactDAO == nil {
		return nil, ErrNoArtifacts
	}
	return r.artifactDAO.Load(ctx, function)
}

// Progress returns a snapshot of the job counters
func (r *Runtime) Progress() progress.Progress {
	return r.progress.Snapshot()
}

// Stats returns queue occupancy and worker timing
func (r *Runtime) Stats() coordinator.Stats {
	return r.coordinator.Stats()
}

// Heap returns the heap guarded by the worker while compiling
func (r *Runtime) Heap() *heap.Heap {
	return r.heap
}

// Package job defines the unit of background recompilation work.
package job

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/viant/recompiler/internal/clock"
	"github.com/viant/recompiler/model/target"
)

// Job is one unit of background optimization work tied to one target
// function. Result fields (Code, Error, CompiledAt) are written by the worker
// before it publishes a settled state, and read by the installer only after
// observing that state, so they need no lock of their own.
type Job struct {
	ID          string
	Target      *target.Function
	Code        *target.Code
	Error       string
	SubmittedAt time.Time
	CompiledAt  time.Time
	InstalledAt time.Time

	state atomic.Int32
}

// New creates a job for fn in the Created state, stamped with the submission
// time. The stamp is never rewritten, so any goroutine may read it.
func New(id string, fn *target.Function) *Job {
	return &Job{ID: id, Target: fn, SubmittedAt: clock.Now()}
}

// State returns the current state.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Transition moves the job from one state to another; it returns false when
// the job was not in the expected state.
func (j *Job) Transition(from, to State) bool {
	return j.state.CompareAndSwap(int32(from), int32(to))
}

// Fail records the optimization error on the job.
func (j *Job) Fail(err error) {
	if err != nil {
		j.Error = err.Error()
	}
}

// Name returns the target function name.
func (j *Job) Name() string {
	if j.Target == nil {
		return ""
	}
	return j.Target.Name
}

func (j *Job) String() string {
	return fmt.Sprintf("job[%s %s %v]", j.ID, j.Name(), j.State())
}

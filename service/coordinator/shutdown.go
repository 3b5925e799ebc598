package coordinator

import (
	"context"
	"fmt"
	"log"

	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/tracing"
)

// Shutdown stops the worker and waits for its acknowledgement. When the
// delay or DrainOnShutdown is configured, jobs still pending are then
// compiled and installed on the calling goroutine; drained is their count.
//
// New submissions are rejected from the first call on. A done ctx abandons
// the wait and skips the drain; Shutdown may then be called again to wait for
// the acknowledgement and drain. Once it completed, further calls return
// ErrStopped.
func (s *Service) Shutdown(ctx context.Context) (drained int, err error) {
	if s.finished.Load() {
		return 0, ErrStopped
	}
	s.stopped.Store(true)
	if s.started.Load() {
		s.cancel()
		select {
		case <-s.done:
		case <-ctx.Done():
			return 0, fmt.Errorf("waiting for worker to stop: %w", ctx.Err())
		}
	}
	if !s.finished.CompareAndSwap(false, true) {
		return 0, ErrStopped
	}

	if s.config.Delay > 0 || s.config.DrainOnShutdown {
		drained = s.drain(ctx)
	}
	if left := s.Pending(); left > 0 {
		log.Printf("coordinator: %d job(s) left pending at shutdown", left)
	}
	if s.config.Trace {
		log.Printf("coordinator: compiler worker did %.2f%% useful work", s.Stats().UsefulWork())
	}
	return drained, nil
}

// drain runs the compile step and the installer directly until no job is
// pending, starting with the one the worker held in its delay. Only valid
// once the worker has exited.
func (s *Service) drain(ctx context.Context) int {
	ctx, span := tracing.StartSpan(ctx, "coordinator.drain", "INTERNAL")
	s.Install(ctx)
	drained := 0
	if aJob := s.held.Swap(nil); aJob != nil {
		s.compile(ctx, aJob)
		drained++
		s.Install(ctx)
	}
	for s.pending.Size() > 0 {
		aJob, ok := s.pending.TryConsume()
		if !ok {
			break
		}
		s.compile(ctx, aJob)
		drained++
		s.Install(ctx)
	}
	span.WithInt("drained", drained)
	tracing.EndSpan(span, nil)
	return drained
}

// CompileNow compiles and installs aJob on the calling goroutine. It serves
// configurations without background recompilation and fails while the worker
// runs.
func (s *Service) CompileNow(ctx context.Context, aJob *job.Job) error {
	if aJob == nil || aJob.Target == nil {
		return ErrNilJob
	}
	if s.stopped.Load() {
		return ErrStopped
	}
	if s.started.Load() {
		return ErrWorkerRunning
	}
	if !aJob.Target.IsQueuedForRecompile() {
		return fmt.Errorf("%w: %v", ErrTargetNotQueued, aJob.Name())
	}
	if !aJob.Transition(job.StateCreated, job.StateQueued) {
		return fmt.Errorf("%w: %v", ErrInvalidState, aJob)
	}
	s.progress.Update(progress.Delta{Submitted: 1, Pending: 1})
	s.compile(ctx, aJob)
	s.Install(ctx)
	if aJob.State() == job.StateFailed {
		return fmt.Errorf("%w: %v: %s", ErrOptimizationFailed, aJob.Name(), aJob.Error)
	}
	return nil
}

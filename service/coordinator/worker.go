package coordinator

import (
	"context"
	"log"
	"time"

	"github.com/viant/recompiler/internal/clock"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/service/event"
	"github.com/viant/recompiler/tracing"
)

// run is the worker loop. Cancelling ctx is the stop request; closing done is
// the acknowledgement.
func (s *Service) run(ctx context.Context) {
	epoch := clock.Now()
	s.epoch.Store(epoch.UnixNano())
	defer func() {
		s.timeTotal.Store(int64(clock.Since(epoch)))
		close(s.done)
	}()

	compileCtx := context.WithoutCancel(ctx)
	for {
		aJob, err := s.pending.Consume(ctx)
		if err != nil {
			break
		}
		if !s.pause(ctx, aJob) {
			break
		}
		start := clock.Now()
		s.compile(compileCtx, aJob)
		s.timeCompiling.Add(int64(clock.Since(start)))
	}
	if s.config.Trace {
		log.Printf("coordinator: worker stopped, %d job(s) pending", s.Pending())
	}
}

// pause sleeps the configured delay after a wake-up, before compiling aJob.
// While sleeping the job is held and still counts as pending; when stop is
// requested meanwhile it stays held for the shutdown drain and pause returns
// false.
func (s *Service) pause(ctx context.Context, aJob *job.Job) bool {
	if s.config.Delay <= 0 {
		return true
	}
	s.held.Store(aJob)
	timer := time.NewTimer(s.config.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		s.held.Store(nil)
		return true
	case <-ctx.Done():
		return false
	}
}

// compile optimizes a dequeued job and publishes it for installation. The
// job is pushed to the completed queue before its state is settled: from the
// push on, the installer sees the job at its final position but skips it
// until the settled state is stored.
func (s *Service) compile(ctx context.Context, aJob *job.Job) {
	ctx, span := tracing.StartSpan(ctx, "coordinator.compile "+aJob.Name(), "CONSUMER")
	span.WithAttributes(map[string]string{"job.id": aJob.ID, "function": aJob.Name()})

	if !aJob.Target.IsQueuedForRecompile() {
		invariant("%v: target is not queued for recompile", aJob)
	}
	if !aJob.Transition(job.StateQueued, job.StateCompiling) {
		invariant("%v: expected state %v", aJob, job.StateQueued)
	}
	s.progress.Update(progress.Delta{Pending: -1, Compiling: 1})

	err := s.optimize(ctx, aJob)
	if err == nil && aJob.Code == nil {
		err = ErrNoResult
	}
	eventType := event.TypeCompiled
	if err != nil {
		aJob.Fail(err)
		eventType = event.TypeFailed
	} else {
		aJob.CompiledAt = clock.Now()
	}

	s.completed.Push(aJob)
	if s.afterPublish != nil {
		s.afterPublish(aJob)
	}
	if !aJob.Target.IsQueuedForRecompile() {
		invariant("%v: target released before the job settled", aJob)
	}
	s.publish(ctx, aJob, eventType)

	if err != nil {
		log.Printf("coordinator: optimization of %v failed: %v", aJob.Name(), err)
		s.progress.Update(progress.Delta{Compiling: -1, Failed: 1})
		aJob.Transition(job.StateCompiling, job.StateFailed)
	} else {
		s.progress.Update(progress.Delta{Compiling: -1, Compiled: 1})
		aJob.Transition(job.StateCompiling, job.StateReadyToInstall)
	}
	// aJob belongs to the control goroutine from here on.
	tracing.EndSpan(span, err)
}

func (s *Service) optimize(ctx context.Context, aJob *job.Job) error {
	release := s.heap.RelocationLock()
	defer release()
	return s.optimizer.Optimize(ctx, aJob)
}

func (s *Service) publish(ctx context.Context, aJob *job.Job, eventType string) {
	if s.publisher == nil {
		return
	}
	eCtx := &event.Context{
		JobID:     aJob.ID,
		Function:  aJob.Name(),
		EventType: eventType,
	}
	if !aJob.CompiledAt.IsZero() {
		eCtx.TimeTakenMs = int(aJob.CompiledAt.Sub(aJob.SubmittedAt).Milliseconds())
	}
	if err := s.publisher.Publish(ctx, event.NewEvent(eCtx, aJob)); err != nil {
		log.Printf("coordinator: failed to publish %v event for %v: %v", eventType, aJob.Name(), err)
	}
}

package coordinator

import (
	"context"
	"log"

	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/tracing"
)

// Install installs every settled job at the front of the completed queue, in
// order, and returns how many were installed. It stops at the first job the
// worker has published but not yet settled. Failed jobs are dropped and their
// targets released.
func (s *Service) Install(ctx context.Context) int {
	if s.completed.Size() == 0 {
		return 0
	}
	ctx, span := tracing.StartSpan(ctx, "coordinator.install", "INTERNAL")

	installed, discarded := 0, 0
	for {
		aJob, ok := s.completed.Peek()
		if !ok {
			break
		}
		state := aJob.State()
		if !state.IsSettled() {
			break
		}
		if head, _ := s.completed.Pop(); head != aJob {
			invariant("completed queue head changed from %v to %v", aJob, head)
		}

		if state == job.StateFailed {
			aJob.Target.ReleaseRecompile()
			discarded++
			continue
		}

		if err := s.installer.Install(ctx, aJob); err != nil {
			log.Printf("coordinator: failed to install %v: %v", aJob.Name(), err)
			aJob.Fail(err)
			aJob.Target.ReleaseRecompile()
			aJob.Transition(job.StateReadyToInstall, job.StateFailed)
			s.progress.Update(progress.Delta{Failed: 1})
			discarded++
			continue
		}
		if aJob.Target.IsQueuedForRecompile() {
			invariant("%v: target still queued after install", aJob)
		}
		if !aJob.Transition(job.StateReadyToInstall, job.StateInstalled) {
			invariant("%v: expected state %v", aJob, job.StateReadyToInstall)
		}
		installed++
	}

	if installed > 0 {
		s.progress.Update(progress.Delta{Installed: installed})
	}
	if s.config.Trace && installed+discarded > 0 {
		log.Printf("coordinator: installed %d, discarded %d job(s)", installed, discarded)
	}
	span.WithInt("installed", installed).WithInt("discarded", discarded)
	tracing.EndSpan(span, nil)
	return installed
}

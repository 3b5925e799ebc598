package installer

import (
	"context"
	"errors"
	"log"

	"github.com/viant/recompiler/internal/clock"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
	"github.com/viant/recompiler/service/event"
)

// ErrNoCode is returned when a job reached installation without a result.
var ErrNoCode = errors.New("installer: job has no code")

// Service installs the result of a job on its target.
type Service interface {
	Install(ctx context.Context, aJob *job.Job) error
}

type service struct {
	artifacts dao.Service[string, artifact.Artifact]
	publisher *event.Publisher[*job.Job]
}

// Install swaps the target's active code, which also clears its
// queued-for-recompile flag. Artifact and event failures are logged only:
// the code is already live at that point.
func (s *service) Install(ctx context.Context, aJob *job.Job) error {
	if aJob.Code == nil {
		return ErrNoCode
	}
	aJob.Target.InstallCode(aJob.Code)
	aJob.InstalledAt = clock.Now()

	if s.artifacts != nil {
		anArtifact := &artifact.Artifact{
			Function:    aJob.Name(),
			JobID:       aJob.ID,
			Code:        aJob.Code,
			InstalledAt: aJob.InstalledAt,
		}
		if err := s.artifacts.Save(ctx, anArtifact); err != nil {
			log.Printf("installer: failed to save artifact for %v: %v", aJob.Name(), err)
		}
	}

	if s.publisher != nil {
		eCtx := &event.Context{
			JobID:       aJob.ID,
			Function:    aJob.Name(),
			EventType:   event.TypeInstalled,
			TimeTakenMs: int(aJob.InstalledAt.Sub(aJob.SubmittedAt).Milliseconds()),
		}
		if err := s.publisher.Publish(ctx, event.NewEvent(eCtx, aJob)); err != nil {
			log.Printf("installer: failed to publish event for %v: %v", aJob.Name(), err)
		}
	}
	return nil
}

// New creates the default installer.
func New(opts ...Option) Service {
	s := &service{}
	for _, o := range opts {
		o(s)
	}
	return s
}

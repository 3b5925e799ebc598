package installer

import (
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
	"github.com/viant/recompiler/service/event"
)

// Option is used to customise the installer instance.
type Option func(*service)

// WithArtifactDAO stores every installed code as an artifact.
func WithArtifactDAO(artifacts dao.Service[string, artifact.Artifact]) Option {
	return func(s *service) {
		s.artifacts = artifacts
	}
}

// WithPublisher publishes an installed event per job.
func WithPublisher(publisher *event.Publisher[*job.Job]) Option {
	return func(s *service) {
		s.publisher = publisher
	}
}

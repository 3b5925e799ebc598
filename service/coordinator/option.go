package coordinator

import (
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/service/event"
	"github.com/viant/recompiler/service/installer"
	"github.com/viant/recompiler/service/optimizer"
)

type Option func(*Service)

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithOptimizer sets the optimization routine run by the worker
func WithOptimizer(optimizer optimizer.Service) Option {
	return func(s *Service) {
		s.optimizer = optimizer
	}
}

// WithInstaller sets the routine installing completed jobs
func WithInstaller(installer installer.Service) Option {
	return func(s *Service) {
		s.installer = installer
	}
}

// WithHeap sets the relocation-exclusion resource held while compiling
func WithHeap(heap RelocationLocker) Option {
	return func(s *Service) {
		s.heap = heap
	}
}

// WithProgress sets the counters tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithPublisher publishes compiled/failed events
func WithPublisher(publisher *event.Publisher[*job.Job]) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

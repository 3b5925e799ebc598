package recompiler

import (
	"fmt"
	"log"

	"github.com/viant/afs"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/policy"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/runtime/heap"
	"github.com/viant/recompiler/service/coordinator"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
	afs2 "github.com/viant/recompiler/service/dao/artifact/fs"
	jmemory "github.com/viant/recompiler/service/dao/job/memory"
	"github.com/viant/recompiler/service/event"
	"github.com/viant/recompiler/service/installer"
	mmemory "github.com/viant/recompiler/service/messaging/memory"
	"github.com/viant/recompiler/service/optimizer"
	"github.com/viant/recompiler/service/optimizer/passthrough"
	"github.com/viant/recompiler/tracing"
)

// Service wires the background recompilation pipeline.
type Service struct {
	runtime          *Runtime
	config           *Config
	optimizer        optimizer.Service
	installer        installer.Service
	artifactDAO      dao.Service[string, artifact.Artifact]
	eventHandlers    []func(*event.Event[*job.Job])
	progressListener func(progress.Progress)
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}

	var publisher *event.Publisher[*job.Job]
	if len(s.eventHandlers) > 0 {
		queue := mmemory.NewQueue[*event.Event[*job.Job]](mmemory.Config{QueueBuffer: s.config.EventBuffer})
		publisher = event.NewPublisher[*job.Job](queue)
		handlers := s.eventHandlers
		s.runtime.listener = event.NewListener(publisher, func(e *event.Event[*job.Job]) {
			for _, handler := range handlers {
				handler(e)
			}
		})
	}
	if s.installer == nil {
		s.installer = installer.New(installer.WithArtifactDAO(s.artifactDAO), installer.WithPublisher(publisher))
	}

	var err error
	s.runtime.coordinator, err = coordinator.New(
		coordinator.WithConfig(coordinator.Config{
			QueueCapacity:   s.config.Recompiler.QueueCapacity,
			Delay:           s.config.Recompiler.Delay,
			DrainOnShutdown: s.config.Recompiler.DrainOnShutdown,
			Trace:           s.config.Recompiler.Trace,
		}),
		coordinator.WithOptimizer(s.optimizer),
		coordinator.WithInstaller(s.installer),
		coordinator.WithHeap(s.runtime.heap),
		coordinator.WithProgress(s.runtime.progress),
		coordinator.WithPublisher(publisher),
	)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}
	s.runtime.config = s.config.Recompiler
	s.runtime.artifactDAO = s.artifactDAO
	return nil
}

func (s *Service) ensureBaseSetup() error {
	if tc := s.config.Tracing; tc.Enabled {
		if err := tracing.Init(tc.Service, tc.Version, tc.Output); err != nil {
			log.Printf("recompiler: failed to initialise tracing: %v", err)
		}
	}
	if s.optimizer == nil {
		s.optimizer = passthrough.New()
	}
	if s.artifactDAO == nil && s.config.ArtifactURL != "" {
		artifacts, err := afs2.New(afs.New(), s.config.ArtifactURL)
		if err != nil {
			return fmt.Errorf("failed to create artifact cache: %w", err)
		}
		s.artifactDAO = artifacts
	}
	if s.runtime.heap == nil {
		s.runtime.heap = heap.New()
	}
	if s.runtime.jobDAO == nil {
		s.runtime.jobDAO = jmemory.New()
	}
	if s.runtime.policy == nil && s.config.Policy != nil {
		s.runtime.policy = policy.FromConfig(s.config.Policy)
	}
	s.runtime.progress = progress.New(s.progressListener)
	return nil
}

// Runtime returns the runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// New creates a recompiler service
func New(options ...Option) (*Service, error) {
	ret := &Service{runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}

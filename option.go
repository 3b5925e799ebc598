package recompiler

import (
	"log"

	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/policy"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/runtime/heap"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
	"github.com/viant/recompiler/service/event"
	"github.com/viant/recompiler/service/installer"
	"github.com/viant/recompiler/service/optimizer"
	"github.com/viant/recompiler/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option represents recompiler service option
type Option func(s *Service)

// WithConfig sets the service configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithOptimizer sets the optimizer run by the worker
func WithOptimizer(optimizer optimizer.Service) Option {
	return func(s *Service) {
		s.optimizer = optimizer
	}
}

// WithInstaller replaces the default installer
func WithInstaller(installer installer.Service) Option {
	return func(s *Service) {
		s.installer = installer
	}
}

// WithHeap sets the heap guarded during compilation
func WithHeap(heap *heap.Heap) Option {
	return func(s *Service) {
		s.runtime.heap = heap
	}
}

// WithJobDAO sets the job registry
func WithJobDAO(dao dao.Service[string, job.Job]) Option {
	return func(s *Service) {
		s.runtime.jobDAO = dao
	}
}

// WithArtifactDAO sets the installed code cache
func WithArtifactDAO(dao dao.Service[string, artifact.Artifact]) Option {
	return func(s *Service) {
		s.artifactDAO = dao
	}
}

// WithPolicy sets the recompilation policy; it takes precedence over the
// configured one.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.runtime.policy = p
	}
}

// WithEventListener registers a handler for compiled, failed and installed
// job events.
func WithEventListener(handler func(*event.Event[*job.Job])) Option {
	return func(s *Service) {
		s.eventHandlers = append(s.eventHandlers, handler)
	}
}

// WithProgressListener registers a callback invoked on every counters change
func WithProgressListener(listener func(progress.Progress)) Option {
	return func(s *Service) {
		s.progressListener = listener
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			log.Printf("recompiler: failed to initialise tracing: %v", err)
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter (OTLP,
// Jaeger, Zipkin, in-memory). The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			log.Printf("recompiler: failed to initialise tracing: %v", err)
		}
	}
}

package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/viant/recompiler/internal/clock"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/progress"
	"github.com/viant/recompiler/runtime/heap"
	"github.com/viant/recompiler/service/event"
	"github.com/viant/recompiler/service/installer"
	"github.com/viant/recompiler/service/messaging"
	"github.com/viant/recompiler/service/messaging/memory"
	"github.com/viant/recompiler/service/optimizer"
)

// Config represents coordinator configuration
type Config struct {
	// QueueCapacity bounds the pending queue
	QueueCapacity int

	// Delay is slept by the worker before every compile cycle. Testing knob
	// only; a non-zero delay also enables the shutdown drain.
	Delay time.Duration

	// DrainOnShutdown compiles and installs remaining jobs on shutdown
	DrainOnShutdown bool

	// Trace enables per-job logging and the useful-work report
	Trace bool
}

// DefaultConfig returns the default coordinator configuration
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 8,
	}
}

// RelocationLocker is the memory manager's relocation exclusion.
type RelocationLocker interface {
	RelocationLock() (release func())
}

// Service coordinates one background worker with the control goroutine.
type Service struct {
	config    Config
	optimizer optimizer.Service
	installer installer.Service
	heap      RelocationLocker
	progress  *progress.Progress
	publisher *event.Publisher[*job.Job]

	pending   *memory.Queue[*job.Job]
	completed messaging.Buffer[*job.Job]
	// held is the dequeued job the worker is delaying before its compile
	held atomic.Pointer[job.Job]

	started atomic.Bool
	// stopped is set on the first Shutdown and rejects new work; finished is
	// set once the worker acknowledged the stop.
	stopped  atomic.Bool
	finished atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}

	epoch         atomic.Int64
	timeTotal     atomic.Int64
	timeCompiling atomic.Int64

	// afterPublish runs on the worker between publishing a job to the
	// completed queue and settling its state.
	afterPublish func(*job.Job)
}

// Stats reports queue occupancy and worker timing.
type Stats struct {
	Pending   int
	Completed int
	Compiling time.Duration
	Total     time.Duration
}

// UsefulWork returns the share of the worker lifetime spent compiling, in
// percent.
func (s Stats) UsefulWork() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Compiling) * 100 / float64(s.Total)
}

// New creates a coordinator; the worker is not running until Start.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		done:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.optimizer == nil {
		return nil, fmt.Errorf("optimizer is required")
	}
	if s.installer == nil {
		s.installer = installer.New(installer.WithPublisher(s.publisher))
	}
	if s.heap == nil {
		s.heap = heap.New()
	}
	if s.progress == nil {
		s.progress = progress.New(nil)
	}
	if s.config.QueueCapacity <= 0 {
		s.config.QueueCapacity = DefaultConfig().QueueCapacity
	}
	s.pending = memory.NewQueue[*job.Job](memory.Config{QueueBuffer: s.config.QueueCapacity})
	s.completed = memory.NewList[*job.Job]()
	return s, nil
}

// Start launches the background worker.
func (s *Service) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(workerCtx)
	return nil
}

// IsQueueAvailable reports whether the pending queue has capacity for one
// more job.
func (s *Service) IsQueueAvailable() bool {
	return s.pending.Available()
}

// Submit hands aJob to the worker. It never blocks; the job's target must
// already be claimed for recompile.
func (s *Service) Submit(ctx context.Context, aJob *job.Job) error {
	if aJob == nil || aJob.Target == nil {
		return ErrNilJob
	}
	if s.stopped.Load() {
		return ErrStopped
	}
	if !aJob.Target.IsQueuedForRecompile() {
		return fmt.Errorf("%w: %v", ErrTargetNotQueued, aJob.Name())
	}
	if !s.pending.Available() {
		return ErrQueueFull
	}
	if !aJob.Transition(job.StateCreated, job.StateQueued) {
		return fmt.Errorf("%w: %v", ErrInvalidState, aJob)
	}
	s.progress.Update(progress.Delta{Submitted: 1, Pending: 1})
	if err := s.pending.Publish(ctx, aJob); err != nil {
		s.progress.Update(progress.Delta{Submitted: -1, Pending: -1})
		aJob.Transition(job.StateQueued, job.StateCreated)
		return err
	}
	if s.config.Trace {
		log.Printf("coordinator: queued %v for recompilation", aJob.Name())
	}
	return nil
}

// Pending returns the number of jobs waiting for the worker, including one
// held by the injected delay.
func (s *Service) Pending() int {
	ret := s.pending.Size()
	if s.held.Load() != nil {
		ret++
	}
	return ret
}

// Completed returns the number of jobs published by the worker and not yet
// consumed by the installer.
func (s *Service) Completed() int {
	return s.completed.Size()
}

// Stats returns a diagnostic snapshot.
func (s *Service) Stats() Stats {
	ret := Stats{
		Pending:   s.Pending(),
		Completed: s.completed.Size(),
		Compiling: time.Duration(s.timeCompiling.Load()),
		Total:     time.Duration(s.timeTotal.Load()),
	}
	if ret.Total == 0 {
		if epoch := s.epoch.Load(); epoch != 0 {
			ret.Total = clock.Since(time.Unix(0, epoch))
		}
	}
	return ret
}

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/model/target"
	"github.com/viant/recompiler/runtime/heap"
	"github.com/viant/recompiler/service/installer"
	"github.com/viant/recompiler/service/optimizer"
)

const (
	waitFor = 2 * time.Second
	tick    = time.Millisecond
)

// recorder installs through the default installer and remembers the order.
type recorder struct {
	mu       sync.Mutex
	names    []string
	delegate installer.Service
}

func newRecorder() *recorder {
	return &recorder{delegate: installer.New()}
}

func (r *recorder) Install(ctx context.Context, aJob *job.Job) error {
	r.mu.Lock()
	r.names = append(r.names, aJob.Name())
	r.mu.Unlock()
	return r.delegate.Install(ctx, aJob)
}

func (r *recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// emit is an optimizer producing optimized code from the function source.
func emit(ctx context.Context, aJob *job.Job) error {
	aJob.Code = &target.Code{Tier: target.TierOptimized, Version: 1, Body: aJob.Target.Source}
	return nil
}

func newJob(t *testing.T, name string) *job.Job {
	fn := target.NewFunction(name, name+"()")
	require.True(t, fn.ClaimRecompile())
	return job.New("job-"+name, fn)
}

func newService(t *testing.T, opt optimizer.Func, options ...Option) (*Service, *recorder) {
	r := newRecorder()
	options = append([]Option{WithOptimizer(opt), WithInstaller(r)}, options...)
	srv, err := New(options...)
	require.NoError(t, err)
	return srv, r
}

// installAll runs installer passes until expected jobs were installed.
func installAll(t *testing.T, srv *Service, expected int) {
	installed := 0
	require.Eventually(t, func() bool {
		installed += srv.Install(context.Background())
		return installed >= expected
	}, waitFor, tick)
	assert.Equal(t, expected, installed)
}

func TestNew(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	srv, err := New(WithOptimizer(optimizer.Func(emit)), WithConfig(Config{}))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().QueueCapacity, srv.pending.Capacity())
	assert.NotNil(t, srv.installer)
	assert.NotNil(t, srv.heap)
}

func TestService_InstallsInSubmissionOrder(t *testing.T) {
	const count = 20
	srv, r := newService(t, emit, WithConfig(Config{QueueCapacity: count}))
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))

	var expected []string
	var jobs []*job.Job
	for i := 0; i < count; i++ {
		aJob := newJob(t, fmt.Sprintf("f%02d", i))
		jobs = append(jobs, aJob)
		expected = append(expected, aJob.Name())
		require.NoError(t, srv.Submit(ctx, aJob))
	}

	installAll(t, srv, count)
	assert.Equal(t, expected, r.Names())
	for _, aJob := range jobs {
		assert.Equal(t, job.StateInstalled, aJob.State())
		assert.Equal(t, 1, aJob.Target.Installs(), aJob.Name())
		assert.Equal(t, target.TierOptimized, aJob.Target.Code().Tier)
		assert.False(t, aJob.Target.IsQueuedForRecompile())
	}
	assert.Equal(t, 0, srv.Pending())
	assert.Equal(t, 0, srv.Completed())
	assert.Equal(t, 0, srv.Install(ctx), "a second pass without new work installs nothing")

	snapshot := srv.progress.Snapshot()
	assert.Equal(t, count, snapshot.Submitted)
	assert.Equal(t, count, snapshot.Installed)
	assert.Equal(t, 0, snapshot.Pending)

	drained, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, drained)
}

func TestService_InstallStopsAtFirstUnsettledJob(t *testing.T) {
	srv, r := newService(t, emit)
	published := make(chan struct{})
	release := make(chan struct{})
	srv.afterPublish = func(aJob *job.Job) {
		if aJob.Name() == "B" {
			close(published)
			<-release
		}
	}
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))

	a, b, c := newJob(t, "A"), newJob(t, "B"), newJob(t, "C")
	for _, aJob := range []*job.Job{a, b, c} {
		require.NoError(t, srv.Submit(ctx, aJob))
	}

	select {
	case <-published:
	case <-time.After(waitFor):
		t.Fatal("B was not published")
	}
	// A is settled, B is in the completed queue but still compiling
	assert.Equal(t, job.StateReadyToInstall, a.State())
	assert.Equal(t, job.StateCompiling, b.State())
	assert.Equal(t, 2, srv.Completed())

	assert.Equal(t, 1, srv.Install(ctx))
	assert.Equal(t, []string{"A"}, r.Names())
	assert.Equal(t, 0, srv.Install(ctx))
	assert.True(t, b.Target.IsQueuedForRecompile())

	close(release)
	installAll(t, srv, 2)
	assert.Equal(t, []string{"A", "B", "C"}, r.Names())

	_, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
}

func TestService_InstallEmpty(t *testing.T) {
	srv, r := newService(t, emit)
	done := make(chan int)
	go func() { done <- srv.Install(context.Background()) }()
	select {
	case installed := <-done:
		assert.Equal(t, 0, installed)
	case <-time.After(waitFor):
		t.Fatal("install blocked on an empty queue")
	}
	assert.Empty(t, r.Names())
}

func TestService_PendingTracksQueue(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv, _ := newService(t, func(ctx context.Context, aJob *job.Job) error {
		entered <- struct{}{}
		<-release
		return emit(ctx, aJob)
	})
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))

	require.NoError(t, srv.Submit(ctx, newJob(t, "first")))
	<-entered
	assert.Equal(t, 0, srv.Pending(), "the compiling job is no longer pending")

	for i := 0; i < 3; i++ {
		require.NoError(t, srv.Submit(ctx, newJob(t, fmt.Sprintf("next%d", i))))
		assert.Equal(t, i+1, srv.Pending())
	}
	assert.Equal(t, 3, srv.progress.Snapshot().Pending)

	close(release)
	go func() {
		for range entered {
		}
	}()
	installAll(t, srv, 4)
	assert.Equal(t, 0, srv.Pending())
	_, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
	close(entered)
}

func TestService_Shutdown(t *testing.T) {
	t.Run("no pending jobs", func(t *testing.T) {
		srv, r := newService(t, emit, WithConfig(Config{Trace: true}))
		ctx := context.Background()
		require.NoError(t, srv.Start(ctx))

		drained, err := srv.Shutdown(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, drained)
		assert.Empty(t, r.Names())
		assert.True(t, srv.Stats().Total > 0)
	})

	t.Run("drains pending jobs under delay", func(t *testing.T) {
		srv, r := newService(t, emit, WithConfig(Config{QueueCapacity: 8, Delay: time.Hour}))
		ctx := context.Background()
		require.NoError(t, srv.Start(ctx))

		var jobs []*job.Job
		for _, name := range []string{"A", "B", "C"} {
			aJob := newJob(t, name)
			jobs = append(jobs, aJob)
			require.NoError(t, srv.Submit(ctx, aJob))
		}
		// the worker holds A in its delay; it still counts as pending
		require.Eventually(t, func() bool { return srv.held.Load() == jobs[0] }, waitFor, tick)
		assert.Equal(t, 3, srv.Pending())
		assert.Equal(t, 3, srv.Stats().Pending)

		drained, err := srv.Shutdown(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 3, drained)
		assert.Equal(t, 0, srv.Pending())
		assert.Equal(t, 0, srv.Completed())
		assert.Equal(t, []string{"A", "B", "C"}, r.Names())
		for _, aJob := range jobs {
			assert.Equal(t, job.StateInstalled, aJob.State())
		}
	})

	t.Run("drains without a started worker", func(t *testing.T) {
		srv, r := newService(t, emit, WithConfig(Config{DrainOnShutdown: true}))
		ctx := context.Background()
		require.NoError(t, srv.Submit(ctx, newJob(t, "A")))
		require.NoError(t, srv.Submit(ctx, newJob(t, "B")))

		drained, err := srv.Shutdown(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, drained)
		assert.Equal(t, []string{"A", "B"}, r.Names())
	})

	t.Run("keeps pending jobs without drain", func(t *testing.T) {
		srv, r := newService(t, emit)
		ctx := context.Background()
		require.NoError(t, srv.Submit(ctx, newJob(t, "A")))

		drained, err := srv.Shutdown(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, drained)
		assert.Equal(t, 1, srv.Pending())
		assert.Empty(t, r.Names())
	})

	t.Run("retry after timeout", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		srv, r := newService(t, func(ctx context.Context, aJob *job.Job) error {
			if aJob.Name() == "A" {
				close(entered)
				<-release
			}
			return emit(ctx, aJob)
		}, WithConfig(Config{DrainOnShutdown: true}))
		ctx := context.Background()
		require.NoError(t, srv.Start(ctx))
		require.NoError(t, srv.Submit(ctx, newJob(t, "A")))
		require.NoError(t, srv.Submit(ctx, newJob(t, "B")))
		<-entered

		timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		drained, err := srv.Shutdown(timeoutCtx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, drained)
		assert.ErrorIs(t, srv.Submit(ctx, newJob(t, "C")), ErrStopped)
		assert.Equal(t, 1, srv.Pending(), "no drain while the worker still compiles")

		close(release)
		drained, err = srv.Shutdown(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, drained)
		assert.Equal(t, 0, srv.Pending())
		assert.Equal(t, []string{"A", "B"}, r.Names())

		_, err = srv.Shutdown(ctx)
		assert.ErrorIs(t, err, ErrStopped)
	})

	t.Run("twice", func(t *testing.T) {
		srv, _ := newService(t, emit)
		ctx := context.Background()
		require.NoError(t, srv.Start(ctx))
		_, err := srv.Shutdown(ctx)
		assert.NoError(t, err)
		_, err = srv.Shutdown(ctx)
		assert.ErrorIs(t, err, ErrStopped)
		assert.ErrorIs(t, srv.Start(ctx), ErrStopped)
	})
}

func TestService_DelayAfterWake(t *testing.T) {
	const delay = 50 * time.Millisecond
	srv, r := newService(t, emit, WithConfig(Config{Delay: delay}))
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	// idle for longer than the delay before any work arrives
	time.Sleep(2 * delay)

	aJob := newJob(t, "A")
	require.NoError(t, srv.Submit(ctx, aJob))
	installAll(t, srv, 1)
	assert.Equal(t, []string{"A"}, r.Names())
	assert.GreaterOrEqual(t, aJob.CompiledAt.Sub(aJob.SubmittedAt), delay)

	_, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("nil job", func(t *testing.T) {
		srv, _ := newService(t, emit)
		assert.ErrorIs(t, srv.Submit(ctx, nil), ErrNilJob)
		assert.ErrorIs(t, srv.Submit(ctx, &job.Job{}), ErrNilJob)
	})

	t.Run("unclaimed target", func(t *testing.T) {
		srv, _ := newService(t, emit)
		aJob := job.New("1", target.NewFunction("f", "x"))
		assert.ErrorIs(t, srv.Submit(ctx, aJob), ErrTargetNotQueued)
		assert.Equal(t, job.StateCreated, aJob.State())
	})

	t.Run("queue full", func(t *testing.T) {
		srv, _ := newService(t, emit, WithConfig(Config{QueueCapacity: 1}))
		require.NoError(t, srv.Submit(ctx, newJob(t, "A")))
		assert.False(t, srv.IsQueueAvailable())
		rejected := newJob(t, "B")
		assert.ErrorIs(t, srv.Submit(ctx, rejected), ErrQueueFull)
		assert.Equal(t, job.StateCreated, rejected.State())
		assert.Equal(t, 1, srv.Pending())
	})

	t.Run("resubmitted job", func(t *testing.T) {
		srv, _ := newService(t, emit)
		aJob := newJob(t, "A")
		require.NoError(t, srv.Submit(ctx, aJob))
		assert.ErrorIs(t, srv.Submit(ctx, aJob), ErrInvalidState)
		assert.Equal(t, 1, srv.Pending())
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv, _ := newService(t, emit)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		aJob := newJob(t, "A")
		assert.ErrorIs(t, srv.Submit(cancelled, aJob), context.Canceled)
		assert.Equal(t, job.StateCreated, aJob.State())
		assert.Equal(t, 0, srv.progress.Snapshot().Submitted)
	})

	t.Run("after shutdown", func(t *testing.T) {
		srv, _ := newService(t, emit)
		_, err := srv.Shutdown(ctx)
		require.NoError(t, err)
		assert.ErrorIs(t, srv.Submit(ctx, newJob(t, "A")), ErrStopped)
	})
}

func TestService_FailedOptimizationIsDropped(t *testing.T) {
	errUnsupported := errors.New("unsupported construct")
	srv, r := newService(t, func(ctx context.Context, aJob *job.Job) error {
		if aJob.Name() == "bad" {
			return errUnsupported
		}
		return emit(ctx, aJob)
	})
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))

	good1, bad, good2 := newJob(t, "good1"), newJob(t, "bad"), newJob(t, "good2")
	for _, aJob := range []*job.Job{good1, bad, good2} {
		require.NoError(t, srv.Submit(ctx, aJob))
	}

	installAll(t, srv, 2)
	assert.Equal(t, []string{"good1", "good2"}, r.Names())
	assert.Equal(t, job.StateFailed, bad.State())
	assert.Equal(t, errUnsupported.Error(), bad.Error)
	assert.False(t, bad.Target.IsQueuedForRecompile())
	assert.Equal(t, target.TierBaseline, bad.Target.Code().Tier)
	assert.Equal(t, 1, srv.progress.Snapshot().Failed)

	_, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
}

func TestService_MissingCodeIsAFailure(t *testing.T) {
	srv, r := newService(t, func(ctx context.Context, aJob *job.Job) error { return nil })
	aJob := newJob(t, "A")
	err := srv.CompileNow(context.Background(), aJob)
	assert.ErrorIs(t, err, ErrOptimizationFailed)
	assert.Equal(t, ErrNoResult.Error(), aJob.Error)
	assert.Empty(t, r.Names())
}

func TestService_CompileHoldsRelocationLock(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := heap.New()
	srv, _ := newService(t, func(ctx context.Context, aJob *job.Job) error {
		close(entered)
		<-release
		return emit(ctx, aJob)
	}, WithHeap(h))
	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	require.NoError(t, srv.Submit(ctx, newJob(t, "A")))
	<-entered

	relocated := make(chan struct{})
	go func() {
		h.Relocate(nil)
		close(relocated)
	}()
	select {
	case <-relocated:
		t.Fatal("relocation ran during compilation")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-relocated:
	case <-time.After(waitFor):
		t.Fatal("relocation did not resume after compilation")
	}
	installAll(t, srv, 1)
	_, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
}

func TestService_CompileNow(t *testing.T) {
	srv, r := newService(t, emit)
	ctx := context.Background()

	aJob := newJob(t, "A")
	require.NoError(t, srv.CompileNow(ctx, aJob))
	assert.Equal(t, job.StateInstalled, aJob.State())
	assert.Equal(t, []string{"A"}, r.Names())

	require.NoError(t, srv.Start(ctx))
	assert.ErrorIs(t, srv.Start(ctx), ErrAlreadyStarted)
	assert.ErrorIs(t, srv.CompileNow(ctx, newJob(t, "B")), ErrWorkerRunning)
	_, err := srv.Shutdown(ctx)
	assert.NoError(t, err)
	assert.ErrorIs(t, srv.CompileNow(ctx, newJob(t, "C")), ErrStopped)
}

func TestService_CompileInvariant(t *testing.T) {
	srv, _ := newService(t, emit)
	aJob := job.New("1", target.NewFunction("f", "x"))
	require.True(t, aJob.Transition(job.StateCreated, job.StateQueued))

	defer func() {
		recovered := recover()
		require.NotNil(t, recovered)
		err, ok := recovered.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrInvariant)
	}()
	srv.compile(context.Background(), aJob)
}

func TestStats_UsefulWork(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.UsefulWork())
	assert.InDelta(t, 25.0, Stats{Compiling: time.Second, Total: 4 * time.Second}.UsefulWork(), 0.001)
}

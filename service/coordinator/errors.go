package coordinator

import (
	"errors"
	"fmt"

	"github.com/viant/recompiler/service/messaging/memory"
)

var (
	ErrQueueFull          = memory.ErrQueueFull
	ErrStopped            = errors.New("coordinator: stopped")
	ErrAlreadyStarted     = errors.New("coordinator: already started")
	ErrWorkerRunning      = errors.New("coordinator: background worker is running")
	ErrNilJob             = errors.New("coordinator: job or its target is nil")
	ErrTargetNotQueued    = errors.New("coordinator: target is not queued for recompile")
	ErrInvalidState       = errors.New("coordinator: invalid job state")
	ErrNoResult           = errors.New("coordinator: optimizer produced no code")
	ErrOptimizationFailed = errors.New("coordinator: optimization failed")

	// ErrInvariant is wrapped by the value of every panic raised on a broken
	// queue/state invariant.
	ErrInvariant = errors.New("coordinator: invariant violation")
)

func invariant(format string, args ...interface{}) {
	panic(fmt.Errorf("%w: "+format, append([]interface{}{ErrInvariant}, args...)...))
}

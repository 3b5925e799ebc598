package memory

import (
	"context"
	"errors"

	"github.com/viant/recompiler/service/messaging"
)

// ErrQueueFull is returned by Publish when the queue has no free capacity.
var ErrQueueFull = errors.New("queue is full")

// Config for memory queue implementation
type Config struct {
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		QueueBuffer: 8,
	}
}

// Queue implements a bounded in-memory messaging.Queue on top of a buffered
// channel. The channel length doubles as the queue size, so there is no
// separate counter to keep consistent with the queue contents.
type Queue[T any] struct {
	messages chan T
	config   Config
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan T, config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a new item to the queue; it never blocks.
func (q *Queue[T]) Publish(ctx context.Context, t T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.messages <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume retrieves a single item from the queue. A done context takes
// priority over available items.
func (q *Queue[T]) Consume(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryConsume retrieves an item when one is immediately available.
func (q *Queue[T]) TryConsume() (T, bool) {
	select {
	case msg := <-q.messages:
		return msg, true
	default:
		var zero T
		return zero, false
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// Capacity returns the maximum number of messages the queue can hold
func (q *Queue[T]) Capacity() int {
	return cap(q.messages)
}

// Available reports whether Publish would currently succeed.
func (q *Queue[T]) Available() bool {
	return len(q.messages) < cap(q.messages)
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)

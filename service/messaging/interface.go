package messaging

import (
	"context"
)

// Queue represents an abstract FIFO handing payloads from producers to a
// consumer.
type Queue[T any] interface {
	// Publish adds a payload to the queue without blocking
	Publish(ctx context.Context, t T) error

	// Consume retrieves a single payload, blocking until one is available or
	// ctx is done
	Consume(ctx context.Context) (T, error)

	// Size returns the number of payloads currently held
	Size() int
}

// Buffer represents a FIFO whose head can be inspected without removing it.
type Buffer[T any] interface {
	// Push appends t at the tail
	Push(t T)

	// Peek returns the head without removing it
	Peek() (T, bool)

	// Pop removes and returns the head
	Pop() (T, bool)

	// Size returns the number of buffered items
	Size() int
}

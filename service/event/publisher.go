package event

import (
	"context"
	"time"

	"github.com/viant/recompiler/service/messaging"
)

type Publisher[T any] struct {
	queue messaging.Queue[*Event[T]]
}

func NewPublisher[T any](queue messaging.Queue[*Event[T]]) *Publisher[T] {
	return &Publisher[T]{
		queue: queue,
	}
}

// Publish enqueues event; a nil publisher drops it.
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if p == nil {
		return nil
	}
	event.CreatedAt = time.Now()
	return p.queue.Publish(ctx, event)
}

func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	return p.queue.Consume(ctx)
}

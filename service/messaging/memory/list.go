package memory

import (
	"sync"

	"github.com/viant/recompiler/service/messaging"
)

// List is an unbounded, mutex-guarded FIFO with head inspection.
type List[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

// NewList creates an empty list
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// Push appends t at the tail
func (l *List[T]) Push(t T) {
	l.mu.Lock()
	l.items = append(l.items, t)
	l.mu.Unlock()
}

// Peek returns the head without removing it
func (l *List[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.head == len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[l.head], true
}

// Pop removes and returns the head
func (l *List[T]) Pop() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	if l.head == len(l.items) {
		return zero, false
	}
	ret := l.items[l.head]
	l.items[l.head] = zero
	l.head++
	if l.head == len(l.items) {
		l.items = l.items[:0]
		l.head = 0
	} else if l.head > 32 && l.head*2 > len(l.items) {
		n := copy(l.items, l.items[l.head:])
		clear(l.items[n:])
		l.items = l.items[:n]
		l.head = 0
	}
	return ret, true
}

// Size returns the number of buffered items
func (l *List[T]) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items) - l.head
}

var _ messaging.Buffer[any] = (*List[any])(nil)

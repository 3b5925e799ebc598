// Package heap models the memory manager's relocation exclusion. Background
// compilation reads the shared object graph under RelocationLock; anything
// that moves or compacts that graph runs through Relocate and therefore waits
// for every in-flight compile step to finish.
package heap

import (
	"sync"
	"sync/atomic"
)

// Heap guards the shared object graph against relocation.
type Heap struct {
	mu          sync.RWMutex
	relocations atomic.Int64
}

// New creates a heap guard.
func New() *Heap {
	return &Heap{}
}

// RelocationLock blocks relocation until the returned release function is
// called. Release must be called exactly once.
func (h *Heap) RelocationLock() (release func()) {
	h.mu.RLock()
	return h.mu.RUnlock
}

// Relocate runs fn with exclusive access to the object graph.
func (h *Heap) Relocate(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fn != nil {
		fn()
	}
	h.relocations.Add(1)
}

// Relocations returns the number of completed relocations.
func (h *Heap) Relocations() int64 {
	return h.relocations.Load()
}

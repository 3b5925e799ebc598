package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the submitter,
// the worker or the installer. The fields are signed and therefore can be
// either positive (increment) or negative (decrement).
type Delta struct {
	Submitted int
	Pending   int
	Compiling int
	Compiled  int
	Installed int
	Failed    int
}

// Progress keeps aggregated job counters. It is safe for concurrent use.
type Progress struct {
	StartedAt time.Time

	Submitted int
	Pending   int
	Compiling int
	Compiled  int
	Installed int
	Failed    int

	sync.Mutex
	onChange func(Progress)
}

// New creates a tracker; onChange may be nil.
func New(onChange func(Progress)) *Progress {
	return &Progress{StartedAt: time.Now(), onChange: onChange}
}

// Update applies the supplied delta to the tracker. If an onChange callback
// has been registered it is invoked with a copy of the updated tracker
// outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.Submitted += d.Submitted
	p.Pending += d.Pending
	p.Compiling += d.Compiling
	p.Compiled += d.Compiled
	p.Installed += d.Installed
	p.Failed += d.Failed

	snapshot := p.copy()
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

// OnChange registers a callback that is invoked after every Update. Passing
// nil disables the callback.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// copy must be called with the lock held.
func (p *Progress) copy() Progress {
	return Progress{
		StartedAt: p.StartedAt,
		Submitted: p.Submitted,
		Pending:   p.Pending,
		Compiling: p.Compiling,
		Compiled:  p.Compiled,
		Installed: p.Installed,
		Failed:    p.Failed,
	}
}

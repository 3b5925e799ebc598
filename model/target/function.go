// Package target defines the runtime entities whose active code a
// recompilation job may replace.
package target

import (
	"sync/atomic"
	"time"
)

// Tier identifies the compilation tier that produced a Code.
type Tier string

const (
	TierBaseline  Tier = "baseline"
	TierOptimized Tier = "optimized"
)

// Code is an immutable unit of executable code installed on a Function.
type Code struct {
	Tier       Tier      `json:"tier" yaml:"tier"`
	Version    int       `json:"version" yaml:"version"`
	Body       string    `json:"body" yaml:"body"`
	CompiledAt time.Time `json:"compiledAt" yaml:"compiledAt"`
}

// Function is a target entity: a named function with its source and its
// currently active code.
//
// The queued-for-recompile flag is claimed by the control goroutine before a
// job is submitted and cleared as a side effect of installing (or
// discarding) that job's result, so at most one job references a Function
// at a time. Active code is swapped atomically and may be read from any
// goroutine.
type Function struct {
	Name   string
	Source string

	code     atomic.Pointer[Code]
	queued   atomic.Bool
	installs atomic.Int64
}

// NewFunction creates a function running baseline code for source.
func NewFunction(name, source string) *Function {
	ret := &Function{Name: name, Source: source}
	ret.code.Store(&Code{Tier: TierBaseline, Version: 0, Body: source})
	return ret
}

// Code returns the active code.
func (f *Function) Code() *Code {
	return f.code.Load()
}

// IsQueuedForRecompile reports whether a recompilation job currently
// references this function.
func (f *Function) IsQueuedForRecompile() bool {
	return f.queued.Load()
}

// ClaimRecompile marks the function as queued for recompilation. It returns
// false when another job already holds the claim.
func (f *Function) ClaimRecompile() bool {
	return f.queued.CompareAndSwap(false, true)
}

// ReleaseRecompile clears the claim without touching the active code.
func (f *Function) ReleaseRecompile() {
	f.queued.Store(false)
}

// InstallCode replaces the active code and clears the recompile claim.
func (f *Function) InstallCode(code *Code) {
	f.code.Store(code)
	f.installs.Add(1)
	f.queued.Store(false)
}

// Installs returns how many times code was installed on this function.
func (f *Function) Installs() int {
	return int(f.installs.Load())
}

// Package recompiler runs optimizing recompilation of functions on a single
// background worker and installs the results on the control goroutine.
//
// The pipeline consists of:
//
//   - coordinator – pending/completed queues, worker loop, installer pass, shutdown
//   - optimizer   – produces optimized code for a job
//   - installer   – swaps a function's active code
//   - heap        – relocation exclusion held while compiling
//
// Typical use through the root Service facade:
//
//	srv, _ := recompiler.New()
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	_, _ = rt.Submit(ctx, fn)
//	...
//	rt.Install(ctx) // at a safe point on the control goroutine
//	_, _ = rt.Shutdown(ctx)
package recompiler

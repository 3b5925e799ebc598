// Package coordinator runs background recompilation. A single worker
// goroutine takes jobs from the pending queue, optimizes them while holding
// the heap relocation lock and publishes them to the completed queue; the
// control goroutine installs the contiguous prefix of settled jobs in
// submission order.
//
// Submit, Install, CompileNow and Shutdown belong to the control goroutine and
// must not be called concurrently with each other.
package coordinator

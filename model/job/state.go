package job

// State represents the lifecycle stage of a recompilation job. Every
// transition is made by the goroutine that owns the job at that stage:
//
//	Created → Queued            control (submission)
//	Queued → Compiling          worker (after dequeue)
//	Compiling → ReadyToInstall  worker (after publishing to completed)
//	Compiling → Failed          worker (after publishing to completed)
//	ReadyToInstall → Installed  control (installer)
type State int32

const (
	StateCreated State = iota
	StateQueued
	StateCompiling
	StateReadyToInstall
	StateFailed
	StateInstalled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateQueued:
		return "queued"
	case StateCompiling:
		return "compiling"
	case StateReadyToInstall:
		return "readyToInstall"
	case StateFailed:
		return "failed"
	case StateInstalled:
		return "installed"
	}
	return "unknown"
}

// IsSettled reports whether the worker is done with the job, so that the
// installer may consume it.
func (s State) IsSettled() bool {
	return s == StateReadyToInstall || s == StateFailed
}

package manager

import "time"

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State        State
	CurrentModel string
	Err          string
}

// Instance pairs a live generation session with its admission state
// (one per model id).
type Instance struct {
	ID          string
	State       State
	LastUsed    time.Time
	EstMemoryMB int
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
	// Generator backing this instance. A session mutates its context
	// destructively per call, so genCh guards all access.
	gen Generator
}

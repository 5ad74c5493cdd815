package lock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Flight guards a job so that at most one run is in progress. A second
// caller does not wait; it gets ErrAlreadyRunning.
type Flight struct {
	name      string
	clock     clockwork.Clock
	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

// NewFlight creates a guard; name is used in error messages and logs.
// A nil clock uses the real clock.
func NewFlight(name string, clock clockwork.Clock) *Flight {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Flight{name: name, clock: clock}
}

// Name returns the guarded job name.
func (f *Flight) Name() string {
	return f.name
}

// Do runs fn unless another run holds the guard.
func (f *Flight) Do(fn func() error) error {
	if !f.tryAcquire() {
		return ErrAlreadyRunning
	}
	defer f.release()
	return fn()
}

// Running reports whether a run is in progress and since when.
func (f *Flight) Running() (bool, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running, f.startedAt
}

func (f *Flight) tryAcquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return false
	}
	f.running = true
	f.startedAt = f.clock.Now()
	return true
}

func (f *Flight) release() {
	f.mu.Lock()
	f.running = false
	f.startedAt = time.Time{}
	f.mu.Unlock()
}

package moderation

import (
	"sync"
	"time"
)

// Clock abstracts time so tests can drive expirations with a virtual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) TimerHandle
}

// TimerHandle is a cancelable pending timer.
type TimerHandle interface {
	// Stop cancels the timer. It reports false when the timer already fired.
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) TimerHandle {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the wall-clock Clock used in production.
func SystemClock() Clock { return systemClock{} }

// timerRegistry tracks the pending expiration timer per record id. Only
// entries with a live, unfired timer are present. All mutation goes through
// the mutex; timer callbacks run on their own goroutines.
type timerRegistry struct {
	clock  Clock
	mu     sync.Mutex
	timers map[string]TimerHandle
}

func newTimerRegistry(clock Clock) *timerRegistry {
	return &timerRegistry{
		clock:  clock,
		timers: make(map[string]TimerHandle),
	}
}

// Schedule arms a timer firing at the given wall-clock time. A deadline in
// the past fires immediately. An existing timer for the same id is replaced.
func (r *timerRegistry) Schedule(id string, at time.Time, fn func()) {
	d := at.Sub(r.clock.Now())
	if d < 0 {
		d = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.timers[id]; ok {
		old.Stop()
	}
	r.timers[id] = r.clock.AfterFunc(d, fn)
}

// Cancel stops and removes the pending timer for id, if any.
func (r *timerRegistry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
}

// Discard removes the entry for id without stopping it, for timers that have
// already fired.
func (r *timerRegistry) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.timers, id)
}

// Drain stops every pending timer and clears the registry.
func (r *timerRegistry) Drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// Len returns the number of pending timers.
func (r *timerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

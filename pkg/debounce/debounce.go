// Package debounce collapses a burst of triggers into one deferred action
// that carries the most recent value.
package debounce

import (
	"sync"
	"time"

	"github.com/odvcencio/panelsync/pkg/clock"
)

// DefaultWindow is the quiescence window used for input writes and
// output refreshes unless configured otherwise.
const DefaultWindow = 150 * time.Millisecond

// Debouncer defers action until Trigger has not been called for a full
// window. Every Trigger restarts the window and replaces the pending
// value, so the action only ever sees the last value of a burst.
//
// Debouncer is safe for concurrent use. The action runs outside the
// internal lock, on the clock's timer goroutine.
type Debouncer[T any] struct {
	clock  clock.Clock
	window time.Duration
	action func(T)

	mu      sync.Mutex
	timer   *clock.Timer
	gen     uint64
	value   T
	pending bool
	stopped bool
}

// New returns a Debouncer. A nil clock means the real clock; a
// non-positive window runs the action synchronously on every Trigger.
func New[T any](c clock.Clock, window time.Duration, action func(T)) *Debouncer[T] {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer[T]{clock: c, window: window, action: action}
}

// Trigger records v as the pending value and restarts the window.
// It is a no-op after Stop.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.window <= 0 {
		d.mu.Unlock()
		d.action(v)
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.value = v
	d.pending = true
	d.mu.Unlock()

	// Registered outside the lock: the fake clock fires callbacks
	// synchronously and fire needs the lock.
	timer := d.clock.AfterFunc(d.window, func() { d.fire(gen) })

	d.mu.Lock()
	if d.gen == gen && d.pending {
		d.timer = timer
	} else {
		timer.Stop()
	}
	d.mu.Unlock()
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	d.action(v)
}

// take clears the pending state and returns the pending value. Callers
// hold d.mu.
func (d *Debouncer[T]) take() T {
	v := d.value
	var zero T
	d.value = zero
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return v
}

// Flush runs the pending action immediately, in the calling goroutine.
// It reports whether anything was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	v := d.take()
	d.mu.Unlock()

	d.action(v)
	return true
}

// Cancel drops the pending value without running the action. It reports
// whether anything was pending.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending {
		return false
	}
	d.take()
	return true
}

// Stop cancels any pending action and ignores later triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.pending {
		d.take()
	}
}

// Pending reports whether an action is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

package core

import (
	"errors"
	"sync"
	"time"
)

// ErrWaitTimeout is returned by Event.Wait when the bounded wait expires
// before the event is set.
var ErrWaitTimeout = errors.New("wait timed out before event was set")

// Event is a manual-reset, one-shot wait object.
//
// Once set, an Event stays set forever: every current waiter wakes, and every
// later waiter observes it as already set without blocking. This is the
// primitive behind the created-signal, the exit-signal, and the registry's
// shared release-all signal.
//
// The zero value is not usable; construct with NewEvent.
type Event struct {
	once sync.Once
	ch   chan struct{}
}

// NewEvent creates an unset Event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set transitions the event to the signaled state. Safe to call from any
// goroutine; calls after the first are no-ops.
func (e *Event) Set() {
	e.once.Do(func() {
		close(e.ch)
	})
}

// IsSet reports whether the event has been signaled.
func (e *Event) IsSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the event is set.
// Use this for select-based waits alongside other channels.
func (e *Event) Done() <-chan struct{} {
	return e.ch
}

// Wait blocks until the event is set or the timeout elapses.
// Returns ErrWaitTimeout on expiry. A timeout <= 0 waits forever.
func (e *Event) Wait(timeout time.Duration) error {
	if e.IsSet() {
		return nil
	}
	if timeout <= 0 {
		<-e.ch
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.ch:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	}
}

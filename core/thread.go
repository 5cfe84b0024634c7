package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// ErrAlreadyCreated is returned by Create when the thread was already created.
	ErrAlreadyCreated = errors.New("thread already created")

	// ErrNotCreated is returned when an operation requires a created thread.
	ErrNotCreated = errors.New("thread has not been created")

	// ErrThreadNotRunning is returned by Post when the target thread no
	// longer exists.
	ErrThreadNotRunning = errors.New("thread is no longer running")

	// ErrExitTimeout is returned by RequestExit when the work loop did not
	// exit within the wait timeout and was forcibly abandoned.
	ErrExitTimeout = errors.New("work loop did not exit within the wait timeout")
)

// Exit codes reported for work loops that never ran to completion.
const (
	// ExitCodeOK is the conventional success exit code.
	ExitCodeOK int32 = 0

	// ExitCodeCanceled is returned by NewHandlerLoop when the thread's
	// context is canceled before a stop message arrives.
	ExitCodeCanceled int32 = -1

	// ExitCodeStartupFault is recorded when a thread terminates during
	// startup coordination (barrier timeout or cancellation) and its work
	// loop never ran.
	ExitCodeStartupFault int32 = -2
)

// =============================================================================
// ThreadState: Per-thread lifecycle state machine
// =============================================================================

// ThreadState is the lifecycle state of a Thread.
//
// Unborn --Create()--> Created --(barrier release, if any)--> Running
// --RequestExit()--> Exiting --(work loop returns)--> Terminated
//
// RequestExit is also valid while still in Created: the stop message is the
// first thing processed once the thread passes the barrier.
type ThreadState int32

const (
	StateUnborn ThreadState = iota
	StateCreated
	StateRunning
	StateExiting
	StateTerminated
)

// String returns the state name for logs and diagnostics.
func (s ThreadState) String() string {
	switch s {
	case StateUnborn:
		return "unborn"
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExiting:
		return "exiting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// =============================================================================
// WorkLoop: Owner-supplied thread body
// =============================================================================

// WorkLoop is the owner-supplied function that runs the actual thread logic
// after startup coordination completes. It is invoked exactly once, on the
// worker goroutine, after any barrier wait, and occupies the goroutine until
// it returns. Its return value becomes the thread's exit code.
//
// The loop must treat TagStop as its exit signal. The context is canceled
// when the owner abandons an unresponsive thread; loops that can block
// outside the inbox receive should watch it.
type WorkLoop func(ctx context.Context, inbox <-chan Message) int32

// NewHandlerLoop adapts a per-message handler into a WorkLoop: work and
// application messages are dispatched to handler, TagStop returns ExitCodeOK,
// and context cancellation returns ExitCodeCanceled. A reserved tag the
// coordinator does not define is a protocol violation and goes to the thread's
// FaultHandler instead of the handler.
func NewHandlerLoop(handler func(msg Message)) WorkLoop {
	return func(ctx context.Context, inbox <-chan Message) int32 {
		for {
			select {
			case <-ctx.Done():
				return ExitCodeCanceled
			case msg := <-inbox:
				if msg.Tag == TagStop {
					return ExitCodeOK
				}
				if msg.Tag.IsReserved() && msg.Tag != TagWork {
					CurrentFaultHandler(ctx).Fault("unhandled reserved message tag",
						F("tag", msg.Tag))
					continue
				}
				handler(msg)
			}
		}
	}
}

// =============================================================================
// Thread: Handle for one named, long-lived worker
// =============================================================================

// Thread owns one worker goroutine plus the synchronization objects needed to
// coordinate it: the created-signal, the exit-signal, and a reference to the
// registry's shared release-all barrier.
//
// The owner is expected to serialize its own calls into a given Thread's
// lifecycle methods; the handle does not defend against concurrent Create and
// RequestExit calls on the same Thread from multiple owner goroutines. Post
// may be called from any goroutine once Create has returned.
//
// Construct through Registry.NewThread.
type Thread struct {
	id       uint64
	name     string
	cfg      ThreadConfig
	registry *Registry
	workLoop WorkLoop

	state    atomic.Int32
	exitCode atomic.Int32

	// created is set by the worker goroutine after it has materialized its
	// inbox; exited is set as the worker's last act.
	created *Event
	exited  *Event

	// inbox is allocated by the worker goroutine itself before it sets the
	// created-signal. Any goroutine that observed Create return therefore
	// sees a non-nil queue.
	inbox chan Message

	// spawn launches the worker goroutine. Replaceable to simulate a
	// runtime that never schedules the worker.
	spawn func(fn func())

	ctx    context.Context
	cancel context.CancelFunc
}

func newThread(registry *Registry, name string, loop WorkLoop, cfg *ThreadConfig) *Thread {
	return &Thread{
		id:       registry.nextThreadID(),
		name:     name,
		cfg:      cfg.withDefaults(),
		registry: registry,
		workLoop: loop,
		created:  NewEvent(),
		exited:   NewEvent(),
		spawn:    func(fn func()) { go fn() },
	}
}

// ID returns the thread's process-unique identifier, assigned at construction.
func (t *Thread) ID() uint64 { return t.id }

// Name returns the thread's diagnostic name. Names are not unique-enforced.
func (t *Thread) Name() string { return t.name }

// SyncStart reports whether this thread participates in the shared barrier.
func (t *Thread) SyncStart() bool { return t.cfg.SyncStart }

// State returns the current lifecycle state.
func (t *Thread) State() ThreadState {
	return ThreadState(t.state.Load())
}

// ExitCode returns the work loop's exit code. The bool is false until the
// thread has reached Terminated.
func (t *Thread) ExitCode() (int32, bool) {
	if t.State() != StateTerminated {
		return 0, false
	}
	return t.exitCode.Load(), true
}

// Create spawns the worker goroutine and performs the creation handshake.
//
// It blocks until the worker has materialized its inbox and signaled the
// created-signal, or until the wait timeout elapses. On success the thread is
// in Created state and Post is guaranteed never to fail for queue-absence
// reasons. A handshake timeout means the runtime failed to schedule the new
// worker within any reasonable bound; it is reported to the fault handler and
// returned as an error, not retried.
func (t *Thread) Create() error {
	t.cfg.FaultHandler.Assert(t.workLoop != nil, "thread has no work loop", F("thread", t.name))

	if t.State() != StateUnborn {
		t.cfg.FaultHandler.Fault("Create called on an already-created thread",
			F("thread", t.name), F("state", t.State()))
		return fmt.Errorf("create %q: %w", t.name, ErrAlreadyCreated)
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	t.ctx = withFaultHandler(ctx, t.cfg.FaultHandler)
	t.cancel = cancel
	t.registry.add(t)
	t.spawn(t.run)

	if err := t.created.Wait(t.cfg.WaitTimeout); err != nil {
		t.cancel()
		t.registry.remove(t)
		t.cfg.FaultHandler.Fault("thread creation handshake timed out",
			F("thread", t.name), F("timeout", t.cfg.WaitTimeout))
		return fmt.Errorf("create %q: %w", t.name, err)
	}

	t.cfg.Metrics.RecordHandshakeDuration(t.name, time.Since(start))
	t.cfg.Metrics.RecordThreadStarted(t.name)
	t.cfg.Logger.Debug("thread created", F("thread", t.name), F("id", t.id),
		F("syncStart", t.cfg.SyncStart))
	return nil
}

// run is the worker goroutine body: materialize the inbox, signal created,
// park at the barrier if sync-start, then hand control to the work loop.
func (t *Thread) run() {
	// The queue must exist before anyone can observe the created-signal.
	// Create does not return until that signal is set, which establishes
	// the invariant "Create returned => posting to this thread cannot fail
	// for queue-absence reasons".
	t.inbox = make(chan Message, t.cfg.QueueCapacity)
	t.state.Store(int32(StateCreated))
	t.created.Set()

	if t.cfg.SyncStart {
		barrierStart := time.Now()
		timer := time.NewTimer(t.cfg.WaitTimeout)
		select {
		case <-t.registry.release.Done():
			timer.Stop()
			t.cfg.Metrics.RecordBarrierWait(t.name, time.Since(barrierStart))
		case <-t.ctx.Done():
			timer.Stop()
			t.finish(ExitCodeStartupFault)
			return
		case <-timer.C:
			t.finish(ExitCodeStartupFault)
			// The owner never released the barrier. Unrecoverable.
			t.cfg.FaultHandler.Fault("release-all barrier was never signaled",
				F("thread", t.name), F("timeout", t.cfg.WaitTimeout))
			return
		}
	}

	// RequestExit may already have moved the state to Exiting; in that case
	// the stop message is the first thing the work loop processes.
	t.state.CompareAndSwap(int32(StateCreated), int32(StateRunning))

	t.finish(t.workLoop(t.ctx, t.inbox))
}

// finish records the exit code, transitions to Terminated, and releases any
// exit-signal waiter even if it had not yet started waiting.
func (t *Thread) finish(code int32) {
	t.exitCode.Store(code)
	t.state.Store(int32(StateTerminated))
	t.registry.remove(t)
	t.exited.Set()
	t.cfg.Metrics.RecordThreadExited(t.name, code)
}

// Post enqueues a message into the thread's inbox. Ownership of the payload
// transfers to the receiving work loop.
//
// After a successful Create this never fails for queue-absence reasons. It
// fails with ErrThreadNotRunning when the worker has already terminated. A
// post that races with termination may be accepted and then never processed,
// matching the behavior of posting to an exiting OS thread.
func (t *Thread) Post(tag MessageTag, payload any) error {
	switch t.State() {
	case StateUnborn:
		return fmt.Errorf("post to %q: %w", t.name, ErrNotCreated)
	case StateTerminated:
		t.cfg.Metrics.RecordMessageRejected(t.name, "terminated")
		return fmt.Errorf("post to %q: %w", t.name, ErrThreadNotRunning)
	}

	select {
	case t.inbox <- Message{Tag: tag, Payload: payload}:
		t.cfg.Metrics.RecordMessagePosted(t.name, tag)
		t.cfg.Metrics.RecordQueueDepth(t.name, len(t.inbox))
		return nil
	case <-t.exited.Done():
		t.cfg.Metrics.RecordMessageRejected(t.name, "terminated")
		return fmt.Errorf("post to %q: %w", t.name, ErrThreadNotRunning)
	}
}

// PostWork enqueues a generic work item. The payload is opaque to the
// coordinator; the work loop must release it after processing.
func (t *Thread) PostWork(payload any) error {
	return t.Post(TagWork, payload)
}

// RequestExit posts a stop message and waits for the work loop to return.
//
// The stop message is an ordinary queue entry, so work items posted earlier
// by the same producer are processed first. If the work loop does not exit
// within the wait timeout, the thread's context is canceled and the goroutine
// is abandoned: bounded-time but lossy, since resources held by the
// unresponsive work loop are not released. That path returns ErrExitTimeout.
//
// Idempotent: calling RequestExit on an already-Terminated thread is a no-op.
func (t *Thread) RequestExit() error {
	for {
		s := t.State()
		switch s {
		case StateUnborn:
			return fmt.Errorf("request exit %q: %w", t.name, ErrNotCreated)
		case StateTerminated:
			return nil
		case StateExiting:
			// A previous call already posted the stop message.
		default:
			if !t.state.CompareAndSwap(int32(s), int32(StateExiting)) {
				continue
			}
		}
		break
	}

	timer := time.NewTimer(t.cfg.WaitTimeout)
	defer timer.Stop()
	select {
	case t.inbox <- Message{Tag: TagStop}:
		t.cfg.Metrics.RecordMessagePosted(t.name, TagStop)
	case <-t.exited.Done():
		t.cancel()
		return nil
	case <-timer.C:
		return t.detach("inbox full and work loop unresponsive")
	}

	if err := t.exited.Wait(t.cfg.WaitTimeout); err != nil {
		return t.detach("work loop did not process stop")
	}
	t.cancel()
	code, _ := t.ExitCode()
	t.cfg.Logger.Debug("thread terminated", F("thread", t.name), F("exitCode", code))
	return nil
}

// detach abandons an unresponsive work loop: cancel its context, mark the
// handle Terminated, and stop tracking it. The goroutine itself is leaked
// until (unless) it notices the cancellation. Lossy teardown, surfaced as
// ErrExitTimeout but not escalated to the fault handler, so that shutdown is
// never blocked indefinitely.
func (t *Thread) detach(reason string) error {
	t.cancel()
	t.state.Store(int32(StateTerminated))
	t.registry.remove(t)
	t.exited.Set()
	t.cfg.Metrics.RecordForcedDetach(t.name)
	t.cfg.Logger.Warn("forcibly detaching unresponsive thread",
		F("thread", t.name), F("reason", reason), F("timeout", t.cfg.WaitTimeout))
	return fmt.Errorf("request exit %q: %w", t.name, ErrExitTimeout)
}

// QueueDepth returns the number of messages currently buffered in the inbox.
// Returns 0 before the creation handshake has completed.
func (t *Thread) QueueDepth() int {
	if !t.created.IsSet() {
		return 0
	}
	return len(t.inbox)
}

// Stats returns a point-in-time snapshot of the thread's observable state.
func (t *Thread) Stats() ThreadStats {
	code, _ := t.ExitCode()
	return ThreadStats{
		ID:         t.id,
		Name:       t.name,
		State:      t.State(),
		SyncStart:  t.cfg.SyncStart,
		QueueDepth: t.QueueDepth(),
		ExitCode:   code,
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Test helpers
// =============================================================================

// recordingFaultHandler captures faults instead of aborting so tests can
// exercise the unrecoverable paths.
type recordingFaultHandler struct {
	mu     sync.Mutex
	faults []string
}

func (h *recordingFaultHandler) Fault(msg string, fields ...Field) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults = append(h.faults, msg)
}

func (h *recordingFaultHandler) Assert(cond bool, msg string, fields ...Field) {
	if !cond {
		h.Fault(msg, fields...)
	}
}

func (h *recordingFaultHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.faults)
}

// recordingMetrics counts lifecycle metric calls.
type recordingMetrics struct {
	started  atomic.Int32
	exited   atomic.Int32
	posted   atomic.Int32
	rejected atomic.Int32
	detached atomic.Int32
}

func (m *recordingMetrics) RecordThreadStarted(threadName string) { m.started.Add(1) }

func (m *recordingMetrics) RecordHandshakeDuration(threadName string, d time.Duration) {}

func (m *recordingMetrics) RecordBarrierWait(threadName string, d time.Duration) {}

func (m *recordingMetrics) RecordMessagePosted(threadName string, tag MessageTag) { m.posted.Add(1) }

func (m *recordingMetrics) RecordMessageRejected(threadName string, reason string) {
	m.rejected.Add(1)
}

func (m *recordingMetrics) RecordQueueDepth(threadName string, depth int) {}

func (m *recordingMetrics) RecordForcedDetach(threadName string) { m.detached.Add(1) }

func (m *recordingMetrics) RecordThreadExited(threadName string, exitCode int32) { m.exited.Add(1) }

func testConfig(syncStart bool, fh FaultHandler) *ThreadConfig {
	if fh == nil {
		fh = &recordingFaultHandler{}
	}
	return &ThreadConfig{
		SyncStart:    syncStart,
		WaitTimeout:  time.Second,
		Logger:       NewNoOpLogger(),
		FaultHandler: fh,
	}
}

// drainLoop is a minimal well-behaved work loop.
func drainLoop(ctx context.Context, inbox <-chan Message) int32 {
	for {
		select {
		case <-ctx.Done():
			return ExitCodeCanceled
		case msg := <-inbox:
			if msg.Tag == TagStop {
				return ExitCodeOK
			}
		}
	}
}

// =============================================================================
// Creation handshake
// =============================================================================

// TestThread_Create verifies the creation handshake
// Given: an Unborn thread with no sync-start
// When: Create is called
// Then: Create returns nil and the thread is postable immediately
func TestThread_Create(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, testConfig(false, nil))

	if got := th.State(); got != StateUnborn {
		t.Fatalf("State() = %v before Create, want %v", got, StateUnborn)
	}

	// Act
	err := th.Create()

	// Assert - queue-existence invariant: Post never fails for
	// queue-absence reasons once Create has returned
	if err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}
	if err := th.PostWork("payload"); err != nil {
		t.Errorf("PostWork() after Create = %v, want nil", err)
	}

	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}
}

// TestThread_Create_PostImmediately hammers the handshake race window
// Given: many freshly created threads
// When: a work item is posted the instant Create returns
// Then: every post succeeds and every payload is delivered
func TestThread_Create_PostImmediately(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	var delivered atomic.Int32

	// Act
	for i := 0; i < 50; i++ {
		th := reg.NewThread(fmt.Sprintf("worker-%d", i), NewHandlerLoop(func(msg Message) {
			delivered.Add(1)
		}), testConfig(false, nil))

		if err := th.Create(); err != nil {
			t.Fatalf("Create() = %v, want nil", err)
		}
		if err := th.PostWork(i); err != nil {
			t.Fatalf("PostWork() immediately after Create = %v, want nil", err)
		}
		if err := th.RequestExit(); err != nil {
			t.Fatalf("RequestExit() = %v, want nil", err)
		}
	}

	// Assert
	if got := delivered.Load(); got != 50 {
		t.Errorf("delivered = %d, want 50", got)
	}
}

// TestThread_Create_HandshakeTimeout verifies the handshake failure path
// Given: a worker goroutine that is never scheduled
// When: Create is called with a short wait timeout
// Then: ErrWaitTimeout is returned, the fault handler fires, and the registry
// no longer tracks the thread
func TestThread_Create_HandshakeTimeout(t *testing.T) {
	// Arrange
	fh := &recordingFaultHandler{}
	cfg := testConfig(false, fh)
	cfg.WaitTimeout = 50 * time.Millisecond

	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, cfg)
	th.spawn = func(fn func()) {}

	// Act
	err := th.Create()

	// Assert
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("Create() = %v, want ErrWaitTimeout", err)
	}
	if fh.count() != 1 {
		t.Errorf("fault count = %d, want 1", fh.count())
	}
	if got := reg.Len(); got != 0 {
		t.Errorf("registry Len() = %d, want 0", got)
	}
}

// TestThread_Create_Twice verifies double-create is a fatal setup failure
// Given: a thread that was already created
// When: Create is called again
// Then: the fault handler fires and ErrAlreadyCreated is returned
func TestThread_Create_Twice(t *testing.T) {
	// Arrange
	fh := &recordingFaultHandler{}
	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, testConfig(false, fh))

	if err := th.Create(); err != nil {
		t.Fatalf("first Create() = %v, want nil", err)
	}
	defer th.RequestExit()

	// Act
	err := th.Create()

	// Assert
	if !errors.Is(err, ErrAlreadyCreated) {
		t.Errorf("second Create() = %v, want ErrAlreadyCreated", err)
	}
	if fh.count() != 1 {
		t.Errorf("fault count = %d, want 1", fh.count())
	}
}

// =============================================================================
// Posting work
// =============================================================================

// TestThread_Post_RoundTrip verifies exactly-once payload delivery
// Given: a created thread with a handler loop
// When: a work item with payload "hello" is posted
// Then: the handler observes payload "hello" exactly once
func TestThread_Post_RoundTrip(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	got := make(chan any, 10)
	th := reg.NewThread("worker", NewHandlerLoop(func(msg Message) {
		got <- msg.Payload
	}), testConfig(false, nil))

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	// Act
	if err := th.PostWork("hello"); err != nil {
		t.Fatalf("PostWork() = %v, want nil", err)
	}

	// Assert
	select {
	case payload := <-got:
		if payload != "hello" {
			t.Errorf("payload = %v, want hello", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("payload was never delivered")
	}

	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	select {
	case payload := <-got:
		t.Errorf("payload %v delivered twice", payload)
	default:
	}
}

// TestThread_Post_PerProducerFIFO verifies single-producer ordering
// Given: a created thread
// When: one producer posts 100 numbered work items
// Then: the work loop observes them in posting order
func TestThread_Post_PerProducerFIFO(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	var outOfOrder atomic.Int32
	next := 0
	th := reg.NewThread("worker", NewHandlerLoop(func(msg Message) {
		// The handler runs on the single worker goroutine, so plain
		// state is safe here.
		if msg.Payload.(int) != next {
			outOfOrder.Add(1)
		}
		next++
	}), testConfig(false, nil))

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	// Act
	for i := 0; i < 100; i++ {
		if err := th.PostWork(i); err != nil {
			t.Fatalf("PostWork(%d) = %v, want nil", i, err)
		}
	}
	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	// Assert
	if got := outOfOrder.Load(); got != 0 {
		t.Errorf("out-of-order deliveries = %d, want 0", got)
	}
}

// TestThread_Post_Unborn verifies posting before Create fails cleanly
// Given: an Unborn thread
// When: Post is called
// Then: ErrNotCreated is returned
func TestThread_Post_Unborn(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, testConfig(false, nil))

	// Act
	err := th.PostWork("payload")

	// Assert
	if !errors.Is(err, ErrNotCreated) {
		t.Errorf("PostWork() = %v, want ErrNotCreated", err)
	}
}

// TestThread_Post_AfterTermination verifies posting to a dead thread fails
// Given: a thread that has already terminated
// When: Post is called
// Then: ErrThreadNotRunning is returned and the rejection is recorded
func TestThread_Post_AfterTermination(t *testing.T) {
	// Arrange
	metrics := &recordingMetrics{}
	cfg := testConfig(false, nil)
	cfg.Metrics = metrics

	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, cfg)

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}
	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	// Act
	err := th.PostWork("payload")

	// Assert
	if !errors.Is(err, ErrThreadNotRunning) {
		t.Errorf("PostWork() = %v, want ErrThreadNotRunning", err)
	}
	if got := metrics.rejected.Load(); got != 1 {
		t.Errorf("rejected metric = %d, want 1", got)
	}
}

// TestThread_HandlerLoop_UnknownReservedTag verifies reserved-tag policing
// Given: a handler-loop thread with a recording fault handler
// When: a reserved tag the coordinator does not define is posted
// Then: the fault handler fires once, the handler never sees that message,
// and the loop keeps processing afterwards
func TestThread_HandlerLoop_UnknownReservedTag(t *testing.T) {
	// Arrange
	fh := &recordingFaultHandler{}
	var handled atomic.Int32
	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", NewHandlerLoop(func(msg Message) {
		handled.Add(1)
	}), testConfig(false, fh))

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	// Act
	if err := th.Post(MessageTag(0x0003), nil); err != nil {
		t.Fatalf("Post() = %v, want nil", err)
	}
	if err := th.PostWork("payload"); err != nil {
		t.Fatalf("PostWork() = %v, want nil", err)
	}
	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	// Assert
	if got := fh.count(); got != 1 {
		t.Errorf("fault count = %d, want 1", got)
	}
	if got := handled.Load(); got != 1 {
		t.Errorf("handled = %d, want 1", got)
	}
}

// =============================================================================
// Exit handling
// =============================================================================

// TestThread_RequestExit_Idempotent verifies repeated exit requests
// Given: a created thread
// When: RequestExit is called three times
// Then: every call returns nil and the terminal state is stable
func TestThread_RequestExit_Idempotent(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, testConfig(false, nil))

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	// Act & Assert
	for i := 0; i < 3; i++ {
		if err := th.RequestExit(); err != nil {
			t.Errorf("RequestExit() call %d = %v, want nil", i+1, err)
		}
		if got := th.State(); got != StateTerminated {
			t.Errorf("State() after call %d = %v, want %v", i+1, got, StateTerminated)
		}
	}

	code, ok := th.ExitCode()
	if !ok || code != ExitCodeOK {
		t.Errorf("ExitCode() = (%d, %v), want (%d, true)", code, ok, ExitCodeOK)
	}
}

// TestThread_RequestExit_DrainsEarlierWork verifies stop is an ordinary entry
// Given: a created thread with pending work items from the same producer
// When: RequestExit is called
// Then: all earlier work items are processed before the loop exits
func TestThread_RequestExit_DrainsEarlierWork(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	var processed atomic.Int32
	th := reg.NewThread("worker", NewHandlerLoop(func(msg Message) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
	}), testConfig(false, nil))

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	// Act
	for i := 0; i < 20; i++ {
		if err := th.PostWork(i); err != nil {
			t.Fatalf("PostWork(%d) = %v, want nil", i, err)
		}
	}
	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	// Assert - stop did not jump the queue
	if got := processed.Load(); got != 20 {
		t.Errorf("processed = %d, want 20", got)
	}
}

// TestThread_RequestExit_UnresponsiveLoop verifies the lossy detach path
// Given: a work loop that consumes messages but never honors stop
// When: RequestExit is called
// Then: ErrExitTimeout is returned within a bounded time, the handle is
// Terminated, and the forced detach is recorded
func TestThread_RequestExit_UnresponsiveLoop(t *testing.T) {
	// Arrange
	metrics := &recordingMetrics{}
	cfg := testConfig(false, nil)
	cfg.WaitTimeout = 200 * time.Millisecond
	cfg.Metrics = metrics

	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("stuck", func(ctx context.Context, inbox <-chan Message) int32 {
		for {
			select {
			case <-ctx.Done():
				return ExitCodeCanceled
			case <-inbox:
				// Ignores TagStop on purpose.
			}
		}
	}, cfg)

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	// Act
	start := time.Now()
	err := th.RequestExit()
	elapsed := time.Since(start)

	// Assert
	if !errors.Is(err, ErrExitTimeout) {
		t.Errorf("RequestExit() = %v, want ErrExitTimeout", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("RequestExit() took %v, want bounded by the wait timeout", elapsed)
	}
	if got := th.State(); got != StateTerminated {
		t.Errorf("State() = %v, want %v", got, StateTerminated)
	}
	if got := metrics.detached.Load(); got != 1 {
		t.Errorf("detached metric = %d, want 1", got)
	}

	// A second call on the detached handle is still a no-op.
	if err := th.RequestExit(); err != nil {
		t.Errorf("second RequestExit() = %v, want nil", err)
	}
}

// TestThread_ExitCode verifies the work loop result propagates
// Given: a work loop returning a distinctive code on stop
// When: the thread exits
// Then: ExitCode reports that code
func TestThread_ExitCode(t *testing.T) {
	// Arrange
	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", func(ctx context.Context, inbox <-chan Message) int32 {
		for msg := range inbox {
			if msg.Tag == TagStop {
				return 42
			}
		}
		return ExitCodeOK
	}, testConfig(false, nil))

	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	if _, ok := th.ExitCode(); ok {
		t.Error("ExitCode() valid before termination, want invalid")
	}

	// Act
	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	// Assert
	code, ok := th.ExitCode()
	if !ok || code != 42 {
		t.Errorf("ExitCode() = (%d, %v), want (42, true)", code, ok)
	}
}

// TestThread_Metrics verifies lifecycle metrics are emitted
// Given: a thread with a recording metrics sink
// When: it is created, posted to, and exited
// Then: started/posted/exited counters reflect the lifecycle
func TestThread_Metrics(t *testing.T) {
	// Arrange
	metrics := &recordingMetrics{}
	cfg := testConfig(false, nil)
	cfg.Metrics = metrics

	reg := NewRegistry(NewNoOpLogger())
	th := reg.NewThread("worker", drainLoop, cfg)

	// Act
	if err := th.Create(); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}
	if err := th.PostWork("payload"); err != nil {
		t.Fatalf("PostWork() = %v, want nil", err)
	}
	if err := th.RequestExit(); err != nil {
		t.Fatalf("RequestExit() = %v, want nil", err)
	}

	// Assert
	if got := metrics.started.Load(); got != 1 {
		t.Errorf("started metric = %d, want 1", got)
	}
	// PostWork plus the stop message posted by RequestExit.
	if got := metrics.posted.Load(); got != 2 {
		t.Errorf("posted metric = %d, want 2", got)
	}
	if got := metrics.exited.Load(); got != 1 {
		t.Errorf("exited metric = %d, want 1", got)
	}
}

// =============================================================================
// Message tags
// =============================================================================

// TestMessageTag_ReservedRange verifies tag space disjointness
// Given: the coordinator's reserved tags and the application base
// When: IsReserved is checked
// Then: coordinator tags are reserved and application tags are not
func TestMessageTag_ReservedRange(t *testing.T) {
	if !TagWork.IsReserved() {
		t.Error("TagWork.IsReserved() = false, want true")
	}
	if !TagStop.IsReserved() {
		t.Error("TagStop.IsReserved() = false, want true")
	}
	if TagUserBase.IsReserved() {
		t.Error("TagUserBase.IsReserved() = true, want false")
	}
	if (TagUserBase + 100).IsReserved() {
		t.Error("(TagUserBase+100).IsReserved() = true, want false")
	}
}

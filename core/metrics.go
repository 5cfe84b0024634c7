package core

import "time"

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting thread-lifecycle metrics.
// Implementations can send metrics to monitoring systems (Prometheus, OTel, etc.).
//
// Methods should be non-blocking and fast; they are called on the hot path of
// Post and on worker goroutines during startup and teardown.
type Metrics interface {
	// RecordThreadStarted records that a thread completed its creation
	// handshake and became postable.
	RecordThreadStarted(threadName string)

	// RecordHandshakeDuration records how long the creation handshake took,
	// measured from spawn to the created-signal being observed.
	RecordHandshakeDuration(threadName string, duration time.Duration)

	// RecordBarrierWait records how long a sync-start thread spent parked
	// at the release-all barrier.
	RecordBarrierWait(threadName string, duration time.Duration)

	// RecordMessagePosted records a successfully enqueued message.
	RecordMessagePosted(threadName string, tag MessageTag)

	// RecordMessageRejected records a message that could not be enqueued
	// (e.g., the target thread already terminated).
	RecordMessageRejected(threadName string, reason string)

	// RecordQueueDepth records the current inbox depth after an enqueue.
	RecordQueueDepth(threadName string, depth int)

	// RecordForcedDetach records that RequestExit gave up waiting for an
	// unresponsive work loop and abandoned it.
	RecordForcedDetach(threadName string)

	// RecordThreadExited records that a thread's work loop returned, with
	// its exit code.
	RecordThreadExited(threadName string, exitCode int32)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordThreadStarted is a no-op.
func (m *NilMetrics) RecordThreadStarted(threadName string) {}

// RecordHandshakeDuration is a no-op.
func (m *NilMetrics) RecordHandshakeDuration(threadName string, duration time.Duration) {}

// RecordBarrierWait is a no-op.
func (m *NilMetrics) RecordBarrierWait(threadName string, duration time.Duration) {}

// RecordMessagePosted is a no-op.
func (m *NilMetrics) RecordMessagePosted(threadName string, tag MessageTag) {}

// RecordMessageRejected is a no-op.
func (m *NilMetrics) RecordMessageRejected(threadName string, reason string) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(threadName string, depth int) {}

// RecordForcedDetach is a no-op.
func (m *NilMetrics) RecordForcedDetach(threadName string) {}

// RecordThreadExited is a no-op.
func (m *NilMetrics) RecordThreadExited(threadName string, exitCode int32) {}

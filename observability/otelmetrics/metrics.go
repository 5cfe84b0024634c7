// Package otelmetrics provides an OpenTelemetry implementation of core.Metrics.
//
// The exporter uses the global OTel meter provider. Configure the provider
// before constructing it:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
package otelmetrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/endurodave/go-thread-coordinator/core"
)

const meterName = "threadcoord"

// MetricsExporter adapts core.Metrics to OpenTelemetry instruments.
type MetricsExporter struct {
	threadsStarted   metric.Int64Counter
	threadsExited    metric.Int64Counter
	handshakeLatency metric.Float64Histogram
	barrierWait      metric.Float64Histogram
	messagesPosted   metric.Int64Counter
	messagesRejected metric.Int64Counter
	forcedDetach     metric.Int64Counter
	queueDepth       metric.Int64Gauge
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates OTel instruments on the global meter provider.
func NewMetricsExporter() (*MetricsExporter, error) {
	meter := otel.Meter(meterName)

	threadsStarted, err := meter.Int64Counter("threadcoord.threads.started",
		metric.WithDescription("Number of threads that completed the creation handshake"),
	)
	if err != nil {
		return nil, err
	}

	threadsExited, err := meter.Int64Counter("threadcoord.threads.exited",
		metric.WithDescription("Number of work loops that returned"),
	)
	if err != nil {
		return nil, err
	}

	handshakeLatency, err := meter.Float64Histogram("threadcoord.handshake.latency_ms",
		metric.WithDescription("Thread creation handshake latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	barrierWait, err := meter.Float64Histogram("threadcoord.barrier.wait_ms",
		metric.WithDescription("Time spent parked at the release-all barrier in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	messagesPosted, err := meter.Int64Counter("threadcoord.messages.posted",
		metric.WithDescription("Number of messages enqueued to thread inboxes"),
	)
	if err != nil {
		return nil, err
	}

	messagesRejected, err := meter.Int64Counter("threadcoord.messages.rejected",
		metric.WithDescription("Number of messages that could not be enqueued"),
	)
	if err != nil {
		return nil, err
	}

	forcedDetach, err := meter.Int64Counter("threadcoord.threads.forced_detach",
		metric.WithDescription("Number of unresponsive work loops abandoned at exit"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge("threadcoord.queue.depth",
		metric.WithDescription("Inbox depth after the latest enqueue"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsExporter{
		threadsStarted:   threadsStarted,
		threadsExited:    threadsExited,
		handshakeLatency: handshakeLatency,
		barrierWait:      barrierWait,
		messagesPosted:   messagesPosted,
		messagesRejected: messagesRejected,
		forcedDetach:     forcedDetach,
		queueDepth:       queueDepth,
	}, nil
}

func threadAttrs(threadName string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("thread", threadName))
}

// RecordThreadStarted records a completed creation handshake.
func (m *MetricsExporter) RecordThreadStarted(threadName string) {
	m.threadsStarted.Add(context.Background(), 1, threadAttrs(threadName))
}

// RecordHandshakeDuration records creation handshake latency.
func (m *MetricsExporter) RecordHandshakeDuration(threadName string, duration time.Duration) {
	m.handshakeLatency.Record(context.Background(), float64(duration.Milliseconds()), threadAttrs(threadName))
}

// RecordBarrierWait records time spent parked at the release-all barrier.
func (m *MetricsExporter) RecordBarrierWait(threadName string, duration time.Duration) {
	m.barrierWait.Record(context.Background(), float64(duration.Milliseconds()), threadAttrs(threadName))
}

// RecordMessagePosted records a successful enqueue.
func (m *MetricsExporter) RecordMessagePosted(threadName string, tag core.MessageTag) {
	m.messagesPosted.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("thread", threadName),
		attribute.String("tag", tag.String()),
	))
}

// RecordMessageRejected records a failed enqueue.
func (m *MetricsExporter) RecordMessageRejected(threadName string, reason string) {
	m.messagesRejected.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("thread", threadName),
		attribute.String("reason", reason),
	))
}

// RecordQueueDepth records inbox depth.
func (m *MetricsExporter) RecordQueueDepth(threadName string, depth int) {
	m.queueDepth.Record(context.Background(), int64(depth), threadAttrs(threadName))
}

// RecordForcedDetach records an abandoned unresponsive work loop.
func (m *MetricsExporter) RecordForcedDetach(threadName string) {
	m.forcedDetach.Add(context.Background(), 1, threadAttrs(threadName))
}

// RecordThreadExited records a work loop return.
func (m *MetricsExporter) RecordThreadExited(threadName string, exitCode int32) {
	m.threadsExited.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("thread", threadName),
		attribute.Int("exit_code", int(exitCode)),
	))
}

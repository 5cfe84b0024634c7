package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/endurodave/go-thread-coordinator/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	handshakeDurationSeconds *prom.HistogramVec
	barrierWaitSeconds       *prom.HistogramVec
	threadsStartedTotal      *prom.CounterVec
	threadsExitedTotal       *prom.CounterVec
	messagesPostedTotal      *prom.CounterVec
	messagesRejectedTotal    *prom.CounterVec
	forcedDetachTotal        *prom.CounterVec
	queueDepth               *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "threadcoord"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	handshakeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "handshake_duration_seconds",
		Help:      "Thread creation handshake duration in seconds.",
		Buckets:   buckets,
	}, []string{"thread"})
	barrierVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "barrier_wait_seconds",
		Help:      "Time a sync-start thread spent parked at the release-all barrier.",
		Buckets:   buckets,
	}, []string{"thread"})
	startedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "threads_started_total",
		Help:      "Total number of threads that completed the creation handshake.",
	}, []string{"thread"})
	exitedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "threads_exited_total",
		Help:      "Total number of work loops that returned.",
	}, []string{"thread"})
	postedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "messages_posted_total",
		Help:      "Total number of messages enqueued to thread inboxes.",
	}, []string{"thread", "tag"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "messages_rejected_total",
		Help:      "Total number of messages that could not be enqueued.",
	}, []string{"thread", "reason"})
	detachVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "forced_detach_total",
		Help:      "Total number of unresponsive work loops abandoned at exit.",
	}, []string{"thread"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current inbox depth.",
	}, []string{"thread"})

	var err error
	if handshakeVec, err = registerCollector(reg, handshakeVec); err != nil {
		return nil, err
	}
	if barrierVec, err = registerCollector(reg, barrierVec); err != nil {
		return nil, err
	}
	if startedVec, err = registerCollector(reg, startedVec); err != nil {
		return nil, err
	}
	if exitedVec, err = registerCollector(reg, exitedVec); err != nil {
		return nil, err
	}
	if postedVec, err = registerCollector(reg, postedVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if detachVec, err = registerCollector(reg, detachVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		handshakeDurationSeconds: handshakeVec,
		barrierWaitSeconds:       barrierVec,
		threadsStartedTotal:      startedVec,
		threadsExitedTotal:       exitedVec,
		messagesPostedTotal:      postedVec,
		messagesRejectedTotal:    rejectedVec,
		forcedDetachTotal:        detachVec,
		queueDepth:               queueDepthVec,
	}, nil
}

// RecordThreadStarted records a completed creation handshake.
func (m *MetricsExporter) RecordThreadStarted(threadName string) {
	if m == nil {
		return
	}
	m.threadsStartedTotal.WithLabelValues(normalizeLabel(threadName, "unknown")).Inc()
}

// RecordHandshakeDuration records creation handshake duration.
func (m *MetricsExporter) RecordHandshakeDuration(threadName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.handshakeDurationSeconds.WithLabelValues(normalizeLabel(threadName, "unknown")).Observe(duration.Seconds())
}

// RecordBarrierWait records time spent parked at the release-all barrier.
func (m *MetricsExporter) RecordBarrierWait(threadName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.barrierWaitSeconds.WithLabelValues(normalizeLabel(threadName, "unknown")).Observe(duration.Seconds())
}

// RecordMessagePosted records a successfully enqueued message.
func (m *MetricsExporter) RecordMessagePosted(threadName string, tag core.MessageTag) {
	if m == nil {
		return
	}
	m.messagesPostedTotal.WithLabelValues(normalizeLabel(threadName, "unknown"), tag.String()).Inc()
}

// RecordMessageRejected records message rejection events.
func (m *MetricsExporter) RecordMessageRejected(threadName string, reason string) {
	if m == nil {
		return
	}
	m.messagesRejectedTotal.WithLabelValues(normalizeLabel(threadName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records inbox depth.
func (m *MetricsExporter) RecordQueueDepth(threadName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(threadName, "unknown")).Set(float64(depth))
}

// RecordForcedDetach records an abandoned unresponsive work loop.
func (m *MetricsExporter) RecordForcedDetach(threadName string) {
	if m == nil {
		return
	}
	m.forcedDetachTotal.WithLabelValues(normalizeLabel(threadName, "unknown")).Inc()
}

// RecordThreadExited records a work loop return.
func (m *MetricsExporter) RecordThreadExited(threadName string, exitCode int32) {
	if m == nil {
		return
	}
	m.threadsExitedTotal.WithLabelValues(normalizeLabel(threadName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}

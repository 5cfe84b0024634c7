package core

import "time"

const (
	// DefaultWaitTimeout bounds every blocking wait in the coordinator: the
	// creation handshake, the release-all barrier wait, and the exit wait.
	DefaultWaitTimeout = 3 * time.Second

	// DefaultQueueCapacity is the inbox buffer size. Posts block once the
	// buffer fills, providing natural backpressure on fast producers.
	DefaultQueueCapacity = 100
)

// ThreadConfig holds per-thread configuration.
// All fields are optional; zero values fall back to defaults.
type ThreadConfig struct {
	// SyncStart makes the thread park at the registry's release-all barrier
	// after its creation handshake, so a set of threads can begin real work
	// simultaneously instead of racing from their individual creation
	// moments.
	SyncStart bool

	// WaitTimeout bounds every blocking wait for this thread. Defaults to
	// DefaultWaitTimeout. A handshake or barrier timeout is fatal; an exit
	// timeout triggers the lossy detach path.
	WaitTimeout time.Duration

	// QueueCapacity is the inbox buffer size. Defaults to DefaultQueueCapacity.
	QueueCapacity int

	// Logger receives lifecycle logs. Defaults to DefaultLogger.
	Logger Logger

	// Metrics receives lifecycle metrics. Defaults to NilMetrics.
	Metrics Metrics

	// FaultHandler is invoked on unrecoverable setup failures.
	// Defaults to DefaultFaultHandler, which aborts.
	FaultHandler FaultHandler
}

// DefaultThreadConfig returns a config with default values and handlers.
func DefaultThreadConfig() *ThreadConfig {
	return &ThreadConfig{
		WaitTimeout:   DefaultWaitTimeout,
		QueueCapacity: DefaultQueueCapacity,
		Logger:        NewDefaultLogger(),
		Metrics:       &NilMetrics{},
		FaultHandler:  &DefaultFaultHandler{},
	}
}

// withDefaults returns a copy of cfg with zero fields filled in.
// A nil cfg yields the full default config.
func (c *ThreadConfig) withDefaults() ThreadConfig {
	out := ThreadConfig{}
	if c != nil {
		out = *c
	}
	if out.WaitTimeout <= 0 {
		out.WaitTimeout = DefaultWaitTimeout
	}
	if out.QueueCapacity <= 0 {
		out.QueueCapacity = DefaultQueueCapacity
	}
	if out.Logger == nil {
		out.Logger = NewDefaultLogger()
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.FaultHandler == nil {
		out.FaultHandler = &DefaultFaultHandler{}
	}
	return out
}

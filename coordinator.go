package threadcoord

import (
	"time"

	"github.com/endurodave/go-thread-coordinator/core"
)

// =============================================================================
// Options: Per-thread configuration tweaks
// =============================================================================

// Option adjusts one field of a ThreadConfig. Options passed to New become the
// Coordinator's defaults; options passed to NewThread apply to that thread
// only, layered on top of those defaults.
type Option func(*core.ThreadConfig)

// WithSyncStart parks the thread at the release-all barrier after its creation
// handshake, so it enters its work loop together with the other sync-start
// threads once ReleaseAll is called.
func WithSyncStart() Option {
	return func(c *core.ThreadConfig) { c.SyncStart = true }
}

// WithWaitTimeout bounds every blocking wait for the thread: the creation
// handshake, the barrier wait, and the exit wait.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *core.ThreadConfig) { c.WaitTimeout = d }
}

// WithQueueCapacity sets the inbox buffer size.
func WithQueueCapacity(n int) Option {
	return func(c *core.ThreadConfig) { c.QueueCapacity = n }
}

// WithLogger routes lifecycle logs to l.
func WithLogger(l Logger) Option {
	return func(c *core.ThreadConfig) { c.Logger = l }
}

// WithMetrics routes lifecycle metrics to m.
func WithMetrics(m Metrics) Option {
	return func(c *core.ThreadConfig) { c.Metrics = m }
}

// WithFaultHandler routes unrecoverable setup failures to h.
func WithFaultHandler(h FaultHandler) Option {
	return func(c *core.ThreadConfig) { c.FaultHandler = h }
}

// =============================================================================
// Coordinator: Registry bundled with shared creation defaults
// =============================================================================

// Coordinator bundles a Registry with the ThreadConfig defaults shared by the
// threads it builds. Use it when most threads share one configuration; drop
// down to Registry.NewThread for full per-thread control.
type Coordinator struct {
	registry *Registry
	defaults core.ThreadConfig
}

// New creates a Coordinator whose threads default to the standard config
// adjusted by opts.
func New(opts ...Option) *Coordinator {
	cfg := core.DefaultThreadConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Coordinator{
		registry: core.NewRegistry(cfg.Logger),
		defaults: *cfg,
	}
}

// NewThread builds a thread from the Coordinator defaults plus opts and
// performs the creation handshake. On success the thread is in Created state
// and immediately postable.
func (c *Coordinator) NewThread(name string, loop WorkLoop, opts ...Option) (*Thread, error) {
	cfg := c.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	th := c.registry.NewThread(name, loop, &cfg)
	if err := th.Create(); err != nil {
		return nil, err
	}
	return th, nil
}

// NewHandlerThread is NewThread for the common case of a per-message handler
// instead of a hand-written work loop.
func (c *Coordinator) NewHandlerThread(name string, handler func(Message), opts ...Option) (*Thread, error) {
	return c.NewThread(name, core.NewHandlerLoop(handler), opts...)
}

// Registry exposes the underlying registry.
func (c *Coordinator) Registry() *Registry { return c.registry }

// ReleaseAll signals the shared start barrier. Idempotent.
func (c *Coordinator) ReleaseAll() { c.registry.ReleaseAll() }

// Shutdown requests exit from every live thread and waits for each within its
// wait timeout. Errors from individual threads are joined.
func (c *Coordinator) Shutdown() error { return c.registry.RequestExitAll() }

// Stats returns a point-in-time snapshot of the registry and its threads.
func (c *Coordinator) Stats() RegistryStats { return c.registry.Stats() }

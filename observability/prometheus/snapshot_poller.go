package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/endurodave/go-thread-coordinator/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// RegistrySnapshotProvider provides current registry stats snapshots.
type RegistrySnapshotProvider interface {
	Stats() core.RegistryStats
}

// SnapshotPoller periodically exports registry Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	registriesMu sync.RWMutex
	registries   map[string]RegistrySnapshotProvider

	registryLive     *prom.GaugeVec
	registryReleased *prom.GaugeVec

	threadState      *prom.GaugeVec
	threadQueueDepth *prom.GaugeVec
	threadSyncStart  *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	registryLive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadcoord",
		Name:      "registry_live_threads",
		Help:      "Number of live threads per registry.",
	}, []string{"registry"})
	registryReleased := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadcoord",
		Name:      "registry_released",
		Help:      "Release-all barrier state (1=released, 0=held).",
	}, []string{"registry"})

	threadState := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadcoord",
		Name:      "thread_state",
		Help:      "Thread lifecycle state (0=unborn, 1=created, 2=running, 3=exiting, 4=terminated).",
	}, []string{"registry", "thread"})
	threadQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadcoord",
		Name:      "thread_queue_depth",
		Help:      "Inbox depth snapshot per thread.",
	}, []string{"registry", "thread"})
	threadSyncStart := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadcoord",
		Name:      "thread_sync_start",
		Help:      "Whether the thread participates in the release-all barrier (1=yes).",
	}, []string{"registry", "thread"})

	var err error
	if registryLive, err = registerCollector(reg, registryLive); err != nil {
		return nil, err
	}
	if registryReleased, err = registerCollector(reg, registryReleased); err != nil {
		return nil, err
	}
	if threadState, err = registerCollector(reg, threadState); err != nil {
		return nil, err
	}
	if threadQueueDepth, err = registerCollector(reg, threadQueueDepth); err != nil {
		return nil, err
	}
	if threadSyncStart, err = registerCollector(reg, threadSyncStart); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:         interval,
		registries:       make(map[string]RegistrySnapshotProvider),
		registryLive:     registryLive,
		registryReleased: registryReleased,
		threadState:      threadState,
		threadQueueDepth: threadQueueDepth,
		threadSyncStart:  threadSyncStart,
	}, nil
}

// AddRegistry adds or replaces a registry snapshot provider by name.
func (p *SnapshotPoller) AddRegistry(name string, provider RegistrySnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "registry")
	p.registriesMu.Lock()
	p.registries[name] = provider
	p.registriesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.registriesMu.RLock()
	defer p.registriesMu.RUnlock()

	for name, provider := range p.registries {
		stats := provider.Stats()
		p.registryLive.WithLabelValues(name).Set(float64(stats.Live))
		if stats.Released {
			p.registryReleased.WithLabelValues(name).Set(1)
		} else {
			p.registryReleased.WithLabelValues(name).Set(0)
		}

		for _, ts := range stats.Threads {
			threadLabel := normalizeLabel(ts.Name, "thread")
			p.threadState.WithLabelValues(name, threadLabel).Set(float64(ts.State))
			p.threadQueueDepth.WithLabelValues(name, threadLabel).Set(float64(ts.QueueDepth))
			if ts.SyncStart {
				p.threadSyncStart.WithLabelValues(name, threadLabel).Set(1)
			} else {
				p.threadSyncStart.WithLabelValues(name, threadLabel).Set(0)
			}
		}
	}
}

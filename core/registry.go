package core

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

// =============================================================================
// Registry: Process-wide thread collection + shared release-all barrier
// =============================================================================

// Registry tracks every live Thread and owns the single shared release-all
// signal used to start sync-start threads simultaneously.
//
// The barrier is explicit state owned by the Registry: construct the Registry
// once before any Thread is created and drop it once all threads have
// terminated. The release-all signal is manually reset, so once ReleaseAll
// has been called, any sync-start thread created later observes it as already
// released and does not block at all.
type Registry struct {
	mu      sync.Mutex
	threads map[uint64]*Thread

	// release is the one resource shared by multiple worker goroutines
	// concurrently. It is effectively write-once, so no mutual exclusion
	// beyond the Event's own atomicity is required.
	release *Event

	nextID atomic.Uint64

	logger Logger
}

// NewRegistry creates an empty registry with an unreleased barrier.
// A nil logger falls back to DefaultLogger.
func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &Registry{
		threads: make(map[uint64]*Thread),
		release: NewEvent(),
		logger:  logger,
	}
}

// NewThread constructs a Thread handle bound to this registry. The thread is
// Unborn until Create is called. A nil cfg uses DefaultThreadConfig values.
func (r *Registry) NewThread(name string, loop WorkLoop, cfg *ThreadConfig) *Thread {
	return newThread(r, name, loop, cfg)
}

// ReleaseAll signals the shared release-all barrier.
//
// Every sync-start thread currently parked at the barrier wakes; any
// sync-start thread created afterwards observes the signal already set and
// does not block. Logically the barrier is released at most once per registry
// lifetime; repeated calls are no-ops since the signal stays set.
func (r *Registry) ReleaseAll() {
	if r.release.IsSet() {
		return
	}
	r.release.Set()
	r.logger.Debug("release-all barrier signaled", F("liveThreads", r.Len()))
}

// Released reports whether ReleaseAll has been called.
func (r *Registry) Released() bool {
	return r.release.IsSet()
}

// Threads returns a snapshot of all live thread handles, ordered by creation.
func (r *Registry) Threads() []*Thread {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Thread, 0, len(r.threads))
	for _, t := range r.threads {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of live threads.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.threads)
}

// RequestExitAll requests exit on every live thread, in creation order, and
// returns the combined errors. Threads that already terminated are skipped by
// RequestExit's idempotency.
func (r *Registry) RequestExitAll() error {
	var errs []error
	for _, t := range r.Threads() {
		if err := t.RequestExit(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns a point-in-time snapshot of the registry's observable state.
func (r *Registry) Stats() RegistryStats {
	threads := r.Threads()
	stats := RegistryStats{
		Live:     len(threads),
		Released: r.Released(),
		Threads:  make([]ThreadStats, 0, len(threads)),
	}
	for _, t := range threads {
		stats.Threads = append(stats.Threads, t.Stats())
	}
	return stats
}

func (r *Registry) nextThreadID() uint64 {
	return r.nextID.Add(1)
}

func (r *Registry) add(t *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[t.id] = t
}

func (r *Registry) remove(t *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, t.id)
}

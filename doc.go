// Package threadcoord provides a thread-lifecycle coordinator for named,
// long-lived worker goroutines.
//
// It wraps raw goroutine creation with two correctness guarantees the runtime
// does not provide atomically: a newly created worker's inbound message queue
// is guaranteed to exist before any other party may enqueue work to it, and a
// set of independently created workers can be held at a barrier and released
// to begin real work simultaneously.
//
// # Quick Start
//
// Construct a registry, create workers, release them together:
//
//	reg := threadcoord.NewRegistry(nil)
//
//	worker := reg.NewThread("worker-1", threadcoord.NewHandlerLoop(func(msg threadcoord.Message) {
//		fmt.Println(msg.Payload)
//	}), &threadcoord.ThreadConfig{SyncStart: true})
//
//	if err := worker.Create(); err != nil {
//		// unrecoverable: the handshake never completed
//	}
//	reg.ReleaseAll()
//
//	worker.PostWork("Hello world!")
//	worker.RequestExit()
//
// # Key Concepts
//
// Thread: a handle owning one worker goroutine plus the synchronization
// objects coordinating it. Create does not return until the worker's inbox
// exists, so a post immediately after Create can never be lost to the
// creation race.
//
// Registry: the process-wide collection of live Thread handles and the single
// shared release-all barrier. ReleaseAll is idempotent and permanent: workers
// created after the release observe it as already signaled and do not block.
//
// WorkLoop: the owner-supplied function that runs the actual thread logic.
// It is invoked exactly once, after any barrier wait, and must treat a
// TagStop message as its exit signal.
//
// Coordinator: a Registry bundled with shared creation defaults. New builds
// one from functional Options; Coordinator.NewThread constructs and creates a
// thread in a single call.
//
// # Lifecycle
//
// Unborn -> Create() -> Created -> barrier release -> Running ->
// RequestExit() -> Exiting -> work loop returns -> Terminated.
//
// Every blocking wait is bounded by a single configurable timeout. Setup
// failures (handshake or barrier timeouts) are routed to a FaultHandler and
// treated as unrecoverable; teardown failures are bounded and lossy, never
// blocking shutdown indefinitely.
//
// # Observability
//
// Lifecycle events flow through the core.Metrics interface. Exporters for
// Prometheus and OpenTelemetry live under observability/.
package threadcoord

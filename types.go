package threadcoord

import "github.com/endurodave/go-thread-coordinator/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the threadcoord package for most use cases.

// Thread is the handle for one named, long-lived worker goroutine
type Thread = core.Thread

// Registry is the process-wide thread collection plus the shared release-all barrier
type Registry = core.Registry

// ThreadConfig holds per-thread configuration
type ThreadConfig = core.ThreadConfig

// ThreadState is the per-thread lifecycle state machine
type ThreadState = core.ThreadState

// WorkLoop is the owner-supplied thread body
type WorkLoop = core.WorkLoop

// Message is one entry in a thread's inbox
type Message = core.Message

// MessageTag identifies the kind of a message
type MessageTag = core.MessageTag

// Event is a manual-reset, one-shot wait object
type Event = core.Event

// Logger is the structured logging interface
type Logger = core.Logger

// Field represents a key-value pair for structured logging
type Field = core.Field

// Metrics is the lifecycle metrics interface
type Metrics = core.Metrics

// FaultHandler reports unrecoverable conditions
type FaultHandler = core.FaultHandler

// ThreadStats is a point-in-time snapshot of one thread handle
type ThreadStats = core.ThreadStats

// RegistryStats is a point-in-time snapshot of a registry
type RegistryStats = core.RegistryStats

// Lifecycle state constants
const (
	StateUnborn     ThreadState = core.StateUnborn
	StateCreated    ThreadState = core.StateCreated
	StateRunning    ThreadState = core.StateRunning
	StateExiting    ThreadState = core.StateExiting
	StateTerminated ThreadState = core.StateTerminated
)

// Message tag constants. Application tags must be >= TagUserBase.
const (
	TagWork     MessageTag = core.TagWork
	TagStop     MessageTag = core.TagStop
	TagUserBase MessageTag = core.TagUserBase
)

// Exit code constants.
const (
	ExitCodeOK           = core.ExitCodeOK
	ExitCodeCanceled     = core.ExitCodeCanceled
	ExitCodeStartupFault = core.ExitCodeStartupFault
)

// Sentinel errors
var (
	ErrWaitTimeout      = core.ErrWaitTimeout
	ErrAlreadyCreated   = core.ErrAlreadyCreated
	ErrNotCreated       = core.ErrNotCreated
	ErrThreadNotRunning = core.ErrThreadNotRunning
	ErrExitTimeout      = core.ErrExitTimeout
)

// NewRegistry creates an empty registry with an unreleased barrier.
// A nil logger falls back to the default logger.
func NewRegistry(logger Logger) *Registry {
	return core.NewRegistry(logger)
}

// DefaultThreadConfig returns a config with default values and handlers.
var DefaultThreadConfig = core.DefaultThreadConfig

// NewHandlerLoop adapts a per-message handler into a WorkLoop.
var NewHandlerLoop = core.NewHandlerLoop

// NewEvent creates an unset Event.
var NewEvent = core.NewEvent

// NewDefaultLogger creates the stdlib-log backed logger.
var NewDefaultLogger = core.NewDefaultLogger

// NewNoOpLogger creates a logger that discards all messages.
var NewNoOpLogger = core.NewNoOpLogger

// CurrentFaultHandler returns the FaultHandler of the thread whose work loop
// owns the given context.
var CurrentFaultHandler = core.CurrentFaultHandler

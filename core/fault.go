package core

import (
	"context"
	"fmt"
)

// =============================================================================
// FaultHandler: Interface for reporting unrecoverable conditions
// =============================================================================

// FaultHandler is invoked on unrecoverable setup failures: a creation
// handshake that never completes, a barrier release that never arrives, or a
// reserved message the work loop cannot interpret. These indicate
// environmental or logic-level breakage the coordinator makes no attempt to
// recover from, so the default handler aborts.
//
// Implementations should be thread-safe as they may be called from worker
// goroutines and owner goroutines concurrently.
type FaultHandler interface {
	// Fault reports an unrecoverable condition and does not expect the
	// caller to continue meaningfully afterwards.
	Fault(msg string, fields ...Field)

	// Assert checks cond and calls Fault with the diagnostic if it is false.
	Assert(cond bool, msg string, fields ...Field)
}

// DefaultFaultHandler prints the diagnostic and panics. A partially
// initialized thread set must never be allowed to proceed, so setup failures
// fail fast and loud.
type DefaultFaultHandler struct{}

// Fault prints the diagnostic and panics.
func (h *DefaultFaultHandler) Fault(msg string, fields ...Field) {
	diag := msg
	for _, f := range fields {
		diag += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	panic("threadcoord fault: " + diag)
}

// Assert calls Fault with the diagnostic if cond is false.
func (h *DefaultFaultHandler) Assert(cond bool, msg string, fields ...Field) {
	if !cond {
		h.Fault(msg, fields...)
	}
}

// =============================================================================
// Context Helper
// =============================================================================

type faultHandlerKeyType struct{}

var faultHandlerKey faultHandlerKeyType

func withFaultHandler(ctx context.Context, h FaultHandler) context.Context {
	return context.WithValue(ctx, faultHandlerKey, h)
}

// CurrentFaultHandler returns the FaultHandler of the thread whose work loop
// owns ctx. Outside a work loop context it falls back to the default handler.
func CurrentFaultHandler(ctx context.Context) FaultHandler {
	if v := ctx.Value(faultHandlerKey); v != nil {
		return v.(FaultHandler)
	}
	return &DefaultFaultHandler{}
}

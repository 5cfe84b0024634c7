package core

// MessageTag identifies the kind of message carried through a thread's inbox.
//
// Tag space layout mirrors the Win32 WM_USER convention: the coordinator owns
// the range [TagReservedMin, TagUserBase), and applications must choose tags
// >= TagUserBase. The two ranges are disjoint, so a work loop can always tell
// coordinator messages apart from its own vocabulary.
type MessageTag uint32

const (
	// TagReservedMin is the lowest tag value reserved for the coordinator.
	TagReservedMin MessageTag = 0x0001

	// TagWork is a generic work item. The payload is an opaque value whose
	// ownership transfers to the receiving work loop; the coordinator never
	// touches it after enqueue, and the work loop is responsible for
	// releasing it after processing.
	TagWork MessageTag = 0x0001

	// TagStop tells the work loop to exit. It carries no payload and is
	// posted by RequestExit as an ordinary queue entry, so earlier work
	// items from the same producer are processed first.
	TagStop MessageTag = 0x0002

	// TagUserBase is the first tag value available to applications.
	// Everything below it belongs to the coordinator.
	TagUserBase MessageTag = 0x0400
)

// IsReserved reports whether the tag falls in the coordinator-owned range.
func (t MessageTag) IsReserved() bool {
	return t >= TagReservedMin && t < TagUserBase
}

// String returns a short name for the tag, for logs and metrics labels.
func (t MessageTag) String() string {
	switch t {
	case TagWork:
		return "work"
	case TagStop:
		return "stop"
	default:
		if t.IsReserved() {
			return "reserved"
		}
		return "user"
	}
}

// Message is one entry in a thread's inbox: a tag plus an opaque payload.
//
// Payload ownership transfers to the receiving thread on enqueue. Per-producer
// FIFO order is preserved; no ordering is guaranteed between messages posted
// by different producers.
type Message struct {
	Tag     MessageTag
	Payload any
}

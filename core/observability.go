package core

// ThreadStats represents runtime observability state for one thread handle.
type ThreadStats struct {
	ID         uint64
	Name       string
	State      ThreadState
	SyncStart  bool
	QueueDepth int
	ExitCode   int32
}

// RegistryStats represents runtime observability state for a registry.
type RegistryStats struct {
	Live     int
	Released bool
	Threads  []ThreadStats
}

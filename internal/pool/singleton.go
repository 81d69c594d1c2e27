package pool

import "sync"

var (
	globalMu      sync.Mutex
	globalManager *Manager
)

// GetOrCreateManager returns the process-wide Manager, constructing it on
// first call with the given executor. Subsequent calls return the same
// instance regardless of the executor argument.
func GetOrCreateManager(execute Executor) *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager == nil {
		globalManager = NewManager(execute)
	}
	return globalManager
}

// ResetGlobalManager clears the process-wide Manager. Intended for tests.
func ResetGlobalManager() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = nil
}

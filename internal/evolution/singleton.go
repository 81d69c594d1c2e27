package evolution

import "sync"

var (
	globalMu     sync.Mutex
	globalEngine *Engine
)

// GetOrCreateEngine returns the process-wide CategoryEvolutionEngine,
// constructing it on first use.
func GetOrCreateEngine(store SubcategoryStore, detector CategoryDetector) *Engine {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalEngine == nil {
		globalEngine = NewEngine(store, detector)
	}
	return globalEngine
}

// ResetGlobalEngine clears the process-wide engine. Test helper.
func ResetGlobalEngine() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalEngine = nil
}

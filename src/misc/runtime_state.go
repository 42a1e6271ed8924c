package misc

import "sync"

var (
	runtimeDataflowMode     = DefaultDataflowMode()
	runtimeDataflowModeLock sync.RWMutex
)

// SetRuntimeDataflowMode updates the global runtime dataflow mode.
func SetRuntimeDataflowMode(mode DataflowMode) {
	runtimeDataflowModeLock.Lock()
	defer runtimeDataflowModeLock.Unlock()

	runtimeDataflowMode = mode
}

// RuntimeDataflowMode returns the currently configured dataflow mode.
func RuntimeDataflowMode() DataflowMode {
	runtimeDataflowModeLock.RLock()
	defer runtimeDataflowModeLock.RUnlock()

	return runtimeDataflowMode
}

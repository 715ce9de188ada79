package archive

import (
	"os"
	"sync"
)

// Deletions that fail during overwrite or close are queued here instead
// of surfacing from Close. The process should call FlushDeferred once at
// shutdown; a deletion that fails again is dropped.
var (
	deferredMu    sync.Mutex
	deferredPaths []string
)

func deferDeletion(path string) {
	deferredMu.Lock()
	deferredPaths = append(deferredPaths, path)
	deferredMu.Unlock()
}

// FlushDeferred retries every queued deletion, best effort.
func FlushDeferred() {
	deferredMu.Lock()
	paths := deferredPaths
	deferredPaths = nil
	deferredMu.Unlock()

	for _, p := range paths {
		_ = os.RemoveAll(p)
	}
}

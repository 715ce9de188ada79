package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushDeferredRemovesQueuedPaths(t *testing.T) {
	dir := t.TempDir()
	victim := filepath.Join(dir, "stale")
	require.NoError(t, os.WriteFile(victim, []byte("x"), 0600))

	deferDeletion(victim)
	deferDeletion(filepath.Join(dir, "never-existed"))
	FlushDeferred()

	_, err := os.Stat(victim)
	assert.True(t, os.IsNotExist(err))

	// queue drained, second flush is a no-op
	FlushDeferred()
}

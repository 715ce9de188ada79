package dlogger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger(t *testing.T) {
	for _, lvl := range []string{LogLevelInfo, LogLevelDebug, LogLevelNone} {
		l, err := GetLogger(lvl)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}

	_, err := GetLogger("verbose")
	require.Error(t, err)

	assert.NotPanics(t, func() { MustGetLogger(LogLevelNone) })
	assert.Panics(t, func() { MustGetLogger("verbose") })
}

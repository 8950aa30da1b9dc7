package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsNop(t *testing.T) {
	l := New()
	require.NotNil(t, l.Log)
	l.Log.Info("dropped")
}

func TestInit_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "Info", "WARN", "error"} {
		t.Run(lvl, func(t *testing.T) {
			l := New()
			assert.NoError(t, l.Init(lvl))
		})
	}
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	err := l.Init("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInitWithPaths_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui.log")
	l := New()
	require.NoError(t, l.InitWithPaths("info", []string{path}))
	l.Log.Info("hello")
	_ = l.Log.Sync()
	assert.FileExists(t, path)
}

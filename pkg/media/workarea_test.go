package media

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkArea_CreateAndCleanup(t *testing.T) {
	root := t.TempDir()

	area, err := NewWorkArea(root, "u1")
	require.NoError(t, err)

	info, err := os.Stat(area.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, os.WriteFile(area.Path("video.mp4"), []byte("data"), 0644))

	area.Cleanup(zerolog.Nop())

	_, err = os.Stat(area.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestWorkArea_UniquePerOperation(t *testing.T) {
	root := t.TempDir()

	a, err := NewWorkArea(root, "u1")
	require.NoError(t, err)
	b, err := NewWorkArea(root, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir, b.Dir)
}

func TestWorkArea_CleanupMissingDir(t *testing.T) {
	root := t.TempDir()

	area, err := NewWorkArea(root, "u1")
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(area.Dir))

	// Cleaning up an already-removed area must not panic or log an error
	area.Cleanup(zerolog.Nop())
}

package whatsapp

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRodClient(t *testing.T) *rodClient {
	t.Helper()
	client, err := newRodClient("u1", Options{AuthRoot: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	return client.(*rodClient)
}

func TestNewRodClient_MissingUserID(t *testing.T) {
	_, err := newRodClient("", Options{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

// The watch goroutine keeps probing while Destroy tears the page down;
// a probe that loses the race must come back as an error, not a panic.
func TestRodClient_ProbeAfterTeardown(t *testing.T) {
	c := setupRodClient(t)
	require.NoError(t, c.Destroy())

	_, _, err := c.probe()
	assert.Error(t, err)
}

func TestRodClient_ReadAccountAfterTeardown(t *testing.T) {
	c := setupRodClient(t)
	require.NoError(t, c.Destroy())

	assert.Equal(t, Account{}, c.readAccount())
}

func TestRodClient_DestroyIdempotent(t *testing.T) {
	c := setupRodClient(t)

	assert.NoError(t, c.Destroy())
	assert.NoError(t, c.Destroy())
}

func TestRodClient_LogoutAfterTeardownIsNoop(t *testing.T) {
	c := setupRodClient(t)
	require.NoError(t, c.Destroy())

	assert.NoError(t, c.Logout(context.Background()))
}

func TestRodClient_SendMediaRequiresAuth(t *testing.T) {
	c := setupRodClient(t)

	err := c.SendMedia(context.Background(), "628@c.us", "/tmp/clip.mp4", "")
	assert.Error(t, err)
}

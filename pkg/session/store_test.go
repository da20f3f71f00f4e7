package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetAbsent(t *testing.T) {
	s := NewStore()

	snap, ok := s.Get("unknown")
	assert.False(t, ok)
	assert.Equal(t, Snapshot{}, snap)
}

func TestStore_CreateAndGet(t *testing.T) {
	s := NewStore()
	client := &fakeClient{}

	require.True(t, s.Create("u1", client))

	snap, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, StateInitializing, snap.State)
	assert.True(t, snap.HasClient)
	assert.Nil(t, snap.Account)
}

func TestStore_CreateDuplicate(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Create("u1", &fakeClient{}))
	assert.False(t, s.Create("u1", &fakeClient{}))
}

func TestStore_ConcurrentCreateSingleWinner(t *testing.T) {
	s := NewStore()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Create("u1", &fakeClient{}) {
				wins <- 1
			}
		}()
	}
	wg.Wait()
	close(wins)

	total := 0
	for range wins {
		total++
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Mutate(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("u1", &fakeClient{}))

	now := time.Now()
	ok := s.Mutate("u1", func(r *Record) {
		r.State = StateAwaitingScan
		r.LastQR = "challenge"
		r.LastQRTime = now
	})
	require.True(t, ok)

	snap, _ := s.Get("u1")
	assert.Equal(t, StateAwaitingScan, snap.State)
	assert.Equal(t, "challenge", snap.LastQR)
	assert.Equal(t, now, snap.LastQRTime)
}

func TestStore_MutateAbsent(t *testing.T) {
	s := NewStore()

	called := false
	ok := s.Mutate("nobody", func(r *Record) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("u1", &fakeClient{}))

	s.Remove("u1")

	_, ok := s.Get("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	// Removing again is a no-op
	s.Remove("u1")
}

func TestStore_ClientAccess(t *testing.T) {
	s := NewStore()
	client := &fakeClient{}
	require.True(t, s.Create("u1", client))

	got, ok := s.Client("u1")
	require.True(t, ok)
	assert.Same(t, client, got.(*fakeClient))

	_, ok = s.Client("unknown")
	assert.False(t, ok)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	require.True(t, s.Create("u1", &fakeClient{}))

	snap, _ := s.Get("u1")
	snap.State = StateReady

	current, _ := s.Get("u1")
	assert.Equal(t, StateInitializing, current.State)
}

package join

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginEntry(r *Registry, id, gen string) (context.Context, chan struct{}, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	prev := r.begin(id, gen, State{Status: StatusWaiting}, cancel, done)
	return ctx, done, prev
}

func TestRegistryGetAndSnapshotReturnCopies(t *testing.T) {
	r := NewRegistry()
	_, _, _ = beginEntry(r, "a", "g1")

	st, ok := r.Get("a")
	require.True(t, ok)
	st.Status = StatusJoined // mutating the copy

	again, _ := r.Get("a")
	assert.Equal(t, StatusWaiting, again.Status)

	snap := r.Snapshot()
	snap["a"] = State{Status: StatusJoined}
	again, _ = r.Get("a")
	assert.Equal(t, StatusWaiting, again.Status)
}

func TestRegistryBeginCancelsPriorLoop(t *testing.T) {
	r := NewRegistry()
	ctx1, done1, prev := beginEntry(r, "a", "g1")
	require.Nil(t, prev, "no prior loop on first begin")

	_, _, prev2 := beginEntry(r, "a", "g2")
	require.NotNil(t, prev2)
	assert.Equal(t, (<-chan struct{})(done1), prev2)
	assert.Error(t, ctx1.Err(), "prior loop context must be cancelled")
}

func TestRegistryStaleGenerationWritesAreDropped(t *testing.T) {
	r := NewRegistry()
	_, _, _ = beginEntry(r, "a", "g1")
	_, _, _ = beginEntry(r, "a", "g2")

	ok := r.set("a", "g1", func(s *State) { s.Status = StatusJoined })
	assert.False(t, ok, "stale writer must be rejected")

	r.finish("a", "g1")
	st, _ := r.Get("a")
	assert.Equal(t, StatusWaiting, st.Status, "stale finish must not touch the fresh entry")

	ok = r.set("a", "g2", func(s *State) { s.Status = StatusConnecting })
	assert.True(t, ok)
	st, _ = r.Get("a")
	assert.Equal(t, StatusConnecting, st.Status)
}

func TestRegistryFinishRetainsTerminalState(t *testing.T) {
	r := NewRegistry()
	_, _, _ = beginEntry(r, "a", "g1")
	r.set("a", "g1", func(s *State) { s.Joined = true })

	r.finish("a", "g1")

	st, ok := r.Get("a")
	require.True(t, ok, "terminal entry stays visible")
	assert.Equal(t, StatusCancelled, st.Status)
	assert.True(t, st.Joined)
	assert.Equal(t, 0, r.ActiveCount())
}

func TestRegistryCancelOthersSparesWinner(t *testing.T) {
	r := NewRegistry()
	ctxA, _, _ := beginEntry(r, "a", "ga")
	ctxB, _, _ := beginEntry(r, "b", "gb")
	ctxC, _, _ := beginEntry(r, "c", "gc")

	r.CancelOthers("b")

	assert.Error(t, ctxA.Err())
	assert.NoError(t, ctxB.Err(), "winner keeps running")
	assert.Error(t, ctxC.Err())
}

func TestRegistryResetAllClearsSynchronously(t *testing.T) {
	r := NewRegistry()
	ctxA, _, _ := beginEntry(r, "a", "ga")
	ctxB, _, _ := beginEntry(r, "b", "gb")

	r.ResetAll()

	assert.Error(t, ctxA.Err())
	assert.Error(t, ctxB.Err())
	assert.Empty(t, r.Snapshot())

	// A loop that was mid-flight at reset time writes into the void.
	assert.False(t, r.set("a", "ga", func(s *State) { s.Status = StatusJoined }))
	_, ok := r.Get("a")
	assert.False(t, ok)
}

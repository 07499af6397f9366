package registry

import (
	"context"
	"errors"
	"testing"

	"flowguard/internal/capture"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := New(ctx, capture.Config{})
	r.probeFn = func(string) error { return nil } // skip real ffmpeg probing
	return r
}

func TestAddNewCamera(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Add("cam1", "0", "Front Door", true))

	e, err := r.Get("cam1")
	require.NoError(t, err)
	require.Equal(t, "/dev/video0", e.Source)
	require.True(t, e.Enabled)
}

func TestAddIdenticalSourceIsNoop(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Add("cam1", "0", "Front Door", true))
	before, _ := r.Get("cam1")

	probeCalled := false
	r.probeFn = func(string) error { probeCalled = true; return nil }
	require.NoError(t, r.Add("cam1", "0", "Front Door", true))

	after, _ := r.Get("cam1")
	require.Same(t, before.frame, after.frame, "identical-source Add must be a no-op, not a restart")
	require.False(t, probeCalled, "no-op path must not re-probe")
}

func TestAddDifferentSourceReplaces(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Add("cam1", "0", "Front Door", true))
	before, _ := r.Get("cam1")

	require.NoError(t, r.Add("cam1", "1", "Front Door", true))
	after, _ := r.Get("cam1")

	require.NotSame(t, before.frame, after.frame)
	require.Equal(t, "/dev/video1", after.Source)
}

func TestAddPropagatesProbeFailure(t *testing.T) {
	r := newTestRegistry(t)
	r.probeFn = func(string) error { return errors.New("no frame") }

	err := r.Add("cam1", "0", "Front Door", true)
	require.Error(t, err)

	_, getErr := r.Get("cam1")
	require.ErrorIs(t, getErr, ErrNotFound)
}

func TestRemoveUnknownReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Remove("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveDeletesEntry(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Add("cam1", "0", "Front Door", true))
	require.NoError(t, r.Remove("cam1"))

	_, err := r.Get("cam1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListAllSortedByID(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Add("b", "0", "B", true))
	require.NoError(t, r.Add("a", "1", "A", true))

	all := r.ListAll()
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].ID)
	require.Equal(t, "b", all[1].ID)
}

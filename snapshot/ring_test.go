package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keyframeio/rollback/snapshot"
)

func TestRingSaveIsIdempotentPerFrame(t *testing.T) {
	r := snapshot.NewRing[string](4)
	r.Save(0, "v0")
	r.Save(0, "v0-replaced")

	require.Equal(t, 1, r.Len())

	sf, err := r.Load(0)
	require.NoError(t, err)
	require.Equal(t, "v0-replaced", sf.State)
}

func TestRingEvictsOldestOnOverflow(t *testing.T) {
	r := snapshot.NewRing[int](2)
	r.Save(0, 0)
	r.Save(1, 1)
	r.Save(2, 2)

	require.Equal(t, 2, r.Len())

	_, err := r.Load(0)
	require.Error(t, err)

	sf, err := r.Load(2)
	require.NoError(t, err)
	require.Equal(t, 2, sf.State)
}

func TestRingLoadDiscardsOlderAndNewerEntries(t *testing.T) {
	r := snapshot.NewRing[int](8)
	r.Save(0, 0)
	r.Save(1, 1)
	r.Save(2, 2)
	r.Save(3, 3)

	sf, err := r.Load(1)
	require.NoError(t, err)
	require.Equal(t, 1, sf.State)
	require.Equal(t, 1, r.Len())

	_, err = r.Load(0)
	require.Error(t, err)
	_, err = r.Load(3)
	require.Error(t, err)
}

func TestRingLoadMissingTarget(t *testing.T) {
	r := snapshot.NewRing[int](4)
	r.Save(5, 5)

	_, err := r.Load(9)
	var notFound snapshot.NotFound
	require.ErrorAs(t, err, &notFound)
}

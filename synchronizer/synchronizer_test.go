package synchronizer_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keyframeio/rollback/frameinput"
	"github.com/keyframeio/rollback/inputqueue"
	"github.com/keyframeio/rollback/snapshot"
	"github.com/keyframeio/rollback/synchronizer"
)

// fakeHooks is the simplest snapshot.Hooks: the opaque state is just a
// label string, and Advance is a no-op (the test drives frameCount itself
// through IncrementFrame).
type fakeHooks struct {
	current string
}

func (h *fakeHooks) Save(frame uint32) (string, error) {
	return fmt.Sprintf("state@%d", frame), nil
}

func (h *fakeHooks) Load(state string, frame uint32) error {
	h.current = state
	return nil
}

func (h *fakeHooks) Advance() error {
	return nil
}

var _ snapshot.Hooks[string] = (*fakeHooks)(nil)

// TestRollbackRoundTrip implements spec scenario 3 verbatim: two queues,
// max_prediction_frames=4, a late remote input that forces a rollback to
// frame 0 with a two-frame replay.
func TestRollbackRoundTrip(t *testing.T) {
	hooks := &fakeHooks{}
	s := synchronizer.New[string, string](2, 4)

	_, err := s.SaveCurrentFrame(hooks) // snapshot for frame 0, before any input
	require.NoError(t, err)

	_, err = s.AddLocalInput(0, frameinput.New(0, "first"))
	require.NoError(t, err)

	slots, err := s.SynchronizeInputs()
	require.NoError(t, err)
	require.Equal(t, []synchronizer.Slot[string]{{Payload: "first", Ok: true}, {Ok: false}}, slots)

	_, err = s.IncrementFrame(hooks)
	require.NoError(t, err)
	require.EqualValues(t, 1, s.FrameCount())

	_, err = s.AddLocalInput(0, frameinput.New(1, "second"))
	require.NoError(t, err)

	slots, err = s.SynchronizeInputs()
	require.NoError(t, err)
	require.Equal(t, []synchronizer.Slot[string]{{Payload: "second", Ok: true}, {Ok: false}}, slots)

	_, err = s.IncrementFrame(hooks)
	require.NoError(t, err)
	require.EqualValues(t, 2, s.FrameCount())

	_, err = s.AddLocalInput(0, frameinput.New(2, "third"))
	require.NoError(t, err)
	_, err = s.AddRemoteInput(1, frameinput.New(0, "R0"))
	require.NoError(t, err)

	_, err = s.SynchronizeInputs()
	require.Error(t, err)
	require.ErrorIs(t, err, inputqueue.ErrGetDuringPrediction)

	rb, err := s.CheckSimulation(hooks)
	require.NoError(t, err)
	require.NotNil(t, rb)
	require.EqualValues(t, 0, rb.Frame)
	require.EqualValues(t, 2, rb.NumSteps)
	require.EqualValues(t, 0, s.FrameCount(), "CheckSimulation seeks the host back to the rollback target")

	slots, err = s.SynchronizeInputs()
	require.NoError(t, err)
	require.Equal(t, []synchronizer.Slot[string]{{Payload: "first", Ok: true}, {Payload: "R0", Ok: true}}, slots)

	_, err = s.IncrementFrame(hooks)
	require.NoError(t, err)

	slots, err = s.SynchronizeInputs()
	require.NoError(t, err)
	require.Equal(t, []synchronizer.Slot[string]{{Payload: "second", Ok: true}, {Payload: "R0", Ok: true}}, slots)

	_, err = s.IncrementFrame(hooks)
	require.NoError(t, err)
	require.EqualValues(t, 2, s.FrameCount())

	require.NoError(t, s.PostRollback())
}

// TestPredictionBarrier implements spec scenario 4: with
// max_prediction_frames=2, the third consecutive local input submitted
// without any confirmation fails.
func TestPredictionBarrier(t *testing.T) {
	s := synchronizer.New[string, string](1, 2)

	for frame := uint32(0); frame < 2; frame++ {
		_, err := s.AddLocalInput(0, frameinput.New(frame, "x"))
		require.NoError(t, err)
		_, err = s.IncrementFrame(&fakeHooks{})
		require.NoError(t, err)
	}

	_, err := s.AddLocalInput(0, frameinput.New(2, "x"))
	require.Error(t, err)

	var barrier *synchronizer.PredictionBarrierReached
	require.ErrorAs(t, err, &barrier)
	require.EqualValues(t, 2, barrier.FramesBehind)
	require.EqualValues(t, 2, barrier.MaxPredictionFrames)
}

func TestSetLastConfirmedFrameCompactsQueues(t *testing.T) {
	s := synchronizer.New[string, string](1, 100)

	for frame := uint32(0); frame < 10; frame++ {
		_, err := s.AddLocalInput(0, frameinput.New(frame, "x"))
		require.NoError(t, err)
		_, err = s.IncrementFrame(&fakeHooks{})
		require.NoError(t, err)
	}

	s.SetLastConfirmedFrame(7)

	n, err := s.QueueLen(0)
	require.NoError(t, err)
	require.Equal(t, 3, n, "frames 7, 8, 9 survive compaction")

	_, err = s.GetConfirmedInput(0, 5)
	require.Error(t, err)

	fi, err := s.GetConfirmedInput(0, 7)
	require.NoError(t, err)
	require.Equal(t, "x", fi.Payload)
}

// TestCheckSimulationFailsWhenSnapshotEvicted implements spec scenario 6:
// a rollback target can fall out of the saved-state ring if the host kept
// simulating (and saving) far enough past it before the contradicting
// input ever arrived.
func TestCheckSimulationFailsWhenSnapshotEvicted(t *testing.T) {
	hooks := &fakeHooks{}
	s := synchronizer.New[string, string](1, 2) // ring capacity = 2+2 = 4

	_, err := s.SaveCurrentFrame(hooks) // frame 0
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = s.SynchronizeInputs() // queue 0 starts predicting from frame 0
		require.NoError(t, err)
		_, err = s.IncrementFrame(hooks) // saves frames 1..5, evicting 0 and 1
		require.NoError(t, err)
	}

	_, err = s.AddRemoteInput(0, frameinput.New(0, "R0"))
	require.NoError(t, err)

	_, err = s.CheckSimulation(hooks)
	require.Error(t, err)
	require.Equal(t, snapshot.NotFound(0), err)
}

func TestBadQueueHandleOnOutOfRangeIndex(t *testing.T) {
	s := synchronizer.New[string, string](1, 4)
	_, err := s.AddLocalInput(5, frameinput.New(0, "x"))
	require.Error(t, err)

	var bad synchronizer.BadQueueHandle
	require.True(t, errors.As(err, &bad))
}

package session_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyframeio/rollback/config"
	"github.com/keyframeio/rollback/session"
)

type move struct {
	Dx int
}

// counterHooks is the simplest possible snapshot.Hooks implementation: the
// state is a bare integer, and Advance is a no-op. It exists only to
// exercise the Session's phase machine and hook plumbing.
type counterHooks struct {
	total int
}

func (h *counterHooks) Save(frame uint32) (int, error) {
	return h.total, nil
}

func (h *counterHooks) Load(state int, frame uint32) error {
	h.total = state
	return nil
}

func (h *counterHooks) Advance() error {
	return nil
}

func newSoloSession(t *testing.T) (*session.Session[move, int], *counterHooks) {
	t.Helper()
	cfg := config.Default()
	cfg.Network.ListenAddr = "127.0.0.1:0"
	cfg.Session.MaxPlayers = 1

	hooks := &counterHooks{}
	s, err := session.New[move, int](cfg, hooks, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, hooks
}

func TestSessionPhaseMachine(t *testing.T) {
	s, _ := newSoloSession(t)
	require.Equal(t, session.Setup, s.State())

	require.NoError(t, s.AddPlayer(1, session.RoleLocal, nil))

	// Out-of-phase calls are rejected before Start.
	_, err := s.AddLocalInput(move{Dx: 1})
	require.Error(t, err)
	var invalid *session.InvalidState
	require.ErrorAs(t, err, &invalid)

	require.NoError(t, s.Start())
	require.Equal(t, session.Normal, s.State())

	// AddPlayer is no longer valid once Start has run.
	require.Error(t, s.AddPlayer(1, session.RoleLocal, nil))

	_, err = s.AddLocalInput(move{Dx: 1})
	require.NoError(t, err)

	slots, err := s.SynchronizeInputs()
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.True(t, slots[0].Ok)
	require.Equal(t, move{Dx: 1}, slots[0].Payload)

	_, err = s.IncrementFrame()
	require.NoError(t, err)

	rb, err := s.CheckSimulation()
	require.NoError(t, err)
	require.Nil(t, rb, "a solo session never disagrees with itself")

	// PostRollback is invalid outside the PostRollback phase.
	err = s.PostRollback()
	require.Error(t, err)
	require.ErrorAs(t, err, &invalid)
}

func TestSessionRejectsPlayerNumberOutOfRange(t *testing.T) {
	s, _ := newSoloSession(t)
	err := s.AddPlayer(2, session.RoleLocal, nil)
	require.Error(t, err)
	var outOfRange *session.PlayerOutOfRange
	require.ErrorAs(t, err, &outOfRange)
}

// sumHooks is a non-trivial snapshot.Hooks: unlike counterHooks, Advance
// actually mutates state from pending per-queue deltas, so a stale or
// out-of-order Save/Advance sequence produces a detectably wrong total
// instead of silently passing.
type sumHooks struct {
	total   int
	pending [2]int
}

func (h *sumHooks) Save(frame uint32) (int, error) {
	return h.total, nil
}

func (h *sumHooks) Load(state int, frame uint32) error {
	h.total = state
	return nil
}

func (h *sumHooks) Advance() error {
	h.total += h.pending[0] + h.pending[1]
	return nil
}

func applySlots(t *testing.T, sess *session.Session[move, int], hooks *sumHooks) {
	t.Helper()
	slots, err := sess.SynchronizeInputs()
	require.NoError(t, err)
	for i, s := range slots {
		if s.Ok {
			hooks.pending[i] = s.Payload.Dx
		} else {
			hooks.pending[i] = 0
		}
	}
}

func resolveFrame(t *testing.T, sess *session.Session[move, int], hooks *sumHooks) {
	t.Helper()
	// A preceding PollNetwork may have flagged a misprediction, and
	// SynchronizeInputs refuses to run until it is rolled back, so the
	// rollback check comes before this frame's inputs are read.
	rb, err := sess.CheckSimulation()
	require.NoError(t, err)
	if rb != nil {
		for step := uint32(0); step < rb.NumSteps; step++ {
			applySlots(t, sess, hooks)
			_, err := sess.IncrementFrame()
			require.NoError(t, err)
		}
		require.NoError(t, sess.PostRollback())
	}

	applySlots(t, sess, hooks)
	_, err = sess.IncrementFrame()
	require.NoError(t, err)
}

// TestSessionRollbackReconstructsState runs two real sessions over loopback
// through many frames of a non-trivial Advance (a running sum both sides
// must agree on), deliberately racing ahead of the network so that
// mispredictions and rollbacks happen on both sides. It catches what a
// no-op Advance cannot: a wrong Save/Advance order makes every restored
// snapshot one frame stale, and a missing frame-0 snapshot makes an early
// rollback to frame 0 fail outright — either defect desyncs the two
// sessions' totals.
func TestSessionRollbackReconstructsState(t *testing.T) {
	cfgA := config.Default()
	cfgA.Network.ListenAddr = "127.0.0.1:0"
	cfgA.Session.MaxPlayers = 2
	cfgA.Session.MaxPredictionFrames = 64

	cfgB := config.Default()
	cfgB.Network.ListenAddr = "127.0.0.1:0"
	cfgB.Session.MaxPlayers = 2
	cfgB.Session.MaxPredictionFrames = 64

	hooksA := &sumHooks{}
	hooksB := &sumHooks{}

	sessA, err := session.New[move, int](cfgA, hooksA, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sessA.Close() })

	sessB, err := session.New[move, int](cfgB, hooksB, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sessB.Close() })

	addrA := sessA.LocalAddr().(*net.UDPAddr)
	addrB := sessB.LocalAddr().(*net.UDPAddr)

	require.NoError(t, sessA.AddPlayer(1, session.RoleLocal, nil))
	require.NoError(t, sessA.AddPlayer(2, session.RoleRemote, addrB))
	require.NoError(t, sessA.Start())

	require.NoError(t, sessB.AddPlayer(1, session.RoleRemote, addrA))
	require.NoError(t, sessB.AddPlayer(2, session.RoleLocal, nil))
	require.NoError(t, sessB.Start())

	deltaP1 := func(frame int) int { return frame%5 - 2 }
	deltaP2 := func(frame int) int { return frame%3 - 1 }

	const numFrames = 30
	expected := 0
	for f := 0; f < numFrames; f++ {
		expected += deltaP1(f) + deltaP2(f)
	}

	for f := 0; f < numFrames; f++ {
		require.NoError(t, sessA.PollNetwork())
		require.NoError(t, sessB.PollNetwork())

		_, err := sessA.AddLocalInput(move{Dx: deltaP1(f)})
		require.NoError(t, err)
		_, err = sessB.AddLocalInput(move{Dx: deltaP2(f)})
		require.NoError(t, err)

		resolveFrame(t, sessA, hooksA)
		resolveFrame(t, sessB, hooksB)

		time.Sleep(2 * time.Millisecond)
	}

	// Settle: let any still-in-flight packets arrive and give each side a
	// chance to roll back and correct its trailing frames before comparing.
	for i := 0; i < 50; i++ {
		require.NoError(t, sessA.PollNetwork())
		require.NoError(t, sessB.PollNetwork())

		if rb, err := sessA.CheckSimulation(); err == nil && rb != nil {
			for step := uint32(0); step < rb.NumSteps; step++ {
				applySlots(t, sessA, hooksA)
				_, err := sessA.IncrementFrame()
				require.NoError(t, err)
			}
			require.NoError(t, sessA.PostRollback())
		}
		if rb, err := sessB.CheckSimulation(); err == nil && rb != nil {
			for step := uint32(0); step < rb.NumSteps; step++ {
				applySlots(t, sessB, hooksB)
				_, err := sessB.IncrementFrame()
				require.NoError(t, err)
			}
			require.NoError(t, sessB.PostRollback())
		}

		time.Sleep(2 * time.Millisecond)
	}

	require.Equal(t, expected, hooksA.total)
	require.Equal(t, expected, hooksB.total)
}

func TestSessionTwoPeersExchangeInputOverLoopback(t *testing.T) {
	cfgA := config.Default()
	cfgA.Network.ListenAddr = "127.0.0.1:0"
	cfgA.Session.MaxPlayers = 2

	cfgB := config.Default()
	cfgB.Network.ListenAddr = "127.0.0.1:0"
	cfgB.Session.MaxPlayers = 2

	hooksA := &counterHooks{}
	hooksB := &counterHooks{}

	sessA, err := session.New[move, int](cfgA, hooksA, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sessA.Close() })

	sessB, err := session.New[move, int](cfgB, hooksB, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sessB.Close() })

	addrA := sessA.LocalAddr().(*net.UDPAddr)
	addrB := sessB.LocalAddr().(*net.UDPAddr)

	require.NoError(t, sessA.AddPlayer(1, session.RoleLocal, nil))
	require.NoError(t, sessA.AddPlayer(2, session.RoleRemote, addrB))
	require.NoError(t, sessA.Start())

	require.NoError(t, sessB.AddPlayer(1, session.RoleRemote, addrA))
	require.NoError(t, sessB.AddPlayer(2, session.RoleLocal, nil))
	require.NoError(t, sessB.Start())

	// A's local player (queue 0) sends frame 0; B should receive it into
	// its remote queue (also queue 0) without either side ever advancing
	// its own frame counter, keeping the exchange deterministic to check.
	//
	// SynchronizeInputs is called exactly once below, after the packet has
	// had time to arrive: calling it earlier would seed queue 0's
	// prediction cursor with an empty guess that the real input then
	// contradicts, flagging a (spurious, in this single-input test) replay
	// the test never resolves.
	_, err = sessA.AddLocalInput(move{Dx: 7})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		_ = sessB.PollNetwork()
		time.Sleep(5 * time.Millisecond)
	}

	slots, err := sessB.SynchronizeInputs()
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.True(t, slots[0].Ok)
	require.Equal(t, move{Dx: 7}, slots[0].Payload)
}

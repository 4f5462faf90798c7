// Package session wires a Synchronizer, a transport Adapter, and a player
// roster into the phased state machine described in §4.3: Setup, where
// players are added; Normal, where local input flows and rollbacks are
// detected; InRollback, where the host replays frames the synchronizer
// scheduled; and PostRollback, a one-call checkpoint back to Normal.
//
// Grounded in shape on netplay/game.go's Game (one struct owning the
// console bus, both input queues, and the rollback/replay cycle) and
// netplay/netplay.go's top-level loop (poll the socket, feed remote
// input, synchronize, advance, check the simulation) — generalized from
// a single NES-specific pairing to an arbitrary player count over the
// generic Synchronizer.
package session

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/keyframeio/rollback/config"
	"github.com/keyframeio/rollback/frameinput"
	"github.com/keyframeio/rollback/metrics"
	"github.com/keyframeio/rollback/snapshot"
	"github.com/keyframeio/rollback/synchronizer"
	"github.com/keyframeio/rollback/transport"
)

// Session is the top-level handle an embedding host drives one frame at a
// time. T is the per-frame input payload; S is the host's opaque
// simulation snapshot.
type Session[T comparable, S any] struct {
	cfg    *config.Config
	logger *slog.Logger
	rec    *metrics.Recorder

	hooks   snapshot.Hooks[S]
	sync    *synchronizer.Synchronizer[T, S]
	adapter *transport.Adapter[T]
	codec   transport.Codec[T]

	state       State
	players     []Player
	localIdx    int
	peers       map[int]*transport.Peer[T]
	curRollback *synchronizer.Rollback
}

// Option configures a Session at construction time.
type Option[T comparable, S any] func(*Session[T, S])

// WithCodec overrides the default GobCodec used to serialize T on the wire.
func WithCodec[T comparable, S any](codec transport.Codec[T]) Option[T, S] {
	return func(s *Session[T, S]) { s.codec = codec }
}

// New opens the UDP adapter at cfg.Network.ListenAddr and returns a Session
// in the Setup phase. hooks is the host's save/load/advance contract; the
// Session keeps it and passes it into each Synchronizer call that needs it,
// so the Synchronizer itself never stores it.
func New[T comparable, S any](cfg *config.Config, hooks snapshot.Hooks[S], logger *slog.Logger, rec *metrics.Recorder, opts ...Option[T, S]) (*Session[T, S], error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Session[T, S]{
		cfg:      cfg,
		logger:   logger,
		rec:      rec,
		hooks:    hooks,
		codec:    transport.GobCodec[T]{},
		state:    Setup,
		localIdx: -1,
		peers:    make(map[int]*transport.Peer[T]),
	}
	for _, opt := range opts {
		opt(s)
	}

	adapter, err := transport.Listen[T](cfg.Network.ListenAddr, s.codec, cfg.DisconnectTimeout())
	if err != nil {
		return nil, fmt.Errorf("session: listen: %w", err)
	}
	s.adapter = adapter

	return s, nil
}

// State returns the session's current phase.
func (s *Session[T, S]) State() State {
	return s.state
}

// LocalAddr returns the bound UDP address of the transport adapter.
func (s *Session[T, S]) LocalAddr() net.Addr {
	return s.adapter.LocalAddr()
}

// AddPlayer registers a seat. Only callable in Setup. A Remote player must
// supply addr; a Local or Spectator player's addr is ignored.
func (s *Session[T, S]) AddPlayer(number int, role Role, addr *net.UDPAddr) error {
	if s.state != Setup {
		return &InvalidState{Op: "AddPlayer", State: s.state}
	}
	if number < 1 || number > s.cfg.Session.MaxPlayers {
		return &PlayerOutOfRange{Number: number, MaxPlayers: s.cfg.Session.MaxPlayers}
	}
	for _, p := range s.players {
		if p.Number == number {
			return &PlayerOutOfRange{Number: number, MaxPlayers: s.cfg.Session.MaxPlayers}
		}
	}

	p := Player{Number: number, Role: role, Addr: addr}
	idx := len(s.players)
	s.players = append(s.players, p)

	switch role {
	case RoleLocal:
		s.localIdx = idx
	case RoleRemote:
		s.peers[idx] = s.adapter.PeerFor(addr)
	}

	return nil
}

// Start closes the roster and transitions Setup -> Normal, constructing the
// Synchronizer for the registered players.
func (s *Session[T, S]) Start() error {
	if s.state != Setup {
		return &InvalidState{Op: "Start", State: s.state}
	}

	var opts []synchronizer.Option[T, S]
	if s.logger != nil {
		opts = append(opts, synchronizer.WithLogger[T, S](s.logger))
	}
	if s.rec != nil {
		opts = append(opts, synchronizer.WithMetrics[T, S](s.rec))
	}

	s.sync = synchronizer.New[T, S](len(s.players), s.cfg.Session.MaxPredictionFrames, opts...)
	for i, p := range s.players {
		if p.Role == RoleLocal {
			_ = s.sync.SetFrameDelay(i, s.cfg.Session.FrameDelay)
		}
	}

	// Seed the ring with frame 0's state before any input is applied, the
	// same way the teacher's Init saves once before its loop begins. Without
	// this, a rollback targeting frame 0 (the oldest possible target) has
	// nothing to load.
	if _, err := s.sync.SaveCurrentFrame(s.hooks); err != nil {
		return err
	}

	s.state = Normal
	return nil
}

// AddLocalInput submits this frame's local input, enforcing the prediction
// barrier, then broadcasts it to every remote peer.
func (s *Session[T, S]) AddLocalInput(input T) (frameinput.FrameInput[T], error) {
	if s.state != Normal {
		return frameinput.FrameInput[T]{}, &InvalidState{Op: "AddLocalInput", State: s.state}
	}
	if s.localIdx < 0 {
		return frameinput.FrameInput[T]{}, fmt.Errorf("session: no local player registered")
	}

	fi, err := s.sync.AddLocalInput(s.localIdx, frameinput.New(s.sync.FrameCount(), input))
	if err != nil {
		return frameinput.FrameInput[T]{}, err
	}

	msg := transport.MakeInput(fi)
	for _, peer := range s.peers {
		_ = peer.SendMsg(msg)
	}

	return fi, nil
}

// PollNetwork drains the transport adapter, routes EventInput into the
// matching remote queue, and reports connection-state changes for peers
// that disconnected or reconnected since the last poll.
func (s *Session[T, S]) PollNetwork() error {
	s.adapter.Poll()

	for idx, peer := range s.peers {
		for _, ev := range peer.DrainEvents() {
			switch ev.Kind {
			case transport.EventInput:
				if _, err := s.sync.AddRemoteInput(idx, ev.Input); err != nil {
					return err
				}
			case transport.EventDisconnected:
				_ = s.sync.SetQueueActive(idx, false)
				if s.rec != nil {
					s.rec.PeerDisconnected(s.players[idx].Addr.String())
				}
				if s.logger != nil {
					s.logger.Warn("peer disconnected", "player", s.players[idx].Number)
				}
			case transport.EventConnected:
				_ = s.sync.SetQueueActive(idx, true)
			}
		}
	}

	return nil
}

// SynchronizeInputs returns the current frame's input for every active
// player. Valid in Normal and InRollback.
func (s *Session[T, S]) SynchronizeInputs() ([]synchronizer.Slot[T], error) {
	if s.state != Normal && s.state != InRollback {
		return nil, &InvalidState{Op: "SynchronizeInputs", State: s.state}
	}
	return s.sync.SynchronizeInputs()
}

// IncrementFrame advances the simulation by one frame and saves the
// resulting snapshot. Valid in Normal and InRollback; while InRollback, it
// auto-transitions to PostRollback once the scheduled replay catches up.
func (s *Session[T, S]) IncrementFrame() (snapshot.SavedFrame[S], error) {
	if s.state != Normal && s.state != InRollback {
		return snapshot.SavedFrame[S]{}, &InvalidState{Op: "IncrementFrame", State: s.state}
	}

	// Advance the host simulation first, then increment the frame counter
	// and save: the snapshot recorded for frame F+1 must capture the state
	// after frame F's input was applied, or a restored snapshot is always
	// one frame stale. Mirrors the teacher's playFrame/save ordering.
	if err := s.hooks.Advance(); err != nil {
		return snapshot.SavedFrame[S]{}, err
	}
	sf, err := s.sync.IncrementFrame(s.hooks)
	if err != nil {
		return snapshot.SavedFrame[S]{}, err
	}

	if s.state == InRollback && s.curRollback != nil &&
		s.sync.FrameCount() == s.curRollback.Frame+s.curRollback.NumSteps {
		s.state = PostRollback
	}

	return sf, nil
}

// CheckSimulation scans for a prediction discrepancy and, if found,
// transitions Normal -> InRollback with the scheduled replay. Valid only
// in Normal.
func (s *Session[T, S]) CheckSimulation() (*synchronizer.Rollback, error) {
	if s.state != Normal {
		return nil, &InvalidState{Op: "CheckSimulation", State: s.state}
	}

	rb, err := s.sync.CheckSimulation(s.hooks)
	if err != nil {
		return nil, err
	}
	if rb == nil {
		return nil, nil
	}

	s.curRollback = rb
	if rb.NumSteps == 0 {
		s.state = PostRollback
	} else {
		s.state = InRollback
	}
	return rb, nil
}

// PostRollback closes out a completed replay and returns to Normal. Valid
// only in PostRollback.
func (s *Session[T, S]) PostRollback() error {
	if s.state != PostRollback {
		return &InvalidState{Op: "PostRollback", State: s.state}
	}
	if err := s.sync.PostRollback(); err != nil {
		return err
	}
	s.curRollback = nil
	s.state = Normal
	return nil
}

// SetLastConfirmedFrame records the newest frame every queue agrees on and
// compacts history up to it. Callable from any phase.
func (s *Session[T, S]) SetLastConfirmedFrame(frame uint32) {
	if s.sync == nil {
		return // Setup: no synchronizer yet, nothing to compact
	}
	s.sync.SetLastConfirmedFrame(frame)
}

// Close releases the transport adapter's socket.
func (s *Session[T, S]) Close() error {
	return s.adapter.Close()
}

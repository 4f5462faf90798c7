// Package synchronizer coordinates N per-player input queues, the frame
// counter, the saved-state ring, and the rollback lifecycle.
//
// Grounded on spec.md §4.2 and, for the replay shape, netplay/game.go's
// applyRemoteInput: rollback to the last agreed-upon state, replay forward
// with now-authoritative inputs, then keep replaying with predictions
// until the local simulation catches back up to where it started.
package synchronizer

import (
	"log/slog"

	"github.com/keyframeio/rollback/frameinput"
	"github.com/keyframeio/rollback/inputqueue"
	"github.com/keyframeio/rollback/metrics"
	"github.com/keyframeio/rollback/snapshot"
)

// Slot is one player's input for a single synchronized frame: absent when
// the player is disconnected.
type Slot[T comparable] struct {
	Payload T
	Ok      bool
}

// Rollback describes a scheduled replay: CheckSimulation has already loaded
// the snapshot for Frame through the host's hooks, and the host then calls
// SynchronizeInputs/Advance/IncrementFrame exactly NumSteps times.
type Rollback struct {
	Frame    uint32
	NumSteps uint32
}

// Synchronizer owns every input queue and the saved-state ring for one
// session.
type Synchronizer[T comparable, S any] struct {
	maxPredictionFrames uint32

	frameCount              uint32
	lastConfirmedFrame      frameinput.OptFrame
	targetPostRollbackFrame frameinput.OptFrame

	queues []*inputqueue.Queue[T]
	active []bool

	ring *snapshot.Ring[S]

	logger  *slog.Logger
	metrics *metrics.Recorder
}

// Option configures a Synchronizer at construction time.
type Option[T comparable, S any] func(*Synchronizer[T, S])

// WithLogger attaches a structured logger. A nil logger (the default)
// disables logging entirely.
func WithLogger[T comparable, S any](logger *slog.Logger) Option[T, S] {
	return func(s *Synchronizer[T, S]) { s.logger = logger }
}

// WithMetrics attaches a metrics recorder. A nil recorder (the default) is
// a no-op, so mounting metrics is never mandatory.
func WithMetrics[T comparable, S any](rec *metrics.Recorder) Option[T, S] {
	return func(s *Synchronizer[T, S]) { s.metrics = rec }
}

// New builds a Synchronizer for numPlayers queues.
func New[T comparable, S any](numPlayers int, maxPredictionFrames uint32, opts ...Option[T, S]) *Synchronizer[T, S] {
	s := &Synchronizer[T, S]{
		maxPredictionFrames: maxPredictionFrames,
		queues:              make([]*inputqueue.Queue[T], numPlayers),
		active:              make([]bool, numPlayers),
		ring:                snapshot.NewRing[S](int(maxPredictionFrames) + 2),
	}
	for i := range s.queues {
		s.queues[i] = inputqueue.New[T]()
		s.active[i] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FrameCount returns the canonical frame counter.
func (s *Synchronizer[T, S]) FrameCount() uint32 {
	return s.frameCount
}

// SetQueueActive marks a queue active or inactive. An inactive queue
// (disconnected player) is excluded from SynchronizeInputs and from the
// rollback discrepancy scan, per §5 cancellation/timeouts.
func (s *Synchronizer[T, S]) SetQueueActive(queueIdx int, active bool) error {
	if queueIdx < 0 || queueIdx >= len(s.queues) {
		return BadQueueHandle(queueIdx)
	}
	s.active[queueIdx] = active
	return nil
}

// SetFrameDelay forwards to the given queue's SetFrameDelay.
func (s *Synchronizer[T, S]) SetFrameDelay(queueIdx int, n uint32) error {
	q, err := s.queue(queueIdx)
	if err != nil {
		return err
	}
	q.SetFrameDelay(n)
	return nil
}

// QueueLen reports how many frames queueIdx currently retains, mostly
// useful for diagnostics and tests of compaction.
func (s *Synchronizer[T, S]) QueueLen(queueIdx int) (int, error) {
	q, err := s.queue(queueIdx)
	if err != nil {
		return 0, err
	}
	return q.Len(), nil
}

// GetConfirmedInput returns the authoritative (non-predicted) input for
// queueIdx at frame, failing if that frame was never stored or fell
// inside an unresolved prediction.
func (s *Synchronizer[T, S]) GetConfirmedInput(queueIdx int, frame uint32) (frameinput.FrameInput[T], error) {
	q, err := s.queue(queueIdx)
	if err != nil {
		return frameinput.FrameInput[T]{}, err
	}
	fi, err := q.GetConfirmed(frame)
	if err != nil {
		return frameinput.FrameInput[T]{}, &QueueError{QueueIdx: queueIdx, Err: err}
	}
	return fi, nil
}

func (s *Synchronizer[T, S]) queue(idx int) (*inputqueue.Queue[T], error) {
	if idx < 0 || idx >= len(s.queues) {
		return nil, BadQueueHandle(idx)
	}
	return s.queues[idx], nil
}

func (s *Synchronizer[T, S]) framesBehind() uint32 {
	if !s.lastConfirmedFrame.Ok {
		return s.frameCount
	}
	return s.frameCount - s.lastConfirmedFrame.Frame
}

// AddLocalInput enforces the prediction barrier before delegating to the
// addressed queue.
func (s *Synchronizer[T, S]) AddLocalInput(queueIdx int, input frameinput.FrameInput[T]) (frameinput.FrameInput[T], error) {
	if s.framesBehind() >= s.maxPredictionFrames {
		if s.metrics != nil {
			s.metrics.PredictionBarrierTrip()
		}
		return frameinput.FrameInput[T]{}, &PredictionBarrierReached{
			FramesBehind:        s.framesBehind(),
			MaxPredictionFrames: s.maxPredictionFrames,
		}
	}

	q, err := s.queue(queueIdx)
	if err != nil {
		return frameinput.FrameInput[T]{}, err
	}

	out, err := q.Add(input)
	if err != nil {
		return frameinput.FrameInput[T]{}, &QueueError{QueueIdx: queueIdx, Err: err}
	}
	return out, nil
}

// AddRemoteInput delegates to the addressed queue without the prediction
// barrier check; remote input is what relieves the barrier.
func (s *Synchronizer[T, S]) AddRemoteInput(queueIdx int, input frameinput.FrameInput[T]) (frameinput.FrameInput[T], error) {
	q, err := s.queue(queueIdx)
	if err != nil {
		return frameinput.FrameInput[T]{}, err
	}

	out, err := q.Add(input)
	if err != nil {
		return frameinput.FrameInput[T]{}, &QueueError{QueueIdx: queueIdx, Err: err}
	}
	return out, nil
}

// SynchronizeInputs reads the current frame's input from every active
// queue, real or predicted. It fails if any active queue has a known-bad
// prediction outstanding; the caller is expected to call CheckSimulation
// to schedule the rollback that resolves it.
//
// A Slot's Ok mirrors the underlying FrameInput's HasPayload, not queue
// activity: a queue that has never received anything yet (no remote
// player has connected, or a filler frame carried no payload) reports
// Ok=false, matching the source's GameInputFrame.input: Option<T>.
func (s *Synchronizer[T, S]) SynchronizeInputs() ([]Slot[T], error) {
	out := make([]Slot[T], len(s.queues))
	for i, q := range s.queues {
		if !s.active[i] {
			continue
		}
		fi, err := q.Get(s.frameCount)
		if err != nil {
			return nil, &QueueError{QueueIdx: i, Err: err}
		}
		out[i] = Slot[T]{Payload: fi.Payload, Ok: fi.HasPayload}
	}
	return out, nil
}

// SaveCurrentFrame records a snapshot handle for the current frame. hooks
// is threaded in explicitly rather than stored on the Synchronizer, so the
// core never owns a reference back into host code.
func (s *Synchronizer[T, S]) SaveCurrentFrame(hooks snapshot.Hooks[S]) (snapshot.SavedFrame[S], error) {
	state, err := hooks.Save(s.frameCount)
	if err != nil {
		return snapshot.SavedFrame[S]{}, err
	}
	sf := s.ring.Save(s.frameCount, state)
	if s.metrics != nil {
		s.metrics.SetRingOccupancy(s.ring.Len())
	}
	return sf, nil
}

// IncrementFrame advances the frame counter and saves the resulting frame.
func (s *Synchronizer[T, S]) IncrementFrame(hooks snapshot.Hooks[S]) (snapshot.SavedFrame[S], error) {
	s.frameCount++
	return s.SaveCurrentFrame(hooks)
}

// CheckSimulation scans every active queue for the earliest
// first-incorrect-frame discrepancy and, if one exists, drives the host
// back to that frame. The minimum discrepancy wins (§4.2 "Per-queue
// tie-breaks"): rolling back to the oldest one means the replay covers
// every inconsistency at once.
func (s *Synchronizer[T, S]) CheckSimulation(hooks snapshot.Hooks[S]) (*Rollback, error) {
	seek := frameinput.None()
	for i, q := range s.queues {
		if !s.active[i] {
			continue
		}
		if f := q.FirstIncorrectFrame(); f.Ok && (!seek.Ok || f.Frame < seek.Frame) {
			seek = f
		}
	}

	if !seek.Ok {
		return nil, nil
	}

	s.targetPostRollbackFrame = frameinput.Of(s.frameCount)

	saved, err := s.ring.Load(seek.Frame)
	if err != nil {
		return nil, err
	}
	if err := hooks.Load(saved.State, seek.Frame); err != nil {
		return nil, err
	}

	for i, q := range s.queues {
		if !s.active[i] {
			continue
		}
		if err := q.ResetPrediction(seek.Frame); err != nil {
			return nil, &QueueError{QueueIdx: i, Err: err}
		}
	}

	numSteps := s.targetPostRollbackFrame.Frame - seek.Frame
	s.frameCount = seek.Frame

	if s.logger != nil {
		s.logger.Debug("rollback scheduled", "frame", seek.Frame, "steps", numSteps)
	}
	if s.metrics != nil {
		s.metrics.RecordRollback(numSteps)
	}

	return &Rollback{Frame: seek.Frame, NumSteps: numSteps}, nil
}

// PostRollback verifies the host replayed exactly the number of frames the
// rollback called for, and clears the rollback target on success.
func (s *Synchronizer[T, S]) PostRollback() error {
	if !s.targetPostRollbackFrame.Ok {
		return ErrNotInRollback
	}
	if s.frameCount != s.targetPostRollbackFrame.Frame {
		return &SimulationError{Given: s.frameCount, Expected: s.targetPostRollbackFrame.Frame}
	}
	s.targetPostRollbackFrame = frameinput.None()
	return nil
}

// SetLastConfirmedFrame records the newest frame for which every queue has
// authoritative input, and compacts every queue up to that watermark.
func (s *Synchronizer[T, S]) SetLastConfirmedFrame(frame uint32) {
	s.lastConfirmedFrame = frameinput.Of(frame)
	for _, q := range s.queues {
		q.DiscardConfirmedFrames(frame)
	}
}

// Package inputqueue implements the sequential per-player input history and
// forward-running prediction cursor described in the synchronizer design:
// a strictly ascending run of known frames, plus a prediction cursor that
// fabricates plausible inputs for frames that haven't arrived yet and
// flags the earliest frame where that guess turned out wrong.
//
// Grounded on original_source/rback/src/input_queue.rs (the Rust crate this
// core was distilled from) and, for the rollback-replay shape that
// consumes it, netplay/game.go's applyRemoteInput.
package inputqueue

import (
	"github.com/keyframeio/rollback/frameinput"
)

// Queue holds the known and predicted inputs for a single player.
type Queue[T comparable] struct {
	storage []frameinput.FrameInput[T] // ascending by Frame, no gaps

	frameDelay uint32

	lastUserAddedFrame frameinput.OptFrame
	lastAddedFrame     frameinput.OptFrame
	lastFrameRequested frameinput.OptFrame

	prediction          frameinput.FrameInput[T]
	firstIncorrectFrame frameinput.OptFrame
}

// New returns an empty queue.
func New[T comparable]() *Queue[T] {
	return &Queue[T]{}
}

// SetFrameDelay sets the number of frames this queue introduces between a
// user-facing frame and the frame it is actually served at.
func (q *Queue[T]) SetFrameDelay(n uint32) {
	q.frameDelay = n
}

// FirstIncorrectFrame reports the earliest frame (if any) whose prediction
// has been contradicted by a later authoritative input.
func (q *Queue[T]) FirstIncorrectFrame() frameinput.OptFrame {
	return q.firstIncorrectFrame
}

// Add appends a new user-supplied input. The returned FrameInput is blank
// (Frame unset) when the input was silently dropped because frame_delay
// shrank out from under an already-advanced queue; this is a deliberate
// policy, not an error (see design notes on dropped-input semantics).
func (q *Queue[T]) Add(input frameinput.FrameInput[T]) (frameinput.FrameInput[T], error) {
	if !input.Frame.Ok {
		return frameinput.FrameInput[T]{}, ErrBadInput
	}

	expected := uint32(0)
	if q.lastUserAddedFrame.Ok {
		expected = q.lastUserAddedFrame.Frame + 1
	}
	if input.Frame.Frame != expected {
		return frameinput.FrameInput[T]{}, &NonSequentialUserInput{Given: input.Frame.Frame, Expected: expected}
	}
	q.lastUserAddedFrame = frameinput.Of(input.Frame.Frame)

	effective := input.Frame.Frame + q.frameDelay

	if q.lastAddedFrame.Ok && effective <= q.lastAddedFrame.Frame {
		// The queue already ran ahead of the user (frame_delay shrank).
		// Silent drop: tell the caller by clearing the frame.
		dropped := input
		dropped.Frame = frameinput.None()
		return dropped, nil
	}

	fillStart := uint32(0)
	if q.lastAddedFrame.Ok {
		fillStart = q.lastAddedFrame.Frame + 1
	}

	for f := fillStart; f < effective; f++ {
		filler := q.fillerFor(f)
		if _, err := q.storeAndReconcile(filler); err != nil {
			return frameinput.FrameInput[T]{}, err
		}
	}

	toStore := frameinput.FrameInput[T]{Frame: frameinput.Of(effective), Payload: input.Payload, HasPayload: input.HasPayload}
	return q.storeAndReconcile(toStore)
}

// fillerFor synthesizes the filler frame the gap-fill rule calls for:
// a duplicate of the most recently stored input, or an empty payload for
// the very first fill.
func (q *Queue[T]) fillerFor(frame uint32) frameinput.FrameInput[T] {
	if len(q.storage) == 0 {
		return frameinput.Empty[T](frame)
	}
	last := q.storage[len(q.storage)-1]
	return frameinput.FrameInput[T]{Frame: frameinput.Of(frame), Payload: last.Payload, HasPayload: last.HasPayload}
}

// storeAndReconcile appends fi to storage and reconciles it against an
// active prediction cursor, per the "Prediction reconciliation" rule.
func (q *Queue[T]) storeAndReconcile(fi frameinput.FrameInput[T]) (frameinput.FrameInput[T], error) {
	if q.prediction.Frame.Ok {
		if fi.Frame.Frame != q.prediction.Frame.Frame {
			return frameinput.FrameInput[T]{}, &NonSequentialRollbackInput{Given: fi.Frame.Frame, Expected: q.prediction.Frame.Frame}
		}
		if !q.firstIncorrectFrame.Ok && !fi.Equal(q.prediction) {
			q.firstIncorrectFrame = frameinput.Of(fi.Frame.Frame)
		}
	}

	q.storage = append(q.storage, fi)
	q.lastAddedFrame = frameinput.Of(fi.Frame.Frame)

	if q.prediction.Frame.Ok {
		caughtUp := q.lastFrameRequested.Ok && q.prediction.Frame.Frame == q.lastFrameRequested.Frame
		if caughtUp && !q.firstIncorrectFrame.Ok {
			q.prediction = frameinput.FrameInput[T]{}
		} else {
			q.prediction.Frame = frameinput.Of(q.prediction.Frame.Frame + 1)
		}
	}

	return fi, nil
}

// Get answers a per-frame query with either the recorded input or a
// predicted one.
func (q *Queue[T]) Get(requestedFrame uint32) (frameinput.FrameInput[T], error) {
	if q.firstIncorrectFrame.Ok {
		return frameinput.FrameInput[T]{}, ErrGetDuringPrediction
	}

	q.lastFrameRequested = frameinput.Of(requestedFrame)

	if !q.prediction.Frame.Ok {
		if len(q.storage) > 0 {
			tailFrame := q.storage[0].Frame.Frame
			if requestedFrame < tailFrame {
				return frameinput.FrameInput[T]{}, &BadFrameIndex{Given: requestedFrame, TailFrame: tailFrame}
			}

			idx := requestedFrame - tailFrame
			if int(idx) < len(q.storage) {
				return q.storage[idx].WithFrame(requestedFrame), nil
			}
		}

		// Start predicting: base it on the newest stored input, or on an
		// empty payload if there is nothing to base it on yet.
		if requestedFrame == 0 || len(q.storage) == 0 {
			q.prediction = frameinput.FrameInput[T]{Frame: frameinput.Of(requestedFrame)}
		} else {
			newest := q.storage[len(q.storage)-1]
			q.prediction = frameinput.FrameInput[T]{
				Frame:      frameinput.Of(newest.Frame.Frame + 1),
				Payload:    newest.Payload,
				HasPayload: newest.HasPayload,
			}
		}
	}

	return q.prediction.WithFrame(requestedFrame), nil
}

// GetConfirmed scans storage for an authoritative (non-predicted) input at
// the given frame.
func (q *Queue[T]) GetConfirmed(frame uint32) (frameinput.FrameInput[T], error) {
	if q.firstIncorrectFrame.Ok && frame > q.firstIncorrectFrame.Frame {
		return frameinput.FrameInput[T]{}, &BadFrameRequest{Given: frame, FirstIncorrectFrame: q.firstIncorrectFrame.Frame}
	}

	for _, fi := range q.storage {
		if fi.Frame.Frame == frame {
			return fi, nil
		}
	}

	return frameinput.FrameInput[T]{}, FrameNotFound(frame)
}

// DiscardConfirmedFrames drops stored entries strictly below
// min(watermark, last_frame_requested); it never discards past what the
// host has actually seen.
func (q *Queue[T]) DiscardConfirmedFrames(watermark uint32) {
	cut := watermark
	if q.lastFrameRequested.Ok && q.lastFrameRequested.Frame < cut {
		cut = q.lastFrameRequested.Frame
	}

	kept := q.storage[:0:0]
	for _, fi := range q.storage {
		if fi.Frame.Frame >= cut {
			kept = append(kept, fi)
		}
	}
	q.storage = kept
}

// ResetPrediction clears the prediction cursor. Fails if frame is ahead of
// a known-incorrect frame: the caller cannot forget a known-bad frame by
// moving past it without first rolling back to it.
func (q *Queue[T]) ResetPrediction(frame uint32) error {
	if q.firstIncorrectFrame.Ok && frame > q.firstIncorrectFrame.Frame {
		return &BadResetPrediction{Given: frame, FirstIncorrectFrame: q.firstIncorrectFrame.Frame}
	}

	q.prediction = frameinput.FrameInput[T]{}
	q.lastFrameRequested = frameinput.None()
	q.firstIncorrectFrame = frameinput.None()
	return nil
}

// Len reports how many frames are currently retained.
func (q *Queue[T]) Len() int {
	return len(q.storage)
}

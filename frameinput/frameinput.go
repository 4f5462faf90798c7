// Package frameinput defines the per-frame input value shared by the input
// queue, the synchronizer, and the wire format.
package frameinput

// OptFrame is a frame number that may be absent, e.g. "no frame yet" before
// anything has happened in a queue.
type OptFrame struct {
	Frame uint32
	Ok    bool
}

// Of returns a present OptFrame.
func Of(frame uint32) OptFrame {
	return OptFrame{Frame: frame, Ok: true}
}

// None returns the absent OptFrame.
func None() OptFrame {
	return OptFrame{}
}

// FrameInput is one player's input at one frame. The frame number and the
// payload are tracked independently: a prediction may carry a payload with
// no frame yet assigned, and a filler frame may carry a frame with no
// payload (the very first gap-filled frame in a queue).
type FrameInput[T comparable] struct {
	Frame      OptFrame
	Payload    T
	HasPayload bool
}

// New builds a FrameInput with both a frame and a payload set.
func New[T comparable](frame uint32, payload T) FrameInput[T] {
	return FrameInput[T]{Frame: Of(frame), Payload: payload, HasPayload: true}
}

// Empty builds a FrameInput with a frame but no payload.
func Empty[T comparable](frame uint32) FrameInput[T] {
	return FrameInput[T]{Frame: Of(frame)}
}

// Blank reports whether the frame number is unset, the queue's way of
// signaling "this input was dropped" without an error.
func (f FrameInput[T]) Blank() bool {
	return !f.Frame.Ok
}

// Equal compares payloads only; the frame number never participates in
// equality, since the same payload predicted at different frames is still
// the same prediction.
func (f FrameInput[T]) Equal(other FrameInput[T]) bool {
	if f.HasPayload != other.HasPayload {
		return false
	}
	if !f.HasPayload {
		return true
	}
	return f.Payload == other.Payload
}

// WithFrame returns a copy of f tagged with the given frame number. Used by
// the queue to rewrite its caller-facing frame without touching the frame
// that's actually stored internally.
func (f FrameInput[T]) WithFrame(frame uint32) FrameInput[T] {
	f.Frame = Of(frame)
	return f
}

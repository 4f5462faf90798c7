package inputqueue

import "fmt"

// NonSequentialUserInput is returned when a caller-supplied input does not
// land on last_user_added_frame+1.
type NonSequentialUserInput struct {
	Given    uint32
	Expected uint32
}

func (e *NonSequentialUserInput) Error() string {
	return fmt.Sprintf("given input with frame number %d, expected input to be for frame %d", e.Given, e.Expected)
}

// NonSequentialRollbackInput is returned when a gap-filled or predicted
// frame lands somewhere other than where the prediction cursor expects it.
// Surfacing this as an error (rather than a panic) is the conversion the
// design notes call for: the source treats this as an assertion.
type NonSequentialRollbackInput struct {
	Given    uint32
	Expected uint32
}

func (e *NonSequentialRollbackInput) Error() string {
	return fmt.Sprintf("given frame number %d, expected frame number %d", e.Given, e.Expected)
}

// BadFrameIndex is returned when Get is asked for a frame older than
// anything retained.
type BadFrameIndex struct {
	Given     uint32
	TailFrame uint32
}

func (e *BadFrameIndex) Error() string {
	return fmt.Sprintf("requested frame %d is behind the tail frame of %d", e.Given, e.TailFrame)
}

// BadFrameRequest is returned by GetConfirmed when the request is for a
// frame past the first known-incorrect frame.
type BadFrameRequest struct {
	Given               uint32
	FirstIncorrectFrame uint32
}

func (e *BadFrameRequest) Error() string {
	return fmt.Sprintf("requested frame %d is past the first incorrect frame of %d", e.Given, e.FirstIncorrectFrame)
}

// BadResetPrediction is returned by ResetPrediction when asked to forget a
// known-bad frame by moving past it.
type BadResetPrediction struct {
	Given               uint32
	FirstIncorrectFrame uint32
}

func (e *BadResetPrediction) Error() string {
	return fmt.Sprintf("requested reset at frame %d is ahead of the first incorrect frame of %d", e.Given, e.FirstIncorrectFrame)
}

// FrameNotFound is returned by GetConfirmed when the frame was never
// stored.
type FrameNotFound uint32

func (e FrameNotFound) Error() string {
	return fmt.Sprintf("requested frame %d was not found", uint32(e))
}

// ErrGetDuringPrediction signals that the queue has a known-bad prediction
// outstanding; the caller must roll back before calling Get again.
var ErrGetDuringPrediction = fmt.Errorf("attempted to get input while a prediction error is outstanding")

// ErrBadInput is returned when the caller supplies a FrameInput with no
// frame number.
var ErrBadInput = fmt.Errorf("given input with no frame number set")

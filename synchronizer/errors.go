package synchronizer

import "fmt"

// QueueError wraps an error returned by one of the underlying input
// queues, tagging it with the queue index it came from.
type QueueError struct {
	QueueIdx int
	Err      error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue %d: %v", e.QueueIdx, e.Err)
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

// BadQueueHandle is returned when a caller addresses a queue index outside
// [0, numPlayers).
type BadQueueHandle int

func (e BadQueueHandle) Error() string {
	return fmt.Sprintf("tried to address queue %d, which does not exist", int(e))
}

// PredictionBarrierReached is returned by AddLocalInput when the local
// simulation has already run as far ahead of confirmation as configured.
type PredictionBarrierReached struct {
	FramesBehind        uint32
	MaxPredictionFrames uint32
}

func (e *PredictionBarrierReached) Error() string {
	return fmt.Sprintf("prediction barrier reached: %d frames behind confirmation (max %d)", e.FramesBehind, e.MaxPredictionFrames)
}

// SimulationError is returned by PostRollback when the host did not
// advance exactly the number of frames the rollback called for.
type SimulationError struct {
	Given    uint32
	Expected uint32
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("frame count is %d after rollback replay, expected %d", e.Given, e.Expected)
}

// ErrNotInRollback is returned by PostRollback when called outside the
// rollback phase.
var ErrNotInRollback = fmt.Errorf("not currently in a rollback")

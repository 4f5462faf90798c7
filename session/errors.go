package session

import "fmt"

// InvalidState is returned when an operation is called outside the phase
// that exposes it, per the session state machine (§4.3).
type InvalidState struct {
	Op    string
	State State
}

func (e *InvalidState) Error() string {
	return fmt.Sprintf("%s is not valid in state %s", e.Op, e.State)
}

// PlayerOutOfRange is returned by AddPlayer when the player number is
// outside [1, maxPlayers] or already taken.
type PlayerOutOfRange struct {
	Number     int
	MaxPlayers int
}

func (e *PlayerOutOfRange) Error() string {
	return fmt.Sprintf("player number %d is out of range [1, %d] or already in use", e.Number, e.MaxPlayers)
}

package transport

import "github.com/keyframeio/rollback/frameinput"

// MessageType tags the wire envelope's payload variant. There is only one
// today (Input); the tag is kept so the wire format can grow without
// breaking old peers, per §6 "tagged-union packets, one tag for Input".
type MessageType uint8

const (
	MsgInput MessageType = 1
)

// NetworkMessage is the payload carried inside one packet.
type NetworkMessage[T comparable] struct {
	Type  MessageType
	Input frameinput.FrameInput[T]
}

// MakeInput builds an Input-tagged message.
func MakeInput[T comparable](input frameinput.FrameInput[T]) NetworkMessage[T] {
	return NetworkMessage[T]{Type: MsgInput, Input: input}
}

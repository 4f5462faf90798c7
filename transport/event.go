// Package transport is the thin boundary between the core and the
// underlying datagram socket: it deserializes incoming input packets,
// drains them as a uniform event stream, and hands off outbound input
// packets fire-and-forget.
//
// Grounded in shape on netplay/netplay.go's reader/writer goroutine pair
// (toRecv/toSend channels feeding a non-blocking RunFrame drain) and, for
// the wire format and event taxonomy, original_source/rback/src/network
// (message.rs, udp.rs), which layers a bincode-serialized NetworkMessage
// over the laminar UDP library's Packet/SocketEvent::{Connect,Timeout}
// events.
package transport

import "github.com/keyframeio/rollback/frameinput"

// Kind identifies the variant carried by an Event.
type Kind int

const (
	EventInput Kind = iota
	EventConnected
	EventSynchronizing
	EventSynchronized
	EventDisconnected
	EventNetworkInterrupted
	EventNetworkResumed
)

func (k Kind) String() string {
	switch k {
	case EventInput:
		return "Input"
	case EventConnected:
		return "Connected"
	case EventSynchronizing:
		return "Synchronizing"
	case EventSynchronized:
		return "Synchronized"
	case EventDisconnected:
		return "Disconnected"
	case EventNetworkInterrupted:
		return "NetworkInterrupted"
	case EventNetworkResumed:
		return "NetworkResumed"
	default:
		return "Unknown"
	}
}

// Event is the uniform stream item the adapter produces for a peer.
type Event[T comparable] struct {
	Kind  Kind
	Input frameinput.FrameInput[T]
}

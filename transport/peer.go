package transport

import (
	"net"
	"sync"
	"time"

	"github.com/keyframeio/rollback/frameinput"
)

// ConnectionStatus is the peer protocol object's connection state, exactly
// as named in §4.4: Disconnected, or LastFrame(optional frame) once at
// least one packet has arrived.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusLastFrame
)

// Peer is the per-remote-player protocol object: address, a clone of the
// adapter's outbound path, a pending-events buffer, and connection status.
type Peer[T comparable] struct {
	Addr *net.UDPAddr

	mu        sync.Mutex
	status    ConnectionStatus
	lastFrame frameinput.OptFrame
	lastSeen  time.Time
	pending   []Event[T]

	send func(NetworkMessage[T]) error
}

// SendMsg hands an outbound message to the adapter's socket,
// fire-and-forget.
func (p *Peer[T]) SendMsg(msg NetworkMessage[T]) error {
	return p.send(msg)
}

// SetFrame records frame as the last input frame received from this peer.
// The adapter drops any later incoming input at or below that frame as a
// retransmit.
func (p *Peer[T]) SetFrame(frame uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastFrame = frameinput.Of(frame)
}

// IsDisconnected reports whether the peer has timed out.
func (p *Peer[T]) IsDisconnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status == StatusDisconnected
}

// DrainEvents returns and clears the peer's pending event buffer. It never
// blocks: it returns only what has already arrived.
func (p *Peer[T]) DrainEvents() []Event[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return nil
	}
	events := p.pending
	p.pending = nil
	return events
}

func (p *Peer[T]) pushEvent(ev Event[T]) {
	p.pending = append(p.pending, ev)
}

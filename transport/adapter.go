package transport

import (
	"net"
	"sync"
	"time"
)

type rawPacket struct {
	addr *net.UDPAddr
	data []byte
}

// Adapter is the UDP boundary: one socket, many peers. Reliability and
// pacing are delegated to the OS/underlying network — this module treats
// incoming packets as idempotent, order-tolerant notifications, per §4.4.
//
// No unreliable-UDP-with-connect/timeout-event library (the Go analogue of
// the Rust source's laminar) appears anywhere in the retrieved example
// pack, so this adapter is a direct net.UDPConn wrapper rather than built
// on a third-party socket library; see DESIGN.md for the justification.
// The reader-goroutine-feeding-a-channel shape is grounded on
// netplay/netplay.go's startReader/toRecv pair.
type Adapter[T comparable] struct {
	conn              *net.UDPConn
	codec             Codec[T]
	disconnectTimeout time.Duration

	mu    sync.Mutex
	peers map[string]*Peer[T]

	incoming chan rawPacket
	stop     chan struct{}
	stopOnce sync.Once
}

// Listen opens a UDP socket on laddr and starts draining it in the
// background into an internal channel; call Poll from the host thread to
// surface what has arrived.
func Listen[T comparable](laddr string, codec Codec[T], disconnectTimeout time.Duration) (*Adapter[T], error) {
	addr, err := net.ResolveUDPAddr("udp", laddr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	a := &Adapter[T]{
		conn:              conn,
		codec:             codec,
		disconnectTimeout: disconnectTimeout,
		peers:             make(map[string]*Peer[T]),
		incoming:          make(chan rawPacket, 256),
		stop:              make(chan struct{}),
	}

	go a.readLoop()
	return a, nil
}

func (a *Adapter[T]) readLoop() {
	buf := make([]byte, 2048)
	for {
		select {
		case <-a.stop:
			return
		default:
		}

		_ = a.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue // transient read error; the peer will time out on silence if this persists
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case a.incoming <- rawPacket{addr: addr, data: data}:
		case <-a.stop:
			return
		}
	}
}

// PeerFor returns the protocol object for addr, creating one (and queuing
// a Synchronizing event) on first contact.
func (a *Adapter[T]) PeerFor(addr *net.UDPAddr) *Peer[T] {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := addr.String()
	if p, ok := a.peers[key]; ok {
		return p
	}

	p := &Peer[T]{Addr: addr, status: StatusDisconnected}
	p.send = func(msg NetworkMessage[T]) error { return a.sendTo(addr, msg) }
	p.pushEvent(Event[T]{Kind: EventSynchronizing})
	a.peers[key] = p
	return p
}

func (a *Adapter[T]) sendTo(addr *net.UDPAddr, msg NetworkMessage[T]) error {
	data, err := EncodeEnvelope(msg, a.codec)
	if err != nil {
		return err
	}
	_, err = a.conn.WriteToUDP(data, addr)
	return err
}

// Poll drains every packet that has already arrived (non-blocking) and
// checks every peer for a disconnect timeout. It is meant to be called
// once per host-thread tick, between synchronizer operations.
func (a *Adapter[T]) Poll() {
	for {
		select {
		case pkt := <-a.incoming:
			a.handlePacket(pkt)
		default:
			a.checkTimeouts()
			return
		}
	}
}

func (a *Adapter[T]) handlePacket(pkt rawPacket) {
	msg, err := DecodeEnvelope[T](pkt.data, a.codec)
	if err != nil {
		return // malformed packet: drop it, the boundary treats packets as idempotent notifications
	}

	p := a.PeerFor(pkt.addr)

	p.mu.Lock()
	defer p.mu.Unlock()

	wasDisconnected := p.status == StatusDisconnected
	firstContact := p.lastSeen.IsZero()
	p.lastSeen = time.Now()

	if wasDisconnected {
		p.status = StatusLastFrame
		p.pushEvent(Event[T]{Kind: EventConnected})
	}
	if firstContact {
		p.pushEvent(Event[T]{Kind: EventSynchronized})
	}

	switch msg.Type {
	case MsgInput:
		if msg.Input.Frame.Ok && p.lastFrame.Ok && msg.Input.Frame.Frame <= p.lastFrame.Frame {
			return // retransmit or duplicate of an earlier frame: drop
		}
		if msg.Input.Frame.Ok {
			p.lastFrame = msg.Input.Frame
		}
		p.pushEvent(Event[T]{Kind: EventInput, Input: msg.Input})
	}
}

func (a *Adapter[T]) checkTimeouts() {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range a.peers {
		p.mu.Lock()
		if p.status != StatusDisconnected && !p.lastSeen.IsZero() && now.Sub(p.lastSeen) > a.disconnectTimeout {
			p.status = StatusDisconnected
			p.pushEvent(Event[T]{Kind: EventNetworkInterrupted})
			p.pushEvent(Event[T]{Kind: EventDisconnected})
		}
		p.mu.Unlock()
	}
}

// LocalAddr returns the socket's bound address.
func (a *Adapter[T]) LocalAddr() net.Addr {
	return a.conn.LocalAddr()
}

// Close stops the reader goroutine and closes the socket.
func (a *Adapter[T]) Close() error {
	a.stopOnce.Do(func() { close(a.stop) })
	return a.conn.Close()
}

package daemon

import (
	"net"
	"sync"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// inboundMessage pairs a decoded wire message with the peer it arrived
// from, the unit of work the controller's event loop pulls off its
// inbound channel.
type inboundMessage struct {
	id  graph.NodeID
	msg wire.Message
}

// peerHandle is the pure-I/O half of a connected peer: two goroutines
// that block on the connection so the controller's single event loop
// never does. It owns nothing the controller's loop touches directly —
// readLoop only ever sends decoded messages over a channel, writeLoop
// only ever drains a peer-local pending buffer the loop appends to —
// matching the teacher's inHandler/outHandler/queueHandler split in its
// early peer.go prototype, adapted from lnwire framing to this package's
// own length-prefixed wire.Message codec and from per-message ack
// channels to a single coalescing buffer, since this core has no
// per-message delivery confirmation to give back to a caller.
type peerHandle struct {
	id   graph.NodeID
	conn net.Conn

	mu      sync.Mutex
	pending [][]byte

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

func newPeerHandle(id graph.NodeID, conn net.Conn) *peerHandle {
	return &peerHandle{
		id:   id,
		conn: conn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

// start launches the read and write goroutines. inbound receives decoded
// messages for the controller loop to dispatch; closed receives this
// peer's id once either goroutine hits a connection error, so the loop
// knows to tear it down.
func (p *peerHandle) start(inbound chan<- inboundMessage, closed chan<- graph.NodeID) {
	p.wg.Add(2)
	go p.readLoop(inbound, closed)
	go p.writeLoop(closed)
}

func (p *peerHandle) readLoop(inbound chan<- inboundMessage, closed chan<- graph.NodeID) {
	defer p.wg.Done()

	for {
		msg, err := wire.ReadMessage(p.conn)
		if err != nil {
			log.Debugf("peer %s: read loop ending: %v", p.id, err)
			p.signalClosed(closed)
			return
		}

		select {
		case inbound <- inboundMessage{id: p.id, msg: msg}:
		case <-p.quit:
			return
		}
	}
}

func (p *peerHandle) writeLoop(closed chan<- graph.NodeID) {
	defer p.wg.Done()

	for {
		select {
		case <-p.wake:
			for _, frame := range p.drain() {
				if _, err := p.conn.Write(frame); err != nil {
					log.Debugf("peer %s: write loop ending: %v", p.id, err)
					p.signalClosed(closed)
					return
				}
			}
		case <-p.quit:
			return
		}
	}
}

func (p *peerHandle) drain() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending
	p.pending = nil
	return out
}

// enqueue appends already wire-framed messages to this peer's pending
// write buffer and wakes the write loop. Called only from the
// controller's event loop, after it has drained the peer's session via
// DumpGossip/Outbound — the session itself is never touched from here.
func (p *peerHandle) enqueue(frames [][]byte) {
	if len(frames) == 0 {
		return
	}

	p.mu.Lock()
	p.pending = append(p.pending, frames...)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *peerHandle) signalClosed(closed chan<- graph.NodeID) {
	p.closeOnce.Do(func() {
		select {
		case closed <- p.id:
		case <-p.quit:
		}
	})
}

// close tears down both I/O goroutines and the underlying connection.
// Safe to call more than once.
func (p *peerHandle) close() {
	select {
	case <-p.quit:
	default:
		close(p.quit)
	}
	p.conn.Close()
	p.wg.Wait()
}

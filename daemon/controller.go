// Package daemon implements the controller of spec §4.6: the peer
// table, the timer wheel (broadcast flush, keepalive/prune refresh),
// and the parent-process/connection-daemon control endpoints, wired on
// top of the graph, gossip session, and local-channel packages. Per
// spec §5's single-threaded cooperative model, every mutation of the
// graph or of a peer's session happens inside Run's select loop; the
// exported command methods below are synchronous calls from other
// goroutines (the parent/connd dispatch loops in cmd/gossipd) that hand
// a closure to that loop and block for its result — the same
// request/closure-over-a-channel shape the teacher's htlcswitch uses to
// get packets and queries into its own single-goroutine switch without
// a lock, adapted here from a fire-and-forget packet send to a blocking
// call/reply.
package daemon

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/gossip"
	"github.com/vince06fr/lightning/localchan"
	"github.com/vince06fr/lightning/wire"
)

// Controller satisfies localchan.PeerSender itself: the local-channel
// path's private-update delivery reaches directly into the peer table
// this package owns.
var _ localchan.PeerSender = (*Controller)(nil)

// outboundBatchSize caps how many already-queued frames pump drains
// from a session's outbound queue into its peerHandle per call; the
// session's own queue is unbounded and never drops, so this only bounds
// how much memory a single pump call copies at once.
const outboundBatchSize = 256

// Config carries the daemon-wide parameters spec §6 lists under
// "Configuration at init" that this controller needs directly (the
// rest — local_node_id, globalfeatures, rgb, alias, addresses — shape
// localchan.NodeIdentity instead, built by config/ before NewController
// is called).
type Config struct {
	BroadcastInterval time.Duration
	PruneTimeout      time.Duration
	BanThreshold      uint64
}

// peerEntry bundles a connected peer's pure-I/O handle with its gossip
// session and the staggered-flush deadline the controller's sweep loop
// tracks for it.
type peerEntry struct {
	handle  *peerHandle
	session *gossip.Session

	hasDeadline   bool
	flushDeadline time.Time
}

// Controller is the daemon's single event loop owner. Its only exported
// field is Fatal; every other interaction goes through a method, which either runs
// synchronously on the caller (pure reads requiring no shared state) or
// is dispatched into Run via do.
type Controller struct {
	cfg Config

	graph *graph.Graph
	local *localchan.Controller
	bans  *gossip.BanTracker
	clock clock.Clock

	peers map[graph.NodeID]*peerEntry

	unroutable map[wire.ShortChannelID]time.Time

	inbound chan inboundMessage
	closed  chan graph.NodeID
	cmds    chan func(*Controller)

	refreshTicker ticker.Ticker
	flushTicker   ticker.Ticker

	// Fatal is signaled once with a tier-4 fatal error (spec §7); the
	// process entrypoint reads it and exits. Buffered by one so fatal
	// never blocks on a reader that hasn't started yet.
	Fatal chan error

	quit     chan struct{}
	stopOnce sync.Once
}

// NewController wires a controller around an already-constructed graph.
// It builds the local-channel controller itself, passing itself as that
// controller's PeerSender — Controller is the only thing in this
// repository that knows how to reach a connected peer's session
// directly, so the dependency runs graph -> localchan.Controller ->
// Controller and back into Controller.SendToPeer, not the other way.
// refreshTicker fires at cfg.PruneTimeout/4 (spec §4.5's keepalive/prune
// cadence); flushTicker fires at a resolution fine enough to observe
// each peer's jittered broadcast deadline promptly — callers typically
// use cfg.BroadcastInterval/4.
func NewController(cfg Config, g *graph.Graph, chainHash chainhash.Hash, identity localchan.NodeIdentity, signer localchan.Signer, bans *gossip.BanTracker, clk clock.Clock, refreshTicker, flushTicker ticker.Ticker) *Controller {
	c := &Controller{
		cfg:           cfg,
		graph:         g,
		bans:          bans,
		clock:         clk,
		peers:         make(map[graph.NodeID]*peerEntry),
		unroutable:    make(map[wire.ShortChannelID]time.Time),
		inbound:       make(chan inboundMessage, 64),
		closed:        make(chan graph.NodeID, 16),
		cmds:          make(chan func(*Controller)),
		refreshTicker: refreshTicker,
		flushTicker:   flushTicker,
		Fatal:         make(chan error, 1),
		quit:          make(chan struct{}),
	}
	c.local = localchan.NewController(chainHash, identity, g, signer, c)
	return c
}

// Run is the controller's event loop. It blocks until Stop is called.
func (c *Controller) Run() {
	c.refreshTicker.Resume()
	c.flushTicker.Resume()
	defer c.refreshTicker.Stop()
	defer c.flushTicker.Stop()

	for {
		select {
		case fn := <-c.cmds:
			fn(c)

		case im := <-c.inbound:
			c.handleInbound(im)

		case id := <-c.closed:
			c.teardownPeer(id)

		case now := <-c.refreshTicker.Ticks():
			c.runRefresh(now)

		case now := <-c.flushTicker.Ticks():
			c.sweepFlush(now)

		case <-c.quit:
			return
		}
	}
}

// Stop ends Run and tears down every connected peer.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
	})
	for _, entry := range c.peers {
		entry.handle.close()
	}
}

// do runs fn on the Run goroutine and blocks until it completes,
// exactly the synchronous-RPC-over-a-channel shape every exported
// command method below uses to reach into controller-owned state
// without a mutex.
func (c *Controller) do(fn func(*Controller)) {
	done := make(chan struct{})
	select {
	case c.cmds <- func(ctrl *Controller) {
		fn(ctrl)
		close(done)
	}:
	case <-c.quit:
		return
	}

	select {
	case <-done:
	case <-c.quit:
	}
}

func (c *Controller) handleInbound(im inboundMessage) {
	entry, ok := c.peers[im.id]
	if !ok {
		return
	}

	err := entry.session.OnMessage(im.msg, c.clock.Now())

	if err == nil {
		if _, ok := im.msg.(*wire.ChannelUpdate); ok {
			if nerr := c.local.MaybeSendNodeAnnounce(c.clock.Now()); nerr != nil {
				c.reportLocalError(nerr)
			}
		}
	}

	c.pump(im.id)

	if err != nil {
		log.Warnf("peer %s: %v", im.id, err)
		c.teardownPeer(im.id)
	}
}

func (c *Controller) teardownPeer(id graph.NodeID) {
	entry, ok := c.peers[id]
	if !ok {
		return
	}
	delete(c.peers, id)
	entry.handle.close()
	c.graph.DisableChannelsForPeer(c.local.LocalNodeID(), id)
	log.Infof("peer %s disconnected", id)
}

// pump drains as much progress as a peer's session has to give right
// now (spec §4.4's dump_gossip, called until it reports no progress)
// and hands the resulting frames to the peer's write goroutine. If the
// session is left waiting on a flush timer and none is armed yet, one
// is armed at this peer's jittered phase.
func (c *Controller) pump(id graph.NodeID) {
	entry, ok := c.peers[id]
	if !ok {
		return
	}

	for entry.session.DumpGossip() {
	}

	for {
		frames := entry.session.Outbound(outboundBatchSize)
		if len(frames) == 0 {
			break
		}
		entry.handle.enqueue(frames)
	}

	if entry.session.FlushPending() {
		if !entry.hasDeadline {
			c.armFlush(id, entry, c.clock.Now())
		}
	} else {
		entry.hasDeadline = false
	}
}

func (c *Controller) armFlush(id graph.NodeID, entry *peerEntry, now time.Time) {
	entry.flushDeadline = now.Add(jitteredInterval(id, c.cfg.BroadcastInterval))
	entry.hasDeadline = true
}

// sweepFlush is the flush ticker's handler: for every peer whose session
// is waiting on a flush timer, arm one if it doesn't have one yet, or
// clear it and re-pump if its deadline has passed.
func (c *Controller) sweepFlush(now time.Time) {
	for id, entry := range c.peers {
		if !entry.session.FlushPending() {
			entry.hasDeadline = false
			continue
		}
		if !entry.hasDeadline {
			c.armFlush(id, entry, now)
			continue
		}
		if !now.Before(entry.flushDeadline) {
			entry.session.ClearFlushTimer()
			entry.hasDeadline = false
			c.pump(id)
		}
	}
}

// jitteredInterval derives a per-peer phase from the node id's leading
// byte so every peer's broadcast flush lands at a different point in
// the cycle instead of bursting in lockstep, the Go-idiomatic stand-in
// for the original's per-peer timer offset.
func jitteredInterval(id graph.NodeID, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	phase := time.Duration(id[0]) * base / 256
	return base/2 + phase/2
}

// runRefresh is the refresh ticker's handler: spec §4.5's keepalive/prune
// cadence plus ban-tracker decay, then a re-pump of every peer since the
// prune/keepalive pass may have appended new broadcast log entries.
func (c *Controller) runRefresh(now time.Time) {
	c.bans.Purge(now)

	sent, pruned, err := c.local.Refresh(now, c.cfg.PruneTimeout)
	if err != nil {
		c.reportLocalError(err)
	}
	if sent > 0 {
		log.Debugf("refresh: sent %d keepalive channel_updates", sent)
	}
	if len(pruned) > 0 {
		log.Infof("refresh: pruned %d stale channels", len(pruned))
	}

	for id := range c.peers {
		c.pump(id)
	}
}

// reportLocalError logs a local-channel-path error, escalating to fatal
// if it's the tier-4 ingestion-rejection condition spec §7 describes.
func (c *Controller) reportLocalError(err error) {
	var rejected *graph.ErrLocalIngestionRejected
	if errors.As(err, &rejected) {
		c.fatal(err)
		return
	}
	log.Errorf("local channel update path: %v", err)
}

func (c *Controller) fatal(err error) {
	log.Errorf("fatal: %v", err)
	select {
	case c.Fatal <- err:
	default:
	}
}

// NewPeer admits a new peer connection per spec §4.6's new_peer handling:
// any existing peer with this id is evicted first, a fresh session is
// created with the negotiated features' initial cursor, and the
// connection daemon's end of an in-process net.Pipe is returned.
//
// A real connection daemon hands the core one end of an OS socketpair
// via SCM_RIGHTS fd-passing (spec §6); net.Pipe is the deliberate
// in-process stand-in for that hop, documented in DESIGN.md, since real
// fd-passing is platform-specific and this repository has no process
// boundary to pass a descriptor across in its own tests.
func (c *Controller) NewPeer(id graph.NodeID, gossipQueries, initialRoutingSync bool) net.Conn {
	var connd net.Conn
	c.do(func(ctrl *Controller) {
		connd = ctrl.newPeerLocked(id, gossipQueries, initialRoutingSync)
	})
	return connd
}

// SendToPeer implements localchan.PeerSender: it delivers framed
// directly to node's outbound queue, bypassing the graph and broadcast
// log entirely, for the private-channel-update path (spec §4.5 point
// 3). Only ever called from within Run's loop, since it's reached
// through a localchan.Controller method that is itself always invoked
// from inside a do() closure.
func (c *Controller) SendToPeer(node graph.NodeID, framed []byte) bool {
	entry, ok := c.peers[node]
	if !ok {
		return false
	}
	entry.session.SendRaw(framed)
	c.pump(node)
	return true
}

func (c *Controller) newPeerLocked(id graph.NodeID, gossipQueries, initialRoutingSync bool) net.Conn {
	if existing, ok := c.peers[id]; ok {
		delete(c.peers, id)
		existing.handle.close()
		c.graph.DisableChannelsForPeer(c.local.LocalNodeID(), id)
	}

	core, connd := net.Pipe()

	session := gossip.NewSession(id, c.graph, c.bans, gossipQueries, initialRoutingSync)
	handle := newPeerHandle(id, core)
	handle.start(c.inbound, c.closed)

	c.peers[id] = &peerEntry{handle: handle, session: session}

	log.Infof("admitted peer %s (gossip_queries=%v initial_routing_sync=%v)", id, gossipQueries, initialRoutingSync)

	c.pump(id)

	return connd
}

package graph

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/wire"
)

// pendingChannel is a channel whose announcement validated but whose
// funding output has not yet been confirmed on-chain. It is promoted
// into the graph proper by ResolvePending, or dropped if the txout
// lookup fails.
type pendingChannel struct {
	msg *wire.ChannelAnnouncement
}

// Graph is the in-memory routing graph plus its attached broadcast log.
// It is single-owner state: only the daemon controller's event loop
// calls its mutating methods, so no internal locking is needed (see
// spec's single-threaded cooperative concurrency model).
type Graph struct {
	chainHash chainhash.Hash

	channels map[wire.ShortChannelID]*Channel
	nodes    map[NodeID]*Node
	pending  map[wire.ShortChannelID]*pendingChannel

	Log *BroadcastLog
}

// New returns an empty graph scoped to chainHash; any announcement whose
// own chain hash doesn't match this one is rejected.
func New(chainHash chainhash.Hash) *Graph {
	return &Graph{
		chainHash: chainHash,
		channels:  make(map[wire.ShortChannelID]*Channel),
		nodes:     make(map[NodeID]*Node),
		pending:   make(map[wire.ShortChannelID]*pendingChannel),
		Log:       NewBroadcastLog(),
	}
}

// ChainHash returns the chain this graph is scoped to, for collaborators
// that need to validate an incoming query or filter's chain hash before
// consulting the graph at all.
func (g *Graph) ChainHash() chainhash.Hash {
	return g.chainHash
}

func (g *Graph) nodeOrCreate(id NodeID) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = newNode(id)
		g.nodes[id] = n
	}
	return n
}

// Channel looks up a graph-resident channel by its short channel id.
func (g *Graph) Channel(scid wire.ShortChannelID) (*Channel, bool) {
	c, ok := g.channels[scid]
	return c, ok
}

// Node looks up a node by id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node currently known to the graph, sorted by id,
// for the daemon controller's `getnodes` parent command (spec §4.6).
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Less(out[j].ID)
	})
	return out
}

// Channels returns every channel currently in the graph, public or
// private, sorted by scid, for the `getchannels` parent command.
func (g *Graph) Channels() []*Channel {
	out := make([]*Channel, 0, len(g.channels))
	for _, c := range g.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SCID.Less(out[j].SCID)
	})
	return out
}

// IngestChannelAnnouncement validates msg's four signatures and chain
// hash. On success it does not yet add the channel to the graph: the
// funding output must be confirmed first via ResolvePending, per spec
// §3's invariant that a channel is graph-resident iff its announcement
// validated AND the funding output confirmed.
func (g *Graph) IngestChannelAnnouncement(msg *wire.ChannelAnnouncement) (*wire.ShortChannelID, error) {
	if msg.ChainHash != g.chainHash {
		return nil, ErrChainHashMismatch
	}

	if _, exists := g.channels[msg.ShortChannelID]; exists {
		return nil, ErrChannelAlreadyExists
	}

	data, err := msg.DataToSign()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	for _, check := range []struct {
		pubKey [33]byte
		sig    wire.Sig
	}{
		{msg.NodeID1, msg.NodeSig1},
		{msg.NodeID2, msg.NodeSig2},
		{msg.BitcoinKey1, msg.BitcoinSig1},
		{msg.BitcoinKey2, msg.BitcoinSig2},
	} {
		if err := verifyDigestSig(check.pubKey, data, check.sig); err != nil {
			return nil, err
		}
	}

	g.pending[msg.ShortChannelID] = &pendingChannel{msg: msg}

	scid := msg.ShortChannelID
	return &scid, nil
}

// ResolvePending promotes a pending channel announcement into a graph-
// resident Channel once the controller has confirmed the funding output
// on-chain. satoshis and the output script come from that txout lookup;
// script is unused here beyond being the caller's confirmation that the
// output matches the announced bitcoin keys, and is accepted as a
// parameter so a future validation hook has somewhere to plug in.
func (g *Graph) ResolvePending(scid wire.ShortChannelID, satoshis uint64, script []byte) error {
	pc, ok := g.pending[scid]
	if !ok {
		return ErrPendingChannelNotFound
	}
	delete(g.pending, scid)

	msg := pc.msg

	node1 := NodeIDFromBytes(msg.NodeID1)
	node2 := NodeIDFromBytes(msg.NodeID2)

	c := &Channel{
		SCID:     scid,
		Node1:    node1,
		Node2:    node2,
		Satoshis: satoshis,
		Half:     [2]HalfChannel{{LastTimestamp: -1}, {LastTimestamp: -1}},
	}
	g.channels[scid] = c

	g.nodeOrCreate(node1).Channels[scid] = struct{}{}
	g.nodeOrCreate(node2).Channels[scid] = struct{}{}

	return nil
}

// DropPending discards a pending channel_announcement whose funding
// output the controller's txout lookup failed to confirm (spent, never
// existed, or wrong script), so it never gets promoted into the graph.
func (g *Graph) DropPending(scid wire.ShortChannelID) bool {
	if _, ok := g.pending[scid]; !ok {
		return false
	}
	delete(g.pending, scid)
	return true
}

// ConfirmChannel resolves a pending channel_announcement once the
// controller has confirmed its funding output on-chain (the
// `get_txout_reply` round trip of spec §4.6), then immediately makes the
// channel publicly visible. channel_announcement carries no timestamp of
// its own, so now stands in as the broadcast log entry's timestamp, the
// same role the confirmation time plays in the original's gossip store.
// Returns the framed announcement bytes now cached on the channel and
// appended to the broadcast log.
func (g *Graph) ConfirmChannel(scid wire.ShortChannelID, satoshis uint64, script []byte, now time.Time) ([]byte, error) {
	pc, ok := g.pending[scid]
	if !ok {
		return nil, ErrPendingChannelNotFound
	}
	msg := pc.msg

	if err := g.ResolvePending(scid, satoshis, script); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := wire.WriteMessage(&buf, msg); err != nil {
		return nil, err
	}
	raw := buf.Bytes()

	if err := g.SetChannelAnnouncement(scid, raw, uint32(now.Unix())); err != nil {
		return nil, err
	}

	return raw, nil
}

// IngestNodeAnnouncement validates msg's signature and timestamp
// monotonicity, then replaces the cached announcement and metadata for
// its node. Every acceptance appends exactly one broadcast log entry.
func (g *Graph) IngestNodeAnnouncement(msg *wire.NodeAnnouncement, rawBytes []byte) error {
	data, err := msg.DataToSign()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if err := verifyDigestSig(msg.NodeID, data, msg.Signature); err != nil {
		return err
	}

	id := NodeIDFromBytes(msg.NodeID)
	n := g.nodeOrCreate(id)

	if n.HasAnnouncement() && int64(msg.Timestamp) <= n.LastTimestamp {
		return ErrStaleTimestamp
	}

	n.LastTimestamp = int64(msg.Timestamp)
	n.Alias = msg.Alias
	n.RGB = [3]byte{msg.RGBColor.R, msg.RGBColor.G, msg.RGBColor.B}
	n.GlobalFeatures = msg.Features
	n.Addresses = msg.Addresses
	n.Announcement = rawBytes
	n.AnnouncementIndex = g.Log.Append(msg.Timestamp, rawBytes)

	return nil
}

// IngestChannelUpdate validates the signature of the claimed direction's
// node, rejects stale timestamps, updates the half-channel, and appends
// to the broadcast log. The endpoint the update claims to describe, and
// whose key must have signed it, comes from ChannelFlags' direction bit
// (msg.IsNode2()).
func (g *Graph) IngestChannelUpdate(msg *wire.ChannelUpdate, rawBytes []byte) error {
	if msg.ChainHash != g.chainHash {
		return ErrChainHashMismatch
	}

	c, ok := g.channels[msg.ShortChannelID]
	if !ok {
		return ErrUnknownChannel
	}

	dir := dirNode1
	signerNode := c.Node1
	if msg.IsNode2() {
		dir = dirNode2
		signerNode = c.Node2
	}

	data, err := msg.DataToSign()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := verifyDigestSig([33]byte(signerNode), data, msg.Signature); err != nil {
		return err
	}

	half := &c.Half[dir]
	if half.Defined() && int64(msg.Timestamp) <= half.LastTimestamp {
		return ErrStaleTimestamp
	}

	half.LastTimestamp = int64(msg.Timestamp)
	half.MessageFlags = uint8(msg.MessageFlags)
	half.ChannelFlags = uint8(msg.ChannelFlags)
	half.CltvDelta = msg.TimeLockDelta
	half.HtlcMinMsat = msg.HtlcMinimumMsat
	half.HtlcMaxMsat = msg.HtlcMaximumMsat
	half.BaseFeeMsat = msg.BaseFee
	half.ProportionalFeePPM = msg.FeeProportionalMillionths
	half.RawUpdate = rawBytes

	g.Log.Append(msg.Timestamp, rawBytes)

	return nil
}

// SetChannelAnnouncement attaches the cached, signed announcement bytes
// to a resolved channel and appends them to the broadcast log, making
// the channel visible to scid-query and range-query replies and to the
// staggered fan-out. Called once ResolvePending has succeeded and the
// controller has the raw announcement bytes on hand (it validated them
// in IngestChannelAnnouncement but the bytes themselves are only kept by
// the caller, per spec's "cached signed channel_announcement bytes"
// field).
func (g *Graph) SetChannelAnnouncement(scid wire.ShortChannelID, rawBytes []byte, timestamp uint32) error {
	c, ok := g.channels[scid]
	if !ok {
		return ErrUnknownChannel
	}
	c.Announcement = rawBytes
	g.Log.Append(timestamp, rawBytes)
	return nil
}

// FilterChannelRange returns every graph-resident, publicly-announced
// channel whose block height falls in [firstBlock, firstBlock+numBlocks),
// sorted by short channel id.
func (g *Graph) FilterChannelRange(firstBlock, numBlocks uint32) []wire.ShortChannelID {
	last := (&wire.QueryChannelRange{
		FirstBlockHeight: firstBlock,
		NumBlocks:        numBlocks,
	}).LastBlockHeight()

	var out []wire.ShortChannelID
	for scid, c := range g.channels {
		if !c.IsPublic() {
			continue
		}
		if scid.BlockHeight >= firstBlock && scid.BlockHeight <= last {
			out = append(out, scid)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Less(out[j])
	})

	return out
}

// DisableChannelsForPeer sets LocalDisabled on every channel whose other
// endpoint is the given peer's node, without removing them from the
// graph. Used when a peer's connection is torn down (spec §4.6).
func (g *Graph) DisableChannelsForPeer(localNode NodeID, peerNode NodeID) {
	n, ok := g.nodes[peerNode]
	if !ok {
		return
	}
	for scid := range n.Channels {
		c, ok := g.channels[scid]
		if !ok {
			continue
		}
		if c.Node1 == localNode || c.Node2 == localNode {
			c.LocalDisabled = true
		}
	}
}

// DeleteChannel removes scid from the graph unconditionally, public or
// private, and drops it from both endpoints' node entries. Called by the
// daemon controller on an `outpoint_spent` notification (spec §3's
// lifecycle: "destroyed on outpoint_spent"), which is an on-chain fact
// the graph has no way to observe on its own.
func (g *Graph) DeleteChannel(scid wire.ShortChannelID) bool {
	c, ok := g.channels[scid]
	if !ok {
		return false
	}
	delete(g.channels, scid)
	if n, ok := g.nodes[c.Node1]; ok {
		delete(n.Channels, scid)
	}
	if n, ok := g.nodes[c.Node2]; ok {
		delete(n.Channels, scid)
	}
	return true
}

// NextBroadcast is a thin pass-through to the attached broadcast log,
// exposed here so collaborators outside this package (the peer session)
// depend only on Graph's own interface rather than reaching into its
// Log field directly.
func (g *Graph) NextBroadcast(index uint64, tsMin, tsMax uint32) ([]byte, uint64, bool) {
	return g.Log.NextAfter(index, tsMin, tsMax)
}

// NextBroadcastIndex returns the index that will be assigned to the next
// broadcast log entry, used to admit a peer that gets no history replay
// (no gossip_queries, no initial_routing_sync): it starts caught up.
func (g *Graph) NextBroadcastIndex() uint64 {
	return g.Log.NextIndex()
}

// Prune removes every publicly-announced channel both of whose
// half-channels are undefined or have gone stale (last_timestamp older
// than pruneTimeout), invoked from the daemon's keepalive/refresh timer
// per spec §4.5. A channel with even one live direction survives, since a
// route only needs one usable direction to be worth keeping. Private
// (unannounced) channels are never pruned here: they have no broadcast
// entry to expire and their lifecycle is owned by the connection that
// created them, not by gossip staleness.
func (g *Graph) Prune(now time.Time, pruneTimeout time.Duration) []wire.ShortChannelID {
	cutoff := now.Unix() - int64(pruneTimeout/time.Second)

	var pruned []wire.ShortChannelID
	for scid, c := range g.channels {
		if !c.IsPublic() {
			continue
		}

		stale := true
		for i := range c.Half {
			h := &c.Half[i]
			if h.Defined() && h.LastTimestamp >= cutoff {
				stale = false
				break
			}
		}
		if !stale {
			continue
		}

		pruned = append(pruned, scid)
		delete(g.channels, scid)
		if n, ok := g.nodes[c.Node1]; ok {
			delete(n.Channels, scid)
		}
		if n, ok := g.nodes[c.Node2]; ok {
			delete(n.Channels, scid)
		}
	}

	sort.Slice(pruned, func(i, j int) bool {
		return pruned[i].Less(pruned[j])
	})

	return pruned
}

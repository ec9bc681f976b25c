// Package localchan implements the local-channel update path (spec §4.5):
// building and signing this node's own channel_update and node_announcement
// messages, routing them to the graph or directly to a peer depending on
// whether the channel is public yet, and the keepalive/prune refresh timer
// that keeps a locally-owned channel's advertised policy from going stale.
package localchan

import (
	"net"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// NodeIdentity is this node's own gossip identity, set once at startup
// from configuration (spec §6, "Configuration at init") and used to build
// both the node_announcement and every channel_update's ChainHash field.
type NodeIdentity struct {
	ID             graph.NodeID
	GlobalFeatures *wire.RawFeatureVector
	RGB            [3]byte
	Alias          wire.NodeAlias
	Addresses      []net.Addr
}

// Controller owns the local-channel update path for one running daemon.
// It has no goroutines of its own: the daemon's event loop calls its
// methods in response to a parent command, an ingested gossip message, or
// a fired timer, matching the cooperative single-threaded concurrency
// model spec §5 describes.
type Controller struct {
	chainHash chainhash.Hash
	id        NodeIdentity

	graph  GraphBackend
	signer Signer
	peers  PeerSender

	// localChannelAnnounced mirrors the original daemon's
	// rstate->local_channel_announced: set whenever a local channel
	// becomes publicly announced, cleared once a node_announcement has
	// gone out to reflect it. MaybeSendNodeAnnounce is a no-op until
	// this is true, since announcing a node with no public channels
	// gives routers nothing to attach it to.
	localChannelAnnounced bool
}

// NewController builds a Controller for the given local identity.
func NewController(chainHash chainhash.Hash, id NodeIdentity, g GraphBackend, s Signer, p PeerSender) *Controller {
	return &Controller{
		chainHash: chainHash,
		id:        id,
		graph:     g,
		signer:    s,
		peers:     p,
	}
}

// LocalNodeID returns the node id this controller announces updates and
// node_announcements under, for collaborators (the daemon controller)
// that need it to resolve a channel's local-vs-remote endpoint.
func (c *Controller) LocalNodeID() graph.NodeID {
	return c.id.ID
}

// NotifyLocalChannelAnnounced records that a local channel has just
// become publicly announced, arming the node-announcement redundancy
// check the next time it's consulted. Called by the daemon after
// SetChannelAnnouncement succeeds for a channel this node is a party to.
func (c *Controller) NotifyLocalChannelAnnounced() {
	c.localChannelAnnounced = true
}

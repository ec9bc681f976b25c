package localchan

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// GraphBackend is the narrow slice of the routing graph this package
// needs: channel/node lookup, the two ingestion entry points a locally-
// produced announcement or update can go through, and chain-hash lookup
// for building outbound messages. Mirrors the same collaborator-interface
// boundary gossip.GraphBackend draws against *graph.Graph.
type GraphBackend interface {
	ChainHash() chainhash.Hash

	Channel(scid wire.ShortChannelID) (*graph.Channel, bool)
	Node(id graph.NodeID) (*graph.Node, bool)

	IngestChannelUpdate(msg *wire.ChannelUpdate, rawBytes []byte) error
	IngestNodeAnnouncement(msg *wire.NodeAnnouncement, rawBytes []byte) error

	Prune(now time.Time, pruneTimeout time.Duration) []wire.ShortChannelID
}

var _ GraphBackend = (*graph.Graph)(nil)

// Signer is the round trip this package needs from the signer channel
// client (spec §6): an unsigned node_announcement gets back just a
// signature, while an unsigned channel_update gets back the complete
// signed message bytes.
type Signer interface {
	SignNodeAnnouncement(unsigned []byte) (wire.Sig, error)
	SignChannelUpdate(unsigned []byte) ([]byte, error)
}

// PeerSender delivers a fully-framed message directly to a connected
// peer, bypassing the graph and broadcast log entirely. Used for private
// channel updates, which must never enter the broadcast log (spec §4.5
// point 3). ok is false if the node has no live connection right now, in
// which case the update is simply dropped; nothing queues it or sends it
// again when the peer reconnects.
type PeerSender interface {
	SendToPeer(node graph.NodeID, framed []byte) (ok bool)
}

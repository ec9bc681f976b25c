package gossip

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// GraphBackend is the routing-graph boundary a peer session consumes. It
// is satisfied by *graph.Graph; sessions depend on this narrow interface
// rather than the concrete type so tests can substitute an in-memory
// fake, following the collaborator-interface pattern the teacher uses
// for its own ChannelGraphSource/GraphCloser boundaries.
type GraphBackend interface {
	ChainHash() chainhash.Hash

	IngestChannelAnnouncement(msg *wire.ChannelAnnouncement) (*wire.ShortChannelID, error)
	IngestNodeAnnouncement(msg *wire.NodeAnnouncement, rawBytes []byte) error
	IngestChannelUpdate(msg *wire.ChannelUpdate, rawBytes []byte) error

	Channel(scid wire.ShortChannelID) (*graph.Channel, bool)
	Node(id graph.NodeID) (*graph.Node, bool)

	FilterChannelRange(firstBlock, numBlocks uint32) []wire.ShortChannelID

	NextBroadcast(index uint64, tsMin, tsMax uint32) (payload []byte, newIndex uint64, ok bool)
	NextBroadcastIndex() uint64
}

var _ GraphBackend = (*graph.Graph)(nil)

package graph

import (
	"net"

	"github.com/vince06fr/lightning/wire"
)

// Node is a node's latest known public identity: its address list,
// display metadata, and the set of channels it's known to be party to.
type Node struct {
	ID NodeID

	// LastTimestamp is -1 until a node_announcement has been ingested
	// for this node; must always match the timestamp embedded in
	// Announcement once one exists.
	LastTimestamp int64

	Alias          wire.NodeAlias
	RGB            [3]byte
	GlobalFeatures *wire.RawFeatureVector
	Addresses      []net.Addr

	// AnnouncementIndex is the broadcast log index of the cached
	// announcement. The log's first entry has index 0, so a zero value
	// does not by itself mean "never announced"; HasAnnouncement does.
	AnnouncementIndex uint64

	Announcement []byte

	// Channels is the set of SCIDs this node is known to be party to,
	// kept in sync as channels are created and destroyed.
	Channels map[wire.ShortChannelID]struct{}
}

func newNode(id NodeID) *Node {
	return &Node{
		ID:            id,
		LastTimestamp: -1,
		Channels:      make(map[wire.ShortChannelID]struct{}),
	}
}

// HasAnnouncement reports whether this node has ever had a
// node_announcement applied.
func (n *Node) HasAnnouncement() bool {
	return n.LastTimestamp >= 0
}

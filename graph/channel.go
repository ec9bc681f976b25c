package graph

import "github.com/vince06fr/lightning/wire"

// direction indexes a channel's two endpoints/half-channels. Node1 always
// holds the numerically-lesser NodeID, matching BOLT-07's canonical
// ordering for channel_announcement.
type direction uint8

const (
	dirNode1 direction = 0
	dirNode2 direction = 1
)

// Channel is a funded, graph-resident channel: its two endpoints, the two
// half-channel policies, and the cached public announcement (if any).
type Channel struct {
	SCID wire.ShortChannelID

	Node1, Node2 NodeID

	Satoshis uint64

	Half [2]HalfChannel

	// LocalDisabled is set when the local peer owning this channel has
	// gone away, or by local_channel_close; it does not remove the
	// channel from the graph, only marks the local side unusable. Nothing
	// clears it again, including the peer reconnecting.
	LocalDisabled bool

	// Announcement is the cached signed channel_announcement wire
	// bytes, or nil if this channel has not been publicly announced
	// (e.g. it's a private/unannounced local channel).
	Announcement []byte
}

// DirectionOf returns which index (0 or 1) the given node occupies in
// this channel, and whether it is an endpoint at all.
func (c *Channel) DirectionOf(n NodeID) (direction, bool) {
	switch n {
	case c.Node1:
		return dirNode1, true
	case c.Node2:
		return dirNode2, true
	default:
		return 0, false
	}
}

// OtherEndpoint returns the node at the far end of the channel from n.
func (c *Channel) OtherEndpoint(n NodeID) (NodeID, bool) {
	switch n {
	case c.Node1:
		return c.Node2, true
	case c.Node2:
		return c.Node1, true
	default:
		return NodeID{}, false
	}
}

// IsPublic reports whether this channel has a cached announcement and
// can therefore be served to any peer.
func (c *Channel) IsPublic() bool {
	return c.Announcement != nil
}

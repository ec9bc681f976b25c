package localchan

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

func newTestIdentity(localID graph.NodeID) NodeIdentity {
	alias, _ := wire.NewNodeAlias("test-node")
	return NodeIdentity{
		ID:             localID,
		GlobalFeatures: wire.NewRawFeatureVector(),
		RGB:            [3]byte{1, 2, 3},
		Alias:          alias,
		Addresses:      []net.Addr{&net.TCPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 9735}},
	}
}

func TestMaybeSendNodeAnnounceNoOpWithoutLocalChannelAnnounced(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, newTestIdentity(localID), g, s, newFakePeerSender(true))

	err := c.MaybeSendNodeAnnounce(time.Unix(1000, 0))
	require.NoError(t, err)
	require.Zero(t, s.nodeAnnouncementCalls)
}

func TestMaybeSendNodeAnnounceSendsFirstTime(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, newTestIdentity(localID), g, s, newFakePeerSender(true))
	c.NotifyLocalChannelAnnounced()

	err := c.MaybeSendNodeAnnounce(time.Unix(1000, 0))
	require.NoError(t, err)
	require.Equal(t, 1, s.nodeAnnouncementCalls)
	require.Len(t, g.ingestedAnnouncements, 1)

	n, ok := g.Node(localID)
	require.True(t, ok)
	require.EqualValues(t, 1000, n.LastTimestamp)

	// The flag resets once the announcement has gone out.
	require.False(t, c.localChannelAnnounced)
}

func TestMaybeSendNodeAnnounceRedundantWhenNothingChanged(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, newTestIdentity(localID), g, s, newFakePeerSender(true))
	c.NotifyLocalChannelAnnounced()
	require.NoError(t, c.MaybeSendNodeAnnounce(time.Unix(1000, 0)))
	require.Equal(t, 1, s.nodeAnnouncementCalls)

	// Announce a local channel again with the identical identity: the
	// redundancy check should suppress a second send.
	c.NotifyLocalChannelAnnounced()
	require.NoError(t, c.MaybeSendNodeAnnounce(time.Unix(2000, 0)))
	require.Equal(t, 1, s.nodeAnnouncementCalls)
}

func TestMaybeSendNodeAnnounceResendsWhenAddressOrderChanges(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	id := newTestIdentity(localID)
	id.Addresses = []net.Addr{
		&net.TCPAddr{IP: net.IPv4(1, 1, 1, 1), Port: 1},
		&net.TCPAddr{IP: net.IPv4(2, 2, 2, 2), Port: 2},
	}
	c := NewController(chainHash, id, g, s, newFakePeerSender(true))
	c.NotifyLocalChannelAnnounced()
	require.NoError(t, c.MaybeSendNodeAnnounce(time.Unix(1000, 0)))
	require.Equal(t, 1, s.nodeAnnouncementCalls)

	// Reorder the same two addresses: per REDESIGN FLAG 9(b) this is a
	// positional comparison, so the reordering alone must force a resend.
	c.id.Addresses[0], c.id.Addresses[1] = c.id.Addresses[1], c.id.Addresses[0]
	c.NotifyLocalChannelAnnounced()
	require.NoError(t, c.MaybeSendNodeAnnounce(time.Unix(2000, 0)))
	require.Equal(t, 2, s.nodeAnnouncementCalls)
}

func TestMaybeSendNodeAnnounceResendsWhenAliasChanges(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	id := newTestIdentity(localID)
	c := NewController(chainHash, id, g, s, newFakePeerSender(true))
	c.NotifyLocalChannelAnnounced()
	require.NoError(t, c.MaybeSendNodeAnnounce(time.Unix(1000, 0)))
	require.Equal(t, 1, s.nodeAnnouncementCalls)

	newAlias, err := wire.NewNodeAlias("renamed")
	require.NoError(t, err)
	c.id.Alias = newAlias

	c.NotifyLocalChannelAnnounced()
	require.NoError(t, c.MaybeSendNodeAnnounce(time.Unix(2000, 0)))
	require.Equal(t, 2, s.nodeAnnouncementCalls)
}

func TestSendNodeAnnouncementIngestionRejectionIsFatal(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	g.ingestAnnounceErr = graph.ErrStaleTimestamp
	s := &fakeSigner{}
	c := NewController(chainHash, newTestIdentity(localID), g, s, newFakePeerSender(true))
	c.NotifyLocalChannelAnnounced()

	err := c.MaybeSendNodeAnnounce(time.Unix(1000, 0))
	require.Error(t, err)

	var fatal *graph.ErrLocalIngestionRejected
	require.ErrorAs(t, err, &fatal)

	// The flag must stay set so the next tick retries, since the send
	// never actually completed.
	require.True(t, c.localChannelAnnounced)
}

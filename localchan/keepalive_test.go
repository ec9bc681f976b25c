package localchan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

func registerLocalChannel(g *fakeGraph, localID, peerID graph.NodeID, scid wire.ShortChannelID, lastTimestamp int64, disabled bool) *graph.Channel {
	ch := newTestChannel(scid, localID, peerID, true)
	ch.Half[0].LastTimestamp = lastTimestamp
	ch.Half[0].CltvDelta = 40
	ch.Half[0].HtlcMinMsat = 1
	ch.Half[0].BaseFeeMsat = 1000
	ch.Half[0].ProportionalFeePPM = 1
	ch.Half[0].HtlcMaxMsat = 500000
	if disabled {
		ch.Half[0].ChannelFlags |= 0x02
	}
	g.channels[scid] = ch

	n, ok := g.nodes[localID]
	if !ok {
		n = &graph.Node{ID: localID, LastTimestamp: -1, Channels: make(map[wire.ShortChannelID]struct{})}
		g.nodes[localID] = n
	}
	n.Channels[scid] = struct{}{}

	return ch
}

// TestRefreshKeepalivesResendsStaleHalves is spec §8 scenario 5: every
// local, defined, enabled half-channel whose last update has aged past
// prune_timeout/2 gets exactly one fresh channel_update with identical
// parameters and a timestamp of now.
func TestRefreshKeepalivesResendsStaleHalves(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)
	peerID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, NodeIdentity{ID: localID}, g, s, newFakePeerSender(true))

	scid := wire.NewShortChanIDFromInt(1 << 40)
	registerLocalChannel(g, localID, peerID, scid, 1000, false)

	pruneTimeout := 4 * time.Hour
	now := time.Unix(1000, 0).Add(pruneTimeout/2 + time.Second)

	sent, err := c.RefreshKeepalives(now, pruneTimeout)
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, 1, s.channelUpdateCalls)

	ch, _ := g.Channel(scid)
	require.EqualValues(t, now.Unix(), ch.Half[0].LastTimestamp)
	require.EqualValues(t, 1000, ch.Half[0].BaseFeeMsat)
	require.EqualValues(t, 1, ch.Half[0].ProportionalFeePPM)
	require.EqualValues(t, 500000, ch.Half[0].HtlcMaxMsat)
}

func TestRefreshKeepalivesSkipsFreshHalves(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)
	peerID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, NodeIdentity{ID: localID}, g, s, newFakePeerSender(true))

	scid := wire.NewShortChanIDFromInt(2 << 40)
	registerLocalChannel(g, localID, peerID, scid, 1000, false)

	pruneTimeout := 4 * time.Hour
	now := time.Unix(1000, 0).Add(pruneTimeout / 4)

	sent, err := c.RefreshKeepalives(now, pruneTimeout)
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Zero(t, s.channelUpdateCalls)
}

func TestRefreshKeepalivesSkipsDisabledHalves(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)
	peerID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, NodeIdentity{ID: localID}, g, s, newFakePeerSender(true))

	scid := wire.NewShortChanIDFromInt(3 << 40)
	registerLocalChannel(g, localID, peerID, scid, 1000, true)

	pruneTimeout := 4 * time.Hour
	now := time.Unix(1000, 0).Add(pruneTimeout/2 + time.Second)

	sent, err := c.RefreshKeepalives(now, pruneTimeout)
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Zero(t, s.channelUpdateCalls)
}

func TestRefreshKeepalivesNoOpWhenLocalNodeHasNoChannels(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, NodeIdentity{ID: localID}, g, s, newFakePeerSender(true))

	sent, err := c.RefreshKeepalives(time.Unix(100000, 0), 4*time.Hour)
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Zero(t, s.channelUpdateCalls)
}

func TestPruneDelegatesToGraph(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)

	g := newFakeGraph(chainHash)
	scid := wire.NewShortChanIDFromInt(4 << 40)
	g.pruneResult = []wire.ShortChannelID{scid}

	c := NewController(chainHash, NodeIdentity{ID: localID}, g, &fakeSigner{}, newFakePeerSender(true))

	now := time.Unix(100000, 0)
	pruneTimeout := 4 * time.Hour

	pruned := c.Prune(now, pruneTimeout)
	require.Equal(t, 1, g.pruneCalls)
	require.Equal(t, []wire.ShortChannelID{scid}, pruned)
}

// TestRefreshSendsKeepalivesBeforePruning matches
// gossip_refresh_network's ordering: keepalives go out first, so a
// channel that would otherwise be evicted gets one last chance to stay
// alive before the prune pass runs.
func TestRefreshSendsKeepalivesBeforePruning(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)
	peerID := randNodeID(t)

	g := newFakeGraph(chainHash)
	s := &fakeSigner{}
	c := NewController(chainHash, NodeIdentity{ID: localID}, g, s, newFakePeerSender(true))

	scid := wire.NewShortChanIDFromInt(5 << 40)
	registerLocalChannel(g, localID, peerID, scid, 1000, false)

	pruneScid := wire.NewShortChanIDFromInt(6 << 40)
	g.pruneResult = []wire.ShortChannelID{pruneScid}

	pruneTimeout := 4 * time.Hour
	now := time.Unix(1000, 0).Add(pruneTimeout/2 + time.Second)

	sent, pruned, err := c.Refresh(now, pruneTimeout)
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, 1, g.pruneCalls)
	require.Equal(t, []wire.ShortChannelID{pruneScid}, pruned)
}

func TestRefreshKeepalivesPropagatesFatalIngestionError(t *testing.T) {
	chainHash := randChainHash(t)
	localID := randNodeID(t)
	peerID := randNodeID(t)

	g := newFakeGraph(chainHash)
	g.ingestUpdateErr = graph.ErrStaleTimestamp
	s := &fakeSigner{}
	c := NewController(chainHash, NodeIdentity{ID: localID}, g, s, newFakePeerSender(true))

	scid := wire.NewShortChanIDFromInt(7 << 40)
	registerLocalChannel(g, localID, peerID, scid, 1000, false)

	pruneTimeout := 4 * time.Hour
	now := time.Unix(1000, 0).Add(pruneTimeout/2 + time.Second)

	_, err := c.RefreshKeepalives(now, pruneTimeout)
	require.Error(t, err)

	var fatal *graph.ErrLocalIngestionRejected
	require.ErrorAs(t, err, &fatal)
}

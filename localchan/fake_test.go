package localchan

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

func randChainHash(t *testing.T) chainhash.Hash {
	t.Helper()
	var h chainhash.Hash
	_, err := rand.Read(h[:])
	require.NoError(t, err)
	return h
}

func randNodeID(t *testing.T) graph.NodeID {
	t.Helper()
	var id graph.NodeID
	_, err := rand.Read(id[:])
	require.NoError(t, err)
	return id
}

// fakeGraph is a minimal, hand-written GraphBackend test double. It skips
// signature verification (the fakeSigner below never produces real
// signatures) but otherwise mutates Channel/Node state the same way
// graph.Graph's real ingestion methods do, so tests can assert on the
// resulting half-channel/node fields exactly as they would against the
// real graph.
type fakeGraph struct {
	chainHash chainhash.Hash

	channels map[wire.ShortChannelID]*graph.Channel
	nodes    map[graph.NodeID]*graph.Node

	ingestUpdateErr   error
	ingestAnnounceErr error

	ingestedUpdates       [][]byte
	ingestedAnnouncements [][]byte

	pruneCalls  int
	pruneResult []wire.ShortChannelID
}

func newFakeGraph(chainHash chainhash.Hash) *fakeGraph {
	return &fakeGraph{
		chainHash: chainHash,
		channels:  make(map[wire.ShortChannelID]*graph.Channel),
		nodes:     make(map[graph.NodeID]*graph.Node),
	}
}

var _ GraphBackend = (*fakeGraph)(nil)

func (g *fakeGraph) ChainHash() chainhash.Hash { return g.chainHash }

func (g *fakeGraph) Channel(scid wire.ShortChannelID) (*graph.Channel, bool) {
	c, ok := g.channels[scid]
	return c, ok
}

func (g *fakeGraph) Node(id graph.NodeID) (*graph.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *fakeGraph) IngestChannelUpdate(msg *wire.ChannelUpdate, rawBytes []byte) error {
	if g.ingestUpdateErr != nil {
		return g.ingestUpdateErr
	}

	c, ok := g.channels[msg.ShortChannelID]
	if !ok {
		return graph.ErrUnknownChannel
	}

	dirIdx := 0
	if msg.IsNode2() {
		dirIdx = 1
	}
	half := &c.Half[dirIdx]
	half.LastTimestamp = int64(msg.Timestamp)
	half.MessageFlags = uint8(msg.MessageFlags)
	half.ChannelFlags = uint8(msg.ChannelFlags)
	half.CltvDelta = msg.TimeLockDelta
	half.HtlcMinMsat = msg.HtlcMinimumMsat
	half.HtlcMaxMsat = msg.HtlcMaximumMsat
	half.BaseFeeMsat = msg.BaseFee
	half.ProportionalFeePPM = msg.FeeProportionalMillionths
	half.RawUpdate = rawBytes

	g.ingestedUpdates = append(g.ingestedUpdates, rawBytes)
	return nil
}

func (g *fakeGraph) IngestNodeAnnouncement(msg *wire.NodeAnnouncement, rawBytes []byte) error {
	if g.ingestAnnounceErr != nil {
		return g.ingestAnnounceErr
	}

	id := graph.NodeIDFromBytes(msg.NodeID)
	n, ok := g.nodes[id]
	if !ok {
		n = &graph.Node{ID: id, LastTimestamp: -1, Channels: make(map[wire.ShortChannelID]struct{})}
		g.nodes[id] = n
	}
	n.LastTimestamp = int64(msg.Timestamp)
	n.Alias = msg.Alias
	n.RGB = [3]byte{msg.RGBColor.R, msg.RGBColor.G, msg.RGBColor.B}
	n.GlobalFeatures = msg.Features
	n.Addresses = msg.Addresses
	n.Announcement = rawBytes

	g.ingestedAnnouncements = append(g.ingestedAnnouncements, rawBytes)
	return nil
}

func (g *fakeGraph) Prune(now time.Time, pruneTimeout time.Duration) []wire.ShortChannelID {
	g.pruneCalls++
	return g.pruneResult
}

// fakeSigner stands in for the signer channel client. It never produces
// a real signature (SignNodeAnnouncement returns the zero Sig, and
// SignChannelUpdate echoes its input unchanged), which is fine since
// fakeGraph never verifies one.
type fakeSigner struct {
	signNodeAnnouncementErr error
	signChannelUpdateErr    error

	nodeAnnouncementCalls int
	channelUpdateCalls    int
}

var _ Signer = (*fakeSigner)(nil)

func (s *fakeSigner) SignNodeAnnouncement(unsigned []byte) (wire.Sig, error) {
	s.nodeAnnouncementCalls++
	if s.signNodeAnnouncementErr != nil {
		return wire.Sig{}, s.signNodeAnnouncementErr
	}
	return wire.Sig{}, nil
}

func (s *fakeSigner) SignChannelUpdate(unsigned []byte) ([]byte, error) {
	s.channelUpdateCalls++
	if s.signChannelUpdateErr != nil {
		return nil, s.signChannelUpdateErr
	}
	return unsigned, nil
}

// fakePeerSender records every direct-to-peer send it's asked to make.
type fakePeerSender struct {
	sent      map[graph.NodeID][][]byte
	connected bool
}

var _ PeerSender = (*fakePeerSender)(nil)

func newFakePeerSender(connected bool) *fakePeerSender {
	return &fakePeerSender{sent: make(map[graph.NodeID][][]byte), connected: connected}
}

func (p *fakePeerSender) SendToPeer(node graph.NodeID, framed []byte) bool {
	p.sent[node] = append(p.sent[node], framed)
	return p.connected
}

package gossip

import (
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// fakeBackend is a minimal in-memory GraphBackend double, standing in
// for *graph.Graph so session/pump tests don't need real signatures.
type fakeBackend struct {
	chainHash chainhash.Hash

	channels map[wire.ShortChannelID]*graph.Channel
	nodes    map[graph.NodeID]*graph.Node

	ingestedAnnouncements []*wire.ChannelAnnouncement
	ingestedNodes         []*wire.NodeAnnouncement
	ingestedUpdates       []*wire.ChannelUpdate

	rejectAnnouncements error
	rejectNodes         error
	rejectUpdates       error

	log []broadcastEntryFake
}

type broadcastEntryFake struct {
	timestamp uint32
	payload   []byte
}

func newFakeBackend(chainHash chainhash.Hash) *fakeBackend {
	return &fakeBackend{
		chainHash: chainHash,
		channels:  make(map[wire.ShortChannelID]*graph.Channel),
		nodes:     make(map[graph.NodeID]*graph.Node),
	}
}

func (f *fakeBackend) ChainHash() chainhash.Hash { return f.chainHash }

func (f *fakeBackend) IngestChannelAnnouncement(msg *wire.ChannelAnnouncement) (*wire.ShortChannelID, error) {
	if f.rejectAnnouncements != nil {
		return nil, f.rejectAnnouncements
	}
	f.ingestedAnnouncements = append(f.ingestedAnnouncements, msg)
	scid := msg.ShortChannelID
	return &scid, nil
}

func (f *fakeBackend) IngestNodeAnnouncement(msg *wire.NodeAnnouncement, rawBytes []byte) error {
	if f.rejectNodes != nil {
		return f.rejectNodes
	}
	f.ingestedNodes = append(f.ingestedNodes, msg)
	return nil
}

func (f *fakeBackend) IngestChannelUpdate(msg *wire.ChannelUpdate, rawBytes []byte) error {
	if f.rejectUpdates != nil {
		return f.rejectUpdates
	}
	f.ingestedUpdates = append(f.ingestedUpdates, msg)
	return nil
}

func (f *fakeBackend) Channel(scid wire.ShortChannelID) (*graph.Channel, bool) {
	c, ok := f.channels[scid]
	return c, ok
}

func (f *fakeBackend) Node(id graph.NodeID) (*graph.Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

func (f *fakeBackend) FilterChannelRange(firstBlock, numBlocks uint32) []wire.ShortChannelID {
	last := (&wire.QueryChannelRange{FirstBlockHeight: firstBlock, NumBlocks: numBlocks}).LastBlockHeight()

	var out []wire.ShortChannelID
	for scid := range f.channels {
		if scid.BlockHeight >= firstBlock && scid.BlockHeight <= last {
			out = append(out, scid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (f *fakeBackend) NextBroadcast(index uint64, tsMin, tsMax uint32) ([]byte, uint64, bool) {
	if index == graph.BroadcastIndexNone {
		return nil, index, false
	}
	for i := index; i < uint64(len(f.log)); i++ {
		e := f.log[i]
		if e.timestamp >= tsMin && e.timestamp <= tsMax {
			return e.payload, i + 1, true
		}
	}
	return nil, uint64(len(f.log)), false
}

func (f *fakeBackend) NextBroadcastIndex() uint64 {
	return uint64(len(f.log))
}

func (f *fakeBackend) appendLog(timestamp uint32, payload []byte) {
	f.log = append(f.log, broadcastEntryFake{timestamp: timestamp, payload: payload})
}

var _ GraphBackend = (*fakeBackend)(nil)

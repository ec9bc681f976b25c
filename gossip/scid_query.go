package gossip

import (
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// scidQueryReply is the responder-side sub-state for an in-flight
// query_short_channel_ids, per spec §4.3. Exactly one batch is produced
// per pump call so progress interleaves with the rest of the peer's
// outbound work.
type scidQueryReply struct {
	chainHash chainhash.Hash

	scids []wire.ShortChannelID
	idx   int

	pendingNodes map[graph.NodeID]struct{}

	nodesReady bool
	nodeOrder  []graph.NodeID
	nodeIdx    int

	endSent bool
}

func newScidQueryReply(chainHash chainhash.Hash, scids []wire.ShortChannelID) *scidQueryReply {
	return &scidQueryReply{
		chainHash:    chainHash,
		scids:        scids,
		pendingNodes: make(map[graph.NodeID]struct{}),
	}
}

// active reports whether this sub-state still has work to do, i.e.
// whether a second query_short_channel_ids must currently be rejected.
func (s *scidQueryReply) active() bool {
	return s != nil && !s.endSent
}

// nextBatch advances the reply by exactly one logical unit and returns
// the already wire-framed messages that unit produced, ready to push
// straight onto the outbound queue. done is true once
// reply_short_channel_ids_end has been emitted and the sub-state should
// be discarded.
func (s *scidQueryReply) nextBatch(backend GraphBackend) (framed [][]byte, done bool, err error) {
	for s.idx < len(s.scids) {
		scid := s.scids[s.idx]
		s.idx++

		c, ok := backend.Channel(scid)
		if !ok || !c.IsPublic() {
			continue
		}

		framed = append(framed, c.Announcement)

		endpoints := [2]graph.NodeID{c.Node1, c.Node2}
		for dir, other := range endpoints {
			if c.Half[dir].Defined() {
				framed = append(framed, c.Half[dir].RawUpdate)
			}
			s.pendingNodes[other] = struct{}{}
		}

		return framed, false, nil
	}

	if !s.nodesReady {
		s.nodeOrder = make([]graph.NodeID, 0, len(s.pendingNodes))
		for id := range s.pendingNodes {
			s.nodeOrder = append(s.nodeOrder, id)
		}
		sort.Slice(s.nodeOrder, func(i, j int) bool {
			return s.nodeOrder[i].Less(s.nodeOrder[j])
		})
		s.nodesReady = true
	}

	for s.nodeIdx < len(s.nodeOrder) {
		id := s.nodeOrder[s.nodeIdx]
		s.nodeIdx++

		n, ok := backend.Node(id)
		if !ok || !n.HasAnnouncement() {
			continue
		}

		return [][]byte{n.Announcement}, false, nil
	}

	if !s.endSent {
		s.endSent = true

		frame, err := frameMessage(&wire.ReplyShortChanIDsEnd{
			ChainHash: s.chainHash,
			Complete:  1,
		})
		if err != nil {
			return nil, true, err
		}
		return [][]byte{frame}, true, nil
	}

	return nil, true, nil
}

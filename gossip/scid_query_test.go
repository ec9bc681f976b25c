package gossip

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

func TestScidQueryReplyEmitsChannelThenNodesThenEnd(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)

	node1 := randNodeID(t)
	node2 := randNodeID(t)
	scid := wire.NewShortChanIDFromInt(1 << 40)

	backend.channels[scid] = &graph.Channel{
		SCID:         scid,
		Node1:        node1,
		Node2:        node2,
		Announcement: []byte("announcement"),
		Half: [2]graph.HalfChannel{
			{LastTimestamp: 1, RawUpdate: []byte("update1")},
			{LastTimestamp: -1},
		},
	}
	backend.nodes[node1] = &graph.Node{ID: node1, LastTimestamp: 5, Announcement: []byte("node1-ann")}
	backend.nodes[node2] = &graph.Node{ID: node2, LastTimestamp: -1}

	q := newScidQueryReply(ch, []wire.ShortChannelID{scid})

	// First batch: the channel_announcement and its one defined update.
	framed, done, err := q.nextBatch(backend)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, [][]byte{[]byte("announcement"), []byte("update1")}, framed)

	// Second batch: node1's announcement (node2 has none).
	framed, done, err = q.nextBatch(backend)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, [][]byte{[]byte("node1-ann")}, framed)

	// Third batch: the terminating reply_short_channel_ids_end.
	framed, done, err = q.nextBatch(backend)
	require.NoError(t, err)
	require.True(t, done)
	require.Len(t, framed, 1)

	require.True(t, q.endSent)
	require.False(t, q.active())
}

func TestScidQuerySkipsUnknownAndPrivateChannels(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)

	knownPrivate := wire.NewShortChanIDFromInt(1 << 40)
	backend.channels[knownPrivate] = &graph.Channel{SCID: knownPrivate}

	unknown := wire.NewShortChanIDFromInt(2 << 40)

	q := newScidQueryReply(ch, []wire.ShortChannelID{knownPrivate, unknown})

	// Both scids are skipped (private/unknown) and there are no pending
	// nodes, so the very first call falls all the way through to the
	// terminating reply_short_channel_ids_end.
	framed, done, err := q.nextBatch(backend)
	require.NoError(t, err)
	require.True(t, done)
	require.Len(t, framed, 1)
}

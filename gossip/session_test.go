package gossip

import (
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

var testNow = time.Unix(1_700_000_000, 0)

func randChainHash(t *testing.T) chainhash.Hash {
	var h chainhash.Hash
	_, err := rand.Read(h[:])
	require.NoError(t, err)
	return h
}

func randNodeID(t *testing.T) graph.NodeID {
	var id graph.NodeID
	_, err := rand.Read(id[:])
	require.NoError(t, err)
	return id
}

func TestNewSessionInitialCursorGossipQueries(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	backend.appendLog(1, []byte("a"))

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)
	require.Equal(t, uint64(graph.BroadcastIndexNone), s.broadcastIndex)
	require.False(t, s.pumpBroadcast())
}

func TestNewSessionInitialCursorInitialRoutingSync(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	backend.appendLog(1, []byte("a"))

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), false, true)
	require.Equal(t, uint64(0), s.broadcastIndex)
	require.True(t, s.pumpBroadcast())
}

func TestNewSessionInitialCursorNeither(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	backend.appendLog(1, []byte("a"))

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), false, false)
	require.Equal(t, uint64(1), s.broadcastIndex)
	require.False(t, s.pumpBroadcast())
}

func TestGossipTimestampFilterResetsCursor(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	backend.appendLog(1000, []byte("a"))
	backend.appendLog(2000, []byte("b"))

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	err := s.OnMessage(&wire.GossipTimestampRange{
		ChainHash:      ch,
		FirstTimestamp: 1000,
		TimestampRange: 4294966295,
	}, testNow)
	require.NoError(t, err)
	require.Equal(t, uint64(0), s.broadcastIndex)

	require.True(t, s.pumpBroadcast())
	require.Equal(t, []byte("a"), s.outbound.items[0])
}

func TestGossipTimestampFilterWrongChainHashIsSoftDrop(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)
	prevIndex := s.broadcastIndex

	err := s.OnMessage(&wire.GossipTimestampRange{
		ChainHash:      randChainHash(t),
		FirstTimestamp: 0,
		TimestampRange: 1,
	}, testNow)
	require.NoError(t, err)
	require.False(t, s.closed)
	require.Equal(t, prevIndex, s.broadcastIndex)
}

func TestConcurrentScidQueryRejected(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	first := &wire.QueryShortChanIDs{ChainHash: ch, ShortChanIDs: nil}
	require.NoError(t, s.OnMessage(first, testNow))

	second := &wire.QueryShortChanIDs{ChainHash: ch, ShortChanIDs: nil}
	err := s.OnMessage(second, testNow)
	require.Error(t, err)

	var protoErr *errProtocol
	require.True(t, errors.As(err, &protoErr))
	require.True(t, s.closed)

	// The peer should have received a wire error about the rejection.
	require.Equal(t, 1, s.outbound.len())
}

func TestPingIgnoredWhenTooLarge(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	err := s.OnMessage(&wire.Ping{NumPongBytes: 65532, PaddingBytes: make([]byte, 4)}, testNow)
	require.NoError(t, err)
	require.False(t, s.closed)
	require.Equal(t, 0, s.outbound.len())
}

func TestPingRepliedWhenSmall(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	err := s.OnMessage(&wire.Ping{NumPongBytes: 10, PaddingBytes: make([]byte, 4)}, testNow)
	require.NoError(t, err)
	require.Equal(t, 1, s.outbound.len())
}

func TestUnexpectedPongIsProtocolError(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	err := s.OnMessage(&wire.Pong{PongBytes: nil}, testNow)
	require.Error(t, err)
	require.True(t, s.closed)
}

func TestPongDecrementsOutstandingCounter(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	require.NoError(t, s.SendPing(10, nil))
	require.Equal(t, 1, s.pongsOutstanding)

	err := s.OnMessage(&wire.Pong{PongBytes: nil}, testNow)
	require.NoError(t, err)
	require.Equal(t, 0, s.pongsOutstanding)
}

func TestUnsolicitedReplyChannelRangeIsIgnored(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	err := s.OnMessage(&wire.ReplyChannelRange{ChainHash: ch}, testNow)
	require.NoError(t, err)
	require.False(t, s.closed)
}

func TestUnknownMessageTypePenalizesSender(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	bans := NewBanTracker(1)
	id := randNodeID(t)

	s := NewSession(id, backend, bans, true, false)

	err := s.OnMessage(&wire.Error{Data: []byte("boom")}, testNow)
	require.Error(t, err)
	require.True(t, s.closed)
	require.True(t, bans.IsBanned(id))
}

func TestConcurrentScidQueryPenalizesSender(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	bans := NewBanTracker(1)
	id := randNodeID(t)

	s := NewSession(id, backend, bans, true, false)

	first := &wire.QueryShortChanIDs{ChainHash: ch, ShortChanIDs: nil}
	require.NoError(t, s.OnMessage(first, testNow))

	second := &wire.QueryShortChanIDs{ChainHash: ch, ShortChanIDs: nil}
	err := s.OnMessage(second, testNow)
	require.Error(t, err)
	require.True(t, bans.IsBanned(id))
}

func TestUnexpectedPongPenalizesSender(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	bans := NewBanTracker(1)
	id := randNodeID(t)

	s := NewSession(id, backend, bans, true, false)

	err := s.OnMessage(&wire.Pong{PongBytes: nil}, testNow)
	require.Error(t, err)
	require.True(t, bans.IsBanned(id))
}

func TestBannedPeerQueriesAreThrottled(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	bans := NewBanTracker(1)
	id := randNodeID(t)
	bans.Penalize(id, testNow)
	require.True(t, bans.IsBanned(id))

	s := NewSession(id, backend, bans, true, false)

	err := s.OnMessage(&wire.QueryShortChanIDs{ChainHash: ch, ShortChanIDs: nil}, testNow)
	require.NoError(t, err)
	require.Nil(t, s.scidQuery)

	err = s.OnMessage(&wire.QueryChannelRange{ChainHash: ch, FirstBlockHeight: 0, NumBlocks: 10}, testNow)
	require.NoError(t, err)
	require.Equal(t, 0, s.outbound.len())
}

func TestChannelUpdateRejectionIsReportedNotFatal(t *testing.T) {
	ch := randChainHash(t)
	backend := newFakeBackend(ch)
	backend.rejectUpdates = errors.New("unknown channel")

	s := NewSession(randNodeID(t), backend, NewBanTracker(0), true, false)

	err := s.OnMessage(&wire.ChannelUpdate{ChainHash: ch, ShortChannelID: wire.NewShortChanIDFromInt(1)}, testNow)
	require.NoError(t, err)
	require.Equal(t, 1, s.outbound.len())
	require.False(t, s.closed)
}

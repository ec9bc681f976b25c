package gossip

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/time/rate"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// maxUndelayedQueryReplies bounds how many scid-query/range-query batches
// a peer gets before the rate limiter starts making DumpGossip report no
// progress for a tick, the cooperative-loop equivalent of the teacher's
// blocking Reserve/Delay in replyPeerQueries — this model has no
// suspension point to block on mid-dispatch, so throttling instead
// starves the send pump's first priority for a beat.
const maxUndelayedQueryReplies = 32

// delayedQueryReplyInterval is the steady-state rate queries are replied
// to once a peer has exhausted its burst allowance.
const delayedQueryReplyInterval = 50 * time.Millisecond

// errProtocol carries a tier-1 peer protocol error (spec §7): the
// session must enqueue it to the peer as a wire error and the caller
// must close the connection.
type errProtocol struct {
	msg string
}

func (e *errProtocol) Error() string { return e.msg }

func protocolErrorf(format string, args ...interface{}) error {
	return &errProtocol{msg: fmt.Sprintf(format, args...)}
}

// Session is one peer's gossip state: its admitted cursor/filter, the
// in-flight query sub-states, its outbound queue, and its ban/rate
// tracking. Exactly one goroutine (the daemon's single event loop)
// touches a Session at a time, per spec §5's cooperative model.
type Session struct {
	id graph.NodeID

	backend GraphBackend

	outbound *outboundQueue

	broadcastIndex uint64
	filter         gossipFilter

	flushPending bool

	scidQuery *scidQueryReply
	queryOut  *rangeQueryAccumulator

	// scidQueryOutstanding is true from the moment this side sends its
	// own query_short_channel_ids until reply_short_channel_ids_end
	// comes back, per spec §8's query-exclusion property.
	scidQueryOutstanding bool

	pongsOutstanding int

	rateLimiter *rate.Limiter
	bans        *BanTracker

	// closed is set once a tier-1 protocol error has been produced; the
	// session's owner is responsible for tearing down the socket.
	closed bool
}

// NewSession admits a peer, computing its initial broadcast cursor and
// filter from the negotiated features per spec §4.4's "Initial cursor".
func NewSession(id graph.NodeID, backend GraphBackend, bans *BanTracker, gossipQueries, initialRoutingSync bool) *Session {
	s := &Session{
		id:          id,
		backend:     backend,
		outbound:    newOutboundQueue(),
		rateLimiter: rate.NewLimiter(rate.Every(delayedQueryReplyInterval), maxUndelayedQueryReplies),
		bans:        bans,
	}

	switch {
	case gossipQueries:
		s.broadcastIndex = graph.BroadcastIndexNone
		s.filter = noneFilter()
	case initialRoutingSync:
		s.broadcastIndex = 0
		s.filter = allFilter()
	default:
		s.broadcastIndex = backend.NextBroadcastIndex()
		s.filter = allFilter()
	}

	return s
}

// ID returns the node id this session is associated with.
func (s *Session) ID() graph.NodeID {
	return s.id
}

// Closed reports whether a tier-1 protocol error has closed the session.
func (s *Session) Closed() bool {
	return s.closed
}

// enqueue appends a pre-framed message to the outbound queue.
func (s *Session) enqueue(payload []byte) {
	s.outbound.push(payload)
}

// enqueueMessage frames msg and appends it to the outbound queue.
func (s *Session) enqueueMessage(msg wire.Message) error {
	framed, err := frameMessage(msg)
	if err != nil {
		return err
	}
	s.enqueue(framed)
	return nil
}

// enqueueError frames a wire error carrying reason and appends it, for
// tier-1/tier-3 rejections that must be reported back to the peer.
func (s *Session) enqueueError(reason string) {
	_ = s.enqueueMessage(&wire.Error{Data: []byte(reason)})
}

// OnMessage dispatches one received wire message per spec §4.3's
// receive table. now is the session owner's clock reading, used only to
// timestamp ban-score updates (SPEC_FULL.md §5's ban/rate-limit
// tracking). A non-nil error of dynamic type *errProtocol means the
// caller must close the connection after flushing the outbound queue;
// any other error is unexpected and should be treated the same way.
func (s *Session) OnMessage(msg wire.Message, now time.Time) error {
	if s.closed {
		return protocolErrorf("message received after close")
	}

	switch m := msg.(type) {
	case *wire.ChannelAnnouncement:
		return s.onChannelAnnouncement(m)

	case *wire.NodeAnnouncement:
		return s.onNodeAnnouncement(m)

	case *wire.ChannelUpdate:
		return s.onChannelUpdate(m)

	case *wire.QueryShortChanIDs:
		return s.onQueryShortChanIDs(m, now)

	case *wire.ReplyShortChanIDsEnd:
		if !s.scidQueryOutstanding {
			log.Warnf("peer %s: unexpected reply_short_channel_ids_end, ignoring", s.id)
			return nil
		}
		s.scidQueryOutstanding = false
		return nil

	case *wire.GossipTimestampRange:
		return s.onGossipTimestampFilter(m)

	case *wire.QueryChannelRange:
		return s.onQueryChannelRange(m, now)

	case *wire.ReplyChannelRange:
		return s.onReplyChannelRange(m)

	case *wire.Ping:
		return s.onPing(m)

	case *wire.Pong:
		return s.onPong(m, now)

	default:
		s.closed = true
		s.bans.Penalize(s.id, now)
		s.enqueueError(fmt.Sprintf("unknown or unexpected message type %T", msg))
		return protocolErrorf("unknown or unexpected message type %T", msg)
	}
}

func (s *Session) onChannelAnnouncement(m *wire.ChannelAnnouncement) error {
	_, err := s.backend.IngestChannelAnnouncement(m)
	if err != nil {
		s.enqueueError(err.Error())
		return nil
	}
	// The funding-output confirmation and resolve_pending call are
	// driven by the daemon controller's txout lookup, not the session:
	// a bare channel_announcement never reaches the graph's channel
	// map until that completes.
	return nil
}

func (s *Session) onNodeAnnouncement(m *wire.NodeAnnouncement) error {
	raw, err := frameMessage(m)
	if err != nil {
		return err
	}
	if err := s.backend.IngestNodeAnnouncement(m, raw); err != nil {
		s.enqueueError(err.Error())
	}
	return nil
}

func (s *Session) onChannelUpdate(m *wire.ChannelUpdate) error {
	raw, err := frameMessage(m)
	if err != nil {
		return err
	}
	if err := s.backend.IngestChannelUpdate(m, raw); err != nil {
		s.enqueueError(err.Error())
		return nil
	}
	// maybe_send_own_node_announce: this channel_update may have just
	// made a local channel publicly visible for the first time, so the
	// local node_announcement redundancy check is re-run. Left to the
	// daemon controller, which owns the local node's identity and
	// signer access: it re-runs the check whenever OnMessage returns nil
	// for a channel_update, which includes updates rejected above.
	return nil
}

func (s *Session) onQueryShortChanIDs(m *wire.QueryShortChanIDs, now time.Time) error {
	if s.bans.IsBanned(s.id) {
		log.Warnf("peer %s: query_short_channel_ids from banned peer, throttled", s.id)
		return nil
	}

	if m.ChainHash != s.backend.ChainHash() {
		log.Warnf("peer %s: query_short_channel_ids for unknown chain, dropping", s.id)
		return nil
	}

	if s.scidQuery.active() {
		s.closed = true
		s.bans.Penalize(s.id, now)
		s.enqueueError("query_short_channel_ids already in flight")
		return protocolErrorf("concurrent query_short_channel_ids from peer %s", s.id)
	}

	s.scidQuery = newScidQueryReply(m.ChainHash, m.ShortChanIDs)
	return nil
}

func (s *Session) onGossipTimestampFilter(m *wire.GossipTimestampRange) error {
	if m.ChainHash != s.backend.ChainHash() {
		log.Warnf("peer %s: gossip_timestamp_filter for unknown chain, dropping", s.id)
		return nil
	}

	s.filter = filterFromMessage(m)
	s.broadcastIndex = 0
	s.flushPending = false
	return nil
}

func (s *Session) onQueryChannelRange(m *wire.QueryChannelRange, now time.Time) error {
	if s.bans.IsBanned(s.id) {
		log.Warnf("peer %s: query_channel_range from banned peer, throttled", s.id)
		return nil
	}

	if m.ChainHash != s.backend.ChainHash() {
		log.Warnf("peer %s: query_channel_range for unknown chain, dropping", s.id)
		return nil
	}

	replies := buildChannelRangeReplies(
		s.backend.FilterChannelRange, m.ChainHash,
		m.FirstBlockHeight, m.NumBlocks,
	)
	for _, r := range replies {
		if err := s.enqueueMessage(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) onReplyChannelRange(m *wire.ReplyChannelRange) error {
	if s.queryOut == nil {
		log.Warnf("peer %s: unexpected reply_channel_range, ignoring", s.id)
		return nil
	}

	complete, err := s.queryOut.Accept(m)
	if err != nil {
		s.closed = true
		s.enqueueError(err.Error())
		return protocolErrorf("peer %s: %v", s.id, err)
	}
	if complete {
		s.queryOut = nil
	}
	return nil
}

func (s *Session) onPing(m *wire.Ping) error {
	if m.NumPongBytes >= 65532 {
		return nil
	}
	return s.enqueueMessage(&wire.Pong{PongBytes: make([]byte, m.NumPongBytes)})
}

func (s *Session) onPong(m *wire.Pong, now time.Time) error {
	if s.pongsOutstanding == 0 {
		s.closed = true
		s.bans.Penalize(s.id, now)
		s.enqueueError("unexpected pong")
		return protocolErrorf("peer %s: unexpected pong", s.id)
	}
	s.pongsOutstanding--
	return nil
}

// SendPing enqueues a ping and increments the outstanding-pong counter,
// called by the daemon controller's Ping command on behalf of the parent
// process.
func (s *Session) SendPing(numPongBytes uint16, padding []byte) error {
	s.pongsOutstanding++
	return s.enqueueMessage(&wire.Ping{NumPongBytes: numPongBytes, PaddingBytes: padding})
}

// BeginScidQuery issues a query_short_channel_ids this node originates,
// rejecting a second concurrent one per spec §8's query-exclusion
// property.
func (s *Session) BeginScidQuery(chainHash chainhash.Hash, scids []wire.ShortChannelID) error {
	if s.scidQueryOutstanding {
		return fmt.Errorf("query_short_channel_ids already outstanding to peer %s", s.id)
	}
	s.scidQueryOutstanding = true
	return s.enqueueMessage(&wire.QueryShortChanIDs{
		ChainHash:    chainHash,
		EncodingType: wire.EncodingSortedZlib,
		ShortChanIDs: scids,
	})
}

// BeginRangeQuery installs the accumulator for a query_channel_range
// this node is about to issue itself, and enqueues the query.
func (s *Session) BeginRangeQuery(chainHash chainhash.Hash, firstBlock, numBlocks uint32) error {
	s.queryOut = newRangeQueryAccumulator(chainHash, firstBlock, numBlocks)
	return s.enqueueMessage(&wire.QueryChannelRange{
		ChainHash:        chainHash,
		FirstBlockHeight: firstBlock,
		NumBlocks:        numBlocks,
	})
}

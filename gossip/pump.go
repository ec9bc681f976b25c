package gossip

// DumpGossip advances this peer's outbound gossip by one logical step,
// per spec §4.4. It returns true if it enqueued at least one message —
// the caller should invoke it again as long as the outbound socket
// stays writable — or false if there is nothing more to do right now.
func (s *Session) DumpGossip() bool {
	if progress := s.pumpScidQuery(); progress {
		return true
	}

	if s.flushPending {
		return false
	}

	return s.pumpBroadcast()
}

// pumpScidQuery advances the responder-side scid-query sub-state by one
// batch, rate-limited the same way replyPeerQueries throttles the
// teacher's chan-range/scid replies: once the burst allowance is spent,
// this priority reports no progress for a tick rather than blocking the
// single event loop.
func (s *Session) pumpScidQuery() bool {
	if !s.scidQuery.active() {
		return false
	}

	if !s.rateLimiter.Allow() {
		return false
	}

	framed, done, err := s.scidQuery.nextBatch(s.backend)
	if err != nil {
		log.Errorf("peer %s: building scid-query reply: %v", s.id, err)
		s.closed = true
		return false
	}

	for _, f := range framed {
		s.enqueue(f)
	}
	if done {
		s.scidQuery = nil
	}

	return len(framed) > 0 || done
}

// pumpBroadcast advances the peer's broadcast-log cursor by one entry,
// or arms the flush timer if the log has nothing new for this peer's
// filter right now. The timer itself (broadcast_interval_msec, jittered
// per peer) is owned by the daemon's timer wheel; pumpBroadcast just sets
// flushPending to record that one is pending, so DumpGossip's priority 2
// short-circuits until ClearFlushTimer wakes it.
func (s *Session) pumpBroadcast() bool {
	payload, newIndex, ok := s.backend.NextBroadcast(s.broadcastIndex, s.filter.tsMin, s.filter.tsMax)
	s.broadcastIndex = newIndex
	if !ok {
		s.flushPending = true
		return false
	}

	s.enqueue(payload)
	return true
}

// ClearFlushTimer is called by the daemon's timer wheel when a peer's
// broadcast flush timer fires, waking pumpBroadcast on the next
// DumpGossip call.
func (s *Session) ClearFlushTimer() {
	s.flushPending = false
}

// FlushPending reports whether pumpBroadcast found nothing to send on its
// last call and is now waiting on a flush timer, so the daemon's timer
// wheel knows which peers need one armed.
func (s *Session) FlushPending() bool {
	return s.flushPending
}

// SendRaw appends an already wire-framed message to this peer's outbound
// queue directly, bypassing the broadcast log and every pump priority.
// Used for local private-channel updates (spec §4.5 point 3), which
// must reach exactly the channel's other endpoint and never the graph.
func (s *Session) SendRaw(payload []byte) {
	s.enqueue(payload)
}

// Outbound drains up to n queued outbound frames for the connection
// daemon to write to the peer socket.
func (s *Session) Outbound(n int) [][]byte {
	var out [][]byte
	for i := 0; i < n; i++ {
		payload, ok := s.outbound.pop()
		if !ok {
			break
		}
		out = append(out, payload)
	}
	return out
}

// OutboundLen reports how many frames are currently queued.
func (s *Session) OutboundLen() int {
	return s.outbound.len()
}

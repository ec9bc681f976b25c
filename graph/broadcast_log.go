package graph

import "math"

// BroadcastIndexNone is the sentinel meaning "send nothing until this
// peer installs a gossip_timestamp_filter", used as a peer's initial
// broadcast_index when it negotiates gossip_queries.
const BroadcastIndexNone = math.MaxUint64

// broadcastEntry is one accepted gossip message in the append-only log.
type broadcastEntry struct {
	index     uint64
	timestamp uint32
	bytes     []byte
}

// BroadcastLog is the monotonic, indexed sequence of canonical gossip
// messages every peer's send pump streams from. It never removes
// entries: staggered fan-out relies on stable indices staying valid for
// the lifetime of the process.
type BroadcastLog struct {
	entries   []broadcastEntry
	nextIndex uint64
}

// NewBroadcastLog returns an empty log whose first appended entry gets
// index 0.
func NewBroadcastLog() *BroadcastLog {
	return &BroadcastLog{}
}

// NextIndex returns the index that will be assigned to the next appended
// entry.
func (l *BroadcastLog) NextIndex() uint64 {
	return l.nextIndex
}

// Append adds a new entry to the log and returns its assigned index.
func (l *BroadcastLog) Append(timestamp uint32, payload []byte) uint64 {
	idx := l.nextIndex
	l.entries = append(l.entries, broadcastEntry{
		index:     idx,
		timestamp: timestamp,
		bytes:     payload,
	})
	l.nextIndex++
	return idx
}

// NextAfter returns the first entry at or after index whose timestamp
// falls in [tsMin, tsMax], along with the index a caller should pass on
// the next call to resume from just past it. ok is false when there is
// no such entry yet (the caller has caught up to the log's head).
func (l *BroadcastLog) NextAfter(index uint64, tsMin, tsMax uint32) (payload []byte, newIndex uint64, ok bool) {
	if index == BroadcastIndexNone {
		return nil, index, false
	}

	// entries[0].index is always 0 and indices are contiguous, so the
	// slice position of the first candidate is just `index` itself as
	// long as it hasn't fallen off the (never-truncated) log.
	for i := index; i < uint64(len(l.entries)); i++ {
		e := l.entries[i]
		if e.timestamp >= tsMin && e.timestamp <= tsMax {
			return e.bytes, i + 1, true
		}
	}

	// Nothing in [index, head) matched. Those entries' timestamps can't
	// change, so there's no reason to rescan them next time — only a
	// new gossip_timestamp_filter (which resets the cursor to 0) can
	// make them deliverable again.
	return nil, uint64(len(l.entries)), false
}

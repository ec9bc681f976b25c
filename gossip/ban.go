package gossip

import (
	"time"

	"github.com/lightninglabs/neutrino/cache/lru"

	"github.com/vince06fr/lightning/graph"
)

const (
	// maxTrackedPeers bounds the ban tracker's memory use the same way
	// the teacher's banman bounds peerBanIndex.
	maxTrackedPeers = 10_000

	// defaultBanThreshold is the score at which a peer's queries are
	// throttled hard rather than merely rate-limited.
	defaultBanThreshold = 100

	// resetDelta is how long a peer's score survives without further
	// misbehavior before being forgotten.
	resetDelta = 48 * time.Hour
)

type banScore struct {
	score      uint64
	lastUpdate time.Time
}

// Size implements cache.Value.
func (b *banScore) Size() (uint64, error) {
	return 1, nil
}

// BanTracker scores peers that send malformed or excessive gossip
// queries. It is adapted from the teacher's discovery/ban.go banman,
// with the internal purge goroutine removed: this daemon's cooperative
// event loop has no goroutines, so purging is driven explicitly by the
// daemon's timer wheel calling Purge on a tick instead.
type BanTracker struct {
	scores    *lru.Cache[[33]byte, *banScore]
	threshold uint64
}

func NewBanTracker(threshold uint64) *BanTracker {
	if threshold == 0 {
		threshold = defaultBanThreshold
	}
	return &BanTracker{
		scores:    lru.NewCache[[33]byte, *banScore](maxTrackedPeers),
		threshold: threshold,
	}
}

// IsBanned reports whether id's score has crossed the ban threshold.
func (b *BanTracker) IsBanned(id graph.NodeID) bool {
	s, err := b.scores.Get(id)
	if err != nil {
		return false
	}
	return s.score >= b.threshold
}

// Penalize increments id's ban score in response to a malformed or
// abusive query.
func (b *BanTracker) Penalize(id graph.NodeID, now time.Time) {
	s, err := b.scores.Get(id)
	if err != nil {
		_, _ = b.scores.Put(id, &banScore{score: 1, lastUpdate: now})
		return
	}
	_, _ = b.scores.Put(id, &banScore{score: s.score + 1, lastUpdate: now})
}

// Purge drops scores for peers that haven't misbehaved in resetDelta,
// called periodically by the daemon's timer wheel.
func (b *BanTracker) Purge(now time.Time) {
	var stale [][33]byte
	b.scores.Range(func(id [33]byte, s *banScore) bool {
		if s.lastUpdate.Add(resetDelta).Before(now) {
			stale = append(stale, id)
		}
		return true
	})
	for _, id := range stale {
		b.scores.Delete(id)
	}
}

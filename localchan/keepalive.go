package localchan

import (
	"time"

	"github.com/vince06fr/lightning/wire"
)

// RefreshKeepalives implements spec §4.5's keepalive/prune refresh,
// called by the daemon's timer wheel every prune_timeout/4
// (original_source/gossipd/gossipd.c's gossip_refresh_network). For every
// defined, enabled half-channel owned by this node whose last_timestamp
// is older than prune_timeout/2, it emits a keepalive update carrying the
// same parameters with a fresh timestamp. It does not prune; Refresh
// runs the graph's prune pass after it. It returns the number of
// keepalives sent.
func (c *Controller) RefreshKeepalives(now time.Time, pruneTimeout time.Duration) (int, error) {
	n, ok := c.graph.Node(c.id.ID)
	if !ok {
		return 0, nil
	}

	highwater := now.Unix() - int64(pruneTimeout/2/time.Second)

	sent := 0
	for scid := range n.Channels {
		chanInfo, ok := c.graph.Channel(scid)
		if !ok {
			continue
		}

		dir, ok := chanInfo.DirectionOf(c.id.ID)
		if !ok {
			continue
		}
		dirIdx := int(dir)

		half := chanInfo.Half[dirIdx]
		if !half.Enabled() {
			continue
		}
		if half.LastTimestamp >= highwater {
			continue
		}

		log.Debugf("sending keepalive channel_update for %v", scid)

		err := c.emitChannelUpdate(
			chanInfo, dirIdx, chanInfo.LocalDisabled, half.CltvDelta,
			half.HtlcMinMsat, half.BaseFeeMsat, half.ProportionalFeePPM,
			half.HtlcMaxMsat, now,
		)
		if err != nil {
			return sent, err
		}
		sent++
	}

	return sent, nil
}

// Prune invokes the graph's stale-channel eviction pass. Kept as a thin
// pass-through so the daemon's timer handler only needs to call into
// this package, not reach into the graph package directly for the part
// of the refresh cycle spec §4.5 bundles alongside keepalives.
func (c *Controller) Prune(now time.Time, pruneTimeout time.Duration) []wire.ShortChannelID {
	return c.graph.Prune(now, pruneTimeout)
}

// Refresh runs one full tick of the prune_timeout/4 timer: keepalives
// first, then the graph prune pass, matching gossip_refresh_network's
// own ordering (send the keepalives that keep still-live channels from
// going stale, then evict whatever stayed stale anyway).
func (c *Controller) Refresh(now time.Time, pruneTimeout time.Duration) (sent int, pruned []wire.ShortChannelID, err error) {
	sent, err = c.RefreshKeepalives(now, pruneTimeout)
	if err != nil {
		return sent, nil, err
	}
	pruned = c.Prune(now, pruneTimeout)
	return sent, pruned, nil
}

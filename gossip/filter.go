package gossip

import (
	"math"

	"github.com/vince06fr/lightning/wire"
)

// gossipFilter is a peer's currently installed gossip_timestamp_filter,
// restricting which broadcast-log entries the send pump may forward.
// ts_min > ts_max means "send nothing"; ts_min=0, ts_max=UINT32_MAX means
// "send everything" — both are ordinary values here, not special cases,
// since NextAfter's range check already implements both.
type gossipFilter struct {
	tsMin uint32
	tsMax uint32
}

// noneFilter matches nothing, the initial state for a peer that
// negotiated gossip_queries: BOLT #7 requires an explicit filter before
// any gossip flows.
func noneFilter() gossipFilter {
	return gossipFilter{tsMin: 1, tsMax: 0}
}

// allFilter matches everything, the default for a peer that did not
// negotiate gossip_queries.
func allFilter() gossipFilter {
	return gossipFilter{tsMin: 0, tsMax: math.MaxUint32}
}

// filterFromMessage derives a filter from a received
// gossip_timestamp_filter, computing ts_max with the saturating
// first_timestamp+timestamp_range-1 rule. The subtraction happens
// before saturation, in the same uint64 step as the addition, so the
// boundary case (e.g. first=1, range=0xFFFFFFFF) lands on 0xFFFFFFFF
// rather than 0xFFFFFFFE.
func filterFromMessage(msg *wire.GossipTimestampRange) gossipFilter {
	sum := uint64(msg.FirstTimestamp) + uint64(msg.TimestampRange)

	var max uint32
	switch {
	case sum == 0:
		max = 0
	case sum-1 > 0xFFFFFFFF:
		max = 0xFFFFFFFF
	default:
		max = uint32(sum - 1)
	}

	return gossipFilter{tsMin: msg.FirstTimestamp, tsMax: max}
}

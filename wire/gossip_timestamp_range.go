package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// GossipTimestampRange restricts the announcements the receiver forwards
// to those with last_timestamp in [FirstTimestamp, FirstTimestamp+
// TimestampRange). Sending a new filter replaces any prior one.
type GossipTimestampRange struct {
	ChainHash      chainhash.Hash
	FirstTimestamp uint32
	TimestampRange uint32

	ExtraData ExtraOpaqueData
}

var _ Message = (*GossipTimestampRange)(nil)

func (g *GossipTimestampRange) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r,
		g.ChainHash[:],
		&g.FirstTimestamp,
		&g.TimestampRange,
	); err != nil {
		return err
	}
	return g.ExtraData.Decode(r)
}

func (g *GossipTimestampRange) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w,
		g.ChainHash[:],
		g.FirstTimestamp,
		g.TimestampRange,
	); err != nil {
		return err
	}
	return g.ExtraData.Encode(w)
}

func (g *GossipTimestampRange) MsgType() MessageType {
	return MsgGossipTimestampRange
}

// MaxTimestamp returns FirstTimestamp+TimestampRange saturated at
// math.MaxUint32: the exclusive end of the window, not the inclusive
// ts_max, which the gossip package's filter computes as one less.
func (g *GossipTimestampRange) MaxTimestamp() uint32 {
	sum := uint64(g.FirstTimestamp) + uint64(g.TimestampRange)
	if sum > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(sum)
}

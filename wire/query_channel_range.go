package wire

import (
	"io"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// QueryChannelRange asks the receiver for the short channel IDs of every
// channel opened in [FirstBlockHeight, FirstBlockHeight+NumBlocks).
type QueryChannelRange struct {
	ChainHash        chainhash.Hash
	FirstBlockHeight uint32
	NumBlocks        uint32

	ExtraData ExtraOpaqueData
}

var _ Message = (*QueryChannelRange)(nil)

func (q *QueryChannelRange) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r,
		q.ChainHash[:],
		&q.FirstBlockHeight,
		&q.NumBlocks,
	); err != nil {
		return err
	}
	return q.ExtraData.Decode(r)
}

func (q *QueryChannelRange) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w,
		q.ChainHash[:],
		q.FirstBlockHeight,
		q.NumBlocks,
	); err != nil {
		return err
	}
	return q.ExtraData.Encode(w)
}

func (q *QueryChannelRange) MsgType() MessageType {
	return MsgQueryChannelRange
}

// LastBlockHeight returns the last block height covered by the query,
// saturating at math.MaxUint32 rather than overflowing.
func (q *QueryChannelRange) LastBlockHeight() uint32 {
	last := uint64(q.FirstBlockHeight) + uint64(q.NumBlocks) - 1
	if last > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(last)
}

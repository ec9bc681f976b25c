package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ReplyChannelRange answers a QueryChannelRange with one chunk of the
// requested short channel IDs, scoped to [FirstBlockHeight,
// FirstBlockHeight+NumBlocks) rather than the original query's range. A
// query answered by more than one reply sets Complete to 0 on every reply
// but the last.
type ReplyChannelRange struct {
	ChainHash        chainhash.Hash
	FirstBlockHeight uint32
	NumBlocks        uint32

	Complete uint8

	EncodingType ShortChanIDEncoding
	ShortChanIDs []ShortChannelID

	ExtraData ExtraOpaqueData
}

var _ Message = (*ReplyChannelRange)(nil)

func (c *ReplyChannelRange) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r,
		c.ChainHash[:],
		&c.FirstBlockHeight,
		&c.NumBlocks,
		&c.Complete,
	); err != nil {
		return err
	}

	var err error
	c.EncodingType, c.ShortChanIDs, err = decodeShortChanIDs(r)
	if err != nil {
		return err
	}

	return c.ExtraData.Decode(r)
}

func (c *ReplyChannelRange) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w,
		c.ChainHash[:],
		c.FirstBlockHeight,
		c.NumBlocks,
		c.Complete,
	); err != nil {
		return err
	}

	if err := encodeShortChanIDs(w, c.EncodingType == EncodingSortedZlib, c.ShortChanIDs); err != nil {
		return err
	}

	return c.ExtraData.Encode(w)
}

func (c *ReplyChannelRange) MsgType() MessageType {
	return MsgReplyChannelRange
}

// LastBlockHeight returns the last block height covered by this reply.
func (c *ReplyChannelRange) LastBlockHeight() uint32 {
	return (&QueryChannelRange{
		FirstBlockHeight: c.FirstBlockHeight,
		NumBlocks:        c.NumBlocks,
	}).LastBlockHeight()
}

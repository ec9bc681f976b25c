package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// QueryShortChanIDs asks the receiver to reply with the channel
// announcement, both channel updates, and node announcements for exactly
// the given set of short channel IDs.
type QueryShortChanIDs struct {
	ChainHash    chainhash.Hash
	EncodingType ShortChanIDEncoding
	ShortChanIDs []ShortChannelID

	ExtraData ExtraOpaqueData
}

var _ Message = (*QueryShortChanIDs)(nil)

func (q *QueryShortChanIDs) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r, q.ChainHash[:]); err != nil {
		return err
	}

	var err error
	q.EncodingType, q.ShortChanIDs, err = decodeShortChanIDs(r)
	if err != nil {
		return err
	}

	return q.ExtraData.Decode(r)
}

func (q *QueryShortChanIDs) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w, q.ChainHash[:]); err != nil {
		return err
	}

	if err := encodeShortChanIDs(w, q.EncodingType == EncodingSortedZlib, q.ShortChanIDs); err != nil {
		return err
	}

	return q.ExtraData.Encode(w)
}

func (q *QueryShortChanIDs) MsgType() MessageType {
	return MsgQueryShortChanIDs
}

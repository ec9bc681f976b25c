package wire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ReplyShortChanIDsEnd terminates the stream of announcements/updates sent
// in reply to a QueryShortChanIDs.
type ReplyShortChanIDsEnd struct {
	ChainHash chainhash.Hash

	// Complete is 1 if the responder had full information for the
	// query, 0 if it does not recognize ChainHash or otherwise couldn't
	// answer.
	Complete uint8

	ExtraData ExtraOpaqueData
}

var _ Message = (*ReplyShortChanIDsEnd)(nil)

func (m *ReplyShortChanIDsEnd) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r, m.ChainHash[:], &m.Complete); err != nil {
		return err
	}
	return m.ExtraData.Decode(r)
}

func (m *ReplyShortChanIDsEnd) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w, m.ChainHash[:], m.Complete); err != nil {
		return err
	}
	return m.ExtraData.Encode(w)
}

func (m *ReplyShortChanIDsEnd) MsgType() MessageType {
	return MsgReplyShortChanIDsEnd
}

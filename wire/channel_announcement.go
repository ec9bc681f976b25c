package wire

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelAnnouncement announces the existence of a channel and binds it to
// the two node identities and two on-chain keys that control its funding
// output.
type ChannelAnnouncement struct {
	NodeSig1    Sig
	NodeSig2    Sig
	BitcoinSig1 Sig
	BitcoinSig2 Sig

	Features *RawFeatureVector

	ChainHash      chainhash.Hash
	ShortChannelID ShortChannelID

	// NodeID1 is the numerically-lesser of the two node public keys, in
	// ascending order against NodeID2.
	NodeID1 [33]byte
	NodeID2 [33]byte

	BitcoinKey1 [33]byte
	BitcoinKey2 [33]byte

	ExtraOpaqueData ExtraOpaqueData
}

var _ Message = (*ChannelAnnouncement)(nil)

func (a *ChannelAnnouncement) Decode(r io.Reader, pver uint32) error {
	return ReadElements(r,
		&a.NodeSig1,
		&a.NodeSig2,
		&a.BitcoinSig1,
		&a.BitcoinSig2,
		&a.Features,
		a.ChainHash[:],
		&a.ShortChannelID,
		&a.NodeID1,
		&a.NodeID2,
		&a.BitcoinKey1,
		&a.BitcoinKey2,
		&a.ExtraOpaqueData,
	)
}

func (a *ChannelAnnouncement) Encode(w io.Writer, pver uint32) error {
	return WriteElements(w,
		a.NodeSig1,
		a.NodeSig2,
		a.BitcoinSig1,
		a.BitcoinSig2,
		a.Features,
		a.ChainHash[:],
		a.ShortChannelID,
		a.NodeID1,
		a.NodeID2,
		a.BitcoinKey1,
		a.BitcoinKey2,
		a.ExtraOpaqueData,
	)
}

func (a *ChannelAnnouncement) MsgType() MessageType {
	return MsgChannelAnnouncement
}

// DataToSign returns the portion of the message the four signatures cover:
// everything except the signatures themselves.
func (a *ChannelAnnouncement) DataToSign() ([]byte, error) {
	var buf bytes.Buffer
	err := WriteElements(&buf,
		a.Features,
		a.ChainHash[:],
		a.ShortChannelID,
		a.NodeID1,
		a.NodeID2,
		a.BitcoinKey1,
		a.BitcoinKey2,
		a.ExtraOpaqueData,
	)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

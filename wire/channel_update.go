package wire

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChanUpdateMsgFlags is the single-byte message_flags field: bit 0
// signals that HtlcMaximumMsat is present.
type ChanUpdateMsgFlags uint8

const (
	// ChanUpdateOptionMaxHtlc indicates HtlcMaximumMsat is populated.
	ChanUpdateOptionMaxHtlc ChanUpdateMsgFlags = 1 << 0
)

// ChanUpdateChanFlags is the single-byte channel_flags field: bit 0 picks
// which side of the channel this update describes, bit 1 marks the
// channel disabled.
type ChanUpdateChanFlags uint8

const (
	// ChanUpdateDirection is set when this update describes node 2's
	// side of the channel.
	ChanUpdateDirection ChanUpdateChanFlags = 1 << 0

	// ChanUpdateDisabled marks the advertised direction as unusable.
	ChanUpdateDisabled ChanUpdateChanFlags = 1 << 1
)

// ChannelUpdate carries one direction's routing policy for a channel:
// fees, CLTV delta, and HTLC size bounds, plus whether that direction is
// currently enabled.
type ChannelUpdate struct {
	Signature      Sig
	ChainHash      chainhash.Hash
	ShortChannelID ShortChannelID
	Timestamp      uint32

	MessageFlags ChanUpdateMsgFlags
	ChannelFlags ChanUpdateChanFlags

	TimeLockDelta uint16
	HtlcMinimumMsat uint64

	BaseFee                   uint32
	FeeProportionalMillionths uint32

	// HtlcMaximumMsat is present on the wire only when MessageFlags has
	// ChanUpdateOptionMaxHtlc set. Locally-built updates (see localchan/)
	// always set the bit; updates received from peers may not.
	HtlcMaximumMsat uint64

	ExtraOpaqueData ExtraOpaqueData
}

var _ Message = (*ChannelUpdate)(nil)

func (c *ChannelUpdate) Decode(r io.Reader, pver uint32) error {
	if err := ReadElements(r,
		&c.Signature,
		c.ChainHash[:],
		&c.ShortChannelID,
		&c.Timestamp,
		(*uint8)(&c.MessageFlags),
		(*uint8)(&c.ChannelFlags),
		&c.TimeLockDelta,
		&c.HtlcMinimumMsat,
		&c.BaseFee,
		&c.FeeProportionalMillionths,
	); err != nil {
		return err
	}

	c.HtlcMaximumMsat = 0
	if c.MessageFlags&ChanUpdateOptionMaxHtlc != 0 {
		if err := ReadElement(r, &c.HtlcMaximumMsat); err != nil {
			return err
		}
	}

	return ReadElement(r, &c.ExtraOpaqueData)
}

func (c *ChannelUpdate) Encode(w io.Writer, pver uint32) error {
	if err := WriteElements(w,
		c.Signature,
		c.ChainHash[:],
		c.ShortChannelID,
		c.Timestamp,
		uint8(c.MessageFlags),
		uint8(c.ChannelFlags),
		c.TimeLockDelta,
		c.HtlcMinimumMsat,
		c.BaseFee,
		c.FeeProportionalMillionths,
	); err != nil {
		return err
	}

	if c.MessageFlags&ChanUpdateOptionMaxHtlc != 0 {
		if err := WriteElement(w, c.HtlcMaximumMsat); err != nil {
			return err
		}
	}

	return WriteElement(w, c.ExtraOpaqueData)
}

func (c *ChannelUpdate) MsgType() MessageType {
	return MsgChannelUpdate
}

// IsDisabled reports whether the disabled bit is set in ChannelFlags.
func (c *ChannelUpdate) IsDisabled() bool {
	return c.ChannelFlags&ChanUpdateDisabled != 0
}

// IsNode2 reports whether this update describes node 2's direction.
func (c *ChannelUpdate) IsNode2() bool {
	return c.ChannelFlags&ChanUpdateDirection != 0
}

// DataToSign returns the portion of the message the signature covers.
func (c *ChannelUpdate) DataToSign() ([]byte, error) {
	var buf bytes.Buffer
	err := WriteElements(&buf,
		c.ChainHash[:],
		c.ShortChannelID,
		c.Timestamp,
		uint8(c.MessageFlags),
		uint8(c.ChannelFlags),
		c.TimeLockDelta,
		c.HtlcMinimumMsat,
		c.BaseFee,
		c.FeeProportionalMillionths,
	)
	if err != nil {
		return nil, err
	}

	if c.MessageFlags&ChanUpdateOptionMaxHtlc != 0 {
		if err := WriteElement(&buf, c.HtlcMaximumMsat); err != nil {
			return nil, err
		}
	}

	if err := WriteElement(&buf, c.ExtraOpaqueData); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

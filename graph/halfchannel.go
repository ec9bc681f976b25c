package graph

// HalfChannel is the directed half of a channel from one endpoint to the
// other, carrying that direction's routing policy. LastTimestamp is -1
// when the half-channel has never received a channel_update.
type HalfChannel struct {
	LastTimestamp int64

	MessageFlags uint8
	ChannelFlags uint8

	CltvDelta    uint16
	HtlcMinMsat  uint64
	HtlcMaxMsat  uint64
	BaseFeeMsat  uint32
	ProportionalFeePPM uint32

	// RawUpdate is the signed channel_update wire bytes last accepted
	// for this half, cached for replay. Present iff Defined().
	RawUpdate []byte
}

// Defined reports whether this half-channel has ever had a channel_update
// applied to it.
func (h *HalfChannel) Defined() bool {
	return h.LastTimestamp >= 0
}

// Disabled reports whether the channel_flags disabled bit is set.
func (h *HalfChannel) Disabled() bool {
	return h.ChannelFlags&0x02 != 0
}

// Enabled reports whether this half-channel is both defined and not
// disabled.
func (h *HalfChannel) Enabled() bool {
	return h.Defined() && !h.Disabled()
}

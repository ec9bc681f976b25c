package localchan

import (
	"bytes"
	"fmt"
	"time"

	"github.com/vince06fr/lightning/graph"
	"github.com/vince06fr/lightning/wire"
)

// HandleLocalChannelUpdate builds, signs, and applies a fresh
// channel_update for one of this node's own channels, per spec §4.5
// points 1-4. It is the entry point for the parent process's explicit
// "local_channel_update" command (a fee/CLTV/HTLC-bound change, or an
// enable/disable toggle). MaybeUpdateLocalChannel and the keepalive
// refresh do not go through it: they call emitChannelUpdate directly
// with parameters taken from the stored half-channel.
func (c *Controller) HandleLocalChannelUpdate(scid wire.ShortChannelID, disable bool, cltvExpiryDelta uint16, htlcMinimumMsat uint64, feeBaseMsat, feeProportionalMillionths uint32, htlcMaximumMsat uint64, now time.Time) error {
	chanInfo, ok := c.graph.Channel(scid)
	if !ok {
		return fmt.Errorf("local_channel_update for unknown channel %v", scid)
	}

	dir, ok := chanInfo.DirectionOf(c.id.ID)
	if !ok {
		return fmt.Errorf("local_channel_update for non-local channel %v", scid)
	}

	return c.emitChannelUpdate(
		chanInfo, int(dir), disable, cltvExpiryDelta, htlcMinimumMsat,
		feeBaseMsat, feeProportionalMillionths, htlcMaximumMsat, now,
	)
}

// MaybeUpdateLocalChannel implements spec §4.5's maybe_update_local_channel.
// Its only caller is the daemon's local_channel_close command; no peer
// request (such as a get_update) triggers it. If the stored
// half-channel's disabled bit already agrees with the channel's current
// local_disabled state, there is nothing to refresh.
func (c *Controller) MaybeUpdateLocalChannel(scid wire.ShortChannelID, now time.Time) error {
	chanInfo, ok := c.graph.Channel(scid)
	if !ok {
		return fmt.Errorf("maybe_update_local_channel for unknown channel %v", scid)
	}

	dir, ok := chanInfo.DirectionOf(c.id.ID)
	if !ok {
		return nil
	}
	dirIdx := int(dir)

	half := chanInfo.Half[dirIdx]
	if !half.Defined() {
		return nil
	}
	if chanInfo.LocalDisabled == half.Disabled() {
		return nil
	}

	return c.emitChannelUpdate(
		chanInfo, dirIdx, chanInfo.LocalDisabled, half.CltvDelta,
		half.HtlcMinMsat, half.BaseFeeMsat, half.ProportionalFeePPM,
		half.HtlcMaxMsat, now,
	)
}

// emitChannelUpdate is the shared build/sign/apply path every entry point
// above reduces to. Timestamps must strictly increase past the stored
// half-channel's last one (spec §4.5 point 1, "timestamp = max(now,
// prior_ts + 1)"), and this core always advertises htlc_maximum_msat
// (message_flags bit 0), matching wire.ChannelUpdate's own documented
// assumption.
func (c *Controller) emitChannelUpdate(chanInfo *graph.Channel, dirIdx int, disable bool, cltvExpiryDelta uint16, htlcMinimumMsat uint64, feeBaseMsat, feeProportionalMillionths uint32, htlcMaximumMsat uint64, now time.Time) error {
	half := &chanInfo.Half[dirIdx]

	timestamp := uint32(now.Unix())
	if half.Defined() && int64(timestamp) <= half.LastTimestamp {
		timestamp = uint32(half.LastTimestamp + 1)
	}

	channelFlags := wire.ChanUpdateChanFlags(dirIdx)
	if disable {
		channelFlags |= wire.ChanUpdateDisabled
	}

	unsignedMsg := &wire.ChannelUpdate{
		ChainHash:                 c.chainHash,
		ShortChannelID:            chanInfo.SCID,
		Timestamp:                 timestamp,
		MessageFlags:              wire.ChanUpdateOptionMaxHtlc,
		ChannelFlags:              channelFlags,
		TimeLockDelta:             cltvExpiryDelta,
		HtlcMinimumMsat:           htlcMinimumMsat,
		BaseFee:                   feeBaseMsat,
		FeeProportionalMillionths: feeProportionalMillionths,
		HtlcMaximumMsat:           htlcMaximumMsat,
	}

	unsigned, err := frameMessage(unsignedMsg)
	if err != nil {
		return fmt.Errorf("framing unsigned channel_update: %w", err)
	}

	signed, err := c.signer.SignChannelUpdate(unsigned)
	if err != nil {
		return fmt.Errorf("signer round trip for channel_update on %v: %w", chanInfo.SCID, err)
	}

	decoded, err := wire.ReadMessage(bytes.NewReader(signed))
	if err != nil {
		return fmt.Errorf("decoding signed channel_update: %w", err)
	}
	signedUpd, ok := decoded.(*wire.ChannelUpdate)
	if !ok {
		return fmt.Errorf("signer returned unexpected message type %T for channel_update", decoded)
	}

	// A publicly-announced channel's update goes through the graph,
	// which appends it to the broadcast log and thereby reaches every
	// peer. An unannounced channel's update must never take that path:
	// the broadcast log has no per-channel visibility control, so
	// ingesting it would leak the private channel's existence to any
	// peer with an open gossip_timestamp_filter. Instead its
	// half-channel state is updated in place and the signed bytes go
	// straight to the channel's other endpoint, matching the "we always
	// tell peer" behavior of the update path this is grounded on
	// (original_source/gossipd/gossipd.c's update_local_channel) while
	// dropping its unconditional graph ingestion.
	if chanInfo.IsPublic() {
		if err := c.graph.IngestChannelUpdate(signedUpd, signed); err != nil {
			return &graph.ErrLocalIngestionRejected{Cause: err}
		}
		return nil
	}

	half.LastTimestamp = int64(signedUpd.Timestamp)
	half.MessageFlags = uint8(signedUpd.MessageFlags)
	half.ChannelFlags = uint8(signedUpd.ChannelFlags)
	half.CltvDelta = signedUpd.TimeLockDelta
	half.HtlcMinMsat = signedUpd.HtlcMinimumMsat
	half.HtlcMaxMsat = signedUpd.HtlcMaximumMsat
	half.BaseFeeMsat = signedUpd.BaseFee
	half.ProportionalFeePPM = signedUpd.FeeProportionalMillionths
	half.RawUpdate = signed

	if other, ok := chanInfo.OtherEndpoint(c.id.ID); ok {
		if !c.peers.SendToPeer(other, signed) {
			log.Debugf("no live connection to %s; deferring private update for %v", other, chanInfo.SCID)
		}
	}

	return nil
}

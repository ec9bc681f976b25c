package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteMessageRoundTrip(t *testing.T) {
	ping := &Ping{
		NumPongBytes: 42,
		PaddingBytes: []byte{1, 2, 3, 4},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, ping))

	msg, err := ReadMessage(&buf)
	require.NoError(t, err)

	got, ok := msg.(*Ping)
	require.True(t, ok)
	require.Equal(t, ping.NumPongBytes, got.NumPongBytes)
	require.Equal(t, ping.PaddingBytes, got.PaddingBytes)
}

func TestReadMessageUnknownType(t *testing.T) {
	var buf bytes.Buffer
	// length=2, type=9999 (unassigned)
	buf.Write([]byte{0x00, 0x02, 0x27, 0x0f})

	_, err := ReadMessage(&buf)
	require.Error(t, err)

	var unknown *UnknownMessageError
	require.ErrorAs(t, err, &unknown)
}

func TestQueryChannelRangeLastBlockHeightSaturates(t *testing.T) {
	q := &QueryChannelRange{
		FirstBlockHeight: 0xFFFFFFF0,
		NumBlocks:        0xFFFFFFFF,
	}
	require.EqualValues(t, 0xFFFFFFFF, q.LastBlockHeight())
}

func TestShortChannelIDPackingRoundTrip(t *testing.T) {
	scid := ShortChannelID{
		BlockHeight: 700000,
		TxIndex:     123,
		TxPosition:  4,
	}

	packed := scid.ToUint64()
	require.Equal(t, scid, NewShortChanIDFromInt(packed))
}

func TestShortChannelIDOrderingMatchesLexicographic(t *testing.T) {
	a := ShortChannelID{BlockHeight: 100, TxIndex: 5, TxPosition: 0}
	b := ShortChannelID{BlockHeight: 100, TxIndex: 6, TxPosition: 0}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
}

func TestChannelAnnouncementRoundTrip(t *testing.T) {
	orig := &ChannelAnnouncement{
		Features: NewRawFeatureVector(),
		ShortChannelID: ShortChannelID{
			BlockHeight: 500000,
			TxIndex:     1,
			TxPosition:  0,
		},
	}
	orig.NodeID1[0] = 0x02
	orig.NodeID2[0] = 0x03
	orig.BitcoinKey1[0] = 0x02
	orig.BitcoinKey2[0] = 0x03

	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf, 0))

	var got ChannelAnnouncement
	require.NoError(t, got.Decode(&buf, 0))

	require.Equal(t, orig.ShortChannelID, got.ShortChannelID)
	require.Equal(t, orig.NodeID1, got.NodeID1)
	require.Equal(t, orig.NodeID2, got.NodeID2)
}

func TestChannelUpdateFlagHelpers(t *testing.T) {
	cu := &ChannelUpdate{
		ChannelFlags: ChanUpdateDisabled | ChanUpdateDirection,
	}
	require.True(t, cu.IsDisabled())
	require.True(t, cu.IsNode2())

	cu.ChannelFlags = 0
	require.False(t, cu.IsDisabled())
	require.False(t, cu.IsNode2())
}

func TestChannelUpdateHtlcMaximumMsatRoundTripWithFlag(t *testing.T) {
	orig := &ChannelUpdate{
		Timestamp:                 1000,
		MessageFlags:              ChanUpdateOptionMaxHtlc,
		HtlcMinimumMsat:           1,
		BaseFee:                   2,
		FeeProportionalMillionths: 3,
		HtlcMaximumMsat:           4000000,
	}

	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf, 0))

	var got ChannelUpdate
	require.NoError(t, got.Decode(&buf, 0))

	require.Equal(t, orig.HtlcMaximumMsat, got.HtlcMaximumMsat)
	require.Equal(t, orig.MessageFlags, got.MessageFlags)
	require.Equal(t, 0, buf.Len())
}

func TestChannelUpdateHtlcMaximumMsatAbsentWithoutFlag(t *testing.T) {
	orig := &ChannelUpdate{
		Timestamp:                 1000,
		MessageFlags:              0,
		HtlcMinimumMsat:           1,
		BaseFee:                   2,
		FeeProportionalMillionths: 3,
		HtlcMaximumMsat:           4000000,
	}

	var buf bytes.Buffer
	require.NoError(t, orig.Encode(&buf, 0))

	var got ChannelUpdate
	require.NoError(t, got.Decode(&buf, 0))

	require.Equal(t, uint64(0), got.HtlcMaximumMsat)
	require.Equal(t, ChanUpdateMsgFlags(0), got.MessageFlags)
	require.Equal(t, 0, buf.Len())
}

func TestChannelUpdateDataToSignOmitsHtlcMaximumWithoutFlag(t *testing.T) {
	withFlag := &ChannelUpdate{MessageFlags: ChanUpdateOptionMaxHtlc, HtlcMaximumMsat: 4000000}
	withoutFlag := &ChannelUpdate{MessageFlags: 0, HtlcMaximumMsat: 4000000}

	dataWith, err := withFlag.DataToSign()
	require.NoError(t, err)
	dataWithout, err := withoutFlag.DataToSign()
	require.NoError(t, err)

	require.Len(t, dataWith, len(dataWithout)+8)
}

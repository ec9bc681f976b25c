package gossip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vince06fr/lightning/wire"
)

func TestNoneFilterSendsNothing(t *testing.T) {
	f := noneFilter()
	require.Greater(t, f.tsMin, f.tsMax)
}

func TestAllFilterSendsEverything(t *testing.T) {
	f := allFilter()
	require.EqualValues(t, 0, f.tsMin)
	require.EqualValues(t, math.MaxUint32, f.tsMax)
}

func TestFilterFromMessageSaturatesAtMaxUint32(t *testing.T) {
	f := filterFromMessage(&wire.GossipTimestampRange{
		FirstTimestamp: 1000,
		TimestampRange: math.MaxUint32,
	})
	require.EqualValues(t, 1000, f.tsMin)
	require.EqualValues(t, math.MaxUint32, f.tsMax)
}

func TestFilterFromMessageComputesInclusiveMax(t *testing.T) {
	f := filterFromMessage(&wire.GossipTimestampRange{
		FirstTimestamp: 100,
		TimestampRange: 50,
	})
	require.EqualValues(t, 100, f.tsMin)
	require.EqualValues(t, 149, f.tsMax)
}

func TestFilterFromMessageSaturationBoundaryIsExact(t *testing.T) {
	f := filterFromMessage(&wire.GossipTimestampRange{
		FirstTimestamp: 1,
		TimestampRange: math.MaxUint32,
	})
	require.EqualValues(t, math.MaxUint32, f.tsMax)
}

func TestFilterFromMessageZeroRangeYieldsZeroMax(t *testing.T) {
	f := filterFromMessage(&wire.GossipTimestampRange{
		FirstTimestamp: 0,
		TimestampRange: 0,
	})
	require.EqualValues(t, 0, f.tsMax)
}

package pseudosymbol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

type fakeBitSink struct {
	bits []gpscore.UnresolvedBit
}

func (f *fakeBitSink) HandleUnresolvedBit(b gpscore.UnresolvedBit) {
	f.bits = append(f.bits, b)
}

func TestFindsBitBoundaryAndResolvesAlignedBits(t *testing.T) {
	sink := &fakeBitSink{}
	integrator := New(gpscore.SatelliteId(1), sink, nil)

	// Alternating 1/0 bits, each held for exactly PseudosymbolsPerBit
	// pseudosymbols, already aligned to a 20-symbol boundary. The
	// positive count reaches PseudosymbolsRequiredPerPhase (200) after
	// 19 such bits and the negative count after 20, so the boundary is
	// found at the end of the 20th bit.
	bits := []gpscore.Bit{1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0}

	for _, b := range bits {
		sign := gpscore.Pseudosymbol(1)
		if b == 0 {
			sign = -1
		}
		for k := 0; k < config.PseudosymbolsPerBit; k++ {
			integrator.HandlePseudosymbol(sign)
		}
	}

	require.True(t, integrator.BitBoundaryFound())
	require.Len(t, sink.bits, len(bits))

	for i, b := range bits {
		want := gpscore.UnresolvedBit(1)
		if b == 0 {
			want = -1
		}
		require.Equal(t, want, sink.bits[i], "bit %d", i)
	}
}

func TestNoBitsResolvedBeforeBoundaryFound(t *testing.T) {
	sink := &fakeBitSink{}
	integrator := New(gpscore.SatelliteId(1), sink, nil)

	// Fewer than PseudosymbolsRequiredPerPhase of one sign: never finds
	// a boundary, so nothing is ever forwarded downstream.
	for k := 0; k < config.PseudosymbolsRequiredPerPhase-1; k++ {
		integrator.HandlePseudosymbol(1)
	}
	for k := 0; k < config.PseudosymbolsRequiredPerPhase+5; k++ {
		integrator.HandlePseudosymbol(-1)
	}

	require.False(t, integrator.BitBoundaryFound())
	require.Empty(t, sink.bits)
}

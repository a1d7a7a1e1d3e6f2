package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/prn"
)

type fakePseudosymbolSink struct {
	symbols []gpscore.Pseudosymbol
}

func (f *fakePseudosymbolSink) HandlePseudosymbol(ps gpscore.Pseudosymbol) {
	f.symbols = append(f.symbols, ps)
}

type fakeWorld struct {
	calls int
}

func (f *fakeWorld) HandlePRNsTracked(count int, satelliteId gpscore.SatelliteId, side gpscore.Side, trailingEdge time.Time) {
	f.calls++
}

func newTestTracker(t *testing.T, prnCodePhaseShift float64) (*Tracker, *fakePseudosymbolSink, *fakeWorld) {
	t.Helper()
	codes := prn.Build()
	sink := &fakePseudosymbolSink{}
	world := &fakeWorld{}
	tr := New(gpscore.Acquisition{
		SatelliteId:           2,
		CarrierFrequencyShift: 0,
		CarrierPhaseShift:     0,
		PRNCodePhaseShift:     prnCodePhaseShift,
	}, codes[2], sink, world)
	return tr, sink, world
}

func TestNewPicksSideFromInitialPhaseShift(t *testing.T) {
	tr, _, _ := newTestTracker(t, 100) // < prnCodeLength/2
	require.Equal(t, gpscore.SideRight, tr.side)

	tr2, _, _ := newTestTracker(t, float64(tr2CodeLength())-100)
	require.Equal(t, gpscore.SideLeft, tr2.side)
}

func tr2CodeLength() int {
	return config.SamplesPerMillisecond
}

func TestCorrelateWithShiftWrapsLikeNumpyRoll(t *testing.T) {
	tr, _, _ := newTestTracker(t, 0)

	shifted := make([]complex128, tr.prnCodeLength)
	for i := range shifted {
		shifted[i] = complex(1, 0)
	}

	// Shifting by a negative amount, by the code length, or by an amount
	// exceeding it should all reduce to the same effective rotation.
	a := tr.correlateWithShift(shifted, -3)
	b := tr.correlateWithShift(shifted, tr.prnCodeLength-3)
	c := tr.correlateWithShift(shifted, 2*tr.prnCodeLength-3)

	require.Equal(t, a, b)
	require.Equal(t, a, c)
}

func TestHandleSampleBlockNotifiesWorldAndSinkOncePerBlock(t *testing.T) {
	tr, sink, world := newTestTracker(t, 0)

	samples := make([]gpscore.Sample, config.SamplesPerMillisecond)
	block := gpscore.SampleBlock{
		Samples: samples,
		Start:   time.Unix(0, 0),
		End:     time.Unix(0, 0).Add(time.Millisecond),
	}

	tr.HandleSampleBlock(block)

	require.Equal(t, 1, world.calls)
	require.Len(t, sink.symbols, 1)
	require.Len(t, tr.CarrierFrequencyShifts(), 2) // seeded + one update
	require.Len(t, tr.Correlations(), 1)
}

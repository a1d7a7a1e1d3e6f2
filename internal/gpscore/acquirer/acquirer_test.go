package acquirer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

func TestLinspaceEndpointsAndSpacing(t *testing.T) {
	out := linspace(-10, 10, config.DopplerSearchPoints)
	require.Len(t, out, config.DopplerSearchPoints)
	require.InDelta(t, -10, out[0], 1e-9)
	require.InDelta(t, 10, out[len(out)-1], 1e-9)

	step := out[1] - out[0]
	for i := 1; i < len(out); i++ {
		require.InDelta(t, step, out[i]-out[i-1], 1e-9)
	}
}

func TestLinspaceSinglePoint(t *testing.T) {
	out := linspace(5, 5, 1)
	require.Equal(t, []float64{5}, out)
}

func TestNextTargetPrefersEarliestUntrackedSatellite(t *testing.T) {
	b := newBase(nil)
	now := time.Unix(1000, 0)
	b.push(gpscore.SampleBlock{End: now})

	// Every other satellite starts at the zero time, which would sort
	// first; push them into the future so only ids 3 and 4 are eligible.
	for id := range b.nextAcquisitionBySatellite {
		b.nextAcquisitionBySatellite[id] = now.Add(time.Hour)
	}
	b.nextAcquisitionBySatellite[3] = time.Unix(100, 0)
	b.nextAcquisitionBySatellite[4] = time.Unix(50, 0)

	id, found := b.nextTarget(nil)
	require.True(t, found)
	require.Equal(t, gpscore.SatelliteId(4), id)
}

func TestNextTargetSkipsTrackedAndFutureSatellites(t *testing.T) {
	b := newBase(nil)
	now := time.Unix(1000, 0)
	b.push(gpscore.SampleBlock{End: now})

	// Push every satellite's schedule far into the future except the
	// two under test, so only id 4 (tracked) and id 6 (ready, earliest)
	// are eligible.
	for id := range b.nextAcquisitionBySatellite {
		b.nextAcquisitionBySatellite[id] = now.Add(time.Hour)
	}
	b.nextAcquisitionBySatellite[4] = time.Unix(50, 0) // ready, but tracked
	b.nextAcquisitionBySatellite[5] = now.Add(time.Hour)
	b.nextAcquisitionBySatellite[6] = time.Unix(60, 0) // ready, untracked

	tracked := map[gpscore.SatelliteId]struct{}{4: {}}
	id, found := b.nextTarget(tracked)
	require.True(t, found)
	require.Equal(t, gpscore.SatelliteId(6), id)
}

func TestRecordAttemptSchedulesNextAttemptAfterInterval(t *testing.T) {
	b := newBase(nil)
	at := time.Unix(2000, 0)
	b.recordAttempt(7, at)

	require.Equal(t, at.Add(config.AcquisitionInterval), b.nextAcquisitionBySatellite[7])
}

func TestReadyOnlyOnceWindowIsFull(t *testing.T) {
	b := newBase(nil)
	require.False(t, b.ready())

	for i := 0; i < config.AcquisitionWindowSize; i++ {
		b.push(gpscore.SampleBlock{})
	}
	require.True(t, b.ready())
}

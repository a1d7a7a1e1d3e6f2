package world

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEcefGeodeticRoundTrip(t *testing.T) {
	cases := []GeodeticCoordinates{
		{LatitudeRad: 0, LongitudeRad: 0, HeightM: 0},
		{LatitudeRad: deg(45), LongitudeRad: deg(-122), HeightM: 150},
		{LatitudeRad: deg(89.9), LongitudeRad: deg(179), HeightM: 1000},
		{LatitudeRad: deg(-89.9), LongitudeRad: deg(-179), HeightM: -20},
		{LatitudeRad: deg(-33.4), LongitudeRad: deg(70.7), HeightM: 2500},
	}

	for _, want := range cases {
		ecef := GeodeticToEcef(want)
		got := EcefToGeodetic(ecef)

		require.InDelta(t, want.LatitudeRad, got.LatitudeRad, 1e-9)
		require.InDelta(t, want.LongitudeRad, got.LongitudeRad, 1e-9)
		require.InDelta(t, want.HeightM, got.HeightM, 1e-3)
	}
}

func deg(d float64) float64 { return d * math.Pi / 180 }

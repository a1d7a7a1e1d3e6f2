package world

import (
	"math"

	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

// GeodeticCoordinates is a WGS-84 geodetic position.
type GeodeticCoordinates struct {
	LatitudeRad  float64
	LongitudeRad float64
	HeightM      float64
}

const wgs84Flattening = 1 - config.WGS84SemiMinorAxis/config.WGS84SemiMajorAxis

// EcefToGeodetic converts an ECEF position to WGS-84 geodetic coordinates
// by fixed-point iteration on the auxiliary ECEF z-coordinate, stopping
// after config.EcefToGeodeticIterations rounds rather than on a
// convergence threshold.
func EcefToGeodetic(p EcefCoordinates) GeodeticCoordinates {
	const a = config.WGS84SemiMajorAxis
	e2 := wgs84Flattening * (2.0 - wgs84Flattening)

	r2 := p.X*p.X + p.Y*p.Y
	z := p.Z
	v := a

	for i := 0; i < config.EcefToGeodeticIterations; i++ {
		sinp := z / math.Sqrt(r2+z*z)
		v = a / math.Sqrt(1.0-e2*sinp*sinp)
		z = p.Z + v*e2*sinp
	}

	var latitude float64
	if r2 > 1e-12 {
		latitude = math.Atan(z / math.Sqrt(r2))
	} else if p.Z > 0 {
		latitude = math.Pi / 2
	} else {
		latitude = -math.Pi / 2
	}

	var longitude float64
	if r2 > 1e-12 {
		longitude = math.Atan2(p.Y, p.X)
	}

	height := math.Sqrt(r2+z*z) - v

	return GeodeticCoordinates{LatitudeRad: latitude, LongitudeRad: longitude, HeightM: height}
}

// GeodeticToEcef converts a WGS-84 geodetic position back to ECEF. It's
// the inverse of EcefToGeodetic and is closed-form, so it's also used to
// build fixtures for round-tripping through EcefToGeodetic in tests.
func GeodeticToEcef(g GeodeticCoordinates) EcefCoordinates {
	const a = config.WGS84SemiMajorAxis
	e2 := wgs84Flattening * (2.0 - wgs84Flattening)

	sinp := math.Sin(g.LatitudeRad)
	cosp := math.Cos(g.LatitudeRad)
	sinl := math.Sin(g.LongitudeRad)
	cosl := math.Cos(g.LongitudeRad)

	v := a / math.Sqrt(1.0-e2*sinp*sinp)

	return EcefCoordinates{
		X: (v + g.HeightM) * cosp * cosl,
		Y: (v + g.HeightM) * cosp * sinl,
		Z: (v*(1.0-e2) + g.HeightM) * sinp,
	}
}

// Package world stores per-satellite ephemeris parameters as subframes
// arrive, computes satellite ECEF positions and signal transit times per
// IS-GPS-200 §20.3.3, and solves for the receiver's position and clock
// bias with Gauss-Newton least squares.
package world

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/subframe"
)

// pending accumulates the subframes and PRN tracking observations needed
// to promote a satellite into a full SatelliteParameters. It's a "total
// builder": toSatelliteParameters is a total function that returns ok=false
// until every required field has been observed, rather than a struct of
// nullable fields consumers must re-check individually.
type pending struct {
	haveTrailingEdge bool
	haveSide         bool
	haveSf1          bool
	haveSf2          bool
	haveSf3          bool
	haveTOWCount     bool

	trailingEdge time.Time
	side         gpscore.Side
	sf1          subframe.Sf1
	sf2          subframe.Sf2
	sf3          subframe.Sf3
	towCount     int
}

func (p *pending) handleSubframe(sf subframe.Subframe) {
	p.towCount = int(sf.Handover().TOWCountMSBs)
	p.haveTOWCount = true

	switch v := sf.(type) {
	case subframe.Sf1:
		p.sf1, p.haveSf1 = v, true
	case subframe.Sf2:
		p.sf2, p.haveSf2 = v, true
	case subframe.Sf3:
		p.sf3, p.haveSf3 = v, true
	case subframe.Sf4, subframe.Sf5:
		// Only the TOW count (already recorded above) is needed from these.
	}
}

func (p *pending) toSatelliteParameters() (SatelliteParameters, bool) {
	if !p.haveTrailingEdge || !p.haveSide || !p.haveSf1 || !p.haveSf2 || !p.haveSf3 || !p.haveTOWCount {
		return SatelliteParameters{}, false
	}

	prnCount := 0
	if p.side == gpscore.SideRight {
		// We haven't yet observed the trailing edge of the previous
		// subframe; the next millisecond's increment will land us at 0,
		// aligned with this subframe's TOW.
		prnCount = -1
	}

	return SatelliteParameters{
		AF0:      p.sf1.AF0,
		AF1:      p.sf1.AF1,
		AF2:      p.sf1.AF2,
		CIC:      p.sf3.CIC,
		CIS:      p.sf3.CIS,
		CRC:      p.sf3.CRC,
		CRS:      p.sf2.CRS,
		CUC:      p.sf2.CUC,
		CUS:      p.sf2.CUS,
		DeltaN:   p.sf2.DeltaN * math.Pi,
		E:        p.sf2.E,
		I0:       p.sf3.I0 * math.Pi,
		IDot:     p.sf3.IDot * math.Pi,
		M0:       p.sf2.M0 * math.Pi,
		Omega:    p.sf3.Omega * math.Pi,
		Omega0:   p.sf3.Omega0 * math.Pi,
		OmegaDot: p.sf3.OmegaDot * math.Pi,

		PRNCodeTrailingEdgeTimestamp: p.trailingEdge,
		PRNCount:                     prnCount,
		SqrtA:                        p.sf2.SqrtA,
		SVHealth:                     p.sf1.SVHealth,
		TGD:                          p.sf1.TGD,
		TOC:                          p.sf1.TOC,
		TOE:                          p.sf2.TOE,
		TOWCount:                     p.towCount,
	}, true
}

// SatelliteParameters holds everything needed to compute a satellite's
// ECEF position and signal transit time, updated as subframes arrive.
type SatelliteParameters struct {
	AF0, AF1, AF2           float64
	CIC, CIS, CRC, CRS      float64
	CUC, CUS                float64
	DeltaN                  float64
	E                       float64
	I0, IDot                float64
	M0                      float64
	Omega, Omega0, OmegaDot float64

	PRNCodeTrailingEdgeTimestamp time.Time
	PRNCount                     int
	SqrtA                        float64
	SVHealth                     uint8
	TGD, TOC, TOE                float64
	TOWCount                     int
}

func (sp *SatelliteParameters) handleSubframe(sf subframe.Subframe) {
	// Subtracting (rather than resetting to 0) preserves the ±1 correction
	// around ms boundaries that saw 0 or 2 PRN edges.
	sp.PRNCount -= config.PRNCodesPerSubframe
	sp.TOWCount = int(sf.Handover().TOWCountMSBs)

	switch v := sf.(type) {
	case subframe.Sf1:
		sp.AF0, sp.AF1, sp.AF2 = v.AF0, v.AF1, v.AF2
		sp.SVHealth = v.SVHealth
		sp.TGD, sp.TOC = v.TGD, v.TOC
	case subframe.Sf2:
		sp.CRS, sp.CUC, sp.CUS = v.CRS, v.CUC, v.CUS
		sp.DeltaN = v.DeltaN * math.Pi
		sp.E = v.E
		sp.M0 = v.M0 * math.Pi
		sp.SqrtA = v.SqrtA
		sp.TOE = v.TOE
	case subframe.Sf3:
		sp.CIC, sp.CIS, sp.CRC = v.CIC, v.CIS, v.CRC
		sp.I0 = v.I0 * math.Pi
		sp.IDot = v.IDot * math.Pi
		sp.Omega = v.Omega * math.Pi
		sp.Omega0 = v.Omega0 * math.Pi
		sp.OmegaDot = v.OmegaDot * math.Pi
	case subframe.Sf4, subframe.Sf5:
	}
}

// EcefCoordinates is a location in Earth-centered, Earth-fixed Cartesian
// coordinates.
type EcefCoordinates struct{ X, Y, Z float64 }

// EcefSolution is a computed position fix with the receiver's clock bias.
type EcefSolution struct {
	ClockBias float64 // seconds
	Position  EcefCoordinates
}

// World stores satellite parameters and solves for the receiver's
// position and clock bias.
type World struct {
	log     logrus.FieldLogger
	pending map[gpscore.SatelliteId]*pending
	sats    map[gpscore.SatelliteId]*SatelliteParameters
}

// New constructs an empty World.
func New(log logrus.FieldLogger) *World {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &World{
		log:     log,
		pending: make(map[gpscore.SatelliteId]*pending),
		sats:    make(map[gpscore.SatelliteId]*SatelliteParameters),
	}
}

// HandlePRNsTracked records the number of PRN code trailing edges
// observed this millisecond and which side of the tracking window is
// now dominant, for use in time-of-transmission calculations.
func (w *World) HandlePRNsTracked(count int, satelliteId gpscore.SatelliteId, side gpscore.Side, trailingEdge time.Time) {
	if sp, ok := w.sats[satelliteId]; ok {
		sp.PRNCodeTrailingEdgeTimestamp = trailingEdge
		sp.PRNCount += count
		return
	}

	p := w.pendingFor(satelliteId)
	p.trailingEdge, p.haveTrailingEdge = trailingEdge, true
	p.side, p.haveSide = side, true
	w.maybePromote(satelliteId)
}

// HandleSubframe records a newly decoded subframe.
func (w *World) HandleSubframe(satelliteId gpscore.SatelliteId, sf subframe.Subframe) {
	if sp, ok := w.sats[satelliteId]; ok {
		sp.handleSubframe(sf)
		return
	}

	p := w.pendingFor(satelliteId)
	p.handleSubframe(sf)
	w.maybePromote(satelliteId)
}

func (w *World) pendingFor(satelliteId gpscore.SatelliteId) *pending {
	p, ok := w.pending[satelliteId]
	if !ok {
		p = &pending{}
		w.pending[satelliteId] = p
	}
	return p
}

func (w *World) maybePromote(satelliteId gpscore.SatelliteId) {
	p, ok := w.pending[satelliteId]
	if !ok {
		return
	}

	sp, ok := p.toSatelliteParameters()
	if !ok {
		return
	}

	w.log.WithField("satellite_id", satelliteId).Info("promoted satellite parameters")
	w.sats[satelliteId] = &sp
	delete(w.pending, satelliteId)
}

// DropSatellite removes all state for a satellite, pending or promoted.
func (w *World) DropSatellite(satelliteId gpscore.SatelliteId) {
	delete(w.pending, satelliteId)
	delete(w.sats, satelliteId)
}

// HasRequiredSubframes reports whether subframes 1, 2, and 3 have been
// received for a satellite, i.e. it's usable in solution computation.
func (w *World) HasRequiredSubframes(satelliteId gpscore.SatelliteId) bool {
	_, ok := w.sats[satelliteId]
	return ok
}

// ComputeSolution runs the Gauss-Newton solver over every healthy,
// promoted satellite. Returns ok=false if fewer than four are available.
func (w *World) ComputeSolution() (EcefSolution, bool) {
	var satelliteIds []gpscore.SatelliteId
	for id, sp := range w.sats {
		if sp.SVHealth&0b100000 == 0 { // MSB of the 6 bit field: 0 = healthy
			satelliteIds = append(satelliteIds, id)
		}
	}

	if len(satelliteIds) < 4 {
		return EcefSolution{}, false
	}

	type satObservation struct {
		position    EcefCoordinates
		transitTime float64
	}

	observations := make([]satObservation, len(satelliteIds))
	for i, id := range satelliteIds {
		pos, transit := w.computeSatellitePositionAndSignalTransitTime(id)
		observations[i] = satObservation{pos, transit}
	}

	guess := []float64{0, 0, 0, 0}

	for iter := 0; iter < config.GaussNewtonIterations; iter++ {
		n := len(observations)
		j := mat.NewDense(n, 4, nil)
		r := mat.NewDense(n, 1, nil)

		x, y, z := guess[0], guess[1], guess[2]
		for i, obs := range observations {
			p := obs.position
			distance := math.Sqrt((p.X-x)*(p.X-x) + (p.Y-y)*(p.Y-y) + (p.Z-z)*(p.Z-z))

			j.Set(i, 0, -(p.X-x)/distance)
			j.Set(i, 1, -(p.Y-y)/distance)
			j.Set(i, 2, -(p.Z-z)/distance)
			j.Set(i, 3, config.SpeedOfLight)

			r.Set(i, 0, distance-config.SpeedOfLight*(obs.transitTime-guess[3]))
		}

		var jt mat.Dense
		jt.CloneFrom(j.T())

		var jtj mat.Dense
		jtj.Mul(&jt, j)

		var jtjInv mat.Dense
		if err := jtjInv.Inverse(&jtj); err != nil {
			return EcefSolution{}, false
		}

		var jtr mat.Dense
		jtr.Mul(&jt, r)

		var delta mat.Dense
		delta.Mul(&jtjInv, &jtr)

		for i := range guess {
			guess[i] -= delta.At(i, 0)
		}
	}

	return EcefSolution{
		ClockBias: guess[3],
		Position:  EcefCoordinates{guess[0], guess[1], guess[2]},
	}, true
}

func (w *World) computeSatellitePositionAndSignalTransitTime(satelliteId gpscore.SatelliteId) (EcefCoordinates, float64) {
	sp := w.sats[satelliteId]

	t := w.computeSatelliteT(satelliteId)
	tK := wrapTimeDelta(t - sp.TOE)
	eK := computeEccentricAnomaly(sp, tK)

	vK := 2 * math.Atan(math.Sqrt((1+sp.E)/(1-sp.E))*math.Tan(eK/2))
	phiK := vK + sp.Omega

	deltaUK := sp.CUS*math.Sin(2*phiK) + sp.CUC*math.Cos(2*phiK)
	deltaRK := sp.CRS*math.Sin(2*phiK) + sp.CRC*math.Cos(2*phiK)
	deltaIK := sp.CIS*math.Sin(2*phiK) + sp.CIC*math.Cos(2*phiK)

	uK := phiK + deltaUK
	a := sp.SqrtA * sp.SqrtA
	rK := a*(1-sp.E*math.Cos(eK)) + deltaRK
	iK := sp.I0 + deltaIK + sp.IDot*tK

	xKPrime := rK * math.Cos(uK)
	yKPrime := rK * math.Sin(uK)

	omegaK := sp.Omega0 + (sp.OmegaDot-config.OmegaEarth)*tK - config.OmegaEarth*sp.TOE

	xK := xKPrime*math.Cos(omegaK) - yKPrime*math.Cos(iK)*math.Sin(omegaK)
	yK := xKPrime*math.Sin(omegaK) + yKPrime*math.Cos(iK)*math.Cos(omegaK)
	zK := yKPrime * math.Sin(iK)

	tRcv := toTimeOfWeek(sp.PRNCodeTrailingEdgeTimestamp)
	transitTime := wrapTimeDelta(tRcv - t)

	return EcefCoordinates{xK, yK, zK}, transitTime
}

// computeSatelliteT computes the GPS time at which a satellite
// transmitted the trailing edge of its most recently received PRN code.
func (w *World) computeSatelliteT(satelliteId gpscore.SatelliteId) float64 {
	sp := w.sats[satelliteId]

	tSV := float64(sp.TOWCount)*6 + float64(sp.PRNCount)*0.001
	deltaT := wrapTimeDelta(tSV - sp.TOC)

	eK := computeEccentricAnomaly(sp, wrapTimeDelta(tSV-sp.TOE))
	deltaTr := config.RelativisticCorrectionF * sp.E * sp.SqrtA * math.Sin(eK)
	deltaTSV := sp.AF0 + sp.AF1*deltaT + sp.AF2*deltaT*deltaT + deltaTr

	return tSV - (deltaTSV - sp.TGD)
}

// computeEccentricAnomaly computes E_k by 3 iterations of Newton's method
// starting from the mean anomaly, per Table 20-IV. tK must already have
// been passed through wrapTimeDelta.
func computeEccentricAnomaly(sp *SatelliteParameters, tK float64) float64 {
	a := sp.SqrtA * sp.SqrtA
	n0 := math.Sqrt(config.MuEarth / (a * a * a))
	n := n0 + sp.DeltaN
	mK := sp.M0 + n*tK

	e := mK
	for i := 0; i < 3; i++ {
		e += (mK - e + sp.E*math.Sin(e)) / (1 - sp.E*math.Cos(e))
	}
	return e
}

// wrapTimeDelta wraps a difference of two GPS time-of-week values to
// account for week crossovers.
func wrapTimeDelta(t float64) float64 {
	if t > config.SecondsPerGPSWeek/2 {
		return t - config.SecondsPerGPSWeek
	}
	if t < -config.SecondsPerGPSWeek/2 {
		return t + config.SecondsPerGPSWeek
	}
	return t
}

// gpsZero is the GPS time origin: 00:00:00 UTC on 1980-01-06.
var gpsZero = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// toTimeOfWeek converts a UTC timestamp to GPS seconds-of-week, applying
// the hard-coded leap second offset.
func toTimeOfWeek(timestamp time.Time) float64 {
	corrected := timestamp.Add(config.LeapSeconds * time.Second)
	elapsed := corrected.Sub(gpsZero).Seconds()
	w := math.Mod(elapsed, config.SecondsPerGPSWeek)
	if w < 0 {
		w += config.SecondsPerGPSWeek
	}
	return w
}

// Package tracker implements the per-satellite code and carrier tracking
// loop: carrier wipeoff, a DLL for the C/A code phase, PRN-edge counting
// for timekeeping, pseudosymbol decoding, and a Costas loop for the
// carrier frequency/phase.
package tracker

import (
	"math"
	"time"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/prn"
)

// PseudosymbolSink receives one pseudosymbol per tracked millisecond.
type PseudosymbolSink interface {
	HandlePseudosymbol(gpscore.Pseudosymbol)
}

// World receives the number of PRN code trailing edges observed this
// millisecond, along with the side that's now dominant and the UTC
// timestamp of the last observed trailing edge.
type World interface {
	HandlePRNsTracked(count int, satelliteId gpscore.SatelliteId, side gpscore.Side, trailingEdge time.Time)
}

// Tracker tracks one satellite's signal.
type Tracker struct {
	carrierFrequencyShifts *gpscore.FloatRingBuffer
	carrierPhaseShifts     *gpscore.FloatRingBuffer
	correlations           *gpscore.ComplexRingBuffer
	prnCodePhaseShifts     *gpscore.FloatRingBuffer

	prnCode       []complex128
	prnCodeLength int

	pseudosymbolSink PseudosymbolSink
	satelliteId      gpscore.SatelliteId
	side             gpscore.Side
	world            World
}

// New constructs a Tracker seeded with an Acquisition's initial estimates.
func New(acquisition gpscore.Acquisition, code prn.Code, sink PseudosymbolSink, world World) *Tracker {
	t := &Tracker{
		carrierFrequencyShifts: gpscore.NewFloatRingBuffer(config.TrackingHistorySize),
		carrierPhaseShifts:     gpscore.NewFloatRingBuffer(config.TrackingHistorySize),
		correlations:           gpscore.NewComplexRingBuffer(config.TrackingHistorySize),
		prnCodePhaseShifts:     gpscore.NewFloatRingBuffer(config.TrackingHistorySize),
		prnCode:                code.Replica,
		prnCodeLength:          len(code.Replica),
		pseudosymbolSink:       sink,
		satelliteId:            acquisition.SatelliteId,
		world:                  world,
	}

	t.carrierFrequencyShifts.Push(acquisition.CarrierFrequencyShift)
	t.carrierPhaseShifts.Push(acquisition.CarrierPhaseShift)
	t.prnCodePhaseShifts.Push(acquisition.PRNCodePhaseShift)

	if acquisition.PRNCodePhaseShift > float64(t.prnCodeLength)/2 {
		t.side = gpscore.SideLeft
	} else {
		t.side = gpscore.SideRight
	}

	return t
}

// CarrierFrequencyShifts returns the tracking history, oldest first.
func (t *Tracker) CarrierFrequencyShifts() []float64 { return t.carrierFrequencyShifts.Values() }

// PRNCodePhaseShifts returns the tracking history, oldest first.
func (t *Tracker) PRNCodePhaseShifts() []float64 { return t.prnCodePhaseShifts.Values() }

// Correlations returns the tracking history, oldest first.
func (t *Tracker) Correlations() []complex128 { return t.correlations.Values() }

func (t *Tracker) carrierFrequencyShift() float64 { return t.carrierFrequencyShifts.Last() }
func (t *Tracker) carrierPhaseShift() float64     { return t.carrierPhaseShifts.Last() }
func (t *Tracker) prnCodePhaseShift() float64     { return t.prnCodePhaseShifts.Last() }

// HandleSampleBlock processes 1 ms of received samples.
func (t *Tracker) HandleSampleBlock(block gpscore.SampleBlock) {
	shifted := make([]complex128, len(block.Samples))
	f := t.carrierFrequencyShift()
	theta := t.carrierPhaseShift()
	for k, s := range block.Samples {
		tk := float64(k) / config.SampleRateHz
		phase := -(2*math.Pi*f*tk + theta)
		rot := complex(math.Cos(phase), math.Sin(phase))
		shifted[k] = complex128(s) * rot
	}

	wrapSide, wrapped := t.trackPRNCodePhaseShift(shifted)

	var prnCount int
	switch {
	case !wrapped:
		prnCount = 1
	case wrapSide == gpscore.SideLeft:
		prnCount = 2
		t.side = gpscore.SideLeft
	case wrapSide == gpscore.SideRight:
		prnCount = 0
		t.side = gpscore.SideRight
	}

	trailingEdge := block.Start.Add(time.Duration(t.prnCodePhaseShift() / float64(t.prnCodeLength) / 1000 * float64(time.Second)))
	t.world.HandlePRNsTracked(prnCount, t.satelliteId, t.side, trailingEdge)

	correlation := t.correlateWithShift(shifted, int(t.prnCodePhaseShift()))
	t.correlations.Push(correlation)

	ps := gpscore.Pseudosymbol(1)
	if real(correlation) < 0 {
		ps = -1
	}
	t.pseudosymbolSink.HandlePseudosymbol(ps)

	t.trackCarrier(correlation)
}

// trackPRNCodePhaseShift runs the DLL for one millisecond and returns the
// side (if any) the phase shift wrapped across.
func (t *Tracker) trackPRNCodePhaseShift(shifted []complex128) (gpscore.Side, bool) {
	phase := t.prnCodePhaseShift()

	earlyCorrelation := t.correlateWithShift(shifted, int(phase-1))
	lateCorrelation := t.correlateWithShift(shifted, int(phase+1))

	discriminator := (sqMag(earlyCorrelation) - sqMag(lateCorrelation)) / 2

	halfChipsDueToDoppler := float64(t.prnCodeLength) * t.carrierFrequencyShift() / config.L1FrequencyHz

	newPhase := phase - discriminator*config.PRNCodePhaseShiftTrackingLoopGain - halfChipsDueToDoppler

	var side gpscore.Side
	wrapped := false

	if newPhase < 0 {
		newPhase += float64(t.prnCodeLength)
		side = gpscore.SideLeft
		wrapped = true
	} else if newPhase >= float64(t.prnCodeLength) {
		newPhase -= float64(t.prnCodeLength)
		side = gpscore.SideRight
		wrapped = true
	}

	t.prnCodePhaseShifts.Push(newPhase)
	return side, wrapped
}

// trackCarrier runs the Costas loop for one millisecond. The frequency
// estimate is updated before the phase estimate, since the phase update
// incorporates the latest frequency to account for the change in phase
// it causes between tracker updates.
func (t *Tracker) trackCarrier(correlation complex128) {
	magnitude := cmplxAbs(correlation)
	normalized := correlation / complex(magnitude+1e-8, 0)

	var errSignal float64
	if real(normalized) != 0 {
		errSignal = math.Atan(imag(normalized) / real(normalized))
	}

	const updateInterval = 0.001

	newFrequency := t.carrierFrequencyShift() + config.CarrierFrequencyShiftTrackingLoopGain*errSignal*updateInterval
	t.carrierFrequencyShifts.Push(newFrequency)

	newPhase := t.carrierPhaseShift() + (config.CarrierPhaseShiftTrackingLoopGain*errSignal+2*math.Pi*newFrequency)*updateInterval
	newPhase = math.Mod(newPhase, 2*math.Pi)
	if newPhase < 0 {
		newPhase += 2 * math.Pi
	}
	t.carrierPhaseShifts.Push(newPhase)
}

// correlateWithShift computes Σ shifted[i] * roll(t.prnCode, n)[i] without
// materializing the rolled replica, matching numpy.roll's semantics for n
// (it may be negative or exceed the code length).
func (t *Tracker) correlateWithShift(shifted []complex128, n int) complex128 {
	length := t.prnCodeLength
	n = ((n % length) + length) % length

	var sum complex128
	for i, s := range shifted {
		j := i - n
		if j < 0 {
			j += length
		}
		sum += s * t.prnCode[j]
	}
	return sum
}

func sqMag(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// Package acquirer detects untracked GPS satellites in a rolling window of
// recent samples and estimates the parameters needed to start tracking
// them: Doppler shift, code phase, and carrier phase.
package acquirer

import (
	"math"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/prn"
)

// Scheduler decides, given a rolling sample window and the set of
// currently tracked satellites, whether to attempt an acquisition this
// millisecond and returns its result (if any is ready).
//
// InProcess performs the search synchronously on the calling goroutine;
// Background dispatches it to a worker goroutine so real-time sample
// ingestion isn't stalled by the search.
type Scheduler interface {
	HandleSampleBlock(block gpscore.SampleBlock, tracked map[gpscore.SatelliteId]struct{}) *gpscore.Acquisition
	UntrackedSatellites(tracked map[gpscore.SatelliteId]struct{}) []UntrackedSatellite
}

// UntrackedSatellite reports when a satellite not currently being tracked
// will next be attempted.
type UntrackedSatellite struct {
	SatelliteId       gpscore.SatelliteId
	NextAcquisitionAt time.Time
}

// base implements the scheduling logic shared by both Scheduler
// implementations: the sample window, the per-satellite acquisition
// clock, and picking the next acquisition target.
type base struct {
	codes                      prn.Table
	nextAcquisitionBySatellite map[gpscore.SatelliteId]time.Time
	window                     []gpscore.SampleBlock
}

func newBase(codes prn.Table) base {
	next := make(map[gpscore.SatelliteId]time.Time, config.AllSatelliteIDsHigh-config.AllSatelliteIDsLow+1)
	for id := config.AllSatelliteIDsLow; id <= config.AllSatelliteIDsHigh; id++ {
		next[gpscore.SatelliteId(id)] = time.Time{} // zero value sorts before any real timestamp
	}
	return base{
		codes:                      codes,
		nextAcquisitionBySatellite: next,
		window:                     make([]gpscore.SampleBlock, 0, config.AcquisitionWindowSize),
	}
}

func (b *base) push(block gpscore.SampleBlock) {
	b.window = append(b.window, block)
	if len(b.window) > config.AcquisitionWindowSize {
		b.window = b.window[len(b.window)-config.AcquisitionWindowSize:]
	}
}

func (b *base) ready() bool {
	return len(b.window) >= config.AcquisitionWindowSize
}

func (b *base) nextTarget(tracked map[gpscore.SatelliteId]struct{}) (gpscore.SatelliteId, bool) {
	if len(b.window) == 0 {
		return 0, false
	}
	now := b.window[len(b.window)-1].End

	best := gpscore.SatelliteId(0)
	bestAt := time.Time{}
	found := false

	for id, at := range b.nextAcquisitionBySatellite {
		if _, isTracked := tracked[id]; isTracked {
			continue
		}
		if at.After(now) {
			continue
		}
		if !found || at.Before(bestAt) {
			best, bestAt, found = id, at, true
		}
	}

	return best, found
}

func (b *base) untracked(tracked map[gpscore.SatelliteId]struct{}) []UntrackedSatellite {
	out := make([]UntrackedSatellite, 0, len(b.nextAcquisitionBySatellite))
	for id, at := range b.nextAcquisitionBySatellite {
		if _, isTracked := tracked[id]; isTracked {
			continue
		}
		out = append(out, UntrackedSatellite{SatelliteId: id, NextAcquisitionAt: at})
	}
	return out
}

func (b *base) recordAttempt(satelliteId gpscore.SatelliteId, at time.Time) {
	b.nextAcquisitionBySatellite[satelliteId] = at.Add(config.AcquisitionInterval)
}

// InProcess performs acquisition searches synchronously, on the same
// goroutine that feeds it samples. Appropriate for file-based ingestion,
// where there's no real-time deadline to miss.
type InProcess struct {
	base
}

// NewInProcess constructs an InProcess acquirer using the given PRN code
// table.
func NewInProcess(codes prn.Table) *InProcess {
	return &InProcess{base: newBase(codes)}
}

func (a *InProcess) HandleSampleBlock(block gpscore.SampleBlock, tracked map[gpscore.SatelliteId]struct{}) *gpscore.Acquisition {
	a.push(block)
	if !a.ready() {
		return nil
	}

	satelliteId, found := a.nextTarget(tracked)
	if !found {
		return nil
	}

	acquisition := search(a.window, satelliteId, a.codes[int(satelliteId)])
	a.recordAttempt(satelliteId, block.End)

	if acquisition.Strength >= config.AcquisitionStrengthThreshold {
		return &acquisition
	}
	return nil
}

func (a *InProcess) UntrackedSatellites(tracked map[gpscore.SatelliteId]struct{}) []UntrackedSatellite {
	return a.untracked(tracked)
}

// Background performs acquisition searches on a dedicated worker
// goroutine, so the caller's per-ms loop never blocks on the search.
// There is at most one in-flight job at a time; while one is running no
// new job is dispatched.
type Background struct {
	base

	jobs    chan job
	results chan gpscore.Acquisition
	waiting bool
}

type job struct {
	window      []gpscore.SampleBlock
	satelliteId gpscore.SatelliteId
	code        prn.Code
}

// NewBackground constructs a Background acquirer and starts its worker
// goroutine. The worker is never stopped explicitly; it exits when the
// process does.
func NewBackground(codes prn.Table) *Background {
	a := &Background{
		base:    newBase(codes),
		jobs:    make(chan job, 1),
		results: make(chan gpscore.Acquisition, 1),
	}
	go a.run()
	return a
}

func (a *Background) run() {
	for j := range a.jobs {
		windowCopy := make([]gpscore.SampleBlock, len(j.window))
		copy(windowCopy, j.window)
		a.results <- search(windowCopy, j.satelliteId, j.code)
	}
}

func (a *Background) HandleSampleBlock(block gpscore.SampleBlock, tracked map[gpscore.SatelliteId]struct{}) *gpscore.Acquisition {
	a.push(block)
	if !a.ready() {
		return nil
	}

	if a.waiting {
		select {
		case acquisition := <-a.results:
			a.waiting = false
			a.recordAttempt(acquisition.SatelliteId, block.End)
			if acquisition.Strength >= config.AcquisitionStrengthThreshold {
				return &acquisition
			}
		default:
		}
		return nil
	}

	satelliteId, found := a.nextTarget(tracked)
	if !found {
		return nil
	}

	a.jobs <- job{window: a.window, satelliteId: satelliteId, code: a.codes[int(satelliteId)]}
	a.waiting = true
	return nil
}

func (a *Background) UntrackedSatellites(tracked map[gpscore.SatelliteId]struct{}) []UntrackedSatellite {
	return a.untracked(tracked)
}

// search performs the hierarchical Doppler search described in
// SPEC_FULL.md §4.1: progressively narrowing a 29-point frequency grid
// around ±InitialDopplerSearchHalfRangeHz until the half-range falls
// below DopplerSearchMinHalfRangeHz.
func search(window []gpscore.SampleBlock, satelliteId gpscore.SatelliteId, code prn.Code) gpscore.Acquisition {
	var best gpscore.Acquisition
	haveBest := false

	centre := 0.0
	halfRange := config.InitialDopplerSearchHalfRangeHz

	for halfRange >= config.DopplerSearchMinHalfRangeHz {
		shifts := linspace(centre-halfRange, centre+halfRange, config.DopplerSearchPoints)
		candidate := searchAtFrequencyShifts(shifts, window, satelliteId, code)

		if !haveBest || candidate.Strength > best.Strength {
			best = candidate
			haveBest = true
		}

		centre = best.CarrierFrequencyShift
		halfRange /= 2
	}

	return best
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func searchAtFrequencyShifts(frequencyShifts []float64, window []gpscore.SampleBlock, satelliteId gpscore.SatelliteId, code prn.Code) gpscore.Acquisition {
	n := len(code.Replica)
	fft := fourier.NewCmplxFFT(n)

	codeCoeffs := fft.Coefficients(nil, code.Replica)
	codeCoeffsConj := make([]complex128, n)
	for i, c := range codeCoeffs {
		codeCoeffsConj[i] = complex(real(c), -imag(c))
	}

	coherentSums := make([][]complex128, len(frequencyShifts))
	magnitudeSums := make([][]float64, len(frequencyShifts))
	for i := range frequencyShifts {
		coherentSums[i] = make([]complex128, n)
		magnitudeSums[i] = make([]float64, n)
	}

	shifted := make([]complex128, n)
	scratch := make([]complex128, n)

	for i, f := range frequencyShifts {
		for j, block := range window {
			for k, s := range block.Samples {
				t := float64(k)/config.SampleRateHz + float64(j)*0.001
				phase := -2 * math.Pi * f * t
				rot := complex(math.Cos(phase), math.Sin(phase))
				shifted[k] = complex128(s) * rot
			}

			coeffs := fft.Coefficients(scratch, shifted)
			product := make([]complex128, n)
			for k := range product {
				product[k] = coeffs[k] * codeCoeffsConj[k]
			}

			correlation := fft.Sequence(nil, product)
			for k, c := range correlation {
				// gonum's Sequence is the unnormalized inverse transform;
				// divide by n to match a normalized IFFT.
				c = c / complex(float64(n), 0)
				coherentSums[i][k] += c
				magnitudeSums[i][k] += cmplxAbs(c)
			}
		}
	}

	bestI, bestK := 0, 0
	bestMagnitude := -1.0
	for i := range magnitudeSums {
		for k, m := range magnitudeSums[i] {
			if m > bestMagnitude {
				bestMagnitude, bestI, bestK = m, i, k
			}
		}
	}

	var sum float64
	var count int
	for k, m := range magnitudeSums[bestI] {
		if k == bestK {
			continue
		}
		sum += m
		count++
	}
	mean := sum / float64(count)

	return gpscore.Acquisition{
		SatelliteId:           satelliteId,
		CarrierFrequencyShift: frequencyShifts[bestI],
		CarrierPhaseShift:     cmplxAngle(coherentSums[bestI][bestK]),
		PRNCodePhaseShift:     float64(bestK),
		Strength:              bestMagnitude / mean,
		Timestamp:             window[len(window)-1].End,
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func cmplxAngle(c complex128) float64 {
	return math.Atan2(imag(c), real(c))
}

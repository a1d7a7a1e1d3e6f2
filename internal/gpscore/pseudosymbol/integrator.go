// Package pseudosymbol integrates per-millisecond pseudosymbols into
// unresolved navigation bits, finding the bit boundary once enough data
// has been collected.
package pseudosymbol

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

const pseudosymbolsRequiredPerPhase = config.PseudosymbolsRequiredPerPhase

// BitSink receives one unresolved bit per 20 pseudosymbols, once the bit
// boundary has been found.
type BitSink interface {
	HandleUnresolvedBit(gpscore.UnresolvedBit)
}

// Integrator integrates pseudosymbols into unresolved bits.
type Integrator struct {
	bitBoundaryFound bool
	log              logrus.FieldLogger
	pseudosymbols    []gpscore.Pseudosymbol
	satelliteId      gpscore.SatelliteId
	sink             BitSink
}

// New constructs an Integrator for one satellite.
func New(satelliteId gpscore.SatelliteId, sink BitSink, log logrus.FieldLogger) *Integrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Integrator{log: log, satelliteId: satelliteId, sink: sink}
}

// BitBoundaryFound reports whether the pseudosymbol-to-bit boundary has
// been located yet.
func (i *Integrator) BitBoundaryFound() bool { return i.bitBoundaryFound }

// HandlePseudosymbol consumes one pseudosymbol.
func (i *Integrator) HandlePseudosymbol(ps gpscore.Pseudosymbol) {
	i.pseudosymbols = append(i.pseudosymbols, ps)

	if !i.bitBoundaryFound {
		var countPositive, countNegative int
		for _, p := range i.pseudosymbols {
			if p == 1 {
				countPositive++
			} else {
				countNegative++
			}
		}
		if countPositive >= pseudosymbolsRequiredPerPhase && countNegative >= pseudosymbolsRequiredPerPhase {
			i.findBitBoundary()
		}
	}

	for len(i.pseudosymbols) >= config.PseudosymbolsPerBit && i.bitBoundaryFound {
		chunk := i.pseudosymbols[:config.PseudosymbolsPerBit]
		i.pseudosymbols = i.pseudosymbols[config.PseudosymbolsPerBit:]

		var sum int
		for _, p := range chunk {
			sum += int(p)
		}
		// An exact tie (sum == 0, a 10/10 split) resolves to +1 here; the
		// reference implementation instead keeps whichever sign it saw
		// first in the chunk. Both are arbitrary, but this is a known,
		// rare divergence from it.
		unresolved := gpscore.UnresolvedBit(1)
		if sum < 0 {
			unresolved = -1
		}
		i.sink.HandleUnresolvedBit(unresolved)
	}
}

// findBitBoundary scores every offset in [0, PseudosymbolsPerBit) by the
// mean magnitude of its chunk sums and keeps the best-scoring offset,
// discarding any leading pseudosymbols that precede it.
func (i *Integrator) findBitBoundary() {
	bestOffset := 0
	bestScore := -1.0

	for offset := 0; offset < config.PseudosymbolsPerBit; offset++ {
		remaining := i.pseudosymbols[offset:]
		var total float64
		var count int

		for start := 0; start+config.PseudosymbolsPerBit <= len(remaining); start += config.PseudosymbolsPerBit {
			var sum int
			for _, p := range remaining[start : start+config.PseudosymbolsPerBit] {
				sum += int(p)
			}
			total += math.Abs(float64(sum))
			count++
		}

		score := 0.0
		if count > 0 {
			score = total / float64(count)
		}

		if score > bestScore {
			bestScore, bestOffset = score, offset
		}
	}

	i.pseudosymbols = i.pseudosymbols[bestOffset:]
	i.bitBoundaryFound = true
	i.log.WithField("satellite_id", i.satelliteId).Info("found the pseudosymbol bit boundary")
}

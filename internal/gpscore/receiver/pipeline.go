// Package receiver wires the per-satellite pipelines (tracker →
// pseudosymbol integrator → bit integrator → subframe decoder → world)
// together with the acquirer and drives the per-millisecond step.
package receiver

import (
	"time"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/bitintegrator"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/prn"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/pseudosymbol"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/subframe"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/tracker"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/world"
)

// pipeline owns the tracking and decoding chain for one satellite, from
// the moment it's acquired until it's dropped.
type pipeline struct {
	satelliteId gpscore.SatelliteId
	acquiredAt  time.Time

	tracker                *tracker.Tracker
	pseudosymbolIntegrator *pseudosymbol.Integrator
	bitIntegrator          *bitintegrator.Integrator
	world                  *world.World

	subframeCount int
	err           error
}

func newPipeline(acquisition gpscore.Acquisition, code prn.Code, w *world.World) *pipeline {
	p := &pipeline{satelliteId: acquisition.SatelliteId, acquiredAt: acquisition.Timestamp, world: w}
	p.bitIntegrator = bitintegrator.New(acquisition.SatelliteId, p, nil)
	p.pseudosymbolIntegrator = pseudosymbol.New(acquisition.SatelliteId, p, nil)
	p.tracker = tracker.New(acquisition, code, p, w)
	return p
}

// HandleSampleBlock feeds one millisecond of samples through the tracker,
// propagating the chain's first error (if any) into p.err.
//
// tracker.HandleSampleBlock is void by design — it forwards pseudosymbols
// synchronously to HandlePseudosymbol below, which is where subframe
// decode errors actually surface.
func (p *pipeline) HandleSampleBlock(block gpscore.SampleBlock) error {
	p.tracker.HandleSampleBlock(block)
	return p.err
}

// HandlePseudosymbol implements tracker.PseudosymbolSink.
func (p *pipeline) HandlePseudosymbol(ps gpscore.Pseudosymbol) {
	p.pseudosymbolIntegrator.HandlePseudosymbol(ps)
}

// HandleUnresolvedBit implements pseudosymbol.BitSink.
func (p *pipeline) HandleUnresolvedBit(bit gpscore.UnresolvedBit) {
	if p.err != nil {
		return
	}
	if err := p.bitIntegrator.HandleUnresolvedBit(bit); err != nil {
		p.err = err
	}
}

// HandleSubframeBits implements bitintegrator.SubframeSink.
func (p *pipeline) HandleSubframeBits(bits [config.BitsPerSubframe]gpscore.Bit) {
	if p.err != nil {
		return
	}

	sf, err := subframe.Decode(bits)
	if err != nil {
		p.err = err
		return
	}

	p.subframeCount++
	p.world.HandleSubframe(p.satelliteId, sf)
}

package receiver

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/acquirer"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/prn"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/world"
)

// Solution is one computed position fix, converted to geodetic
// coordinates for display.
type Solution struct {
	ClockBias float64
	Latitude  float64
	Longitude float64
	Height    float64
}

// TrackedSatellite is a by-value snapshot of one pipeline's observable
// state, safe to hand to the telemetry collaborator without sharing a
// pointer into live pipeline state.
type TrackedSatellite struct {
	SatelliteId               gpscore.SatelliteId
	AcquiredAt                time.Time
	BitBoundaryFound          bool
	BitPhaseKnown             bool
	BitPhase                  gpscore.BitPhase
	CarrierFrequencyShifts    []float64
	Correlations              []complex128
	PRNCodePhaseShifts        []float64
	RequiredSubframesReceived bool
	SubframeCount             int
}

// UntrackedSatellite is a by-value snapshot of one untracked satellite's
// acquisition schedule.
type UntrackedSatellite struct {
	SatelliteId       gpscore.SatelliteId
	NextAcquisitionAt time.Time
}

// Snapshot is the observable state handed to the telemetry collaborator
// roughly every config.HTTPUpdateInterval.
type Snapshot struct {
	Solutions           []Solution
	TrackedSatellites   []TrackedSatellite
	UntrackedSatellites []UntrackedSatellite
}

// Receiver drives the per-millisecond step: acquisition, per-satellite
// pipeline feeding, position solving, and periodic telemetry
// snapshotting. It is used strictly sequentially; the only concurrency
// is the acquirer's optional background worker and the telemetry
// delivery channel.
type Receiver struct {
	log       logrus.FieldLogger
	codes     prn.Table
	acquirer  acquirer.Scheduler
	world     *world.World
	pipelines map[gpscore.SatelliteId]*pipeline

	solutions []Solution

	telemetry        chan<- Snapshot
	lastSnapshotSent time.Time
}

// New constructs a Receiver. telemetry may be nil if no telemetry
// collaborator is running; it should otherwise be a capacity-1 channel
// that the caller drains, as sends never block (they drop when full).
func New(sched acquirer.Scheduler, codes prn.Table, telemetry chan<- Snapshot, log logrus.FieldLogger) *Receiver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Receiver{
		log:       log,
		codes:     codes,
		acquirer:  sched,
		world:     world.New(log),
		pipelines: make(map[gpscore.SatelliteId]*pipeline),
		telemetry: telemetry,
	}
}

// HandleSampleBlock runs one millisecond's step of the receiver.
func (r *Receiver) HandleSampleBlock(block gpscore.SampleBlock) {
	tracked := make(map[gpscore.SatelliteId]struct{}, len(r.pipelines))
	for id := range r.pipelines {
		tracked[id] = struct{}{}
	}

	if acquisition := r.acquirer.HandleSampleBlock(block, tracked); acquisition != nil {
		r.log.WithFields(logrus.Fields{
			"satellite_id": acquisition.SatelliteId,
			"strength":     acquisition.Strength,
		}).Info("acquired satellite")
		r.pipelines[acquisition.SatelliteId] = newPipeline(*acquisition, r.codes[int(acquisition.SatelliteId)], r.world)
	}

	for id, p := range r.pipelines {
		if err := p.HandleSampleBlock(block); err != nil {
			r.log.WithFields(logrus.Fields{
				"satellite_id": id,
				"error":        err,
			}).Warn("dropping satellite")
			delete(r.pipelines, id)
			r.world.DropSatellite(id)
		}
	}

	if solution, ok := r.world.ComputeSolution(); ok {
		geodetic := world.EcefToGeodetic(solution.Position)
		r.solutions = append(r.solutions, Solution{
			ClockBias: solution.ClockBias,
			Latitude:  geodetic.LatitudeRad,
			Longitude: geodetic.LongitudeRad,
			Height:    geodetic.HeightM,
		})
		if len(r.solutions) > config.SolutionHistorySize {
			r.solutions = r.solutions[len(r.solutions)-config.SolutionHistorySize:]
		}
	}

	if r.telemetry != nil && block.End.Sub(r.lastSnapshotSent) >= config.HTTPUpdateInterval {
		r.lastSnapshotSent = block.End
		select {
		case r.telemetry <- r.snapshot(tracked):
		default:
		}
	}
}

func (r *Receiver) snapshot(tracked map[gpscore.SatelliteId]struct{}) Snapshot {
	solutions := make([]Solution, len(r.solutions))
	copy(solutions, r.solutions)

	trackedSatellites := make([]TrackedSatellite, 0, len(r.pipelines))
	for id, p := range r.pipelines {
		trackedSatellites = append(trackedSatellites, TrackedSatellite{
			SatelliteId:               id,
			AcquiredAt:                p.acquiredAt,
			BitBoundaryFound:          p.pseudosymbolIntegrator.BitBoundaryFound(),
			BitPhaseKnown:             p.bitIntegrator.BitPhaseKnown(),
			BitPhase:                  p.bitIntegrator.BitPhase(),
			CarrierFrequencyShifts:    p.tracker.CarrierFrequencyShifts(),
			Correlations:              p.tracker.Correlations(),
			PRNCodePhaseShifts:        p.tracker.PRNCodePhaseShifts(),
			RequiredSubframesReceived: r.world.HasRequiredSubframes(id),
			SubframeCount:             p.subframeCount,
		})
	}

	untrackedSatellites := []UntrackedSatellite{}
	for _, u := range r.acquirer.UntrackedSatellites(tracked) {
		untrackedSatellites = append(untrackedSatellites, UntrackedSatellite(u))
	}

	return Snapshot{
		Solutions:           solutions,
		TrackedSatellites:   trackedSatellites,
		UntrackedSatellites: untrackedSatellites,
	}
}

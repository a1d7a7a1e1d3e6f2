// Package telemetry serves the receiver's observable state over HTTP: a
// JSON snapshot endpoint and a health check, in the style of the pack's
// NTRIP caster server wrapper.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/receiver"
)

type solution struct {
	ClockBias float64  `json:"clock_bias"`
	Position  position `json:"position"`
}

type position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Height    float64 `json:"height"`
}

type trackedSatellite struct {
	SatelliteId               gpscore.SatelliteId `json:"satellite_id"`
	AcquiredAt                time.Time            `json:"acquired_at"`
	BitBoundaryFound          bool                 `json:"bit_boundary_found"`
	BitPhase                  *gpscore.BitPhase    `json:"bit_phase"`
	CarrierFrequencyShifts    []float64            `json:"carrier_frequency_shifts"`
	Correlations              [][2]float64         `json:"correlations"`
	PRNCodePhaseShifts        []float64            `json:"prn_code_phase_shifts"`
	RequiredSubframesReceived bool                 `json:"required_subframes_received"`
	SubframeCount             int                  `json:"subframe_count"`
}

type untrackedSatellite struct {
	SatelliteId       gpscore.SatelliteId `json:"satellite_id"`
	NextAcquisitionAt time.Time           `json:"next_acquisition_at"`
}

type snapshotBody struct {
	Solutions           []solution           `json:"solutions"`
	TrackedSatellites   []trackedSatellite   `json:"tracked_satellites"`
	UntrackedSatellites []untrackedSatellite `json:"untracked_satellites"`
}

// Server is a small HTTP wrapper that serves the most recently received
// receiver.Snapshot as JSON, plus a liveness endpoint.
type Server struct {
	correlationID uuid.UUID
	log           logrus.FieldLogger
	srv           *http.Server

	mu       sync.Mutex
	body     *snapshotBody
	received bool
}

// NewServer constructs a telemetry Server listening on addr. Call Serve
// to start accepting connections and Consume (typically in its own
// goroutine) to drain snapshots from the receiver.
func NewServer(addr string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{correlationID: uuid.New(), log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSnapshot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Serve blocks accepting connections until the server is shut down, at
// which point it returns http.ErrServerClosed.
func (s *Server) Serve() error {
	s.log.WithFields(logrus.Fields{
		"addr":           s.srv.Addr,
		"correlation_id": s.correlationID,
	}).Info("starting telemetry server")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Consume drains snapshots from ch until it's closed, storing the latest
// one for handleSnapshot to serve. Intended to run in its own goroutine
// for the lifetime of the server.
func (s *Server) Consume(ch <-chan receiver.Snapshot) {
	for snap := range ch {
		body := toBody(snap)

		s.mu.Lock()
		s.body = &body
		s.received = true
		s.mu.Unlock()
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Warn("failed to encode telemetry snapshot")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	received := s.received
	s.mu.Unlock()

	if !received {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func toBody(snap receiver.Snapshot) snapshotBody {
	solutions := make([]solution, len(snap.Solutions))
	for i, s := range snap.Solutions {
		solutions[i] = solution{
			ClockBias: s.ClockBias,
			Position:  position{Latitude: s.Latitude, Longitude: s.Longitude, Height: s.Height},
		}
	}

	tracked := make([]trackedSatellite, len(snap.TrackedSatellites))
	for i, t := range snap.TrackedSatellites {
		var phase *gpscore.BitPhase
		if t.BitPhaseKnown {
			p := t.BitPhase
			phase = &p
		}

		correlations := make([][2]float64, len(t.Correlations))
		for j, c := range t.Correlations {
			correlations[j] = [2]float64{real(c), imag(c)}
		}

		tracked[i] = trackedSatellite{
			SatelliteId:               t.SatelliteId,
			AcquiredAt:                t.AcquiredAt,
			BitBoundaryFound:          t.BitBoundaryFound,
			BitPhase:                  phase,
			CarrierFrequencyShifts:    t.CarrierFrequencyShifts,
			Correlations:              correlations,
			PRNCodePhaseShifts:        t.PRNCodePhaseShifts,
			RequiredSubframesReceived: t.RequiredSubframesReceived,
			SubframeCount:             t.SubframeCount,
		}
	}

	untracked := make([]untrackedSatellite, len(snap.UntrackedSatellites))
	for i, u := range snap.UntrackedSatellites {
		untracked[i] = untrackedSatellite{SatelliteId: u.SatelliteId, NextAcquisitionAt: u.NextAcquisitionAt}
	}

	return snapshotBody{Solutions: solutions, TrackedSatellites: tracked, UntrackedSatellites: untracked}
}

package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/receiver"
)

func TestHealthzIsUnavailableUntilFirstSnapshot(t *testing.T) {
	s := NewServer(":0", logrus.StandardLogger())

	rec := httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ch := make(chan receiver.Snapshot, 1)
	ch <- receiver.Snapshot{}
	close(ch)
	s.Consume(ch)

	rec = httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSnapshotServesNullBeforeFirstSnapshot(t *testing.T) {
	s := NewServer(":0", logrus.StandardLogger())

	rec := httptest.NewRecorder()
	s.handleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "null\n", rec.Body.String())
}

func TestHandleSnapshotEncodesFieldNames(t *testing.T) {
	s := NewServer(":0", logrus.StandardLogger())

	phase := gpscore.BitPhasePositive
	snap := receiver.Snapshot{
		Solutions: []receiver.Solution{{ClockBias: 1.5, Latitude: 0.1, Longitude: 0.2, Height: 3}},
		TrackedSatellites: []receiver.TrackedSatellite{{
			SatelliteId:   7,
			BitPhaseKnown: true,
			BitPhase:      phase,
			Correlations:  []complex128{complex(1, 2)},
		}},
		UntrackedSatellites: []receiver.UntrackedSatellite{{SatelliteId: 9}},
	}

	ch := make(chan receiver.Snapshot, 1)
	ch <- snap
	close(ch)
	s.Consume(ch)

	rec := httptest.NewRecorder()
	s.handleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "solutions")
	require.Contains(t, body, "tracked_satellites")
	require.Contains(t, body, "untracked_satellites")

	solutions := body["solutions"].([]any)
	require.Len(t, solutions, 1)
	solution := solutions[0].(map[string]any)
	require.Equal(t, 1.5, solution["clock_bias"])

	tracked := body["tracked_satellites"].([]any)[0].(map[string]any)
	require.Equal(t, float64(7), tracked["satellite_id"])
	require.Equal(t, float64(1), tracked["bit_phase"])

	correlations := tracked["correlations"].([]any)[0].([]any)
	require.Equal(t, 1.0, correlations[0])
	require.Equal(t, 2.0, correlations[1])
}

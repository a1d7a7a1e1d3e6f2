package antenna

import (
	"encoding/binary"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

type fakeReceiver struct {
	blocks []gpscore.SampleBlock
}

func (f *fakeReceiver) HandleSampleBlock(block gpscore.SampleBlock) {
	f.blocks = append(f.blocks, block)
}

func writeSampleFile(t *testing.T, blocks int) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "samples-*.bin")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 8)
	for b := 0; b < blocks; b++ {
		for i := 0; i < config.SamplesPerMillisecond; i++ {
			iVal := float32(b)
			qVal := float32(-b)
			binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(iVal))
			binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(qVal))
			_, err := f.Write(buf)
			require.NoError(t, err)
		}
	}

	return f.Name()
}

func TestFileAntennaDecodesBlocksAndStopsOnEOF(t *testing.T) {
	path := writeSampleFile(t, 3)
	recv := &fakeReceiver{}
	start := time.Unix(100, 0).UTC()

	a, err := NewFileAntenna(path, recv, start, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Run())
	require.Len(t, recv.blocks, 3)

	for b, block := range recv.blocks {
		require.Len(t, block.Samples, config.SamplesPerMillisecond)
		want := gpscore.Sample(complex(float64(float32(b)), float64(float32(-b))))
		require.Equal(t, want, block.Samples[0])
	}

	require.Equal(t, start, recv.blocks[0].Start)
	require.Equal(t, recv.blocks[0].End, recv.blocks[1].Start)
}

func TestFileAntennaReturnsNilOnTruncatedFinalBlock(t *testing.T) {
	path := writeSampleFile(t, 1)

	// Truncate the file mid-sample to simulate a partial final block.
	require.NoError(t, os.Truncate(path, 10))

	recv := &fakeReceiver{}
	a, err := NewFileAntenna(path, recv, time.Unix(0, 0), nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Run())
	require.Empty(t, recv.blocks)
}

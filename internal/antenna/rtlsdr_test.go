package antenna

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

func TestDecodeRtlSdrBlockCentersAndNormalizesSamples(t *testing.T) {
	buf := make([]byte, rtlSdrBytesPerBlock)
	buf[0], buf[1] = 255, 0   // max I, min Q
	buf[2], buf[3] = 127, 128 // near-zero both

	end := time.Unix(10, 0)
	block := decodeRtlSdrBlock(buf, end)

	require.Len(t, block.Samples, config.SamplesPerMillisecond)
	require.InDelta(t, 1.0, real(block.Samples[0]), 1e-9)
	require.InDelta(t, -1.0, imag(block.Samples[0]), 1e-9)
	require.InDelta(t, -0.5/127.5, real(block.Samples[1]), 1e-9)
	require.InDelta(t, 0.5/127.5, imag(block.Samples[1]), 1e-9)
	require.Equal(t, end, block.End)
	require.Equal(t, end.Add(-sampleOffsetDuration(config.SamplesPerMillisecond)), block.Start)
}

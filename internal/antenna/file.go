package antenna

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

const bytesPerBlock = config.SamplesPerMillisecond * 2 * 4 // f32 I, f32 Q

// FileAntenna replays a recording of baseband I/Q samples: little-endian
// f32 I, f32 Q pairs, one SamplesPerMillisecond block at a time.
type FileAntenna struct {
	file           *os.File
	receiver       Receiver
	startTimestamp time.Time
	offsetSamples  int64
	log            logrus.FieldLogger
}

// NewFileAntenna opens path for reading. Caller is responsible for
// calling Close once Run returns.
func NewFileAntenna(path string, receiver Receiver, startTimestamp time.Time, log logrus.FieldLogger) (*FileAntenna, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileAntenna{file: f, receiver: receiver, startTimestamp: startTimestamp, log: log}, nil
}

// Close releases the underlying file handle.
func (a *FileAntenna) Close() error { return a.file.Close() }

// Run reads the file to completion, forwarding one sample block per
// millisecond to the receiver. Returns nil on a clean EOF.
func (a *FileAntenna) Run() error {
	buf := make([]byte, bytesPerBlock)

	for {
		if _, err := io.ReadFull(a.file, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				a.log.Info("reached end of sample file")
				return nil
			}
			return err
		}

		a.receiver.HandleSampleBlock(a.decode(buf))
	}
}

func (a *FileAntenna) decode(buf []byte) gpscore.SampleBlock {
	samples := make([]gpscore.Sample, config.SamplesPerMillisecond)
	for i := range samples {
		iBits := binary.LittleEndian.Uint32(buf[i*8:])
		qBits := binary.LittleEndian.Uint32(buf[i*8+4:])
		samples[i] = gpscore.Sample(complex(
			float64(math.Float32frombits(iBits)),
			float64(math.Float32frombits(qBits)),
		))
	}

	start := a.startTimestamp.Add(sampleOffsetDuration(a.offsetSamples))
	a.offsetSamples += config.SamplesPerMillisecond
	end := a.startTimestamp.Add(sampleOffsetDuration(a.offsetSamples))

	return gpscore.SampleBlock{Samples: samples, Start: start, End: end}
}

func sampleOffsetDuration(samples int64) time.Duration {
	return time.Duration(float64(samples) / config.SampleRateHz * float64(time.Second))
}

package antenna

import (
	"net"
	"time"

	"github.com/bemasher/rtltcp"
	"github.com/sirupsen/logrus"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

const rtlSdrBytesPerBlock = config.SamplesPerMillisecond * 2 // uint8 I, uint8 Q

// RtlSdrAntenna streams live baseband samples from an RTL-SDR dongle over
// rtl_tcp, the same wire protocol used by the pack's rtlamr receiver.
type RtlSdrAntenna struct {
	sdr      rtltcp.SDR
	addr     string
	gain     int
	receiver Receiver
	log      logrus.FieldLogger
}

// NewRtlSdrAntenna constructs an antenna that connects to an rtl_tcp
// server at addr (host:port) once Run is called.
func NewRtlSdrAntenna(addr string, gain int, receiver Receiver, log logrus.FieldLogger) *RtlSdrAntenna {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RtlSdrAntenna{addr: addr, gain: gain, receiver: receiver, log: log}
}

// Run connects, configures the tuner for L1 reception, and streams
// samples to the receiver until the connection fails or is closed.
func (a *RtlSdrAntenna) Run() error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", a.addr)
	if err != nil {
		return err
	}
	if err := a.sdr.Connect(tcpAddr); err != nil {
		return err
	}
	defer a.sdr.Close()

	a.sdr.SetSampleRate(config.SampleRateHz)
	a.sdr.SetCenterFreq(config.L1FrequencyHz)
	a.sdr.SetGainMode(true)
	a.sdr.SetGain(uint32(a.gain * 10)) // rtl_tcp gain is tenths of a dB
	a.sdr.SetBiasTee(true)

	a.log.WithFields(logrus.Fields{"addr": a.addr, "gain": a.gain}).Info("streaming from rtl_tcp")

	chunk := make([]byte, rtlSdrBytesPerBlock*4)
	var pending []byte

	for {
		n, err := a.sdr.Read(chunk)
		if err != nil {
			return err
		}
		pending = append(pending, chunk[:n]...)

		for len(pending) >= rtlSdrBytesPerBlock {
			a.receiver.HandleSampleBlock(decodeRtlSdrBlock(pending[:rtlSdrBytesPerBlock], time.Now().UTC()))
			pending = pending[rtlSdrBytesPerBlock:]
		}
	}
}

// decodeRtlSdrBlock converts one block of raw unsigned 8-bit I/Q samples
// (centered at 127.5, as emitted by the RTL2832U) to the receiver's
// normalized complex128 representation.
func decodeRtlSdrBlock(buf []byte, end time.Time) gpscore.SampleBlock {
	samples := make([]gpscore.Sample, config.SamplesPerMillisecond)
	for i := range samples {
		iVal := (float64(buf[i*2]) - 127.5) / 127.5
		qVal := (float64(buf[i*2+1]) - 127.5) / 127.5
		samples[i] = gpscore.Sample(complex(iVal, qVal))
	}

	start := end.Add(-sampleOffsetDuration(config.SamplesPerMillisecond))
	return gpscore.SampleBlock{Samples: samples, Start: start, End: end}
}

// Package antenna implements the two sample sources this receiver
// supports: a recorded file of interleaved I/Q floats, and a live
// RTL-SDR dongle reached over the rtl_tcp protocol.
package antenna

import "github.com/chrisdoble/gps-receiver/internal/gpscore"

// Receiver consumes one millisecond of samples at a time. Both antennas
// call this synchronously and block while it runs, so there is no
// internal buffering beyond what's needed to assemble one block.
type Receiver interface {
	HandleSampleBlock(block gpscore.SampleBlock)
}

// Package gpscore holds the types, errors and ring buffers shared by every
// stage of the GPS L1 C/A signal processing pipeline: acquisition,
// tracking, bit synchronization, subframe decoding, ephemeris assembly,
// and the position solver live in its subpackages and are wired together
// by the receiver subpackage.
package gpscore

import "time"

// SatelliteId identifies a GPS satellite vehicle by its PRN number, in
// [1,32]. 1 is reserved and never assigned.
type SatelliteId int

// Pseudosymbol is the sign of the prompt correlation over one 1 ms
// integration period.
type Pseudosymbol int8

// UnresolvedBit is the majority-voted value over PseudosymbolsPerBit
// pseudosymbols, before the bit phase mapping to 0/1 is known.
type UnresolvedBit int8

// Bit is a resolved navigation message data bit.
type Bit uint8

// BitPhase is the polarity mapping from UnresolvedBit to Bit. A nil
// *BitPhase means the phase hasn't been determined yet.
type BitPhase int8

const (
	BitPhasePositive BitPhase = 1
	BitPhaseNegative BitPhase = -1
)

// Side identifies which half of the 1 ms tracking window currently
// contains the dominant PRN code edge.
type Side int8

const (
	SideLeft Side = iota
	SideRight
)

// Sample is one complex baseband I/Q sample.
type Sample complex128

// SampleBlock is an owned, ordered sequence of baseband samples spanning
// a half-open UTC interval [Start, End). Sample blocks are transient:
// they do not survive past the pipeline step that receives them, so
// nothing downstream retains a reference to the slice itself.
type SampleBlock struct {
	Samples []Sample
	Start   time.Time
	End     time.Time
}

// Acquisition is produced once per satellite by the Acquirer to seed a
// new Pipeline, then discarded.
type Acquisition struct {
	SatelliteId           SatelliteId
	CarrierFrequencyShift float64 // Hz
	CarrierPhaseShift     float64 // radians
	PRNCodePhaseShift     float64 // half-chips, [0, 2046)
	Strength              float64 // peak / mean ratio
	Timestamp             time.Time
}

// Package bitintegrator finds the boundary between navigation subframes
// and resolves the overall bit phase ambiguity inherent to BPSK tracking,
// then forwards resolved bits to the subframe decoder.
package bitintegrator

import (
	"github.com/sirupsen/logrus"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

// bitsRequiredToDetermineBitPhase adds one subframe's worth of slack to
// PreamblesRequiredToDetermineBitPhase: bit collection likely starts
// partway through a subframe, so one fewer complete preamble than
// expected will be found unless we over-collect by one subframe.
var bitsRequiredToDetermineBitPhase = (config.PreamblesRequiredToDetermineBitPhase + 1) * config.BitsPerSubframe

var tlmPreamble = [8]gpscore.UnresolvedBit{1, -1, -1, -1, 1, -1, 1, 1}
var inverseTLMPreamble = [8]gpscore.UnresolvedBit{-1, 1, 1, 1, -1, 1, -1, -1}

// SubframeSink receives fixed-length 300-bit subframe candidates once the
// bit phase has been determined.
type SubframeSink interface {
	HandleSubframeBits(bits [config.BitsPerSubframe]gpscore.Bit)
}

// Integrator resolves unresolved bits into data bits.
type Integrator struct {
	bitPhase        gpscore.BitPhase
	bitPhaseKnown   bool
	log             logrus.FieldLogger
	satelliteId     gpscore.SatelliteId
	sink            SubframeSink
	unresolvedBits  []gpscore.UnresolvedBit
}

// New constructs an Integrator for one satellite.
func New(satelliteId gpscore.SatelliteId, sink SubframeSink, log logrus.FieldLogger) *Integrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Integrator{log: log, satelliteId: satelliteId, sink: sink}
}

// BitPhaseKnown reports whether the bit phase has been determined yet.
func (i *Integrator) BitPhaseKnown() bool { return i.bitPhaseKnown }

// BitPhase returns the determined bit phase, or the zero value if
// BitPhaseKnown is false.
func (i *Integrator) BitPhase() gpscore.BitPhase { return i.bitPhase }

// HandleUnresolvedBit consumes one unresolved bit. Returns
// gpscore.ErrUnknownBitPhase if the bit phase cannot be determined after
// enough data has been collected.
func (i *Integrator) HandleUnresolvedBit(bit gpscore.UnresolvedBit) error {
	i.unresolvedBits = append(i.unresolvedBits, bit)

	if !i.bitPhaseKnown && len(i.unresolvedBits) >= bitsRequiredToDetermineBitPhase {
		if err := i.determineBitPhase(); err != nil {
			return err
		}
	}

	for i.bitPhaseKnown && len(i.unresolvedBits) >= config.BitsPerSubframe {
		unresolved := i.unresolvedBits[:config.BitsPerSubframe]
		i.unresolvedBits = i.unresolvedBits[config.BitsPerSubframe:]

		var bits [config.BitsPerSubframe]gpscore.Bit
		for k, u := range unresolved {
			bits[k] = i.resolve(u)
		}
		i.sink.HandleSubframeBits(bits)
	}

	return nil
}

func (i *Integrator) determineBitPhase() error {
	for offset := 0; offset < config.BitsPerSubframe; offset++ {
		remaining := i.unresolvedBits[offset:]

		if allSubframesStartWithPreamble(tlmPreamble[:], remaining) {
			i.bitPhase = gpscore.BitPhasePositive
			i.bitPhaseKnown = true
		} else if allSubframesStartWithPreamble(inverseTLMPreamble[:], remaining) {
			i.bitPhase = gpscore.BitPhaseNegative
			i.bitPhaseKnown = true
		}

		if i.bitPhaseKnown {
			i.unresolvedBits = i.unresolvedBits[offset:]
			i.log.WithFields(logrus.Fields{
				"satellite_id": i.satelliteId,
				"bit_phase":    i.bitPhase,
			}).Info("determined bit phase")
			return nil
		}
	}

	return gpscore.ErrUnknownBitPhase
}

// allSubframesStartWithPreamble checks whether every full 300-bit
// subframe in unresolved (starting at index 0) begins with preamble.
// Trailing bits that don't form a complete subframe are ignored.
func allSubframesStartWithPreamble(preamble []gpscore.UnresolvedBit, unresolved []gpscore.UnresolvedBit) bool {
	if len(unresolved) < config.BitsPerSubframe {
		return false
	}

	for start := 0; start+config.BitsPerSubframe <= len(unresolved); start += config.BitsPerSubframe {
		for k, p := range preamble {
			if unresolved[start+k] != p {
				return false
			}
		}
	}

	return true
}

func (i *Integrator) resolve(u gpscore.UnresolvedBit) gpscore.Bit {
	if i.bitPhase == gpscore.BitPhaseNegative {
		if u == -1 {
			return 1
		}
		return 0
	}
	if u == -1 {
		return 0
	}
	return 1
}

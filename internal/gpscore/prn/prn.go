// Package prn generates the GPS C/A PRN code table.
//
// Each satellite's code is the XOR of two maximal-length 10-stage LFSR
// sequences (G1 and G2), with G2 tapped and delayed per satellite to form
// a family of Gold codes. This mirrors the construction in
// IS-GPS-200 §3.3.2.3, ported from the reference implementation's
// generator-polynomial / output-tap table.
package prn

import "github.com/chrisdoble/gps-receiver/internal/gpscore/config"

// outputTapsBySatelliteId gives the two G2 output taps (1-based, into the
// 10-stage shift register) that define each satellite's C/A code.
var outputTapsBySatelliteId = map[int][2]int{
	1:  {2, 6}, 2: {3, 7}, 3: {4, 8}, 4: {5, 9}, 5: {1, 9},
	6:  {2, 10}, 7: {1, 8}, 8: {2, 9}, 9: {3, 10}, 10: {2, 3},
	11: {3, 4}, 12: {5, 6}, 13: {6, 7}, 14: {7, 8}, 15: {8, 9},
	16: {9, 10}, 17: {1, 4}, 18: {2, 5}, 19: {3, 6}, 20: {4, 7},
	21: {5, 8}, 22: {6, 9}, 23: {1, 3}, 24: {4, 6}, 25: {5, 7},
	26: {6, 8}, 27: {7, 9}, 28: {8, 10}, 29: {1, 6}, 30: {2, 7},
	31: {3, 8}, 32: {4, 9},
}

// Code holds one satellite's PRN code in both its native 1023-chip form
// and the half-chip upsampled bipolar replica used by the tracker and
// acquirer correlators.
type Code struct {
	// Chips is the 1023-chip C/A sequence, values 0 or 1.
	Chips []int

	// Replica is the upsampled bipolar replica, length
	// config.SamplesPerMillisecond, values +1 (chip 0) / -1 (chip 1).
	Replica []complex128
}

// Table is the process-wide immutable set of PRN codes, built once.
type Table map[int]Code

// Build generates the PRN code table for every valid satellite id.
func Build() Table {
	table := make(Table, config.AllSatelliteIDsHigh-config.AllSatelliteIDsLow+1)
	for id := config.AllSatelliteIDsLow; id <= config.AllSatelliteIDsHigh; id++ {
		table[id] = generate(id)
	}
	return table
}

func generate(satelliteId int) Code {
	taps := outputTapsBySatelliteId[satelliteId]

	g1 := lfsr([]int{10}, []int{3, 10})
	g2 := lfsr([]int{taps[0], taps[1]}, []int{2, 3, 6, 8, 9, 10})

	chips := make([]int, config.ChipsPerPRNCode)
	for i := 0; i < config.ChipsPerPRNCode; i++ {
		chips[i] = g1() ^ g2()
	}

	samplesPerChip := config.SamplesPerMillisecond / config.ChipsPerPRNCode
	replica := make([]complex128, 0, config.SamplesPerMillisecond)
	for _, c := range chips {
		v := complex(1, 0)
		if c == 1 {
			v = complex(-1, 0)
		}
		for i := 0; i < samplesPerChip; i++ {
			replica = append(replica, v)
		}
	}
	// samplesPerChip * ChipsPerPRNCode already equals SamplesPerMillisecond
	// exactly (2046 = 2 * 1023); pad/truncate anyway so a future change to
	// either constant can't silently produce a mis-sized replica.
	for len(replica) < config.SamplesPerMillisecond {
		replica = append(replica, replica[len(replica)-1])
	}
	replica = replica[:config.SamplesPerMillisecond]

	return Code{Chips: chips, Replica: replica}
}

// lfsr returns a closure producing one output bit per call from a
// 10-stage Fibonacci LFSR seeded to all-ones, with feedback taps `taps`
// (1-based stage indices) and output taken as the XOR of the stages named
// in `outputs` (1-based).
func lfsr(outputs []int, taps []int) func() int {
	state := make([]int, 10)
	for i := range state {
		state[i] = 1
	}

	return func() int {
		output := 0
		for _, o := range outputs {
			output ^= state[o-1]
		}

		feedback := 0
		for _, t := range taps {
			feedback ^= state[t-1]
		}

		copy(state[1:], state[:len(state)-1])
		state[0] = feedback

		return output
	}
}

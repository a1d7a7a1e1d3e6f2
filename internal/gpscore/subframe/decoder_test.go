package subframe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

// encodeSubframe builds a valid 300-bit transmitted subframe from 240 data
// bits (10 words of 24 data bits each, TLM+HOW already included), applying
// the same bit-30 XOR scrambling and Table 20-XIV parity the decoder
// undoes. It's the inverse of decodeSubframeData, used only to build test
// fixtures.
func encodeSubframe(data [240]gpscore.Bit) [config.BitsPerSubframe]gpscore.Bit {
	var transmitted [config.BitsPerSubframe]gpscore.Bit
	var lastBit29, lastBit30 gpscore.Bit

	for w := 0; w < 10; w++ {
		wordData := data[w*dataBitsPerWord : (w+1)*dataBitsPerWord]
		base := w * bitsPerWord

		for j, b := range wordData {
			transmitted[base+j] = b ^ lastBit30
		}

		for i, check := range parityChecks {
			previous := lastBit30
			if check.usesBit29 {
				previous = lastBit29
			}
			sum := previous
			for _, idx := range check.indices {
				sum += wordData[idx-1]
			}
			transmitted[base+24+i] = gpscore.Bit(sum % 2)
		}

		lastBit29 = transmitted[base+28]
		lastBit30 = transmitted[base+29]
	}

	return transmitted
}

// bits encodes an unsigned value into n data bits, most-significant first.
func bits(value uint32, n int) []gpscore.Bit {
	out := make([]gpscore.Bit, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = gpscore.Bit((value >> i) & 1)
	}
	return out
}

// buildData assembles the 240 data bits of a subframe: the fixed TLM word,
// a handover word carrying towCountMSBs/subframeID, then the caller's
// subframe-specific payload padded/truncated to fill the remaining words.
func buildData(towCountMSBs uint32, subframeID int, payload []gpscore.Bit) [240]gpscore.Bit {
	var data [240]gpscore.Bit
	pos := 0

	copy(data[pos:], tlmPreamble[:])
	pos += 8
	pos += 14 // precise positioning service fields, zeroed
	pos += 1  // integrity status flag
	pos += 1  // reserved

	copy(data[pos:], bits(towCountMSBs, 17))
	pos += 17
	pos += 1 // alert flag
	pos += 1 // anti-spoof flag
	copy(data[pos:], bits(uint32(subframeID), 3))
	pos += 3
	pos += 2 // trailing HOW data bits the decoder skips over

	copy(data[pos:], payload)

	return data
}

func TestDecodeSf1RoundTrip(t *testing.T) {
	payload := make([]gpscore.Bit, 0, 192)
	payload = append(payload, bits(513, 10)...)     // week number
	payload = append(payload, bits(0, 2)...)        // L2 codes
	payload = append(payload, bits(0, 4)...)        // URA
	payload = append(payload, bits(0b011000, 6)...) // SV health
	payload = append(payload, bits(0, 2)...)        // IODC MSBs
	payload = append(payload, bits(0, 1)...)        // L2 P flag
	payload = append(payload, make([]gpscore.Bit, 87)...)
	payload = append(payload, bits(5, 8)...)       // TGD
	payload = append(payload, bits(0, 8)...)       // IODC LSBs
	payload = append(payload, bits(40000, 16)...)  // TOC
	payload = append(payload, bits(0, 8)...)       // AF2
	payload = append(payload, bits(1234, 16)...)   // AF1
	payload = append(payload, bits(987654, 22)...) // AF0

	data := buildData(12345, 1, payload)
	transmitted := encodeSubframe(data)

	sf, err := Decode(transmitted)
	require.NoError(t, err)

	sf1, ok := sf.(Sf1)
	require.True(t, ok)
	require.Equal(t, 513, sf1.WeekNumberMod1024)
	require.Equal(t, uint8(0b011000), sf1.SVHealth)
	require.Equal(t, 1, sf1.Handover().SubframeID)
	require.Equal(t, uint32(12345), sf1.Handover().TOWCountMSBs)
}

func TestDecodeRejectsBadPreamble(t *testing.T) {
	data := buildData(0, 1, make([]gpscore.Bit, 192))
	transmitted := encodeSubframe(data)
	transmitted[0] ^= 1 // flip one preamble bit

	_, err := Decode(transmitted)
	require.Error(t, err)
	require.True(t, errors.Is(err, gpscore.ErrParity))
}

func TestDecodeRejectsFlippedParityBit(t *testing.T) {
	data := buildData(0, 1, make([]gpscore.Bit, 192))
	transmitted := encodeSubframe(data)
	transmitted[24] ^= 1 // flip a parity bit of the TLM word

	_, err := Decode(transmitted)
	require.Error(t, err)
	require.True(t, errors.Is(err, gpscore.ErrParity))
}

func TestDecodeRejectsInvalidSubframeID(t *testing.T) {
	data := buildData(0, 6, make([]gpscore.Bit, 192))
	transmitted := encodeSubframe(data)

	_, err := Decode(transmitted)
	require.Error(t, err)
	require.True(t, errors.Is(err, gpscore.ErrParity))
}

func TestDecodeSf4AndSf5CarryOnlyHandover(t *testing.T) {
	for _, id := range []int{4, 5} {
		data := buildData(777, id, make([]gpscore.Bit, 192))
		transmitted := encodeSubframe(data)

		sf, err := Decode(transmitted)
		require.NoError(t, err)
		require.Equal(t, id, sf.Handover().SubframeID)
		require.Equal(t, uint32(777), sf.Handover().TOWCountMSBs)
	}
}

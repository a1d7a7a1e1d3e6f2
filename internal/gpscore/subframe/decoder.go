package subframe

import (
	"fmt"

	"github.com/chrisdoble/gps-receiver/internal/gpscore"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/config"
)

const (
	bitsPerWord     = 30
	dataBitsPerWord = 24
)

// parityChecks lists, per Table 20-XIV of IS-GPS-200, the 1-based data
// bit indices summed (mod 2) with the previous word's bit 29 or 30 to
// reproduce each of a word's six transmitted parity bits.
var parityChecks = [6]struct {
	usesBit29 bool
	indices   []int
}{
	{true, []int{1, 2, 3, 5, 6, 10, 11, 12, 13, 14, 17, 18, 20, 23}},
	{false, []int{2, 3, 4, 6, 7, 11, 12, 13, 14, 15, 18, 19, 21, 24}},
	{true, []int{1, 3, 4, 5, 7, 8, 12, 13, 14, 15, 16, 19, 20, 22}},
	{false, []int{2, 4, 5, 6, 8, 9, 13, 14, 15, 16, 17, 20, 21, 23}},
	{false, []int{1, 3, 5, 6, 7, 9, 10, 14, 15, 16, 17, 18, 21, 22, 24}},
	{true, []int{3, 5, 6, 8, 9, 10, 11, 13, 15, 19, 22, 23, 24}},
}

var tlmPreamble = [8]gpscore.Bit{1, 0, 0, 0, 1, 0, 1, 1}

// cursor is a read cursor over a fixed-length bit slice, mirroring the
// reference decoder's _SubframeDecoder helper methods.
type cursor struct {
	data []gpscore.Bit
	pos  int
}

func (c *cursor) bits(n int) ([]gpscore.Bit, error) {
	if c.pos+n > len(c.data) {
		return nil, fmt.Errorf("subframe: read past end of data: %w", gpscore.ErrInvariant)
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) bit() (gpscore.Bit, error) {
	bits, err := c.bits(1)
	if err != nil {
		return 0, err
	}
	return bits[0], nil
}

func (c *cursor) boolean() (bool, error) {
	b, err := c.bit()
	return b == 1, err
}

func (c *cursor) uint(n int) (uint32, error) {
	bits, err := c.bits(n)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, b := range bits {
		v = v<<1 | uint32(b)
	}
	return v, nil
}

func (c *cursor) float(n int, scaleFactorExponent int, twosComplement bool) (float64, error) {
	u, err := c.uint(n)
	if err != nil {
		return 0, err
	}

	number := int64(u)
	if twosComplement && u&(1<<(n-1)) != 0 {
		number -= 1 << n
	}

	return float64(number) * pow2(scaleFactorExponent), nil
}

func (c *cursor) skip(n int) error {
	_, err := c.bits(n)
	return err
}

func pow2(exp int) float64 {
	if exp >= 0 {
		v := 1.0
		for i := 0; i < exp; i++ {
			v *= 2
		}
		return v
	}
	v := 1.0
	for i := 0; i < -exp; i++ {
		v /= 2
	}
	return v
}

// Decode decodes 300 transmitted bits (one subframe) into a Subframe,
// checking Hamming/parity and the fixed TLM preamble along the way.
func Decode(transmitted [config.BitsPerSubframe]gpscore.Bit) (Subframe, error) {
	data, err := decodeSubframeData(transmitted)
	if err != nil {
		return nil, err
	}

	c := &cursor{data: data}

	if err := decodeTelemetry(c); err != nil {
		return nil, err
	}

	handover, err := decodeHandover(c)
	if err != nil {
		return nil, err
	}

	switch handover.SubframeID {
	case 1:
		return decodeSf1(c, handover)
	case 2:
		return decodeSf2(c, handover)
	case 3:
		return decodeSf3(c, handover)
	case 4:
		return Sf4{base{handover}}, nil
	case 5:
		return Sf5{base{handover}}, nil
	default:
		return nil, fmt.Errorf("subframe: invalid subframe id %d: %w", handover.SubframeID, gpscore.ErrInvariant)
	}
}

func decodeTelemetry(c *cursor) error {
	preamble, err := c.bits(8)
	if err != nil {
		return err
	}
	for i, b := range preamble {
		if b != tlmPreamble[i] {
			return fmt.Errorf("subframe: invalid TLM preamble: %w", gpscore.ErrParity)
		}
	}

	if err := c.skip(14); err != nil { // precise positioning service fields, unused
		return err
	}
	if _, err := c.boolean(); err != nil { // integrity status flag, unused
		return err
	}
	return c.skip(1) // reserved
}

func decodeHandover(c *cursor) (Handover, error) {
	towCountMSBs, err := c.uint(17)
	if err != nil {
		return Handover{}, err
	}
	alertFlag, err := c.boolean()
	if err != nil {
		return Handover{}, err
	}
	antiSpoofFlag, err := c.boolean()
	if err != nil {
		return Handover{}, err
	}
	subframeID, err := c.uint(3)
	if err != nil {
		return Handover{}, err
	}
	if subframeID < 1 || subframeID > 5 {
		return Handover{}, fmt.Errorf("subframe: invalid subframe id %d: %w", subframeID, gpscore.ErrParity)
	}
	if err := c.skip(2); err != nil { // parity
		return Handover{}, err
	}

	return Handover{
		TOWCountMSBs:  towCountMSBs,
		AlertFlag:     alertFlag,
		AntiSpoofFlag: antiSpoofFlag,
		SubframeID:    int(subframeID),
	}, nil
}

func decodeSf1(c *cursor, handover Handover) (Sf1, error) {
	weekNumber, err := c.uint(10)
	if err != nil {
		return Sf1{}, err
	}
	if err := c.skip(2); err != nil { // codes on L2 channel, unused
		return Sf1{}, err
	}
	if err := c.skip(4); err != nil { // URA index, unused
		return Sf1{}, err
	}
	svHealth, err := c.uint(6)
	if err != nil {
		return Sf1{}, err
	}
	if err := c.skip(2); err != nil { // issue of data clock MSBs, unused
		return Sf1{}, err
	}
	if err := c.skip(1); err != nil { // L2 P data flag, unused
		return Sf1{}, err
	}
	if err := c.skip(87); err != nil { // reserved
		return Sf1{}, err
	}

	tGD, err := c.float(8, -31, true)
	if err != nil {
		return Sf1{}, err
	}
	if err := c.skip(8); err != nil { // issue of data clock LSBs, unused
		return Sf1{}, err
	}
	tOC, err := c.float(16, 4, false)
	if err != nil {
		return Sf1{}, err
	}
	aF2, err := c.float(8, -55, true)
	if err != nil {
		return Sf1{}, err
	}
	aF1, err := c.float(16, -43, true)
	if err != nil {
		return Sf1{}, err
	}
	aF0, err := c.float(22, -31, true)
	if err != nil {
		return Sf1{}, err
	}
	if err := c.skip(2); err != nil { // parity
		return Sf1{}, err
	}

	return Sf1{
		base:              base{handover},
		WeekNumberMod1024: int(weekNumber),
		SVHealth:          uint8(svHealth),
		TGD:               tGD,
		TOC:               tOC,
		AF2:               aF2,
		AF1:               aF1,
		AF0:               aF0,
	}, nil
}

func decodeSf2(c *cursor, handover Handover) (Sf2, error) {
	if err := c.skip(8); err != nil { // issue of data ephemeris, unused
		return Sf2{}, err
	}
	cRS, err := c.float(16, -5, true)
	if err != nil {
		return Sf2{}, err
	}
	deltaN, err := c.float(16, -43, true)
	if err != nil {
		return Sf2{}, err
	}
	m0, err := c.float(32, -31, true)
	if err != nil {
		return Sf2{}, err
	}
	cUC, err := c.float(16, -29, true)
	if err != nil {
		return Sf2{}, err
	}
	e, err := c.float(32, -33, false)
	if err != nil {
		return Sf2{}, err
	}
	cUS, err := c.float(16, -29, true)
	if err != nil {
		return Sf2{}, err
	}
	sqrtA, err := c.float(32, -19, false)
	if err != nil {
		return Sf2{}, err
	}
	tOE, err := c.float(16, 4, false)
	if err != nil {
		return Sf2{}, err
	}
	if err := c.skip(1); err != nil { // fit interval flag, unused
		return Sf2{}, err
	}
	if err := c.skip(5); err != nil { // age of data offset, unused
		return Sf2{}, err
	}
	if err := c.skip(2); err != nil { // parity
		return Sf2{}, err
	}

	return Sf2{
		base:   base{handover},
		CRS:    cRS,
		DeltaN: deltaN,
		M0:     m0,
		CUC:    cUC,
		E:      e,
		CUS:    cUS,
		SqrtA:  sqrtA,
		TOE:    tOE,
	}, nil
}

func decodeSf3(c *cursor, handover Handover) (Sf3, error) {
	cIC, err := c.float(16, -29, true)
	if err != nil {
		return Sf3{}, err
	}
	omega0, err := c.float(32, -31, true)
	if err != nil {
		return Sf3{}, err
	}
	cIS, err := c.float(16, -29, true)
	if err != nil {
		return Sf3{}, err
	}
	i0, err := c.float(32, -31, true)
	if err != nil {
		return Sf3{}, err
	}
	cRC, err := c.float(16, -5, true)
	if err != nil {
		return Sf3{}, err
	}
	omega, err := c.float(32, -31, true)
	if err != nil {
		return Sf3{}, err
	}
	omegaDot, err := c.float(24, -43, true)
	if err != nil {
		return Sf3{}, err
	}
	if err := c.skip(8); err != nil { // issue of data ephemeris, unused
		return Sf3{}, err
	}
	iDot, err := c.float(14, -43, true)
	if err != nil {
		return Sf3{}, err
	}
	if err := c.skip(2); err != nil { // parity
		return Sf3{}, err
	}

	return Sf3{
		base:     base{handover},
		CIC:      cIC,
		Omega0:   omega0,
		CIS:      cIS,
		I0:       i0,
		CRC:      cRC,
		Omega:    omega,
		OmegaDot: omegaDot,
		IDot:     iDot,
	}, nil
}

// decodeSubframeData undoes the transmission-time XOR of each data bit
// with the previous word's bit 30 and checks each word's six parity
// bits per Table 20-XIV. Returns the 240 data bits (24 per word, parity
// bits excluded).
func decodeSubframeData(transmitted [config.BitsPerSubframe]gpscore.Bit) ([]gpscore.Bit, error) {
	data := make([]gpscore.Bit, 0, dataBitsPerWord*10)

	var lastBit29, lastBit30 gpscore.Bit

	for start := 0; start < config.BitsPerSubframe; start += bitsPerWord {
		word := transmitted[start : start+bitsPerWord]

		wordData := make([]gpscore.Bit, dataBitsPerWord)
		for j := 0; j < dataBitsPerWord; j++ {
			wordData[j] = word[j] ^ lastBit30
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
			computed := gpscore.Bit(sum % 2)

			if computed != word[24+i] {
				return nil, fmt.Errorf("subframe: parity check %d failed: %w", i, gpscore.ErrParity)
			}
		}

		data = append(data, wordData...)
		lastBit29 = word[28]
		lastBit30 = word[29]
	}

	return data, nil
}

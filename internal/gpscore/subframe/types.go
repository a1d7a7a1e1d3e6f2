// Package subframe implements the IS-GPS-200 §20.3.5 Hamming/parity
// decode and the bit-field layouts of the five navigation subframes.
package subframe

// Handover is the handover word (HOW) common to every subframe.
type Handover struct {
	// TOWCountMSBs is the 17 most significant bits of the time-of-week
	// count at the leading edge of the *next* subframe.
	TOWCountMSBs  uint32
	AlertFlag     bool
	AntiSpoofFlag bool
	SubframeID    int
}

// Subframe is implemented by Sf1 through Sf5. The marker method keeps it
// a closed, exhaustively-switchable sum type.
type Subframe interface {
	isSubframe()
	Handover() Handover
}

type base struct {
	handover Handover
}

func (b base) Handover() Handover { return b.handover }

// Sf1 carries the satellite clock model and health.
type Sf1 struct {
	base

	WeekNumberMod1024 int
	SVHealth          uint8 // 6 bits
	TGD               float64
	TOC               float64
	AF2               float64
	AF1               float64
	AF0               float64
}

func (Sf1) isSubframe() {}

// Sf2 carries the first half of the broadcast ephemeris.
type Sf2 struct {
	base

	CRS      float64
	DeltaN   float64 // semi-circles/second
	M0       float64 // semi-circles
	CUC      float64
	E        float64
	CUS      float64
	SqrtA    float64
	TOE      float64
}

func (Sf2) isSubframe() {}

// Sf3 carries the second half of the broadcast ephemeris.
type Sf3 struct {
	base

	CIC       float64
	Omega0    float64 // semi-circles
	CIS       float64
	I0        float64 // semi-circles
	CRC       float64
	Omega     float64 // semi-circles
	OmegaDot  float64 // semi-circles/second
	IDot      float64 // semi-circles/second
}

func (Sf3) isSubframe() {}

// Sf4 carries only the TOW count; its other fields (almanac, ionospheric
// model, special messages) are outside this receiver's scope.
type Sf4 struct{ base }

func (Sf4) isSubframe() {}

// Sf5 carries only the TOW count.
type Sf5 struct{ base }

func (Sf5) isSubframe() {}

// Package config holds the fixed tuning constants of the receiver pipeline.
//
// These are physical and protocol parameters (sample rates, loop gains,
// search grid sizes) rather than deployment-time options, so they're plain
// Go constants instead of a loaded configuration file. The handful of
// knobs an operator can actually change (input file, start time, SDR gain,
// telemetry address) are exposed as CLI flags in cmd/gps-receiver.
package config

import "time"

const (
	// SamplesPerMillisecond is the number of complex baseband samples in
	// one 1 ms block, at the 2.046 MHz sample rate used throughout.
	SamplesPerMillisecond = 2046

	// SampleRateHz is the baseband sample rate.
	SampleRateHz = 2_046_000

	// L1FrequencyHz is the GPS L1 carrier frequency.
	L1FrequencyHz = 1_575_420_000

	// ChipsPerPRNCode is the number of chips in one C/A code period.
	ChipsPerPRNCode = 1023

	// AcquisitionWindowSize is the number of 1 ms sample blocks (M) the
	// Acquirer keeps in its rolling window before it can attempt a search.
	AcquisitionWindowSize = 10

	// AcquisitionInterval is the minimum time between acquisition attempts
	// for the same satellite.
	AcquisitionInterval = 10 * time.Second

	// AcquisitionStrengthThreshold is the minimum peak/mean ratio required
	// to report a successful acquisition.
	AcquisitionStrengthThreshold = 3.0

	// InitialDopplerSearchHalfRangeHz is the half-width of the first
	// Doppler search iteration.
	InitialDopplerSearchHalfRangeHz = 7168.0

	// DopplerSearchPoints is the number of Doppler shifts evaluated at
	// each iteration of the hierarchical search.
	DopplerSearchPoints = 29

	// DopplerSearchMinHalfRangeHz is the half-range below which the
	// hierarchical Doppler search stops halving.
	DopplerSearchMinHalfRangeHz = 14.0

	// TrackingHistorySize (H) is the depth of each tracking ring buffer.
	TrackingHistorySize = 1000

	// PRNCodePhaseShiftTrackingLoopGain is the DLL discriminator gain.
	PRNCodePhaseShiftTrackingLoopGain = 0.002

	// CarrierFrequencyShiftTrackingLoopGain is the Costas loop frequency gain.
	CarrierFrequencyShiftTrackingLoopGain = 20.0

	// CarrierPhaseShiftTrackingLoopGain is the Costas loop phase gain.
	CarrierPhaseShiftTrackingLoopGain = 500.0

	// PseudosymbolsRequiredPerPhase is the number of pseudosymbols of each
	// sign required before the pseudosymbol/bit boundary search runs.
	PseudosymbolsRequiredPerPhase = 200

	// PseudosymbolsPerBit is the number of pseudosymbols integrated into
	// one unresolved bit.
	PseudosymbolsPerBit = 20

	// BitsPerSubframe is the number of bits in one navigation subframe.
	BitsPerSubframe = 300

	// PreamblesRequiredToDetermineBitPhase is the number of complete
	// subframe preambles the BitIntegrator expects to match when it finds
	// the subframe boundary and bit phase. It collects one more subframe's
	// worth of bits than this before attempting the search.
	PreamblesRequiredToDetermineBitPhase = 3

	// PRNCodesPerSubframe is the number of PRN code periods (ms) in one
	// 6-second subframe.
	PRNCodesPerSubframe = 6000

	// GaussNewtonIterations is the fixed number of solver iterations.
	GaussNewtonIterations = 10

	// EcefToGeodeticIterations is the fixed number of fixed-point
	// iterations used to convert ECEF to geodetic coordinates.
	EcefToGeodeticIterations = 5

	// SolutionHistorySize bounds the number of retained position fixes.
	SolutionHistorySize = 10

	// LeapSeconds is the hard-coded UTC-to-GPS leap second offset.
	//
	// Any use of this receiver past 2035 will need this revisited; GPS
	// does not itself apply leap seconds, so this is a receiver-side
	// correction only valid for the leap second count in force at
	// authorship time.
	LeapSeconds = 18

	// SecondsPerGPSWeek is the length of a GPS week.
	SecondsPerGPSWeek = 604800

	// HTTPUpdateInterval is how often a telemetry snapshot is produced.
	HTTPUpdateInterval = time.Second

	// MuEarth is the WGS-84 earth's gravitational constant (m^3/s^2).
	MuEarth = 3.986005e14

	// OmegaEarth is the WGS-84 earth rotation rate (rad/s).
	OmegaEarth = 7.2921151467e-5

	// RelativisticCorrectionF is the constant F from IS-GPS-200 §20.3.3.3.3.1.
	RelativisticCorrectionF = -4.442807633e-10

	// SpeedOfLight in m/s.
	SpeedOfLight = 299792458.0

	// WGS84SemiMajorAxis (a), in meters.
	WGS84SemiMajorAxis = 6378137.0

	// WGS84SemiMinorAxis (b), in meters.
	WGS84SemiMinorAxis = 6356752.314245

	// AllSatelliteIDsLow and AllSatelliteIDsHigh bound the valid
	// SatelliteId range; 1 is reserved and unused.
	AllSatelliteIDsLow  = 2
	AllSatelliteIDsHigh = 32
)

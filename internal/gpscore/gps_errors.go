package gpscore

import "errors"

// ErrParity is returned by the subframe decoder when a word fails its
// Hamming/parity check, or when a handover word carries an invalid
// subframe id. It is fatal to the owning pipeline, not the process.
var ErrParity = errors.New("gpscore: subframe parity check failed")

// ErrUnknownBitPhase is returned by the bit integrator when no offset in
// a full subframe's worth of unresolved bits matches the TLM preamble or
// its inverse. It is fatal to the owning pipeline, not the process.
var ErrUnknownBitPhase = errors.New("gpscore: could not determine bit phase")

// ErrInvariant indicates a broken precondition somewhere in the pipeline.
// Unlike ErrParity and ErrUnknownBitPhase, this is never expected in
// normal operation and should abort the process.
var ErrInvariant = errors.New("gpscore: invariant violated")

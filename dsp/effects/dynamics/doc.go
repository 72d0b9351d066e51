// Package dynamics provides gain controllers that run without I/O.
//
// AutoGain steers a gain in dB toward the value that brings a measured
// loudness to a target. It follows the input on two timescales: a
// long-term regime with slow grow and fall rates, and a short-term regime
// with fast rates that takes over when short-term loudness drifts away from
// long-term loudness. Loudness below the silence threshold freezes the gain.
//
// The controller consumes loudness values in LUFS, so any meter may feed it;
// see measure/loudness for the BS.1770 meter used by dsp/effects/autogain.
package dynamics

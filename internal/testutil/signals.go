// Package testutil holds signal generators and assertions shared by the
// package tests.
package testutil

import (
	"math"
	"math/rand"
)

// loudnessOffset is the BS.1770 calibration constant in LUFS.
const loudnessOffset = -0.691

// DeterministicSine generates a sine starting at phase zero.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// SineAmplitudeForLUFS returns the peak amplitude of a sine whose
// unweighted loudness is lufs.
func SineAmplitudeForLUFS(lufs float64) float64 {
	return math.Sqrt(2 * math.Pow(10, (lufs-loudnessOffset)/10))
}

// SineAtLUFS generates a sine with the given unweighted loudness. Choose
// freqHz so the measurement windows hold whole periods for exact levels.
func SineAtLUFS(lufs, freqHz, sampleRate float64, length int) []float64 {
	return DeterministicSine(freqHz, sampleRate, SineAmplitudeForLUFS(lufs), length)
}

// DeterministicNoise generates uniform white noise with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Impulse generates a unit impulse at pos. An out-of-range pos yields zeros.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// DC generates a constant signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}

	return out
}

// Ones returns n ones.
func Ones(n int) []float64 {
	return DC(1.0, n)
}

// Concat joins signals into a new slice.
func Concat(parts ...[]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	out := make([]float64, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

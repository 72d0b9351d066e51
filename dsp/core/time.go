package core

import "math"

// MillisToSamples converts a duration in milliseconds to a whole number of
// samples, rounding to nearest. Negative durations yield zero.
func MillisToSamples(ms, sampleRate float64) int {
	n := int(math.Round(ms * 0.001 * sampleRate))
	if n < 0 {
		return 0
	}

	return n
}

// SamplesToMillis converts a sample count to milliseconds.
func SamplesToMillis(samples int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}

	return float64(samples) * 1000 / sampleRate
}

// RatePerSample converts a slew rate in dB per second to the largest
// allowed change per sample.
func RatePerSample(dbPerSecond, sampleRate float64) float64 {
	if sampleRate <= 0 || dbPerSecond <= 0 {
		return 0
	}

	return dbPerSecond / sampleRate
}

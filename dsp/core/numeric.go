package core

import "math"

// MinDB is the level reported for zero amplitude or power. It is far below
// anything a 32-bit float stream can represent, so meters never see -Inf.
const MinDB = -150.0

// Clamp limits value to the inclusive range [lo, hi].
// Swapped bounds are tolerated.
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}

	return math.Min(math.Max(value, lo), hi)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FlushDenormals converts tiny values to exact zero. Filter memory fed with
// long stretches of silence would otherwise decay into the denormal range.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToGain converts a level in dB to a linear amplitude factor (20*log10).
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainToDB converts a linear amplitude factor to dB (20*log10).
// Non-positive factors map to MinDB.
func GainToDB(gain float64) float64 {
	if gain <= 0 {
		return MinDB
	}

	return math.Max(20*math.Log10(gain), MinDB)
}

// DBToPower converts dB to a linear power ratio (10*log10).
func DBToPower(db float64) float64 {
	return math.Pow(10, db/10)
}

// PowerToDB converts a linear power ratio to dB (10*log10).
// Non-positive powers map to MinDB.
func PowerToDB(power float64) float64 {
	if power <= 0 {
		return MinDB
	}

	return math.Max(10*math.Log10(power), MinDB)
}

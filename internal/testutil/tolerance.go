package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or any
// element pair differs by more than eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireSteps fails t if any consecutive difference data[i]-data[i-1] lies
// outside [minStep-eps, maxStep+eps]. It checks rate limits and
// monotonicity of traces such as a gain in dB.
func RequireSteps(t *testing.T, data []float64, minStep, maxStep, eps float64) {
	t.Helper()

	for i := 1; i < len(data); i++ {
		d := data[i] - data[i-1]
		if d < minStep-eps || d > maxStep+eps {
			t.Fatalf("index %d: step %v outside [%v, %v]", i, d, minStep, maxStep)
		}
	}
}

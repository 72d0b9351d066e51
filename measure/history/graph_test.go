package history

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-autogain/dsp/core"
	"github.com/cwbudde/algo-autogain/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		points int
		spd    int
	}{
		{"zero points", 0, 1},
		{"zero samples per dot", 4, 0},
		{"negative", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.points, tt.spd); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := NewForDuration(0, 2, 640); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestNewForDurationDefaults(t *testing.T) {
	g, err := NewForDuration(48000, DefaultDuration, DefaultPoints)
	if err != nil {
		t.Fatal(err)
	}

	if g.Points() != 640 || g.SamplesPerDot() != 150 {
		t.Fatalf("points=%d samplesPerDot=%d, want 640/150", g.Points(), g.SamplesPerDot())
	}
}

func TestGraphHoldsDotMaximum(t *testing.T) {
	g, _ := New(3, 4)

	g.Process([]float64{0.1, 0.5, -0.7, 0.2})
	g.Process([]float64{0.3, 0.3})
	g.Process([]float64{0.9, 0.1, 0.25, 0.2, 0.1, 0.05})

	testutil.RequireSliceNearlyEqual(t, g.Data(nil), []float64{0.7, 0.9, 0.25}, 0)
}

func TestGraphSampleMatchesBlock(t *testing.T) {
	sig := testutil.DeterministicNoise(3, 1, 1000)

	a, _ := New(16, 7)
	b, _ := New(16, 7)

	for _, v := range sig {
		a.ProcessSample(v)
	}

	for i := 0; i < len(sig); i += 33 {
		b.Process(sig[i:min(i+33, len(sig))])
	}

	testutil.RequireSliceNearlyEqual(t, a.Data(nil), b.Data(nil), 0)
}

func TestGraphScrollsOldestFirst(t *testing.T) {
	g, _ := New(3, 1)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		g.ProcessSample(v)
	}

	testutil.RequireSliceNearlyEqual(t, g.Data(nil), []float64{3, 4, 5}, 0)

	if g.Latest() != 5 {
		t.Fatalf("Latest() = %v, want 5", g.Latest())
	}
}

func TestGraphDataDB(t *testing.T) {
	g, _ := New(2, 1)
	g.ProcessSample(0)
	g.ProcessSample(0.1)

	got := g.DataDB(nil)
	if got[0] != core.MinDB {
		t.Fatalf("silent dot = %v, want %v", got[0], core.MinDB)
	}

	if math.Abs(got[1]+20) > 1e-9 {
		t.Fatalf("0.1 = %v dB, want -20", got[1])
	}
}

func TestGraphTimeAxis(t *testing.T) {
	g, _ := New(4, 100)

	axis := g.TimeAxis(nil, 1000)
	testutil.RequireSliceNearlyEqual(t, axis, []float64{0.3, 0.2, 0.1, 0}, 1e-12)
}

func TestGraphReset(t *testing.T) {
	g, _ := New(2, 2)
	g.Process([]float64{1, 1, 1})
	g.Reset()
	g.ProcessSample(0.5)
	g.ProcessSample(0.25)

	testutil.RequireSliceNearlyEqual(t, g.Data(nil), []float64{0, 0.5}, 0)
}

package loudness

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
	"github.com/cwbudde/algo-autogain/internal/testutil"
)

// A full-scale 1 kHz sine has mean square 0.5; the K filter adds 0.698 dB.
const kSineLUFS = -3.003

func TestMeterSine(t *testing.T) {
	const fs = 48000.0

	m := NewMeter(WithSampleRate(fs), WithChannels(1))
	sig := testutil.DeterministicSine(1000, fs, 1.0, int(fs*2))

	got := m.Process(nil, [][]float64{sig})
	if math.Abs(got-kSineLUFS) > 0.02 {
		t.Fatalf("loudness = %.3f LUFS, want %.3f", got, kSineLUFS)
	}
}

func TestMeterStereoSumsPower(t *testing.T) {
	const fs = 48000.0

	m := NewMeter(WithSampleRate(fs), WithChannels(2))
	sig := testutil.DeterministicSine(1000, fs, 1.0, int(fs*2))

	got := m.Process(nil, [][]float64{sig, sig})
	want := kSineLUFS + 10*math.Log10(2)

	if math.Abs(got-want) > 0.02 {
		t.Fatalf("stereo loudness = %.3f LUFS, want %.3f", got, want)
	}
}

func TestMeterUnweightedMatchesMeanSquare(t *testing.T) {
	const fs = 44100.0

	m := NewMeter(WithSampleRate(fs), WithWeighting(weighting.TypeNone), WithPeriod(100))
	got := m.Process(nil, [][]float64{testutil.DC(0.5, int(fs))})
	want := Offset + 10*math.Log10(0.25)

	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("loudness = %v, want %v", got, want)
	}
}

func TestMeterSilenceReachesFloor(t *testing.T) {
	for _, typ := range weighting.Types {
		t.Run(typ.String(), func(t *testing.T) {
			m := NewMeter(WithWeighting(typ), WithPeriod(50))

			burst := testutil.DeterministicNoise(7, 0.5, 4800)
			m.Process(nil, [][]float64{burst})

			out := make([]float64, 96000)
			m.Process(out, [][]float64{make([]float64, len(out))})

			testutil.RequireFinite(t, out)

			if last := out[len(out)-1]; last > -120 {
				t.Fatalf("loudness after long silence = %v, want near floor", last)
			}

			for _, l := range out {
				if l < Floor {
					t.Fatalf("loudness %v below floor", l)
				}
			}
		})
	}
}

func TestMeterZeroInputIsFloor(t *testing.T) {
	m := NewMeter()
	out := make([]float64, 1000)
	m.Process(out, [][]float64{make([]float64, 1000)})

	for i, l := range out {
		if l != Floor {
			t.Fatalf("out[%d] = %v, want %v", i, l, Floor)
		}
	}
}

func TestMeterPerSampleOutput(t *testing.T) {
	const fs = 48000.0

	m := NewMeter(WithSampleRate(fs), WithWeighting(weighting.TypeNone), WithPeriod(10))
	n := tenMillis(fs)

	out := make([]float64, 2*n)
	m.Process(out, [][]float64{testutil.DC(1, 2*n)})

	for i := 1; i < n; i++ {
		if out[i] < out[i-1] {
			t.Fatalf("loudness fell while filling: out[%d]=%v < out[%d]=%v", i, out[i], i-1, out[i-1])
		}
	}

	for i := n; i < 2*n; i++ {
		if math.Abs(out[i]-Offset) > 1e-9 {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], Offset)
		}
	}
}

func tenMillis(fs float64) int { return int(math.Round(fs / 100)) }

func TestMeterSetPeriod(t *testing.T) {
	m := NewMeter(WithPeriod(400), WithMaxPeriod(1000))

	if err := m.SetPeriod(0); err == nil {
		t.Error("expected error for zero period")
	}

	if err := m.SetPeriod(1500); err == nil {
		t.Error("expected error beyond max period")
	}

	if err := m.SetPeriod(20); err != nil {
		t.Fatal(err)
	}

	if m.Period() != 20 {
		t.Fatalf("Period() = %v, want 20", m.Period())
	}
}

func TestMeterMaxPeriodCoversPeriod(t *testing.T) {
	m := NewMeter(WithPeriod(3000), WithMaxPeriod(100))
	if m.MaxPeriod() != 3000 {
		t.Fatalf("MaxPeriod() = %v, want 3000", m.MaxPeriod())
	}
}

func TestMeterShortPeriodReactsFaster(t *testing.T) {
	const fs = 48000.0

	short := NewMeter(WithSampleRate(fs), WithPeriod(20))
	long := NewMeter(WithSampleRate(fs), WithPeriod(400))

	loud := testutil.DeterministicSine(1000, fs, 1.0, int(fs))
	quiet := testutil.DeterministicSine(1000, fs, 0.01, int(fs*0.1))

	for _, m := range []*Meter{short, long} {
		m.Process(nil, [][]float64{loud})
		m.Process(nil, [][]float64{quiet})
	}

	if short.Loudness() >= long.Loudness()-10 {
		t.Fatalf("short=%.2f long=%.2f: short window should track the drop", short.Loudness(), long.Loudness())
	}
}

func TestMeterSetWeightingResets(t *testing.T) {
	m := NewMeter()
	m.Process(nil, [][]float64{testutil.DeterministicSine(1000, 48000, 1, 48000)})

	if err := m.SetWeighting(weighting.Type(42)); err == nil {
		t.Fatal("expected error for invalid weighting")
	}

	if err := m.SetWeighting(weighting.TypeK); err != nil {
		t.Fatal(err)
	}

	if m.Loudness() == Floor {
		t.Fatal("unchanged weighting must not reset the meter")
	}

	if err := m.SetWeighting(weighting.TypeA); err != nil {
		t.Fatal(err)
	}

	if m.Loudness() != Floor || m.ChannelLoudness(0) != Floor {
		t.Fatalf("after switch loudness = %v, want floor", m.Loudness())
	}

	if m.Weighting() != weighting.TypeA {
		t.Fatalf("Weighting() = %v", m.Weighting())
	}
}

func TestMeterActiveAndDesignation(t *testing.T) {
	const fs = 48000.0

	sig := testutil.DeterministicSine(1000, fs, 1.0, int(fs))
	silent := make([]float64, len(sig))

	m := NewMeter(WithSampleRate(fs), WithChannels(2))
	if err := m.SetActive(1, false); err != nil {
		t.Fatal(err)
	}

	if err := m.SetActive(2, true); err == nil {
		t.Fatal("expected error for channel out of range")
	}

	mono := m.Process(nil, [][]float64{sig, sig})
	if math.Abs(mono-kSineLUFS) > 0.02 {
		t.Fatalf("one active channel: %.3f, want %.3f", mono, kSineLUFS)
	}

	m = NewMeter(WithSampleRate(fs), WithChannels(2))
	if err := m.SetDesignation(0, LeftSurround); err != nil {
		t.Fatal(err)
	}

	got := m.Process(nil, [][]float64{sig, silent})
	want := kSineLUFS + 10*math.Log10(1.41)

	if math.Abs(got-want) > 0.02 {
		t.Fatalf("surround weighting: %.3f, want %.3f", got, want)
	}
}

func TestDefaultDesignations(t *testing.T) {
	if d := DefaultDesignations(1); len(d) != 1 || d[0] != Center {
		t.Fatalf("mono = %v", d)
	}

	if d := DefaultDesignations(2); d[0] != Left || d[1] != Right {
		t.Fatalf("stereo = %v", d)
	}

	d := DefaultDesignations(5)
	want := []Designation{Left, Right, Center, RightSurround, LeftSurround}

	for i := range want {
		if d[i] != want[i] {
			t.Fatalf("5 channels = %v, want %v", d, want)
		}
	}

	if LFE.Weight() != 0 || Center.Weight() != 1 || RightSurround.Weight() != 1.41 {
		t.Fatal("unexpected designation weights")
	}
}

func TestFromMeanSquare(t *testing.T) {
	tests := []struct {
		ms   float64
		want float64
	}{
		{0, Floor},
		{-1, Floor},
		{math.NaN(), Floor},
		{1e-300, Floor},
		{1, Offset},
		{0.1, Offset - 10},
	}

	for _, tt := range tests {
		if got := FromMeanSquare(tt.ms); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("FromMeanSquare(%v) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestMeterReset(t *testing.T) {
	m := NewMeter()
	m.Process(nil, [][]float64{testutil.DeterministicNoise(1, 1, 4800)})
	m.Reset()

	if got := m.ProcessSample([]float64{0}); got != Floor {
		t.Fatalf("after Reset = %v, want floor", got)
	}
}

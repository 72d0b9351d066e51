package autogain

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-autogain/dsp/effects/dynamics"
	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
	"github.com/cwbudde/algo-autogain/internal/testutil"
	"github.com/cwbudde/algo-autogain/measure/loudness"
)

const testRate = 48000.0

// sineAt returns a 1 kHz sine whose unweighted loudness is lufs.
func sineAt(lufs float64, n int) []float64 {
	return testutil.SineAtLUFS(lufs, 1000, testRate, n)
}

func unweighted() Parameters {
	p := DefaultParameters()
	p.Weighting = weighting.TypeNone

	return p
}

func newTestProcessor(t *testing.T, params Parameters, opts ...Option) *Processor {
	t.Helper()

	opts = append([]Option{WithSampleRate(testRate), WithParameters(params)}, opts...)

	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return p
}

// run feeds sig in blocks and returns the gain meter after every block.
func run(t *testing.T, p *Processor, block int, main, side []float64) []float64 {
	t.Helper()

	var gains []float64

	out := make([]float64, block)

	for off := 0; off+block <= len(main); off += block {
		var sc [][]float64
		if side != nil {
			sc = [][]float64{side[off : off+block]}
		}

		if err := p.Process([][]float64{out}, [][]float64{main[off : off+block]}, sc); err != nil {
			t.Fatal(err)
		}

		gains = append(gains, p.Meters().Gain)
	}

	return gains
}

func TestNewDefaults(t *testing.T) {
	p := newTestProcessor(t, DefaultParameters())

	if p.Latency() != 0 || p.Channels() != 1 || p.HasSidechain() || p.SampleRate() != testRate {
		t.Fatalf("unexpected layout: latency=%d channels=%d", p.Latency(), p.Channels())
	}

	m := p.Meters()
	if m.InShort != loudness.Floor || m.OutLong != loudness.Floor || m.Gain != 0 {
		t.Fatalf("initial meters = %+v", m)
	}

	if p.Parameters() != DefaultParameters() {
		t.Fatal("Parameters() differs from defaults")
	}
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	bad := DefaultParameters()
	bad.Level = 10

	if _, err := New(WithParameters(bad)); err == nil {
		t.Fatal("expected validation error")
	}

	match := DefaultParameters()
	match.SidechainMode = SidechainMatch

	if _, err := New(WithParameters(match)); !errors.Is(err, ErrNoSidechain) {
		t.Fatalf("error = %v, want ErrNoSidechain", err)
	}

	if _, err := New(WithParameters(match), WithSidechain(true)); err != nil {
		t.Fatal(err)
	}
}

func TestSetParametersKeepsPreviousOnError(t *testing.T) {
	p := newTestProcessor(t, DefaultParameters())

	bad := DefaultParameters()
	bad.Lookahead = -1

	if err := p.SetParameters(bad); err == nil {
		t.Fatal("expected error")
	}

	if p.Parameters().Lookahead != 0 {
		t.Fatal("invalid parameters were published")
	}
}

func TestProcessShapeErrors(t *testing.T) {
	stereo := newTestProcessor(t, DefaultParameters(), WithChannels(2))
	buf := make([]float64, 64)

	if err := stereo.Process([][]float64{buf}, [][]float64{buf}, nil); !errors.Is(err, ErrChannels) {
		t.Fatalf("mono buffers on stereo processor: %v", err)
	}

	short := make([]float64, 32)
	if err := stereo.Process([][]float64{buf, buf}, [][]float64{buf, short}, nil); !errors.Is(err, ErrLength) {
		t.Fatalf("ragged buffers: %v", err)
	}

	params := DefaultParameters()
	params.SidechainMode = SidechainControl

	side := newTestProcessor(t, params, WithSidechain(true))
	if err := side.Process([][]float64{buf}, [][]float64{buf}, nil); !errors.Is(err, ErrChannels) {
		t.Fatalf("missing sidechain: %v", err)
	}

	if err := side.Process([][]float64{buf}, [][]float64{buf}, [][]float64{short}); !errors.Is(err, ErrLength) {
		t.Fatalf("short sidechain: %v", err)
	}
}

func TestBypassOutputsDelayedInput(t *testing.T) {
	params := unweighted()
	params.Bypass = true
	params.Lookahead = 5
	params.LongGrow = 100

	p := newTestProcessor(t, params)
	if p.Latency() != 240 {
		t.Fatalf("Latency() = %d, want 240", p.Latency())
	}

	in := testutil.DeterministicNoise(11, 0.05, 9600)
	out := make([]float64, len(in))

	for off := 0; off < len(in); off += 480 {
		if err := p.Process([][]float64{out[off : off+480]}, [][]float64{in[off : off+480]}, nil); err != nil {
			t.Fatal(err)
		}
	}

	for i := range out {
		want := 0.0
		if i >= 240 {
			want = in[i-240]
		}

		if out[i] != want {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want)
		}
	}

	m := p.Meters()
	if m.InShort <= loudness.Floor || m.OutShort <= loudness.Floor {
		t.Fatalf("meters must keep running in bypass: %+v", m)
	}

	if m.Gain == 0 {
		t.Fatal("controller must keep running in bypass")
	}
}

func TestRaisesQuietSignalAtGrowRate(t *testing.T) {
	params := unweighted()
	params.Drift = 1
	params.LongGrow = 1

	p := newTestProcessor(t, params)

	const block = 480
	gains := run(t, p, block, sineAt(-30, int(10*testRate)), nil)

	// Monotonic, at most 1 dB/s.
	testutil.RequireSteps(t, append([]float64{0}, gains...), 0, block/testRate, 1e-9)

	if got := gains[len(gains)-1]; math.Abs(got-7) > 1e-6 {
		t.Fatalf("final gain = %v dB, want 7", got)
	}

	if m := p.Meters(); math.Abs(m.OutLong+23) > 0.05 {
		t.Fatalf("output long loudness = %v, want -23", m.OutLong)
	}
}

func TestSilenceFreezesGain(t *testing.T) {
	params := unweighted()
	params.LongGrow = 10

	p := newTestProcessor(t, params)

	run(t, p, 480, sineAt(-40, int(2*testRate)), nil)
	run(t, p, 480, make([]float64, 4800), nil)

	held := p.Meters().Gain
	if held == 0 {
		t.Fatal("gain should have moved before the silence")
	}

	for i, g := range run(t, p, 480, make([]float64, int(2*testRate)), nil) {
		if g != held {
			t.Fatalf("block %d: gain %v changed during silence, want %v", i, g, held)
		}
	}

	if p.Meters().State != dynamics.AutoGainSilence {
		t.Fatalf("state = %v", p.Meters().State)
	}
}

func TestMaxGainCeiling(t *testing.T) {
	params := unweighted()
	params.MaxGain = 10
	params.LongGrow = 100

	p := newTestProcessor(t, params)

	for i, g := range run(t, p, 1024, sineAt(-70, int(2*testRate)), nil) {
		if g > 10 {
			t.Fatalf("block %d: gain %v above ceiling", i, g)
		}
	}

	if got := p.Meters().Gain; got != 10 {
		t.Fatalf("gain = %v, want 10", got)
	}
}

func TestControlModeUsesSidechain(t *testing.T) {
	params := unweighted()
	params.SidechainMode = SidechainControl
	params.LongGrow = 100

	p := newTestProcessor(t, params, WithSidechain(true))

	n := int(2 * testRate)
	run(t, p, 960, sineAt(-20, n), sineAt(-40, n))

	m := p.Meters()
	if math.Abs(m.Gain-17) > 1e-6 {
		t.Fatalf("gain = %v, want 17 from the sidechain level", m.Gain)
	}

	if math.Abs(m.SidechainLong+40) > 0.01 || math.Abs(m.InLong+20) > 0.01 {
		t.Fatalf("meters = %+v", m)
	}

	if math.Abs(m.OutLong+3) > 0.05 {
		t.Fatalf("output long = %v, want -3", m.OutLong)
	}
}

func TestMatchModeFollowsSidechain(t *testing.T) {
	params := unweighted()
	params.SidechainMode = SidechainMatch
	params.LongFall = 5

	p := newTestProcessor(t, params, WithSidechain(true))

	n := int(3 * testRate)
	main := sineAt(-20, 2*n)
	side := testutil.Concat(sineAt(-20, n), sineAt(-30, n))

	const block = 960
	gains := run(t, p, block, main, side)

	half := len(gains) / 2
	if g := gains[half-1]; g != 0 {
		t.Fatalf("gain while matched = %v, want 0", g)
	}

	testutil.RequireSteps(t, gains[half-1:], -5*block/testRate, 0, 1e-9)

	if g := gains[len(gains)-1]; math.Abs(g+10) > 1e-6 {
		t.Fatalf("final gain = %v, want -10", g)
	}
}

func TestSidechainPreampShiftsMeasurement(t *testing.T) {
	params := unweighted()
	params.SidechainPreamp = 6
	params.LongGrow = 100
	params.LongFall = 100

	p := newTestProcessor(t, params)
	run(t, p, 960, sineAt(-23, int(2*testRate)), nil)

	m := p.Meters()
	if math.Abs(m.SidechainLong-m.InLong-6) > 0.01 {
		t.Fatalf("sidechain %v vs input %v, want +6 dB", m.SidechainLong, m.InLong)
	}

	if math.Abs(m.Gain+6) > 1e-6 {
		t.Fatalf("gain = %v, want -6", m.Gain)
	}
}

func TestLookaheadDelaysOutput(t *testing.T) {
	params := DefaultParameters()
	params.Lookahead = 10

	p := newTestProcessor(t, params)

	in := testutil.Impulse(1024, 0)
	out := make([]float64, 1024)

	if err := p.Process([][]float64{out}, [][]float64{in}, nil); err != nil {
		t.Fatal(err)
	}

	for i, v := range out {
		if (i == 480) != (v != 0) {
			t.Fatalf("out[%d] = %v; impulse expected only at 480", i, v)
		}
	}

	params.Lookahead = 2
	if err := p.SetParameters(params); err != nil {
		t.Fatal(err)
	}

	// Latency follows at the next block.
	_ = p.Process([][]float64{out}, [][]float64{make([]float64, 1024)}, nil)

	if p.Latency() != 96 {
		t.Fatalf("Latency() = %d, want 96", p.Latency())
	}
}

func TestChunkingDoesNotChangeOutput(t *testing.T) {
	params := DefaultParameters()
	params.Lookahead = 3
	params.QuickAmp = true

	in := testutil.DeterministicNoise(5, 0.3, 20000)

	whole := newTestProcessor(t, params, WithBlockSize(1024))
	a := make([]float64, len(in))

	if err := whole.Process([][]float64{a}, [][]float64{in}, nil); err != nil {
		t.Fatal(err)
	}

	pieces := newTestProcessor(t, params, WithBlockSize(1024))
	b := make([]float64, len(in))

	for off := 0; off < len(in); off += 333 {
		end := min(off+333, len(in))
		if err := pieces.Process([][]float64{b[off:end]}, [][]float64{in[off:end]}, nil); err != nil {
			t.Fatal(err)
		}
	}

	testutil.RequireSliceNearlyEqual(t, a, b, 0)
}

func TestProcessInPlace(t *testing.T) {
	in := testutil.DeterministicNoise(9, 0.2, 4096)

	ref := newTestProcessor(t, DefaultParameters())
	want := make([]float64, len(in))
	_ = ref.Process([][]float64{want}, [][]float64{in}, nil)

	p := newTestProcessor(t, DefaultParameters())
	buf := append([]float64(nil), in...)
	_ = p.Process([][]float64{buf}, [][]float64{buf}, nil)

	testutil.RequireSliceNearlyEqual(t, buf, want, 0)
}

func TestStereoUsesBothChannels(t *testing.T) {
	params := unweighted()

	p := newTestProcessor(t, params, WithChannels(2))

	sig := sineAt(-26, int(testRate))
	out := [][]float64{make([]float64, len(sig)), make([]float64, len(sig))}

	if err := p.Process(out, [][]float64{sig, sig}, nil); err != nil {
		t.Fatal(err)
	}

	// Two coherent channels sum to 3 dB more than one.
	if m := p.Meters(); math.Abs(m.InLong+26-10*math.Log10(2)) > 0.01 {
		t.Fatalf("stereo input long = %v", m.InLong)
	}
}

func TestWeightingChangeResetsMeters(t *testing.T) {
	p := newTestProcessor(t, DefaultParameters())
	run(t, p, 960, sineAt(-20, 9600), nil)

	params := DefaultParameters()
	params.Weighting = weighting.TypeA

	if err := p.SetParameters(params); err != nil {
		t.Fatal(err)
	}

	run(t, p, 960, make([]float64, 960), nil)

	if m := p.Meters(); m.InLong != loudness.Floor || m.OutShort != loudness.Floor {
		t.Fatalf("meters after weighting change = %+v", m)
	}
}

func TestParameterChangesDoNotAllocate(t *testing.T) {
	p := newTestProcessor(t, DefaultParameters())

	a := DefaultParameters()
	a.Weighting = weighting.TypeA
	a.Lookahead = 5
	k := DefaultParameters()
	k.ShortPeriod = 400
	k.QuickAmp = true

	snapshots := []*Parameters{&a, &k}

	in := [][]float64{sineAt(-30, 2048)}
	out := [][]float64{make([]float64, 2048)}

	if err := p.Process(out, in, nil); err != nil {
		t.Fatal(err)
	}

	i := 0
	allocs := testing.AllocsPerRun(50, func() {
		p.params.Store(snapshots[i%len(snapshots)])
		i++

		if err := p.Process(out, in, nil); err != nil {
			t.Fatal(err)
		}
	})

	if allocs != 0 {
		t.Fatalf("Process allocated %.1f times per weighting switch", allocs)
	}

	if p.applied != snapshots[(i-1)%len(snapshots)] {
		t.Fatal("last snapshot was not applied")
	}
}

func TestGraphs(t *testing.T) {
	p := newTestProcessor(t, DefaultParameters())
	run(t, p, 960, sineAt(-30, int(testRate)), nil)

	for _, kind := range GraphKinds {
		g := p.Graph(kind)
		if g == nil {
			t.Fatalf("%s graph missing", kind)
		}

		if g.Latest() == 0 {
			t.Fatalf("%s graph is empty", kind)
		}
	}

	if p.Graph(GraphKind(42)) != nil {
		t.Fatal("unknown graph kind should be nil")
	}

	off := newTestProcessor(t, DefaultParameters(), WithGraphs(false))
	if off.Graph(GraphGain) != nil {
		t.Fatal("graphs disabled but present")
	}
}

func TestResetRestoresUnity(t *testing.T) {
	params := unweighted()
	params.Lookahead = 1

	p := newTestProcessor(t, params)
	run(t, p, 960, sineAt(-40, int(testRate)), nil)
	p.Reset()

	m := p.Meters()
	if m.Gain != 0 || m.InShort != loudness.Floor {
		t.Fatalf("after Reset meters = %+v", m)
	}

	out := make([]float64, 48)
	_ = p.Process([][]float64{out}, [][]float64{make([]float64, 48)}, nil)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("stale lookahead sample at %d: %v", i, v)
		}
	}
}

func TestConcurrentParameterUpdates(t *testing.T) {
	p := newTestProcessor(t, DefaultParameters())

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		params := DefaultParameters()
		for i := range 200 {
			params.Level = -float64(20 + i%10)
			params.Bypass = i%3 == 0
			_ = p.SetParameters(params)
			_ = p.Meters()
			_ = p.Latency()
		}
	}()

	in := testutil.DeterministicNoise(1, 0.1, 512)
	out := make([]float64, 512)

	for range 200 {
		if err := p.Process([][]float64{out}, [][]float64{in}, nil); err != nil {
			t.Error(err)
			break
		}
	}

	wg.Wait()
	testutil.RequireFinite(t, out)
}

package autogain

import (
	"errors"
	"fmt"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-autogain/dsp/core"
	"github.com/cwbudde/algo-autogain/dsp/delay"
	"github.com/cwbudde/algo-autogain/dsp/effects/dynamics"
	"github.com/cwbudde/algo-autogain/measure/history"
	"github.com/cwbudde/algo-autogain/measure/loudness"
)

var (
	// ErrChannels is returned when buffers do not match the channel layout.
	ErrChannels = errors.New("autogain: channel count mismatch")
	// ErrLength is returned when channel buffers differ in length.
	ErrLength = errors.New("autogain: buffer length mismatch")
	// ErrNoSidechain is returned when a sidechain mode is requested from a
	// processor built without sidechain input.
	ErrNoSidechain = errors.New("autogain: processor has no sidechain input")
)

// pair measures one signal over the short and the long period.
type pair struct {
	short, long *loudness.Meter
}

func newPair(cfg Config, p Parameters) pair {
	common := []loudness.MeterOption{
		loudness.WithSampleRate(cfg.SampleRate),
		loudness.WithChannels(cfg.Channels),
		loudness.WithWeighting(p.Weighting),
	}

	return pair{
		short: loudness.NewMeter(append(common,
			loudness.WithPeriod(p.ShortPeriod), loudness.WithMaxPeriod(MaxShortPeriod))...),
		long: loudness.NewMeter(append(common,
			loudness.WithPeriod(p.LongPeriod), loudness.WithMaxPeriod(MaxLongPeriod))...),
	}
}

func (m pair) configure(prev, next *Parameters) error {
	if prev == nil || prev.Weighting != next.Weighting {
		if err := m.short.SetWeighting(next.Weighting); err != nil {
			return err
		}

		if err := m.long.SetWeighting(next.Weighting); err != nil {
			return err
		}
	}

	if err := m.short.SetPeriod(next.ShortPeriod); err != nil {
		return err
	}

	return m.long.SetPeriod(next.LongPeriod)
}

func (m pair) process(short, long []float64, in [][]float64) {
	m.short.Process(short, in)
	m.long.Process(long, in)
}

func (m pair) reset() {
	m.short.Reset()
	m.long.Reset()
}

// Processor is a loudness-driven automatic gain control for mono or stereo
// signals, with optional sidechain.
//
// Process must be called from a single goroutine. SetParameters, Parameters,
// Meters and Latency may be called concurrently with it.
type Processor struct {
	cfg Config

	params  atomic.Pointer[Parameters]
	applied *Parameters

	in, sc, out pair
	control     *dynamics.AutoGain
	lines       []*delay.Line
	bypass      []*Bypass
	preamp      float64

	graphs [numGraphs]*history.Graph
	meters [numMeters]meterValue
	state  atomic.Int32

	latency atomic.Int64

	// Scratch, sized at construction.
	inView, outView, scView, ctlView [][]float64
	ctlBuf, delayed, wet             [][]float64
	traces                           [numGraphs][]float64
	linear                           []float64
}

// New creates a processor. Its initial parameters are validated like
// SetParameters does.
func New(opts ...Option) (*Processor, error) {
	cfg := ApplyOptions(opts...)

	p := &Processor{cfg: cfg}
	if err := p.check(cfg.Parameters); err != nil {
		return nil, err
	}

	control, err := dynamics.NewAutoGain(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("autogain controller: %w", err)
	}

	p.control = control
	p.in = newPair(cfg, cfg.Parameters)
	p.sc = newPair(cfg, cfg.Parameters)
	p.out = newPair(cfg, cfg.Parameters)

	maxDelay := core.MillisToSamples(MaxLookahead, cfg.SampleRate)
	channels := cfg.Channels
	size := cfg.BlockSize

	p.lines = make([]*delay.Line, channels)
	p.bypass = make([]*Bypass, channels)
	p.inView = make([][]float64, channels)
	p.outView = make([][]float64, channels)
	p.scView = make([][]float64, channels)
	p.ctlView = make([][]float64, channels)
	p.ctlBuf = make([][]float64, channels)
	p.delayed = make([][]float64, channels)
	p.wet = make([][]float64, channels)

	for ch := range channels {
		line, err := delay.New(maxDelay)
		if err != nil {
			return nil, fmt.Errorf("autogain lookahead: %w", err)
		}

		p.lines[ch] = line
		p.bypass[ch] = NewBypass(cfg.SampleRate, cfg.BypassTime)
		p.ctlBuf[ch] = make([]float64, size)
		p.delayed[ch] = make([]float64, size)
		p.wet[ch] = make([]float64, size)
	}

	for k := range p.traces {
		p.traces[k] = make([]float64, size)
	}

	p.linear = make([]float64, size)

	if cfg.Graphs {
		for k := range p.graphs {
			g, err := history.NewForDuration(cfg.SampleRate, history.DefaultDuration, history.DefaultPoints)
			if err != nil {
				return nil, fmt.Errorf("autogain graph: %w", err)
			}

			p.graphs[k] = g
		}
	}

	params := cfg.Parameters
	p.params.Store(&params)

	if err := p.apply(&params); err != nil {
		return nil, err
	}

	// Start without a bypass fade.
	for _, b := range p.bypass {
		b.Reset()
	}

	p.publishFloor()

	return p, nil
}

func (p *Processor) check(params Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if !p.cfg.Sidechain && params.SidechainMode != SidechainInternal {
		return fmt.Errorf("%w: mode %s", ErrNoSidechain, params.SidechainMode)
	}

	return nil
}

// SampleRate returns the processing sample rate.
func (p *Processor) SampleRate() float64 { return p.cfg.SampleRate }

// Channels returns the number of main channels.
func (p *Processor) Channels() int { return p.cfg.Channels }

// HasSidechain reports whether the processor accepts a sidechain input.
func (p *Processor) HasSidechain() bool { return p.cfg.Sidechain }

// SetParameters validates params and publishes them. They take effect at the
// start of the next block.
func (p *Processor) SetParameters(params Parameters) error {
	if err := p.check(params); err != nil {
		return err
	}

	p.params.Store(&params)

	return nil
}

// Parameters returns the most recently published parameters.
func (p *Processor) Parameters() Parameters { return *p.params.Load() }

// Latency returns the lookahead delay in samples.
func (p *Processor) Latency() int { return int(p.latency.Load()) }

// Meters returns the values published by the latest block.
func (p *Processor) Meters() Meters {
	return Meters{
		InShort:        p.meters[meterInShort].load(),
		InLong:         p.meters[meterInLong].load(),
		SidechainShort: p.meters[meterSidechainShort].load(),
		SidechainLong:  p.meters[meterSidechainLong].load(),
		OutShort:       p.meters[meterOutShort].load(),
		OutLong:        p.meters[meterOutLong].load(),
		Gain:           p.meters[meterGain].load(),
		State:          dynamics.AutoGainState(p.state.Load()),
	}
}

// Graph returns one history graph, or nil when graphs are disabled. Graphs
// are written by Process and must be read from the same goroutine.
func (p *Processor) Graph(kind GraphKind) *history.Graph {
	if kind < 0 || kind >= numGraphs {
		return nil
	}

	return p.graphs[kind]
}

// Reset clears all measurements, the lookahead buffers and the gain.
func (p *Processor) Reset() {
	p.in.reset()
	p.sc.reset()
	p.out.reset()
	p.control.Reset()

	for ch := range p.lines {
		p.lines[ch].Reset()
		p.bypass[ch].Reset()
	}

	for _, g := range p.graphs {
		if g != nil {
			g.Reset()
		}
	}

	p.publishFloor()
}

func (p *Processor) publishFloor() {
	for id := range numMeters {
		p.meters[id].store(loudness.Floor)
	}

	p.meters[meterGain].store(p.control.GainDB())
	p.state.Store(int32(p.control.State()))
}

// apply pushes a new parameter snapshot into the components.
func (p *Processor) apply(next *Parameters) error {
	prev := p.applied

	if err := p.in.configure(prev, next); err != nil {
		return fmt.Errorf("autogain input meters: %w", err)
	}

	if err := p.sc.configure(prev, next); err != nil {
		return fmt.Errorf("autogain sidechain meters: %w", err)
	}

	if err := p.out.configure(prev, next); err != nil {
		return fmt.Errorf("autogain output meters: %w", err)
	}

	if prev != nil && prev.SidechainMode != next.SidechainMode {
		p.sc.reset()
	}

	if err := p.configureControl(next); err != nil {
		return fmt.Errorf("autogain controller: %w", err)
	}

	p.preamp = core.DBToGain(next.SidechainPreamp)

	lookahead := core.MillisToSamples(next.Lookahead, p.cfg.SampleRate)
	for ch := range p.lines {
		p.lines[ch].SetDelay(lookahead)
		p.bypass[ch].Set(next.Bypass)
	}

	p.latency.Store(int64(p.lines[0].Delay()))
	p.applied = next

	return nil
}

func (p *Processor) configureControl(next *Parameters) error {
	c := p.control

	if err := c.SetLongGrow(next.LongGrow); err != nil {
		return err
	}

	if err := c.SetLongFall(next.LongFall); err != nil {
		return err
	}

	if err := c.SetShortGrow(next.ShortGrow); err != nil {
		return err
	}

	if err := c.SetShortFall(next.ShortFall); err != nil {
		return err
	}

	if err := c.SetSilence(next.Silence); err != nil {
		return err
	}

	if err := c.SetDrift(next.Drift); err != nil {
		return err
	}

	if err := c.SetMaxGain(next.MaxGain); err != nil {
		return err
	}

	if err := c.SetMinGain(next.MinGain); err != nil {
		return err
	}

	c.SetMaxGainEnabled(next.MaxGainEnabled)
	c.SetQuickAmp(next.QuickAmp)

	return nil
}

// Process runs one host block. in and out hold one slice per main channel,
// all of equal length; out may alias in. sc holds the sidechain channels and
// is only read when the sidechain mode is Control or Match.
func (p *Processor) Process(out, in, sc [][]float64) error {
	params := p.params.Load()

	if err := p.checkBuffers(out, in, sc, params.SidechainMode); err != nil {
		return err
	}

	if params != p.applied {
		// Parameters were validated when published.
		if err := p.apply(params); err != nil {
			return err
		}
	}

	var peaks [numMeters]float64
	for id := range peaks {
		peaks[id] = loudness.Floor
	}

	n := len(in[0])
	for off := 0; off < n; off += p.cfg.BlockSize {
		end := min(off+p.cfg.BlockSize, n)
		p.processChunk(params, out, in, sc, off, end, &peaks)
	}

	for id := range meterGain {
		p.meters[id].store(peaks[id])
	}

	p.meters[meterGain].store(p.control.GainDB())
	p.state.Store(int32(p.control.State()))

	return nil
}

func (p *Processor) checkBuffers(out, in, sc [][]float64, mode SidechainMode) error {
	channels := p.cfg.Channels
	if len(in) != channels || len(out) != channels {
		return fmt.Errorf("%w: want %d, got in=%d out=%d", ErrChannels, channels, len(in), len(out))
	}

	n := len(in[0])

	for ch := range channels {
		if len(in[ch]) != n || len(out[ch]) != n {
			return fmt.Errorf("%w: channel %d", ErrLength, ch)
		}
	}

	if mode == SidechainInternal {
		return nil
	}

	if !p.cfg.Sidechain {
		return ErrNoSidechain
	}

	if len(sc) != channels {
		return fmt.Errorf("%w: want %d sidechain channels, got %d", ErrChannels, channels, len(sc))
	}

	for ch := range channels {
		if len(sc[ch]) != n {
			return fmt.Errorf("%w: sidechain channel %d", ErrLength, ch)
		}
	}

	return nil
}

func (p *Processor) processChunk(params *Parameters, out, in, sc [][]float64, off, end int, peaks *[numMeters]float64) {
	m := end - off
	tr := &p.traces

	for ch := range p.cfg.Channels {
		p.inView[ch] = in[ch][off:end]
		p.outView[ch] = out[ch][off:end]
		p.ctlView[ch] = p.ctlBuf[ch][:m]
	}

	p.in.process(tr[GraphInShort][:m], tr[GraphInLong][:m], p.inView)

	// The control signal is the preamplified main input or sidechain.
	src := p.inView
	if params.SidechainMode != SidechainInternal {
		for ch := range p.cfg.Channels {
			p.scView[ch] = sc[ch][off:end]
		}

		src = p.scView
	}

	for ch := range p.cfg.Channels {
		vecmath.ScaleBlock(p.ctlView[ch], src[ch], p.preamp)
	}

	p.sc.process(tr[GraphSidechainShort][:m], tr[GraphSidechainLong][:m], p.ctlView)

	gain := tr[GraphGain][:m]
	if params.SidechainMode == SidechainMatch {
		p.control.ProcessMatch(gain,
			tr[GraphInLong][:m], tr[GraphInShort][:m],
			tr[GraphSidechainLong][:m], tr[GraphSidechainShort][:m])
	} else {
		p.control.Process(gain, tr[GraphSidechainLong][:m], tr[GraphSidechainShort][:m], params.Level)
	}

	for ch := range p.cfg.Channels {
		delayed := p.delayed[ch][:m]
		wet := p.wet[ch][:m]

		p.lines[ch].ProcessBlockTo(delayed, p.inView[ch])
		vecmath.MulBlock(wet, delayed, gain)
		p.bypass[ch].Process(p.outView[ch], delayed, wet)
	}

	p.out.process(tr[GraphOutShort][:m], tr[GraphOutLong][:m], p.outView)

	for id, kind := range loudnessGraphs {
		trace := tr[kind][:m]
		peaks[id] = max(peaks[id], blockMax(trace))

		if g := p.graphs[kind]; g != nil {
			for i, l := range trace {
				p.linear[i] = core.DBToGain(l)
			}

			g.Process(p.linear[:m])
		}
	}

	if g := p.graphs[GraphGain]; g != nil {
		g.Process(gain)
	}
}

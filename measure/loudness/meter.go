// Package loudness measures weighted signal loudness in LUFS over sliding
// windows, following ITU-R BS.1770.
package loudness

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-autogain/dsp/core"
	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
)

const (
	// Floor is reported for windows holding no energy.
	Floor = core.MinDB

	// Offset is the BS.1770 calibration constant.
	Offset = -0.691
)

// Meter measures the loudness of one or more channels over a sliding window.
// Each channel is weighted, squared and averaged; the channel mean squares
// are combined with their designation weights.
type Meter struct {
	sampleRate  float64
	periodMs    float64
	maxPeriodMs float64

	bank    *weighting.Bank
	windows []*Window
	gains   []float64
	desig   []Designation
	active  []bool

	integrator *Integrator
	loudness   float64
}

// NewMeter creates a loudness meter with the given options.
func NewMeter(opts ...MeterOption) *Meter {
	cfg := ApplyMeterOptions(opts...)

	m := &Meter{
		sampleRate:  cfg.SampleRate,
		periodMs:    cfg.PeriodMs,
		maxPeriodMs: cfg.MaxPeriodMs,
		bank:        weighting.NewBank(cfg.Weighting, cfg.SampleRate, cfg.Channels),
		windows:     make([]*Window, cfg.Channels),
		gains:       make([]float64, cfg.Channels),
		desig:       DefaultDesignations(cfg.Channels),
		active:      make([]bool, cfg.Channels),
		loudness:    Floor,
	}

	capacity := max(core.MillisToSamples(cfg.MaxPeriodMs, cfg.SampleRate), 1)
	length := min(max(core.MillisToSamples(cfg.PeriodMs, cfg.SampleRate), 1), capacity)

	for ch := range m.windows {
		w, err := NewWindow(capacity)
		if err != nil {
			panic("loudness: " + err.Error())
		}

		_ = w.SetLength(length)
		m.windows[ch] = w
		m.active[ch] = true
	}

	m.updateGains()

	return m
}

// SampleRate returns the processing sample rate.
func (m *Meter) SampleRate() float64 { return m.sampleRate }

// Channels returns the number of measured channels.
func (m *Meter) Channels() int { return len(m.windows) }

// Weighting returns the active frequency weighting.
func (m *Meter) Weighting() weighting.Type { return m.bank.Type() }

// Period returns the integration period in milliseconds.
func (m *Meter) Period() float64 { return m.periodMs }

// MaxPeriod returns the longest supported integration period in milliseconds.
func (m *Meter) MaxPeriod() float64 { return m.maxPeriodMs }

// SetWeighting switches the frequency weighting. A change clears the filter
// memory and the measured energy, so stale state cannot leak into the new
// measurement.
func (m *Meter) SetWeighting(t weighting.Type) error {
	if !t.Valid() {
		return fmt.Errorf("loudness weighting is invalid: %d", t)
	}

	if t == m.bank.Type() {
		return nil
	}

	m.bank.SetType(t)
	m.resetWindows()

	return nil
}

// SetPeriod changes the integration period. The energy already measured is
// kept.
func (m *Meter) SetPeriod(ms float64) error {
	if !(ms > 0) || ms > m.maxPeriodMs {
		return fmt.Errorf("loudness period must be in (0, %g] ms: %g", m.maxPeriodMs, ms)
	}

	capacity := m.windows[0].MaxLength()
	length := min(max(core.MillisToSamples(ms, m.sampleRate), 1), capacity)

	for _, w := range m.windows {
		if err := w.SetLength(length); err != nil {
			return err
		}
	}

	m.periodMs = ms

	return nil
}

// SetDesignation assigns the BS.1770 position of channel ch.
func (m *Meter) SetDesignation(ch int, d Designation) error {
	if ch < 0 || ch >= len(m.desig) {
		return fmt.Errorf("loudness channel out of range [0, %d): %d", len(m.desig), ch)
	}

	m.desig[ch] = d
	m.updateGains()

	return nil
}

// Designation returns the BS.1770 position of channel ch.
func (m *Meter) Designation(ch int) Designation { return m.desig[ch] }

// SetActive includes or excludes channel ch from the loudness sum.
func (m *Meter) SetActive(ch int, active bool) error {
	if ch < 0 || ch >= len(m.active) {
		return fmt.Errorf("loudness channel out of range [0, %d): %d", len(m.active), ch)
	}

	m.active[ch] = active
	m.updateGains()

	return nil
}

// Active reports whether channel ch contributes to the loudness sum.
func (m *Meter) Active(ch int) bool { return m.active[ch] }

// SetIntegrator attaches an integrator that receives the combined weighted
// energy of every processed frame. Pass nil to detach.
func (m *Meter) SetIntegrator(ig *Integrator) { m.integrator = ig }

// ProcessSample measures one frame holding one sample per channel and
// returns the loudness after it.
func (m *Meter) ProcessSample(frame []float64) float64 {
	var sum, energy float64
	for ch := range m.windows {
		sum, energy = m.accumulate(ch, frame[ch], sum, energy)
	}

	return m.commit(sum, energy)
}

// Process measures planar input (one slice per channel, equal lengths) and
// writes the loudness after each sample into dst when dst is not nil.
// It returns the loudness after the last sample.
func (m *Meter) Process(dst []float64, in [][]float64) float64 {
	if len(in) < len(m.windows) {
		return m.loudness
	}

	for i := range in[0] {
		var sum, energy float64
		for ch := range m.windows {
			sum, energy = m.accumulate(ch, in[ch][i], sum, energy)
		}

		l := m.commit(sum, energy)
		if dst != nil {
			dst[i] = l
		}
	}

	return m.loudness
}

func (m *Meter) accumulate(ch int, x, sum, energy float64) (float64, float64) {
	y := m.bank.ProcessSample(ch, x)
	sq := y * y
	g := m.gains[ch]

	return sum + g*m.windows[ch].Push(sq), energy + g*sq
}

func (m *Meter) commit(sum, energy float64) float64 {
	if m.integrator != nil {
		m.integrator.Push(energy)
	}

	m.loudness = FromMeanSquare(sum)

	return m.loudness
}

// Loudness returns the most recent loudness in LUFS.
func (m *Meter) Loudness() float64 { return m.loudness }

// ChannelLoudness returns the unweighted-by-designation loudness of one
// channel in LUFS.
func (m *Meter) ChannelLoudness(ch int) float64 {
	return FromMeanSquare(m.windows[ch].MeanSquare())
}

// Reset clears filter memory and all measured energy.
func (m *Meter) Reset() {
	m.bank.Reset()
	m.resetWindows()
}

func (m *Meter) resetWindows() {
	for _, w := range m.windows {
		w.Reset()
	}

	m.loudness = Floor
}

func (m *Meter) updateGains() {
	for ch := range m.gains {
		if m.active[ch] {
			m.gains[ch] = m.desig[ch].Weight()
		} else {
			m.gains[ch] = 0
		}
	}
}

// FromMeanSquare converts a weighted mean square to LUFS, flooring silence
// at Floor.
func FromMeanSquare(meanSquare float64) float64 {
	if !(meanSquare > 0) {
		return Floor
	}

	return max(Offset+10*math.Log10(meanSquare), Floor)
}

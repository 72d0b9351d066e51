package loudness

import (
	"github.com/cwbudde/algo-autogain/dsp/core"
)

const (
	// Gating parameters from BS.1770-4.
	gateBlockMs     = 400.0
	gateOverlap     = 0.75
	absoluteGate    = -70.0
	relativeGate    = -10.0
	defaultBlockCap = 1 << 12
)

// Integrator computes gated integrated loudness. It collects the mean
// square of 400 ms blocks taken every 100 ms and applies the absolute and
// relative gates when Loudness is called.
//
// Block storage grows with the measured duration, so an Integrator is meant
// for offline analysis rather than the real-time path.
type Integrator struct {
	window    *Window
	step      int
	sinceStep int
	blocks    []float64
}

// NewIntegrator returns an integrator for the given sample rate.
func NewIntegrator(sampleRate float64) *Integrator {
	length := max(core.MillisToSamples(gateBlockMs, sampleRate), 1)

	w, err := NewWindow(length)
	if err != nil {
		panic("loudness: " + err.Error())
	}

	return &Integrator{
		window: w,
		step:   max(core.MillisToSamples(gateBlockMs*(1-gateOverlap), sampleRate), 1),
		blocks: make([]float64, 0, defaultBlockCap),
	}
}

// Push adds the channel-weighted energy sum of one frame.
func (ig *Integrator) Push(energy float64) {
	ms := ig.window.Push(energy)

	ig.sinceStep++
	if ig.sinceStep < ig.step {
		return
	}

	ig.sinceStep = 0

	// Only complete blocks take part in gating.
	if ig.window.filled >= ig.window.length {
		ig.blocks = append(ig.blocks, ms)
	}
}

// Blocks returns the number of gating blocks collected so far.
func (ig *Integrator) Blocks() int { return len(ig.blocks) }

// Loudness returns the gated integrated loudness in LUFS, or Floor when no
// block passes the gates.
func (ig *Integrator) Loudness() float64 {
	absSum := 0.0
	absCount := 0

	for _, b := range ig.blocks {
		if FromMeanSquare(b) > absoluteGate {
			absSum += b
			absCount++
		}
	}

	if absCount == 0 {
		return Floor
	}

	gate := FromMeanSquare(absSum/float64(absCount)) + relativeGate

	relSum := 0.0
	relCount := 0

	for _, b := range ig.blocks {
		l := FromMeanSquare(b)
		if l > absoluteGate && l > gate {
			relSum += b
			relCount++
		}
	}

	if relCount == 0 {
		return Floor
	}

	return FromMeanSquare(relSum / float64(relCount))
}

// Reset discards all collected blocks.
func (ig *Integrator) Reset() {
	ig.window.Reset()
	ig.sinceStep = 0
	ig.blocks = ig.blocks[:0]
}

// Package history records fixed-length traces of metered values for display,
// such as the loudness and gain graphs of a level processor.
package history

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-autogain/dsp/core"
)

const (
	// DefaultDuration is the time span covered by a graph in seconds.
	DefaultDuration = 2.0
	// DefaultPoints is the number of dots in a graph.
	DefaultPoints = 640
)

// Graph is a scrolling trace of non-negative linear magnitudes. Each dot
// holds the largest magnitude seen during its samplesPerDot input samples.
type Graph struct {
	dots          []float64
	head          int
	samplesPerDot int

	pending int
	peak    float64
}

// New returns a graph of points dots, each covering samplesPerDot samples.
func New(points, samplesPerDot int) (*Graph, error) {
	if points < 1 {
		return nil, fmt.Errorf("graph points must be >= 1: %d", points)
	}

	if samplesPerDot < 1 {
		return nil, fmt.Errorf("graph samples per dot must be >= 1: %d", samplesPerDot)
	}

	return &Graph{
		dots:          make([]float64, points),
		samplesPerDot: samplesPerDot,
	}, nil
}

// NewForDuration returns a graph of points dots spanning seconds of input
// at sampleRate.
func NewForDuration(sampleRate, seconds float64, points int) (*Graph, error) {
	if !(sampleRate > 0) || !(seconds > 0) {
		return nil, fmt.Errorf("graph sample rate and duration must be > 0: %g, %g", sampleRate, seconds)
	}

	if points < 1 {
		return nil, fmt.Errorf("graph points must be >= 1: %d", points)
	}

	spd := max(int(math.Round(sampleRate*seconds/float64(points))), 1)

	return New(points, spd)
}

// Points returns the number of dots.
func (g *Graph) Points() int { return len(g.dots) }

// SamplesPerDot returns the number of input samples per dot.
func (g *Graph) SamplesPerDot() int { return g.samplesPerDot }

// ProcessSample feeds one magnitude.
func (g *Graph) ProcessSample(v float64) {
	g.peak = max(g.peak, math.Abs(v))

	g.pending++
	if g.pending >= g.samplesPerDot {
		g.commit()
	}
}

// Process feeds a block of magnitudes.
func (g *Graph) Process(values []float64) {
	for len(values) > 0 {
		n := min(g.samplesPerDot-g.pending, len(values))

		g.peak = max(g.peak, vecmath.MaxAbs(values[:n]))
		g.pending += n
		values = values[n:]

		if g.pending >= g.samplesPerDot {
			g.commit()
		}
	}
}

func (g *Graph) commit() {
	g.dots[g.head] = g.peak

	g.head++
	if g.head >= len(g.dots) {
		g.head = 0
	}

	g.pending = 0
	g.peak = 0
}

// Latest returns the most recently completed dot.
func (g *Graph) Latest() float64 {
	i := g.head - 1
	if i < 0 {
		i = len(g.dots) - 1
	}

	return g.dots[i]
}

// Data copies the dots into dst ordered oldest to newest and returns it.
// A nil or short dst is replaced by a new slice.
func (g *Graph) Data(dst []float64) []float64 {
	if len(dst) < len(g.dots) {
		dst = make([]float64, len(g.dots))
	}

	n := copy(dst, g.dots[g.head:])
	copy(dst[n:], g.dots[:g.head])

	return dst[:len(g.dots)]
}

// DataDB is like Data but converts the dots to decibels, flooring zero at
// core.MinDB.
func (g *Graph) DataDB(dst []float64) []float64 {
	dst = g.Data(dst)
	for i, v := range dst {
		dst[i] = core.GainToDB(v)
	}

	return dst
}

// TimeAxis fills dst with the age in seconds of each dot, matching the order
// of Data. The newest dot has age zero.
func (g *Graph) TimeAxis(dst []float64, sampleRate float64) []float64 {
	if len(dst) < len(g.dots) {
		dst = make([]float64, len(g.dots))
	}

	dt := float64(g.samplesPerDot) / sampleRate
	last := len(g.dots) - 1

	for i := range g.dots {
		dst[i] = float64(last-i) * dt
	}

	return dst[:len(g.dots)]
}

// Reset clears all dots and the partially filled one.
func (g *Graph) Reset() {
	clear(g.dots)
	g.head = 0
	g.pending = 0
	g.peak = 0
}

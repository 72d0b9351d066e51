// Package delay provides fixed-capacity integer sample delays.
package delay

import "fmt"

// Line is a circular delay with a fixed maximum length. The active delay can
// change at any time without reallocating, which makes it usable from a
// real-time block loop.
type Line struct {
	buffer   []float64
	writePos int
	delay    int
}

// New returns a line able to delay by up to maxDelay samples. The active
// delay starts at maxDelay.
func New(maxDelay int) (*Line, error) {
	if maxDelay < 0 {
		return nil, fmt.Errorf("delay length must be >= 0: %d", maxDelay)
	}

	return &Line{
		buffer: make([]float64, maxDelay+1),
		delay:  maxDelay,
	}, nil
}

// MaxDelay returns the largest supported delay in samples.
func (d *Line) MaxDelay() int {
	return len(d.buffer) - 1
}

// Delay returns the active delay in samples.
func (d *Line) Delay() int {
	return d.delay
}

// SetDelay changes the active delay, clamped to [0, MaxDelay].
func (d *Line) SetDelay(samples int) {
	d.delay = min(max(samples, 0), d.MaxDelay())
}

// Write appends one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample

	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written delay samples before the most recent
// Write; Read(0) is the most recent sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	pos := d.writePos - 1 - delay

	for pos < 0 {
		pos += size
	}

	return d.buffer[pos]
}

// ProcessSample writes x and returns the sample delayed by the active delay.
func (d *Line) ProcessSample(x float64) float64 {
	d.Write(x)
	return d.Read(d.delay)
}

// ProcessBlockTo delays src into dst. dst may alias src.
func (d *Line) ProcessBlockTo(dst, src []float64) {
	if d.delay == 0 {
		for i, x := range src {
			d.Write(x)
			dst[i] = x
		}

		return
	}

	for i, x := range src {
		dst[i] = d.ProcessSample(x)
	}
}

// Reset clears the stored history.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}

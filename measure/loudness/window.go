package loudness

import "fmt"

// Window is a sliding mean-square accumulator over the last Length energy
// samples. It keeps MaxLength samples of history so the length can be
// changed without losing the already measured energy.
type Window struct {
	history []float64
	pos     int
	length  int
	filled  int

	sum       float64
	sinceSync int
}

// NewWindow returns a window holding up to maxLength samples, initially
// averaging over all of them.
func NewWindow(maxLength int) (*Window, error) {
	if maxLength < 1 {
		return nil, fmt.Errorf("loudness window length must be >= 1: %d", maxLength)
	}

	return &Window{
		history: make([]float64, maxLength),
		length:  maxLength,
	}, nil
}

// MaxLength returns the history capacity in samples.
func (w *Window) MaxLength() int { return len(w.history) }

// Length returns the number of samples currently averaged.
func (w *Window) Length() int { return w.length }

// SetLength changes the averaging length. The running sum is rebuilt from
// the retained history.
func (w *Window) SetLength(n int) error {
	if n < 1 || n > len(w.history) {
		return fmt.Errorf("loudness window length must be in [1, %d]: %d", len(w.history), n)
	}

	w.length = n
	w.resync()

	return nil
}

// Push adds one energy sample (a squared, weighted amplitude) and returns
// the new mean square.
func (w *Window) Push(energy float64) float64 {
	size := len(w.history)

	old := w.at(w.length - 1)
	w.history[w.pos] = energy

	w.pos++
	if w.pos >= size {
		w.pos = 0
	}

	if w.filled < size {
		w.filled++
	}

	w.sum += energy - old

	// Rounding in the incremental update accumulates, so the sum is rebuilt
	// once per history cycle.
	w.sinceSync++
	if w.sinceSync >= size {
		w.resync()
	} else if w.sum < 0 {
		w.sum = 0
	}

	return w.MeanSquare()
}

// MeanSquare returns the current mean energy. It is never negative.
func (w *Window) MeanSquare() float64 {
	return w.sum / float64(w.length)
}

// Reset forgets all history.
func (w *Window) Reset() {
	clear(w.history)
	w.pos = 0
	w.filled = 0
	w.sum = 0
	w.sinceSync = 0
}

// at returns the energy pushed back samples before the next write position,
// where back 0 is the most recent sample.
func (w *Window) at(back int) float64 {
	idx := w.pos - 1 - back
	if idx < 0 {
		idx += len(w.history)
	}

	return w.history[idx]
}

func (w *Window) resync() {
	sum := 0.0
	for i := range min(w.length, w.filled) {
		sum += w.at(i)
	}

	w.sum = max(sum, 0)
	w.sinceSync = 0
}

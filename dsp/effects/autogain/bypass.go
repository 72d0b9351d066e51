package autogain

import "github.com/cwbudde/algo-autogain/dsp/core"

// Bypass crossfades between a processed (wet) and an unprocessed (dry)
// signal. Once a fade completes the output is an exact copy of one input.
type Bypass struct {
	// mix is the wet share: 1 is fully processed, 0 fully bypassed.
	mix    float64
	target float64
	step   float64
}

// NewBypass returns a non-bypassed crossfader with the given fade length.
func NewBypass(sampleRate, fadeMs float64) *Bypass {
	b := &Bypass{mix: 1, target: 1}
	b.SetFade(sampleRate, fadeMs)

	return b
}

// SetFade changes the fade length. A zero length switches instantly.
func (b *Bypass) SetFade(sampleRate, fadeMs float64) {
	n := core.MillisToSamples(fadeMs, sampleRate)
	if n < 1 {
		b.step = 1
		return
	}

	b.step = 1 / float64(n)
}

// Set engages or releases the bypass.
func (b *Bypass) Set(bypass bool) {
	if bypass {
		b.target = 0
	} else {
		b.target = 1
	}
}

// Bypassed reports whether the bypass is engaged.
func (b *Bypass) Bypassed() bool { return b.target == 0 }

// Settled reports whether no fade is in progress.
func (b *Bypass) Settled() bool { return b.mix == b.target }

// Process writes the mix of dry and wet into dst. dst may alias either
// input.
func (b *Bypass) Process(dst, dry, wet []float64) {
	if b.Settled() {
		src := wet
		if b.mix == 0 {
			src = dry
		}

		copy(dst, src[:len(dst)])

		return
	}

	for i := range dst {
		if b.mix < b.target {
			b.mix = min(b.mix+b.step, b.target)
		} else if b.mix > b.target {
			b.mix = max(b.mix-b.step, b.target)
		}

		switch b.mix {
		case 0:
			dst[i] = dry[i]
		case 1:
			dst[i] = wet[i]
		default:
			dst[i] = dry[i] + (wet[i]-dry[i])*b.mix
		}
	}
}

// Reset jumps to the target state, skipping any fade in progress.
func (b *Bypass) Reset() {
	b.mix = b.target
}

package weighting

import "github.com/cwbudde/algo-autogain/dsp/filter/biquad"

// Bank holds one weighting chain per channel, all on the same curve.
// Chains for every curve are designed up front, so switching curves only
// selects and clears the other set and never allocates. Changing the sample
// rate redesigns all of them.
type Bank struct {
	typ        Type
	sampleRate float64
	channels   int

	// curves is indexed by Type; chains aliases curves[typ].
	curves [][]*biquad.Chain
	chains []*biquad.Chain
}

// NewBank returns a bank of channels chains for curve t.
//
// Panics if channels < 1, sampleRate <= 0 or t is unknown.
func NewBank(t Type, sampleRate float64, channels int) *Bank {
	if channels < 1 {
		panic("weighting: bank needs at least one channel")
	}

	if !t.Valid() {
		panic("weighting: unknown curve " + t.String())
	}

	b := &Bank{
		typ:        t,
		sampleRate: sampleRate,
		channels:   channels,
		curves:     make([][]*biquad.Chain, len(Types)),
	}
	b.rebuild()

	return b
}

// Type returns the active curve.
func (b *Bank) Type() Type { return b.typ }

// SampleRate returns the design sample rate.
func (b *Bank) SampleRate() float64 { return b.sampleRate }

// Channels returns the number of chains.
func (b *Bank) Channels() int { return b.channels }

// SetType switches every channel to curve t with cleared memory. Switching
// to the active curve is a no-op and keeps filter memory.
//
// Panics if t is unknown.
func (b *Bank) SetType(t Type) {
	if t == b.typ {
		return
	}

	if !t.Valid() {
		panic("weighting: unknown curve " + t.String())
	}

	b.typ = t
	b.chains = b.curves[t]
	b.Reset()
}

// SetSampleRate redesigns every chain for sampleRate.
func (b *Bank) SetSampleRate(sampleRate float64) {
	if sampleRate == b.sampleRate {
		return
	}

	b.sampleRate = sampleRate
	b.rebuild()
}

// ProcessSample filters one sample of channel ch.
func (b *Bank) ProcessSample(ch int, x float64) float64 {
	return b.chains[ch].ProcessSample(x)
}

// ProcessBlockTo filters src of channel ch into dst.
func (b *Bank) ProcessBlockTo(ch int, dst, src []float64) {
	b.chains[ch].ProcessBlockTo(dst, src)
}

// Chain exposes the chain of channel ch.
func (b *Bank) Chain(ch int) *biquad.Chain {
	return b.chains[ch]
}

// Reset clears the memory of every channel.
func (b *Bank) Reset() {
	for _, c := range b.chains {
		c.Reset()
	}
}

func (b *Bank) rebuild() {
	for _, t := range Types {
		set := make([]*biquad.Chain, b.channels)
		for ch := range set {
			set[ch] = New(t, b.sampleRate)
		}

		b.curves[t] = set
	}

	b.chains = b.curves[b.typ]
}

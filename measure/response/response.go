package response

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-autogain/dsp/core"
)

// ImpulseResponder is implemented by filters that can render their impulse
// response without disturbing their running state.
type ImpulseResponder interface {
	ImpulseResponse(n int) []float64
}

// Response is a sampled magnitude response covering DC to Nyquist.
type Response struct {
	SampleRate float64
	FFTSize    int
	// Magnitude holds FFTSize/2+1 linear magnitudes.
	Magnitude []float64
}

// Measure renders fftSize samples of the filter impulse response and
// transforms them.
func Measure(f ImpulseResponder, sampleRate float64, fftSize int) (Response, error) {
	if fftSize < 2 {
		return Response{}, fmt.Errorf("response FFT size must be >= 2: %d", fftSize)
	}

	return FromImpulse(f.ImpulseResponse(fftSize), sampleRate, fftSize)
}

// FromImpulse computes the magnitude response of ir, zero padded or
// truncated to fftSize samples.
func FromImpulse(ir []float64, sampleRate float64, fftSize int) (Response, error) {
	if !(sampleRate > 0) {
		return Response{}, fmt.Errorf("response sample rate must be > 0: %g", sampleRate)
	}

	if fftSize < 2 {
		return Response{}, fmt.Errorf("response FFT size must be >= 2: %d", fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Response{}, fmt.Errorf("response FFT plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i := range min(len(ir), fftSize) {
		in[i] = complex(ir[i], 0)
	}

	spectrum := make([]complex128, fftSize)
	if err := plan.Forward(spectrum, in); err != nil {
		return Response{}, fmt.Errorf("response FFT: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	for k := range bins {
		re[k] = real(spectrum[k])
		im[k] = imag(spectrum[k])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	return Response{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		Magnitude:  mag,
	}, nil
}

// Bins returns the number of magnitude bins.
func (r Response) Bins() int { return len(r.Magnitude) }

// Frequency returns the center frequency of bin k in Hz.
func (r Response) Frequency(k int) float64 {
	return float64(k) * r.SampleRate / float64(r.FFTSize)
}

// MagnitudeAt returns the linear magnitude at freqHz, linearly interpolated
// between the neighboring bins. Frequencies outside [0, Nyquist] are clamped.
func (r Response) MagnitudeAt(freqHz float64) float64 {
	if len(r.Magnitude) == 0 {
		return 0
	}

	pos := core.Clamp(freqHz*float64(r.FFTSize)/r.SampleRate, 0, float64(len(r.Magnitude)-1))
	k := int(math.Floor(pos))

	if k >= len(r.Magnitude)-1 {
		return r.Magnitude[len(r.Magnitude)-1]
	}

	frac := pos - float64(k)

	return r.Magnitude[k]*(1-frac) + r.Magnitude[k+1]*frac
}

// MagnitudeDB returns MagnitudeAt in decibels.
func (r Response) MagnitudeDB(freqHz float64) float64 {
	return core.GainToDB(r.MagnitudeAt(freqHz))
}

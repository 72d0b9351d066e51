// Package response estimates the magnitude response of a linear filter from
// its impulse response using an FFT.
//
// It is the numerical counterpart of the analytic biquad responses and is
// used to cross-check the weighting curves:
//
//	chain := weighting.New(weighting.TypeA, 48000)
//	r, err := response.Measure(chain, 48000, 8192)
//	fmt.Printf("A(2 kHz) = %.2f dB\n", r.MagnitudeDB(2000))
package response

package weighting

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-autogain/dsp/filter/biquad"
)

// IEC 61672 analog prototype pole frequencies (Hz).
const (
	f1 = 20.598997 // double pole for A, B, C
	f2 = 107.65265 // single pole for A, B
	f3 = 158.48932 // single pole for B only
	f4 = 737.86223 // single pole for A only
	f5 = 12194.217 // double pole for A, B, C
)

// IEC 537 D-weighting analog prototype, angular frequencies in rad/s:
//
//	H_D(s) = k * s * (s^2 + 6532s + 4.0975e7) / ((s+1776.3) * (s+7288.5) * (s^2 + 21514s + 3.8836e8))
const (
	dZeroB1 = 6532.0
	dZeroB0 = 4.0975e7
	dPoleA1 = 21514.0
	dPoleA0 = 3.8836e8
	dHighW  = 1776.3
	dLowW   = 7288.5
)

// BS.1770-4 K-weighting design constants, chosen so that the 48 kHz
// coefficients printed in the recommendation are reproduced exactly.
const (
	kShelfFreq    = 1681.974450955533
	kShelfGainDB  = 3.999843853973347
	kShelfQ       = 0.7071752369554196
	kShelfVbPower = 0.4996667741545416
	kRLBFreq      = 38.13547087602444
	kRLBQ         = 0.5003270373238773
)

const referenceHz = 1000.0

// Type identifies a frequency weighting curve.
type Type int

const (
	// TypeNone applies no weighting.
	TypeNone Type = iota
	// TypeA is the IEC 61672 A-weighting curve.
	TypeA
	// TypeB is the IEC 61672 B-weighting curve.
	TypeB
	// TypeC is the IEC 61672 C-weighting curve.
	TypeC
	// TypeD is the IEC 537 D-weighting curve.
	TypeD
	// TypeK is the ITU-R BS.1770-4 K-weighting curve.
	TypeK
)

// Types lists every supported curve in selector order.
var Types = []Type{TypeNone, TypeA, TypeB, TypeC, TypeD, TypeK}

// String returns the curve name.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeA:
		return "A"
	case TypeB:
		return "B"
	case TypeC:
		return "C"
	case TypeD:
		return "D"
	case TypeK:
		return "K"
	default:
		return "Unknown"
	}
}

// Valid reports whether t names a supported curve.
func (t Type) Valid() bool {
	return t >= TypeNone && t <= TypeK
}

// ParseType maps a case-sensitive curve name as returned by String back to
// its Type.
func ParseType(name string) (Type, bool) {
	for _, t := range Types {
		if t.String() == name {
			return t, true
		}
	}

	return TypeNone, false
}

// New returns a chain implementing curve t at sampleRate.
//
// Panics if sampleRate <= 0 or t is unknown.
func New(t Type, sampleRate float64) *biquad.Chain {
	if sampleRate <= 0 {
		panic("weighting: sample rate must be positive")
	}

	switch t {
	case TypeNone:
		return biquad.NewChain([]biquad.Coefficients{biquad.Identity()})
	case TypeA:
		return normalized(sampleRate,
			hpSecondOrder(f1, sampleRate),
			lpFirstOrder(f5, sampleRate),
			lpFirstOrder(f5, sampleRate),
			hpFirstOrder(f2, sampleRate),
			hpFirstOrder(f4, sampleRate),
		)
	case TypeB:
		return normalized(sampleRate,
			hpSecondOrder(f1, sampleRate),
			lpFirstOrder(f5, sampleRate),
			lpFirstOrder(f5, sampleRate),
			hpFirstOrder(f3, sampleRate),
		)
	case TypeC:
		return normalized(sampleRate,
			hpSecondOrder(f1, sampleRate),
			lpFirstOrder(f5, sampleRate),
			lpFirstOrder(f5, sampleRate),
		)
	case TypeD:
		return newDWeighting(sampleRate)
	case TypeK:
		return newKWeighting(sampleRate)
	default:
		panic("weighting: unknown type")
	}
}

// newDWeighting splits H_D into the resonant biquad (prewarped at the 1 kHz
// reference), a first-order high-pass and a first-order low-pass. The
// low-pass uses a matched pole without a Nyquist zero, which keeps the slow
// analog roll-off intact up to 20 kHz.
func newDWeighting(sr float64) *biquad.Chain {
	c := 2 * math.Pi * referenceHz / math.Tan(math.Pi*referenceHz/sr)

	return normalized(sr,
		bilinear([3]float64{dZeroB0, dZeroB1, 1}, [3]float64{dPoleA0, dPoleA1, 1}, c),
		hpFirstOrder(dHighW/(2*math.Pi), sr),
		lpMatched(dLowW/(2*math.Pi), sr),
	)
}

// newKWeighting builds the BS.1770-4 shelf and RLB high-pass.
func newKWeighting(sr float64) *biquad.Chain {
	k := math.Tan(math.Pi * kShelfFreq / sr)
	vh := math.Pow(10, kShelfGainDB/20)
	vb := math.Pow(vh, kShelfVbPower)
	a0 := 1 + k/kShelfQ + k*k

	shelf := biquad.Coefficients{
		B0: (vh + vb*k/kShelfQ + k*k) / a0,
		B1: 2 * (k*k - vh) / a0,
		B2: (vh - vb*k/kShelfQ + k*k) / a0,
		A1: 2 * (k*k - 1) / a0,
		A2: (1 - k/kShelfQ + k*k) / a0,
	}

	k = math.Tan(math.Pi * kRLBFreq / sr)
	d := 1 + k/kRLBQ + k*k

	rlb := biquad.Coefficients{
		B0: 1,
		B1: -2,
		B2: 1,
		A1: 2 * (k*k - 1) / d,
		A2: (1 - k/kRLBQ + k*k) / d,
	}

	return biquad.NewChain([]biquad.Coefficients{shelf, rlb})
}

func normalized(sr float64, coeffs ...biquad.Coefficients) *biquad.Chain {
	return biquad.NewChain(coeffs, biquad.WithGain(normalizationGain(coeffs, sr)))
}

// lpFirstOrder is the bilinear transform of omega/(s+omega), prewarped at f.
func lpFirstOrder(f, sr float64) biquad.Coefficients {
	k := math.Tan(math.Pi * f / sr)
	d := 1 + k

	return biquad.Coefficients{
		B0: k / d,
		B1: k / d,
		A1: (k - 1) / d,
	}
}

// lpMatched maps the analog pole at f to z = exp(-2*pi*f/sr) with unity DC gain.
func lpMatched(f, sr float64) biquad.Coefficients {
	p := math.Exp(-2 * math.Pi * f / sr)

	return biquad.Coefficients{
		B0: 1 - p,
		A1: -p,
	}
}

// hpSecondOrder is the bilinear transform of s^2/(s+omega)^2.
func hpSecondOrder(f, sr float64) biquad.Coefficients {
	k := math.Tan(math.Pi * f / sr)
	k2 := k * k
	d := 1 + 2*k + k2

	return biquad.Coefficients{
		B0: 1 / d,
		B1: -2 / d,
		B2: 1 / d,
		A1: 2 * (k2 - 1) / d,
		A2: (1 - 2*k + k2) / d,
	}
}

// hpFirstOrder is the bilinear transform of s/(s+omega).
func hpFirstOrder(f, sr float64) biquad.Coefficients {
	k := math.Tan(math.Pi * f / sr)
	d := 1 + k

	return biquad.Coefficients{
		B0: 1 / d,
		B1: -1 / d,
		A1: (k - 1) / d,
	}
}

// bilinear maps the analog section (b2*s^2 + b1*s + b0)/(a2*s^2 + a1*s + a0)
// to the z-domain with s = c*(1-z^-1)/(1+z^-1). Arrays are ordered b0, b1, b2.
func bilinear(b, a [3]float64, c float64) biquad.Coefficients {
	c2 := c * c
	a0 := a[2]*c2 + a[1]*c + a[0]

	return biquad.Coefficients{
		B0: (b[2]*c2 + b[1]*c + b[0]) / a0,
		B1: (2*b[0] - 2*b[2]*c2) / a0,
		B2: (b[2]*c2 - b[1]*c + b[0]) / a0,
		A1: (2*a[0] - 2*a[2]*c2) / a0,
		A2: (a[2]*c2 - a[1]*c + a[0]) / a0,
	}
}

// normalizationGain returns the factor that makes the cascade 0 dB at 1 kHz.
func normalizationGain(coeffs []biquad.Coefficients, sr float64) float64 {
	h := complex(1, 0)
	for i := range coeffs {
		h *= coeffs[i].Response(referenceHz, sr)
	}

	return 1 / cmplx.Abs(h)
}

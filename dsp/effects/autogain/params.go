package autogain

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
)

// SidechainMode selects the signal that drives the gain controller.
type SidechainMode int

const (
	// SidechainInternal measures the main input.
	SidechainInternal SidechainMode = iota
	// SidechainControl measures the sidechain and applies the resulting
	// correction to the main signal.
	SidechainControl
	// SidechainMatch uses the sidechain loudness as a moving target for the
	// main signal.
	SidechainMatch
)

// SidechainModes lists all modes in declaration order.
var SidechainModes = []SidechainMode{SidechainInternal, SidechainControl, SidechainMatch}

func (m SidechainMode) String() string {
	switch m {
	case SidechainInternal:
		return "internal"
	case SidechainControl:
		return "control"
	case SidechainMatch:
		return "match"
	default:
		return "unknown"
	}
}

// Valid reports whether m is a known mode.
func (m SidechainMode) Valid() bool {
	return m >= SidechainInternal && m <= SidechainMatch
}

// ParseSidechainMode resolves a case-insensitive mode name.
func ParseSidechainMode(name string) (SidechainMode, error) {
	for _, m := range SidechainModes {
		if strings.EqualFold(name, m.String()) {
			return m, nil
		}
	}

	return 0, fmt.Errorf("unknown sidechain mode %q", name)
}

// Parameter ranges.
const (
	MinLongPeriod  = 100.0
	MaxLongPeriod  = 2000.0
	MinShortPeriod = 5.0
	MaxShortPeriod = 100.0

	MinLevel   = -60.0
	MaxLevel   = 0.0
	MinDrift   = 0.0
	MaxDrift   = 24.0
	MinSilence = -120.0
	MaxSilence = -24.0
	MinMinGain = -84.0
	MaxMinGain = 0.0
	MinMaxGain = 0.0
	MaxMaxGain = 84.0

	MaxLongRate  = 100.0
	MaxShortRate = 1000.0

	MinPreamp    = -60.0
	MaxPreamp    = 60.0
	MaxLookahead = 20.0
)

// Parameters is the complete user-facing configuration of a Processor.
// Times are in milliseconds, levels in LUFS, gains and thresholds in dB and
// rates in dB per second.
type Parameters struct {
	Bypass bool

	Weighting   weighting.Type
	LongPeriod  float64
	ShortPeriod float64

	Level   float64
	Drift   float64
	Silence float64

	MaxGain        float64
	MaxGainEnabled bool
	MinGain        float64
	QuickAmp       bool

	LongGrow  float64
	LongFall  float64
	ShortGrow float64
	ShortFall float64

	SidechainMode   SidechainMode
	SidechainPreamp float64
	Lookahead       float64
}

// DefaultParameters returns the factory configuration.
func DefaultParameters() Parameters {
	return Parameters{
		Weighting:      weighting.TypeK,
		LongPeriod:     400,
		ShortPeriod:    20,
		Level:          -23,
		Drift:          6,
		Silence:        -76,
		MaxGain:        48,
		MaxGainEnabled: true,
		MinGain:        -48,
		LongGrow:       3,
		LongFall:       6,
		ShortGrow:      30,
		ShortFall:      60,
		SidechainMode:  SidechainInternal,
	}
}

// Validate checks every field against its range.
func (p Parameters) Validate() error {
	if !p.Weighting.Valid() {
		return fmt.Errorf("autogain weighting is invalid: %d", p.Weighting)
	}

	if !p.SidechainMode.Valid() {
		return fmt.Errorf("autogain sidechain mode is invalid: %d", p.SidechainMode)
	}

	checks := []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"long period", p.LongPeriod, MinLongPeriod, MaxLongPeriod},
		{"short period", p.ShortPeriod, MinShortPeriod, MaxShortPeriod},
		{"level", p.Level, MinLevel, MaxLevel},
		{"drift", p.Drift, MinDrift, MaxDrift},
		{"silence", p.Silence, MinSilence, MaxSilence},
		{"max gain", p.MaxGain, MinMaxGain, MaxMaxGain},
		{"min gain", p.MinGain, MinMinGain, MaxMinGain},
		{"long grow", p.LongGrow, 0, MaxLongRate},
		{"long fall", p.LongFall, 0, MaxLongRate},
		{"short grow", p.ShortGrow, 0, MaxShortRate},
		{"short fall", p.ShortFall, 0, MaxShortRate},
		{"sidechain preamp", p.SidechainPreamp, MinPreamp, MaxPreamp},
		{"lookahead", p.Lookahead, 0, MaxLookahead},
	}

	for _, c := range checks {
		if math.IsNaN(c.v) || c.v < c.min || c.v > c.max {
			return fmt.Errorf("autogain %s must be in [%g, %g]: %g", c.name, c.min, c.max, c.v)
		}
	}

	return nil
}

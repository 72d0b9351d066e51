package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-autogain/dsp/core"
)

const (
	defaultAutoGainLongGrow  = 3.0
	defaultAutoGainLongFall  = 6.0
	defaultAutoGainShortGrow = 30.0
	defaultAutoGainShortFall = 60.0
	defaultAutoGainSilenceDB = -76.0
	defaultAutoGainDriftDB   = 6.0
	defaultAutoGainMaxGainDB = 48.0
	defaultAutoGainMinGainDB = -48.0
	maxAutoGainRateDBPerSec  = 1000.0
	minAutoGainSilenceDB     = core.MinDB
	maxAutoGainDriftDB       = 48.0
	maxAutoGainRangeDB       = 120.0
)

// AutoGainState reports which rule drove the latest gain update.
type AutoGainState int

const (
	// AutoGainSilence means the measured loudness was below the silence
	// threshold and the gain was held.
	AutoGainSilence AutoGainState = iota
	// AutoGainStable means the long-term loudness is within the drift band
	// of the target; residual error is trimmed at long-term rates.
	AutoGainStable
	// AutoGainLong means the long-term regime is correcting a deviation
	// larger than the drift band.
	AutoGainLong
	// AutoGainShort means short-term loudness drifted away from long-term
	// loudness and the short-term regime took over.
	AutoGainShort
)

// AutoGainStates lists every controller state in declaration order.
var AutoGainStates = []AutoGainState{AutoGainSilence, AutoGainStable, AutoGainLong, AutoGainShort}

func (s AutoGainState) String() string {
	switch s {
	case AutoGainSilence:
		return "silence"
	case AutoGainStable:
		return "stable"
	case AutoGainLong:
		return "long"
	case AutoGainShort:
		return "short"
	default:
		return "unknown"
	}
}

// timescale is a rate limiter for one measurement period. Rates are in dB
// per second; steps are the matching per-sample limits.
type timescale struct {
	grow, fall         float64
	growStep, fallStep float64
}

func (t *timescale) update(sampleRate float64) {
	t.growStep = core.RatePerSample(t.grow, sampleRate)
	t.fallStep = core.RatePerSample(t.fall, sampleRate)
}

// toward moves gain toward desired by at most one step, landing on desired
// exactly once it is within reach.
func (t *timescale) toward(gain, desired float64) float64 {
	d := desired - gain

	switch {
	case d > t.growStep:
		return gain + t.growStep
	case -d > t.fallStep:
		return gain - t.fallStep
	default:
		return desired
	}
}

// AutoGain is a loudness-driven gain controller with two timescales.
//
// It is fed short-term and long-term loudness of the controlled signal
// (before gain) and computes the gain in dB that brings that signal to a
// target loudness. The long-term regime normalizes slowly; when short-term
// loudness moves further than the drift threshold away from long-term
// loudness, the short-term regime reacts at its own, usually faster, rates.
// Gain never changes by more than the active grow or fall rate per sample.
type AutoGain struct {
	sampleRate float64

	long, short timescale

	silenceDB  float64
	driftDB    float64
	maxGainDB  float64
	minGainDB  float64
	maxGainOn  bool
	quickAmpOn bool

	gainDB float64
	gain   float64
	state  AutoGainState
}

// NewAutoGain creates a controller with production defaults and unity gain.
func NewAutoGain(sampleRate float64) (*AutoGain, error) {
	if err := validateAutoGainSampleRate(sampleRate); err != nil {
		return nil, err
	}

	a := &AutoGain{
		sampleRate: sampleRate,
		long:       timescale{grow: defaultAutoGainLongGrow, fall: defaultAutoGainLongFall},
		short:      timescale{grow: defaultAutoGainShortGrow, fall: defaultAutoGainShortFall},
		silenceDB:  defaultAutoGainSilenceDB,
		driftDB:    defaultAutoGainDriftDB,
		maxGainDB:  defaultAutoGainMaxGainDB,
		minGainDB:  defaultAutoGainMinGainDB,
		maxGainOn:  true,
	}

	a.long.update(sampleRate)
	a.short.update(sampleRate)
	a.Reset()

	return a, nil
}

func validateAutoGainSampleRate(sampleRate float64) error {
	if !(sampleRate > 0) || !core.IsFinite(sampleRate) {
		return fmt.Errorf("autogain sample rate must be > 0: %f", sampleRate)
	}

	return nil
}

func validateAutoGainRate(name string, dbPerSecond float64) error {
	if dbPerSecond < 0 || dbPerSecond > maxAutoGainRateDBPerSec || !core.IsFinite(dbPerSecond) {
		return fmt.Errorf("autogain %s rate must be in [0, %f] dB/s: %f", name, maxAutoGainRateDBPerSec, dbPerSecond)
	}

	return nil
}

// SetSampleRate updates the per-sample rate limits.
func (a *AutoGain) SetSampleRate(sampleRate float64) error {
	if err := validateAutoGainSampleRate(sampleRate); err != nil {
		return err
	}

	a.sampleRate = sampleRate
	a.long.update(sampleRate)
	a.short.update(sampleRate)

	return nil
}

// SetLongGrow sets the long-term gain raising rate in dB/s.
func (a *AutoGain) SetLongGrow(dbPerSecond float64) error {
	if err := validateAutoGainRate("long grow", dbPerSecond); err != nil {
		return err
	}

	a.long.grow = dbPerSecond
	a.long.update(a.sampleRate)

	return nil
}

// SetLongFall sets the long-term gain lowering rate in dB/s.
func (a *AutoGain) SetLongFall(dbPerSecond float64) error {
	if err := validateAutoGainRate("long fall", dbPerSecond); err != nil {
		return err
	}

	a.long.fall = dbPerSecond
	a.long.update(a.sampleRate)

	return nil
}

// SetShortGrow sets the short-term gain raising rate in dB/s.
func (a *AutoGain) SetShortGrow(dbPerSecond float64) error {
	if err := validateAutoGainRate("short grow", dbPerSecond); err != nil {
		return err
	}

	a.short.grow = dbPerSecond
	a.short.update(a.sampleRate)

	return nil
}

// SetShortFall sets the short-term gain lowering rate in dB/s.
func (a *AutoGain) SetShortFall(dbPerSecond float64) error {
	if err := validateAutoGainRate("short fall", dbPerSecond); err != nil {
		return err
	}

	a.short.fall = dbPerSecond
	a.short.update(a.sampleRate)

	return nil
}

// SetSilence sets the loudness below which the gain is held, in LUFS.
func (a *AutoGain) SetSilence(lufs float64) error {
	if lufs < minAutoGainSilenceDB || lufs > 0 || !core.IsFinite(lufs) {
		return fmt.Errorf("autogain silence must be in [%f, 0]: %f", minAutoGainSilenceDB, lufs)
	}

	a.silenceDB = lufs

	return nil
}

// SetDrift sets the short/long loudness divergence that engages the
// short-term regime, in dB.
func (a *AutoGain) SetDrift(dB float64) error {
	if dB < 0 || dB > maxAutoGainDriftDB || !core.IsFinite(dB) {
		return fmt.Errorf("autogain drift must be in [0, %f]: %f", maxAutoGainDriftDB, dB)
	}

	a.driftDB = dB

	return nil
}

// SetMaxGain sets the gain ceiling in dB. A gain above the new ceiling is
// clamped by the next update that is not held by silence.
func (a *AutoGain) SetMaxGain(dB float64) error {
	if dB < 0 || dB > maxAutoGainRangeDB || !core.IsFinite(dB) {
		return fmt.Errorf("autogain max gain must be in [0, %f]: %f", maxAutoGainRangeDB, dB)
	}

	a.maxGainDB = dB

	return nil
}

// SetMinGain sets the gain floor in dB.
func (a *AutoGain) SetMinGain(dB float64) error {
	if dB < -maxAutoGainRangeDB || dB > 0 || !core.IsFinite(dB) {
		return fmt.Errorf("autogain min gain must be in [%f, 0]: %f", -maxAutoGainRangeDB, dB)
	}

	a.minGainDB = dB

	return nil
}

// SetMaxGainEnabled switches the gain ceiling on or off.
func (a *AutoGain) SetMaxGainEnabled(on bool) { a.maxGainOn = on }

// SetQuickAmp lets the short-term regime raise the gain. When off, only
// lowering is rapid and raising stays at long-term rates.
func (a *AutoGain) SetQuickAmp(on bool) { a.quickAmpOn = on }

// SampleRate returns the sample rate in Hz.
func (a *AutoGain) SampleRate() float64 { return a.sampleRate }

// LongRates returns the long-term grow and fall rates in dB/s.
func (a *AutoGain) LongRates() (grow, fall float64) { return a.long.grow, a.long.fall }

// ShortRates returns the short-term grow and fall rates in dB/s.
func (a *AutoGain) ShortRates() (grow, fall float64) { return a.short.grow, a.short.fall }

// Silence returns the silence threshold in LUFS.
func (a *AutoGain) Silence() float64 { return a.silenceDB }

// Drift returns the drift threshold in dB.
func (a *AutoGain) Drift() float64 { return a.driftDB }

// MaxGain returns the gain ceiling in dB and whether it is enabled.
func (a *AutoGain) MaxGain() (float64, bool) { return a.maxGainDB, a.maxGainOn }

// MinGain returns the gain floor in dB.
func (a *AutoGain) MinGain() float64 { return a.minGainDB }

// QuickAmp reports whether rapid raising is enabled.
func (a *AutoGain) QuickAmp() bool { return a.quickAmpOn }

// GainDB returns the current gain in dB.
func (a *AutoGain) GainDB() float64 { return a.gainDB }

// Gain returns the current linear gain.
func (a *AutoGain) Gain() float64 { return a.gain }

// State returns the rule applied by the latest update.
func (a *AutoGain) State() AutoGainState { return a.state }

// Reset returns the gain to 0 dB.
func (a *AutoGain) Reset() {
	a.gainDB = 0
	a.gain = 1
	a.state = AutoGainSilence
}

func (a *AutoGain) upperGain() float64 {
	if a.maxGainOn {
		return a.maxGainDB
	}

	return math.Inf(1)
}

// ProcessSample advances the controller by one sample. long and short are
// the loudness of the controlled signal before gain, target is the desired
// loudness, all in LUFS. It returns the new gain in dB.
func (a *AutoGain) ProcessSample(long, short, target float64) float64 {
	return a.step(long, short, target, target)
}

// ProcessSampleMatch is like ProcessSample but takes separate long-term and
// short-term targets, as measured on a reference signal. A silent reference
// holds the gain.
func (a *AutoGain) ProcessSampleMatch(long, short, refLong, refShort float64) float64 {
	if refShort < a.silenceDB {
		a.state = AutoGainSilence
		return a.gainDB
	}

	return a.step(long, short, refLong, refShort)
}

// Process computes one linear gain per sample into gain from per-sample
// loudness traces and a fixed target. All slices must have equal length.
func (a *AutoGain) Process(gain, long, short []float64, target float64) {
	for i := range gain {
		a.step(long[i], short[i], target, target)
		gain[i] = a.gain
	}
}

// ProcessMatch is the block form of ProcessSampleMatch.
func (a *AutoGain) ProcessMatch(gain, long, short, refLong, refShort []float64) {
	for i := range gain {
		a.ProcessSampleMatch(long[i], short[i], refLong[i], refShort[i])
		gain[i] = a.gain
	}
}

func (a *AutoGain) step(long, short, longTarget, shortTarget float64) float64 {
	if short < a.silenceDB {
		a.state = AutoGainSilence
		return a.gainDB
	}

	upper := a.upperGain()
	next := a.gainDB

	switch {
	case math.Abs(short-long) > a.driftDB && a.rapid(short, shortTarget, upper):
		desired := core.Clamp(shortTarget-short, a.minGainDB, upper)
		next = a.short.toward(a.gainDB, desired)
		a.state = AutoGainShort

	case long < a.silenceDB:
		a.state = AutoGainSilence

	default:
		desired := core.Clamp(longTarget-long, a.minGainDB, upper)
		next = a.long.toward(a.gainDB, desired)

		if math.Abs(longTarget-long-a.gainDB) <= a.driftDB {
			a.state = AutoGainStable
		} else {
			a.state = AutoGainLong
		}
	}

	a.set(min(next, upper))

	return a.gainDB
}

// rapid reports whether the short-term regime handles this sample: always
// when the gain must come down, and for raising only with quick amp on.
func (a *AutoGain) rapid(short, target, upper float64) bool {
	desired := core.Clamp(target-short, a.minGainDB, upper)
	return desired < a.gainDB || a.quickAmpOn
}

func (a *AutoGain) set(dB float64) {
	if dB == a.gainDB {
		return
	}

	a.gainDB = dB
	a.gain = core.DBToGain(dB)
}

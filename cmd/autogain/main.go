// Command autogain runs WAV files through the loudness-based automatic gain
// processor and reports what it did.
//
// Usage:
//
//	autogain input.wav output.wav
//	autogain --level=-16 --long-grow 6 speech.wav speech-out.wav
//	autogain --mode match --sidechain reference.wav input.wav output.wav
//	autogain --preset broadcast.json input.wav output.wav
//
// Presets are JSON objects keyed by flag name with underscores, for example
// {"level": -16, "weighting": "K", "max_gain": 24}.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/cwbudde/algo-autogain/dsp/effects/autogain"
	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
)

const defaultBlock = 1024

// CLI defines the command-line interface.
type CLI struct {
	Input  string `arg:"" type:"existingfile" help:"Input WAV file (mono or stereo)."`
	Output string `arg:"" type:"path" help:"Output WAV file."`

	Preset    kong.ConfigFlag `short:"p" help:"JSON preset file with flag values."`
	Sidechain string          `short:"s" type:"existingfile" help:"Sidechain WAV file for control and match modes."`
	Mode      string          `short:"m" default:"${mode}" enum:"${modes}" help:"Sidechain mode (${modes})."`
	Preamp    float64         `default:"0" help:"Sidechain preamp in dB."`

	Weighting   string  `short:"w" default:"${weighting}" enum:"${weightings}" help:"Frequency weighting (${weightings})."`
	Level       float64 `short:"l" default:"${level}" help:"Target level in LUFS."`
	LongPeriod  float64 `default:"${long_period}" help:"Long-term window in ms."`
	ShortPeriod float64 `default:"${short_period}" help:"Short-term window in ms."`
	Drift       float64 `default:"${drift}" help:"Drift tolerance in dB."`
	Silence     float64 `default:"${silence}" help:"Silence threshold in LUFS."`

	MaxGain   float64 `default:"${max_gain}" help:"Maximum gain in dB."`
	NoMaxGain bool    `help:"Disable the maximum gain limit."`
	MinGain   float64 `default:"${min_gain}" help:"Minimum gain in dB."`
	QuickAmp  bool    `help:"Let the short-term regime raise the gain quickly."`

	LongGrow  float64 `default:"${long_grow}" help:"Long-term grow rate in dB/s."`
	LongFall  float64 `default:"${long_fall}" help:"Long-term fall rate in dB/s."`
	ShortGrow float64 `default:"${short_grow}" help:"Short-term grow rate in dB/s."`
	ShortFall float64 `default:"${short_fall}" help:"Short-term fall rate in dB/s."`

	Lookahead  float64 `default:"0" help:"Lookahead in ms."`
	Compensate bool    `default:"true" negatable:"" help:"Remove the lookahead delay from the output."`
	Block      int     `default:"${block}" help:"Host block size in samples."`
	BitDepth   int     `default:"0" help:"Output bit depth (16, 24 or 32), 0 keeps the input depth."`

	Verbose bool `short:"v" help:"Verbose output."`
}

// vars exposes the factory parameters as kong interpolation variables so
// flag defaults follow the processor defaults.
func vars() kong.Vars {
	d := autogain.DefaultParameters()
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	modes := make([]string, len(autogain.SidechainModes))
	for i, m := range autogain.SidechainModes {
		modes[i] = m.String()
	}

	curves := make([]string, len(weighting.Types))
	for i, t := range weighting.Types {
		curves[i] = t.String()
	}

	return kong.Vars{
		"mode":         d.SidechainMode.String(),
		"modes":        strings.Join(modes, ","),
		"weighting":    d.Weighting.String(),
		"weightings":   strings.Join(curves, ","),
		"level":        f(d.Level),
		"long_period":  f(d.LongPeriod),
		"short_period": f(d.ShortPeriod),
		"drift":        f(d.Drift),
		"silence":      f(d.Silence),
		"max_gain":     f(d.MaxGain),
		"min_gain":     f(d.MinGain),
		"long_grow":    f(d.LongGrow),
		"long_fall":    f(d.LongFall),
		"short_grow":   f(d.ShortGrow),
		"short_fall":   f(d.ShortFall),
		"block":        strconv.Itoa(defaultBlock),
	}
}

// parserOptions returns the kong options shared by main and the tests.
func parserOptions() []kong.Option {
	return []kong.Option{
		kong.Name("autogain"),
		kong.Description("Loudness-based automatic gain control for WAV files"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON),
		vars(),
	}
}

// parameters converts the flags into validated processor parameters.
func (c *CLI) parameters() (autogain.Parameters, error) {
	mode, err := autogain.ParseSidechainMode(c.Mode)
	if err != nil {
		return autogain.Parameters{}, err
	}

	curve, ok := weighting.ParseType(c.Weighting)
	if !ok {
		return autogain.Parameters{}, fmt.Errorf("unknown weighting: %q", c.Weighting)
	}

	p := autogain.Parameters{
		Weighting:       curve,
		LongPeriod:      c.LongPeriod,
		ShortPeriod:     c.ShortPeriod,
		Level:           c.Level,
		Drift:           c.Drift,
		Silence:         c.Silence,
		MaxGain:         c.MaxGain,
		MaxGainEnabled:  !c.NoMaxGain,
		MinGain:         c.MinGain,
		QuickAmp:        c.QuickAmp,
		LongGrow:        c.LongGrow,
		LongFall:        c.LongFall,
		ShortGrow:       c.ShortGrow,
		ShortFall:       c.ShortFall,
		SidechainMode:   mode,
		SidechainPreamp: c.Preamp,
		Lookahead:       c.Lookahead,
	}

	if err := p.Validate(); err != nil {
		return autogain.Parameters{}, err
	}

	if mode != autogain.SidechainInternal && c.Sidechain == "" {
		return autogain.Parameters{}, fmt.Errorf("%s mode needs --sidechain", mode)
	}

	return p, nil
}

// outputDepth resolves the requested output bit depth.
func outputDepth(requested, input int) (int, error) {
	switch requested {
	case 0:
		if input == bitsPerSample16 || input == bitsPerSample24 || input == bitsPerSample32 {
			return input, nil
		}

		return bitsPerSample16, nil
	case bitsPerSample16, bitsPerSample24, bitsPerSample32:
		return requested, nil
	default:
		return 0, fmt.Errorf("unsupported output bit depth: %d", requested)
	}
}

func main() {
	cli := &CLI{}
	kong.Parse(cli, parserOptions()...)

	if err := run(cli); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	params, err := cli.parameters()
	if err != nil {
		return err
	}

	in, err := readWAV(cli.Input)
	if err != nil {
		return err
	}

	if cli.Verbose {
		log.Printf("Input: %s (%d Hz, %d channels, %d-bit, %.2f s)",
			cli.Input, in.sampleRate, len(in.channels), in.bitDepth, in.seconds())
		log.Printf("Target: %.1f LUFS, weighting %s, mode %s", params.Level, params.Weighting, params.SidechainMode)
	}

	var sc [][]float64

	if cli.Sidechain != "" {
		side, err := readWAV(cli.Sidechain)
		if err != nil {
			return fmt.Errorf("sidechain: %w", err)
		}

		if side.sampleRate != in.sampleRate {
			return fmt.Errorf("sidechain sample rate %d Hz differs from input %d Hz", side.sampleRate, in.sampleRate)
		}

		sc, err = fitChannels(side.channels, len(in.channels), in.frames())
		if err != nil {
			return err
		}

		if cli.Verbose {
			log.Printf("Sidechain: %s (%d channels, %.2f s)", cli.Sidechain, len(side.channels), side.seconds())
		}
	}

	start := time.Now()

	res, err := process(in.channels, sc, float64(in.sampleRate), params, cli.Block, cli.Compensate, cli.Verbose)
	if err != nil {
		return err
	}

	bitDepth, err := outputDepth(cli.BitDepth, in.bitDepth)
	if err != nil {
		return err
	}

	if err := writeWAV(cli.Output, in.sampleRate, bitDepth, res.output); err != nil {
		return err
	}

	if cli.Verbose {
		elapsed := time.Since(start)
		log.Printf("Output: %s (%d-bit), %.1fx realtime", cli.Output, bitDepth, in.seconds()/elapsed.Seconds())
	}

	writeReport(os.Stdout, filepath.Base(cli.Input), res, in.seconds())

	return nil
}

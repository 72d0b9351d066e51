package main

import (
	"fmt"
	"log"

	"github.com/cwbudde/algo-autogain/dsp/effects/autogain"
	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
	"github.com/cwbudde/algo-autogain/measure/loudness"
)

// result collects what a run measured.
type result struct {
	output [][]float64

	// gains holds the gain in dB after every host block.
	gains []float64
	// states counts the controller state after every host block.
	states map[string]int

	inputIntegrated  float64
	outputIntegrated float64
	final            autogain.Meters
	latency          int
}

// integratedMeter returns a K-weighted meter feeding a gated integrator.
func integratedMeter(sampleRate float64, channels int) (*loudness.Meter, *loudness.Integrator) {
	m := loudness.NewMeter(
		loudness.WithSampleRate(sampleRate),
		loudness.WithChannels(channels),
		loudness.WithWeighting(weighting.TypeK),
	)
	ig := loudness.NewIntegrator(sampleRate)
	m.SetIntegrator(ig)

	return m, ig
}

// process runs in through a fresh processor block by block. When
// compensate is set the lookahead delay is removed from the output so it
// lines up with the input.
func process(in, sc [][]float64, sampleRate float64, params autogain.Parameters, block int, compensate bool, verbose bool) (*result, error) {
	channels := len(in)
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("only mono and stereo input is supported, got %d channels", channels)
	}

	if block <= 0 {
		return nil, fmt.Errorf("block size must be positive: %d", block)
	}

	proc, err := autogain.New(
		autogain.WithSampleRate(sampleRate),
		autogain.WithChannels(channels),
		autogain.WithSidechain(sc != nil),
		autogain.WithGraphs(false),
		autogain.WithParameters(params),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	frames := len(in[0])
	latency := proc.Latency()

	tail := 0
	if compensate {
		tail = latency
	}

	total := frames + tail
	in = padTo(in, total)

	if sc != nil {
		sc = padTo(sc, total)
	}

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, total)
	}

	inMeter, inInt := integratedMeter(sampleRate, channels)
	outMeter, outInt := integratedMeter(sampleRate, channels)

	res := &result{
		gains:   make([]float64, 0, total/block+1),
		states:  make(map[string]int),
		latency: latency,
	}

	inBlock := make([][]float64, channels)
	outBlock := make([][]float64, channels)

	var scBlock [][]float64
	if sc != nil {
		scBlock = make([][]float64, channels)
	}

	progress := 0

	for off := 0; off < total; off += block {
		end := min(off+block, total)

		for ch := range channels {
			inBlock[ch] = in[ch][off:end]
			outBlock[ch] = out[ch][off:end]

			if sc != nil {
				scBlock[ch] = sc[ch][off:end]
			}
		}

		if err := proc.Process(outBlock, inBlock, scBlock); err != nil {
			return nil, fmt.Errorf("processing failed at sample %d: %w", off, err)
		}

		m := proc.Meters()
		res.gains = append(res.gains, m.Gain)
		res.states[m.State.String()]++

		if verbose {
			if pct := end * 100 / total; pct >= progress+10 {
				log.Printf("Progress: %d%% (gain %+.1f dB, %s)", pct, m.Gain, m.State)
				progress = pct
			}
		}
	}

	for ch := range channels {
		out[ch] = out[ch][tail:]
		in[ch] = in[ch][:frames]
	}

	inMeter.Process(nil, in)
	outMeter.Process(nil, out)

	res.output = out
	res.inputIntegrated = inInt.Loudness()
	res.outputIntegrated = outInt.Loudness()
	res.final = proc.Meters()

	return res, nil
}

// padTo extends every channel with silence to n samples.
func padTo(channels [][]float64, n int) [][]float64 {
	out := make([][]float64, len(channels))

	for ch, data := range channels {
		if len(data) >= n {
			out[ch] = data[:n]
			continue
		}

		out[ch] = make([]float64, n)
		copy(out[ch], data)
	}

	return out
}

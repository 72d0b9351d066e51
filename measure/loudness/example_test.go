package loudness_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-autogain/measure/loudness"
)

func ExampleMeter() {
	const fs = 48000.0

	short := loudness.NewMeter(loudness.WithSampleRate(fs), loudness.WithPeriod(20))
	long := loudness.NewMeter(loudness.WithSampleRate(fs), loudness.WithPeriod(400))

	// 1 kHz sine at -6.02 dBFS.
	sig := make([]float64, int(fs*2))
	for i := range sig {
		sig[i] = 0.5 * math.Sin(2*math.Pi*1000.0/fs*float64(i))
	}

	in := [][]float64{sig}
	fmt.Printf("short: %.1f LUFS\n", short.Process(nil, in))
	fmt.Printf("long: %.1f LUFS\n", long.Process(nil, in))

	// Output:
	// short: -9.0 LUFS
	// long: -9.0 LUFS
}

func ExampleIntegrator() {
	const fs = 48000.0

	m := loudness.NewMeter(loudness.WithSampleRate(fs), loudness.WithChannels(2))
	ig := loudness.NewIntegrator(fs)
	m.SetIntegrator(ig)

	left := make([]float64, int(fs*3))
	right := make([]float64, len(left))

	for i := range left {
		left[i] = 0.25 * math.Sin(2*math.Pi*1000.0/fs*float64(i))
	}

	m.Process(nil, [][]float64{left, right})
	fmt.Printf("integrated: %.1f LUFS over %d blocks\n", ig.Loudness(), ig.Blocks())

	// Output:
	// integrated: -15.0 LUFS over 27 blocks
}

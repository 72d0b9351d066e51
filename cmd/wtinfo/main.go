// Command wtinfo prints the magnitude response of the loudness weighting
// curves.
//
// Usage:
//
//	wtinfo [flags] [weighting ...]
//
// Without arguments it prints every curve. Each row shows the response of
// the biquad chain evaluated on the unit circle next to the response
// measured from an FFT of its impulse response.
//
// Examples:
//
//	wtinfo k
//	wtinfo -rate 44100 a c
//	wtinfo -freqs 50,1000,10000 -fft 16384 a
//	wtinfo -list
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
	"github.com/cwbudde/algo-autogain/measure/response"
)

// octaveFreqs are the nominal octave band centres from 31.5 Hz to 16 kHz.
var octaveFreqs = []float64{31.5, 63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

func main() {
	rate := flag.Float64("rate", 48000, "sample rate in Hz")
	fftSize := flag.Int("fft", 65536, "FFT length for the measured response")
	freqList := flag.String("freqs", "", "comma separated frequencies in Hz (default: octave bands)")
	list := flag.Bool("list", false, "list available weighting names")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wtinfo [flags] [weighting ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the magnitude response of loudness weighting curves.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  wtinfo k\n")
		fmt.Fprintf(os.Stderr, "  wtinfo -rate 44100 a c\n")
		fmt.Fprintf(os.Stderr, "  wtinfo -freqs 50,1000,10000 a\n")
	}
	flag.Parse()

	if *list {
		for _, t := range weighting.Types {
			fmt.Println(strings.ToLower(t.String()))
		}

		return
	}

	types := resolveTypes(flag.Args(), os.Stderr)
	if len(types) == 0 {
		fmt.Fprintf(os.Stderr, "error: no matching weighting curves\n")
		os.Exit(1)
	}

	freqs := octaveFreqs
	if *freqList != "" {
		var err error
		if freqs, err = parseFreqs(*freqList, *rate); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := printResponses(os.Stdout, types, *rate, *fftSize, freqs); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// resolveTypes maps case-insensitive names to curves. No names selects all.
// Unknown names are reported to warn and skipped.
func resolveTypes(names []string, warn io.Writer) []weighting.Type {
	if len(names) == 0 {
		return weighting.Types
	}

	var result []weighting.Type

	for _, name := range names {
		name = strings.TrimSpace(name)

		found := false
		for _, t := range weighting.Types {
			if strings.EqualFold(t.String(), name) {
				result = append(result, t)
				found = true

				break
			}
		}

		if !found {
			fmt.Fprintf(warn, "warning: unknown weighting %q (use -list to see available)\n", name)
		}
	}

	return result
}

// parseFreqs parses a comma separated list of frequencies below Nyquist.
func parseFreqs(s string, sampleRate float64) ([]float64, error) {
	var freqs []float64

	for field := range strings.SplitSeq(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid frequency %q: %w", field, err)
		}

		if f <= 0 || f >= sampleRate/2 {
			return nil, fmt.Errorf("frequency %g Hz outside (0, %g)", f, sampleRate/2)
		}

		freqs = append(freqs, f)
	}

	return freqs, nil
}

func printResponses(w io.Writer, types []weighting.Type, sampleRate float64, fftSize int, freqs []float64) error {
	if !(sampleRate > 0) {
		return fmt.Errorf("sample rate must be > 0: %g", sampleRate)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "Weighting\tFreq [Hz]\tChain [dB]\tFFT [dB]\tDelta [dB]\n"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}

	if _, err := fmt.Fprintf(tw, "---------\t---------\t----------\t--------\t----------\n"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}

	for _, t := range types {
		chain := weighting.New(t, sampleRate)

		resp, err := response.Measure(chain, sampleRate, fftSize)
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}

		for _, f := range freqs {
			analytic := chain.MagnitudeDB(f, sampleRate)
			measured := resp.MagnitudeDB(f)

			if _, err := fmt.Fprintf(tw, "%s\t%g\t%+.2f\t%+.2f\t%.3f\n",
				t, f, analytic, measured, measured-analytic); err != nil {
				return fmt.Errorf("failed to write output row: %w", err)
			}
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	return nil
}

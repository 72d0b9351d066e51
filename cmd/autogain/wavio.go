package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/simd/f64"
)

const (
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	pcmFormat = 1
)

var errEmptyTrack = errors.New("track has no samples")

// track is a decoded WAV file as normalized per-channel samples.
type track struct {
	sampleRate int
	bitDepth   int
	channels   [][]float64
}

// frames returns the number of samples per channel.
func (t *track) frames() int {
	if len(t.channels) == 0 {
		return 0
	}

	return len(t.channels[0])
}

// seconds returns the track duration.
func (t *track) seconds() float64 {
	if t.sampleRate <= 0 {
		return 0
	}

	return float64(t.frames()) / float64(t.sampleRate)
}

// maxValue returns the full-scale integer value for the given bit depth.
func maxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// readWAV decodes a whole PCM WAV file.
func readWAV(path string) (*track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	if dec.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("unsupported WAV format %d in %s: only integer PCM is read", dec.WavAudioFormat, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	numChannels := buf.Format.NumChannels
	if numChannels <= 0 {
		return nil, fmt.Errorf("invalid channel count in %s: %d", path, numChannels)
	}

	bitDepth := int(dec.BitDepth)
	t := &track{
		sampleRate: buf.Format.SampleRate,
		bitDepth:   bitDepth,
		channels:   deinterleave(buf.Data, numChannels, 1/maxValue(bitDepth)),
	}

	if t.frames() == 0 {
		return nil, fmt.Errorf("%s: %w", path, errEmptyTrack)
	}

	return t, nil
}

// deinterleave splits interleaved integer samples into scaled channels.
// A trailing partial frame is dropped.
func deinterleave(data []int, numChannels int, scale float64) [][]float64 {
	frames := len(data) / numChannels
	out := make([][]float64, numChannels)

	for ch := range numChannels {
		out[ch] = make([]float64, frames)
	}

	for i := range frames {
		base := i * numChannels
		for ch := range numChannels {
			out[ch][i] = float64(data[base+ch])
		}
	}

	for ch := range numChannels {
		f64.Scale(out[ch], out[ch], scale)
	}

	return out
}

// interleave clamps channels to [-1, 1] and converts them to interleaved
// integers at the given bit depth, rounding to the nearest step.
func interleave(channels [][]float64, bitDepth int) []int {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil
	}

	numChannels := len(channels)
	frames := len(channels[0])

	flat := make([]float64, frames*numChannels)
	switch numChannels {
	case 1:
		copy(flat, channels[0])
	case 2:
		f64.Interleave2(flat, channels[0], channels[1])
	default:
		for i := range frames {
			for ch := range numChannels {
				flat[i*numChannels+ch] = channels[ch][i]
			}
		}
	}

	f64.Scale(flat, flat, maxValue(bitDepth))

	limit := maxValue(bitDepth)
	out := make([]int, len(flat))

	for i, v := range flat {
		out[i] = int(math.Round(min(max(v, -limit), limit)))
	}

	return out
}

// writeWAV encodes channels as PCM at the given bit depth.
func writeWAV(path string, sampleRate, bitDepth int, channels [][]float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, len(channels), pcmFormat)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: len(channels),
			SampleRate:  sampleRate,
		},
		Data:           interleave(channels, bitDepth),
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}

	return nil
}

// fitChannels maps a sidechain track onto the main channel layout and
// length. Mono is duplicated, stereo is averaged to mono, missing samples
// are silence.
func fitChannels(src [][]float64, channels, frames int) ([][]float64, error) {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}

	switch {
	case len(src) == channels:
		for ch := range channels {
			copy(out[ch], src[ch])
		}
	case len(src) == 1:
		for ch := range channels {
			copy(out[ch], src[0])
		}
	case len(src) == 2 && channels == 1:
		n := min(frames, len(src[0]), len(src[1]))
		for i := range n {
			out[0][i] = 0.5 * (src[0][i] + src[1][i])
		}
	default:
		return nil, fmt.Errorf("cannot map %d sidechain channels onto %d", len(src), channels)
	}

	return out, nil
}

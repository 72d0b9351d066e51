package autogain

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-autogain/dsp/effects/dynamics"
)

// Meters is a snapshot of the values published after each processed block.
// Loudness values are the block maxima in LUFS; Gain is the correction in dB
// at the end of the block.
type Meters struct {
	InShort        float64
	InLong         float64
	SidechainShort float64
	SidechainLong  float64
	OutShort       float64
	OutLong        float64
	Gain           float64
	State          dynamics.AutoGainState
}

type meterID int

const (
	meterInShort meterID = iota
	meterInLong
	meterSidechainShort
	meterSidechainLong
	meterOutShort
	meterOutLong
	meterGain
	numMeters
)

// loudnessGraphs maps each loudness meter to the graph of its trace.
var loudnessGraphs = [...]GraphKind{
	meterInShort:        GraphInShort,
	meterInLong:         GraphInLong,
	meterSidechainShort: GraphSidechainShort,
	meterSidechainLong:  GraphSidechainLong,
	meterOutShort:       GraphOutShort,
	meterOutLong:        GraphOutLong,
}

// meterValue is a float64 readable from any goroutine.
type meterValue struct {
	bits atomic.Uint64
}

func (v *meterValue) store(x float64) { v.bits.Store(math.Float64bits(x)) }

func (v *meterValue) load() float64 { return math.Float64frombits(v.bits.Load()) }

// GraphKind identifies one of the history graphs.
type GraphKind int

const (
	GraphInShort GraphKind = iota
	GraphInLong
	GraphSidechainShort
	GraphSidechainLong
	GraphOutShort
	GraphOutLong
	GraphGain
	numGraphs
)

// GraphKinds lists all graphs.
var GraphKinds = []GraphKind{
	GraphInShort, GraphInLong,
	GraphSidechainShort, GraphSidechainLong,
	GraphOutShort, GraphOutLong,
	GraphGain,
}

func (k GraphKind) String() string {
	switch k {
	case GraphInShort:
		return "input short"
	case GraphInLong:
		return "input long"
	case GraphSidechainShort:
		return "sidechain short"
	case GraphSidechainLong:
		return "sidechain long"
	case GraphOutShort:
		return "output short"
	case GraphOutLong:
		return "output long"
	case GraphGain:
		return "gain"
	default:
		return "unknown"
	}
}

func blockMax(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		m = max(m, v)
	}

	return m
}

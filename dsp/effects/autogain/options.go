package autogain

import "github.com/cwbudde/algo-autogain/dsp/core"

// Config holds construction-time settings of a Processor.
type Config struct {
	core.ProcessorConfig

	// Sidechain enables the external sidechain input.
	Sidechain bool
	// Graphs enables the loudness and gain history graphs.
	Graphs bool
	// BypassTime is the bypass crossfade duration in milliseconds.
	BypassTime float64

	Parameters Parameters
}

// Option mutates a Config.
type Option func(*Config)

const defaultBypassTime = 5.0

// DefaultConfig returns a mono processor at 48 kHz without sidechain.
func DefaultConfig() Config {
	return Config{
		ProcessorConfig: core.DefaultProcessorConfig(),
		Graphs:          true,
		BypassTime:      defaultBypassTime,
		Parameters:      DefaultParameters(),
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		core.WithSampleRate(sampleRate)(&cfg.ProcessorConfig)
	}
}

// WithBlockSize sets the largest chunk processed at once. Longer host blocks
// are split.
func WithBlockSize(blockSize int) Option {
	return func(cfg *Config) {
		core.WithBlockSize(blockSize)(&cfg.ProcessorConfig)
	}
}

// WithChannels selects mono (1) or stereo (2) processing.
func WithChannels(channels int) Option {
	return func(cfg *Config) {
		if channels == 1 || channels == 2 {
			cfg.Channels = channels
		}
	}
}

// WithSidechain enables an external sidechain input with as many channels
// as the main input.
func WithSidechain(enabled bool) Option {
	return func(cfg *Config) {
		cfg.Sidechain = enabled
	}
}

// WithGraphs enables or disables the history graphs.
func WithGraphs(enabled bool) Option {
	return func(cfg *Config) {
		cfg.Graphs = enabled
	}
}

// WithBypassTime sets the bypass crossfade length in milliseconds. Zero
// switches instantly.
func WithBypassTime(ms float64) Option {
	return func(cfg *Config) {
		if ms >= 0 {
			cfg.BypassTime = ms
		}
	}
}

// WithParameters sets the initial parameters. They are validated by New.
func WithParameters(p Parameters) Option {
	return func(cfg *Config) {
		cfg.Parameters = p
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

package loudness

import (
	"github.com/cwbudde/algo-autogain/dsp/core"
	"github.com/cwbudde/algo-autogain/dsp/filter/weighting"
)

const (
	// DefaultPeriodMs is the BS.1770 momentary window length.
	DefaultPeriodMs = 400.0
	// MaxPeriodMs bounds the history a meter allocates unless overridden.
	MaxPeriodMs = 2000.0
)

// MeterConfig defines configuration for the loudness meter.
type MeterConfig struct {
	core.ProcessorConfig
	Weighting   weighting.Type
	PeriodMs    float64
	MaxPeriodMs float64
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns a mono K-weighted meter with a 400 ms window.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		ProcessorConfig: core.DefaultProcessorConfig(),
		Weighting:       weighting.TypeK,
		PeriodMs:        DefaultPeriodMs,
		MaxPeriodMs:     MaxPeriodMs,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(cfg *MeterConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithChannels sets the number of channels (1 for mono, 2 for stereo).
func WithChannels(channels int) MeterOption {
	return func(cfg *MeterConfig) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// WithWeighting selects the frequency weighting applied before measurement.
func WithWeighting(t weighting.Type) MeterOption {
	return func(cfg *MeterConfig) {
		if t.Valid() {
			cfg.Weighting = t
		}
	}
}

// WithPeriod sets the integration period in milliseconds.
func WithPeriod(ms float64) MeterOption {
	return func(cfg *MeterConfig) {
		if ms > 0 {
			cfg.PeriodMs = ms
		}
	}
}

// WithMaxPeriod sets the longest period the meter can later be switched to.
func WithMaxPeriod(ms float64) MeterOption {
	return func(cfg *MeterConfig) {
		if ms > 0 {
			cfg.MaxPeriodMs = ms
		}
	}
}

// ApplyMeterOptions applies zero or more options to the default config.
func ApplyMeterOptions(opts ...MeterOption) MeterConfig {
	cfg := DefaultMeterConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cfg.MaxPeriodMs = max(cfg.MaxPeriodMs, cfg.PeriodMs)

	return cfg
}

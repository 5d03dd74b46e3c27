// Package config provides the configuration schema and loader for the
// phondecode CLI: the transition-assembly parameters (insertion penalty,
// scale factor, renormalisation epsilon), sentinel phone names, and the
// optional YAML profile that can supply defaults for any of them.
package config

// Config is the root configuration structure for the decoder, typically
// loaded from a YAML profile via [Load] or [LoadFromReader] and then
// overridden by CLI flags.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Log     LogConfig     `yaml:"log"`
}

// DecoderConfig holds the transition-assembly and search parameters the
// original tool exposed as CLI flags.
type DecoderConfig struct {
	// InsertionPenalty (p) is subtracted from every inter-phone
	// log-transition. Default 2.5.
	InsertionPenalty float64 `yaml:"insertion_penalty"`

	// ScaleFactor (s) multiplies every log-transition before the penalty
	// is applied. Default 1.0.
	ScaleFactor float64 `yaml:"scale_factor"`

	// Epsilon bounds the allowed drift of a distributed row's sum from 1
	// before the assembler fails with a fatal error. Default 1e-6.
	Epsilon float64 `yaml:"epsilon"`

	// EpsilonLog is added to every probability before taking its log.
	// Default 1e-30.
	EpsilonLog float64 `yaml:"epsilon_log"`

	// ThresholdBigrams is the minimum log10 ARPA bigram probability
	// treated as reliable when Renormalize is set.
	ThresholdBigrams float64 `yaml:"threshold_bigrams"`

	// UnigramsOnly forces the discounted uni/bigram source to ignore
	// bigram entries.
	UnigramsOnly bool `yaml:"unigrams_only"`

	// RenormalizeARPA toggles the ARPA source's back-off renormalisation
	// pass (see pkg/lm.ARPA.Renormalize).
	RenormalizeARPA bool `yaml:"renormalize_arpa"`

	// StartPhones and EndPhones generalise the hardcoded "!ENTER"/"!EXIT"
	// (or "h#") sentinels used by bigram-mode decoding and absorbing
	// end-state handling.
	StartPhones []string `yaml:"start_phones"`
	EndPhones   []string `yaml:"end_phones"`

	// UseBigram anchors Viterbi decoding to a resolved start/end sentinel
	// pair instead of scanning every state in the first/last frame.
	UseBigram bool `yaml:"use_bigram"`

	// Workers bounds the number of utterances decoded concurrently.
	// Zero means use all available hardware parallelism.
	Workers int `yaml:"workers"`

	// Verbose selects the MLF writer's verbose (per-state posterior)
	// output form instead of the compact phones-only form.
	Verbose bool `yaml:"verbose"`
}

// LogLevel is a validated logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the recognised log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// LogConfig controls the decoder's structured logging output.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
}

// DefaultDecoderConfig returns the spec's documented defaults.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		InsertionPenalty: 2.5,
		ScaleFactor:      1.0,
		Epsilon:          1e-6,
		EpsilonLog:       1e-30,
		StartPhones:      []string{"!ENTER"},
		EndPhones:        []string{"!EXIT"},
	}
}

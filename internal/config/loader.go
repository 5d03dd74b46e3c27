package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration profile at path and returns a
// validated [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults for
// unset fields, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{Decoder: DefaultDecoderConfig()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns
// a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Decoder.ScaleFactor <= 0 {
		errs = append(errs, fmt.Errorf("decoder.scale_factor %g must be positive", cfg.Decoder.ScaleFactor))
	}
	if cfg.Decoder.InsertionPenalty < 0 {
		errs = append(errs, fmt.Errorf("decoder.insertion_penalty %g must not be negative", cfg.Decoder.InsertionPenalty))
	}
	if cfg.Decoder.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("decoder.epsilon %g must not be negative", cfg.Decoder.Epsilon))
	}
	if cfg.Decoder.EpsilonLog <= 0 {
		errs = append(errs, fmt.Errorf("decoder.epsilon_log %g must be positive", cfg.Decoder.EpsilonLog))
	}
	if cfg.Decoder.Workers < 0 {
		errs = append(errs, fmt.Errorf("decoder.workers %d must not be negative", cfg.Decoder.Workers))
	}
	if len(cfg.Decoder.StartPhones) == 0 {
		errs = append(errs, errors.New("decoder.start_phones must name at least one sentinel phone"))
	}
	if len(cfg.Decoder.EndPhones) == 0 {
		errs = append(errs, errors.New("decoder.end_phones must name at least one sentinel phone"))
	}

	return errors.Join(errs...)
}

// SPDX-License-Identifier: MIT
package pipeline

import (
	"errors"
	"fmt"

	"audioled/internal/loudness"
	"audioled/internal/strip"
	"audioled/internal/visual"
)

// Config holds everything a pipeline needs to turn chunks into frames.
type Config struct {
	Pixels     int     // Must equal the sink length.
	SampleRate float64 // Hz, informational once validated.
	ChunkSize  int     // Expected samples per chunk; sizes the buffers.

	Scale loudness.Scale
	Gain  float64 // RMS multiplier, 1 for none.

	Policy      visual.Policy
	Floor       float64 // Loudness floor, also the silence value.
	Ceiling     float64 // Brightness policy full scale.
	Sensitivity float64 // Amplitude policies full scale.
	Hue         strip.Color
}

// DefaultConfig returns a config for a 300 pixel strip at 44.1 kHz driven by
// the brightness policy.
func DefaultConfig() Config {
	return Config{
		Pixels:      300,
		SampleRate:  44100,
		ChunkSize:   512,
		Scale:       loudness.Decibel,
		Gain:        1,
		Policy:      visual.PolicyBrightness,
		Floor:       40,
		Ceiling:     90,
		Sensitivity: 0.3,
		Hue:         visual.Green,
	}
}

func (c Config) validate(sink strip.Sink) error {
	var errs []error
	if sink == nil {
		errs = append(errs, errors.New("sink is nil"))
	}
	if c.Pixels <= 0 {
		errs = append(errs, fmt.Errorf("pixel count %d must be positive", c.Pixels))
	} else if sink != nil && sink.Len() != c.Pixels {
		errs = append(errs, fmt.Errorf("pixel count %d does not match the strip length %d", c.Pixels, sink.Len()))
	}
	if !(c.SampleRate > 0) {
		errs = append(errs, fmt.Errorf("sample rate %v must be positive", c.SampleRate))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size %d must be positive", c.ChunkSize))
	}

	for i, err := range errs {
		errs[i] = fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return errors.Join(errs...)
}

// build creates the render-side components. Their constructors own the range
// checks on floor, ceiling, sensitivity and gain.
func (c Config) build() (*loudness.Extractor, visual.Mapper, error) {
	ex, err := loudness.New(c.Scale, c.Floor, c.Gain, c.ChunkSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	m, err := visual.New(c.Policy, visual.Params{
		Floor:       c.Floor,
		Ceiling:     c.Ceiling,
		Hue:         c.Hue,
		Sensitivity: c.Sensitivity,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return ex, m, nil
}

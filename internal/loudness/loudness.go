// SPDX-License-Identifier: MIT
/*
Package loudness reduces a mono chunk of float32 samples to one scalar
loudness value: the root-mean-square amplitude, optionally expressed in
decibels relative to 20 µPa.

The RMS is rounded to float32, the precision of the samples, before gain is
applied. A constant chunk of amplitude a therefore reports exactly |a| times
the gain on the linear scale.

The value is always finite. Silence, empty chunks and chunks whose RMS is not
a finite number report the configured floor, so log10(0) never reaches the
visual mapping.

An Extractor keeps a float64 scratch buffer and must only be used from one
goroutine at a time; the render loop owns it.
*/
package loudness

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ReferencePressure is the 0 dB reference (20 µPa, threshold of hearing).
const ReferencePressure = 20e-6

// Scale selects the unit of the reported loudness.
type Scale int

const (
	// Linear reports the RMS amplitude itself.
	Linear Scale = iota
	// Decibel reports 20*log10(rms/ReferencePressure), never below the floor.
	Decibel
)

// String returns the configuration name of the scale.
func (s Scale) String() string {
	switch s {
	case Linear:
		return "linear"
	case Decibel:
		return "db"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// ParseScale converts a configuration name ("db", "decibel", "linear") to a Scale.
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "db", "decibel", "decibels":
		return Decibel, nil
	case "linear", "rms", "amplitude":
		return Linear, nil
	default:
		return Linear, fmt.Errorf("unknown loudness scale %q", name)
	}
}

// Extractor converts audio chunks into loudness values.
type Extractor struct {
	scale     Scale
	floor     float64
	gain      float64
	workspace []float64 // float64 copy of the chunk, reused across calls.
}

// New returns an Extractor. chunkSize pre-sizes the scratch buffer so that
// chunks of the configured size never allocate; gain multiplies the RMS
// before it is reported or converted and must be positive.
func New(scale Scale, floor, gain float64, chunkSize int) (*Extractor, error) {
	if math.IsNaN(floor) || math.IsInf(floor, 0) {
		return nil, fmt.Errorf("loudness floor must be finite, got %v", floor)
	}
	if !(gain > 0) || math.IsInf(gain, 0) {
		return nil, fmt.Errorf("loudness gain must be positive and finite, got %v", gain)
	}
	if chunkSize < 0 {
		chunkSize = 0
	}
	return &Extractor{
		scale:     scale,
		floor:     floor,
		gain:      gain,
		workspace: make([]float64, chunkSize),
	}, nil
}

// Scale returns the unit of the values produced by Extract.
func (e *Extractor) Scale() Scale { return e.scale }

// Floor returns the value reported for silence.
func (e *Extractor) Floor() float64 { return e.floor }

// Extract returns the loudness of chunk.
func (e *Extractor) Extract(chunk []float32) float64 {
	n := len(chunk)
	if n == 0 {
		return e.floor
	}
	if cap(e.workspace) < n {
		e.workspace = make([]float64, n)
	}
	w := e.workspace[:n]
	for i, s := range chunk {
		w[i] = float64(s)
	}

	rms := sampleRMS(floats.Dot(w, w), n) * e.gain
	if rms == 0 || math.IsNaN(rms) || math.IsInf(rms, 0) {
		return e.floor
	}

	if e.scale == Decibel {
		return Decibels(rms, e.floor)
	}
	return rms
}

// RMS returns the root-mean-square of chunk at float32 precision, 0 for an
// empty chunk.
func RMS(chunk []float32) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, s := range chunk {
		v := float64(s)
		sum += v * v
	}
	return sampleRMS(sum, len(chunk))
}

// sampleRMS turns a sum of squares over n samples into an RMS at sample
// precision.
func sampleRMS(sumSquares float64, n int) float64 {
	return float64(float32(math.Sqrt(sumSquares / float64(n))))
}

// Decibels converts an RMS amplitude to decibels re ReferencePressure,
// clamped from below at floor. A non-positive rms returns floor.
func Decibels(rms, floor float64) float64 {
	if !(rms > 0) {
		return floor
	}
	db := 20 * math.Log10(rms/ReferencePressure)
	if math.IsNaN(db) || db < floor {
		return floor
	}
	return db
}

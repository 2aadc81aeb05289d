// SPDX-License-Identifier: MIT
//
// Package utils generates deterministic mono float32 audio chunks for tests
// and benchmarks of the loudness and render paths.
package utils

import (
	"math"
	"math/rand"
)

// SilentChunk returns size zero samples.
func SilentChunk(size int) []float32 {
	return make([]float32, size)
}

// ConstantChunk returns size samples all equal to amplitude.
func ConstantChunk(size int, amplitude float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = amplitude
	}
	return buffer
}

// SineChunk returns a sine wave of the given frequency and peak amplitude.
func SineChunk(size int, sampleRate, frequency float64, amplitude float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * float32(math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// ComplexChunk returns a 440 Hz fundamental plus two harmonics scaled so the
// peak stays below amplitude.
func ComplexChunk(size int, sampleRate float64, amplitude float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = amplitude * float32(signal)
	}
	return buffer
}

// NoiseChunk returns uniform noise in [-amplitude, amplitude] from a seeded
// source, so the same seed always yields the same chunk.
func NoiseChunk(size int, amplitude float32, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = amplitude * (2*rng.Float32() - 1)
	}
	return buffer
}

// PeakAmplitude returns the largest absolute sample value.
func PeakAmplitude(buffer []float32) float32 {
	var peak float32
	for _, s := range buffer {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

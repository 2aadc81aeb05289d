// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	applog "audioled/internal/log"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	recordBitDepth = 32
	wavFormatPCM   = 1
)

// Recorder forwards every chunk to the next Consumer and appends the clean
// ones to a mono 32-bit WAV file.
type Recorder struct {
	next        Consumer
	isRecording atomic.Bool

	mu         sync.Mutex
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *goaudio.IntBuffer // Reusable buffer for format conversion
	frames     int
}

// Compile-time check for interface implementation.
var _ Consumer = (*Recorder)(nil)

// StartRecording creates filename and returns a Recorder in front of next.
func StartRecording(filename string, sampleRate, framesPerBuffer int, next Consumer) (*Recorder, error) {
	if next == nil {
		return nil, errors.New("recorder: consumer cannot be nil")
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		next:       next,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, sampleRate, recordBitDepth, 1, wavFormatPCM),
		sampleBuf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, framesPerBuffer),
			SourceBitDepth: recordBitDepth,
		},
	}
	r.isRecording.Store(true)
	applog.Infof("Recorder: Writing audio to %s", filename)
	return r, nil
}

// Deliver passes the chunk on first, then records it.
func (r *Recorder) Deliver(samples []float32, frameCount int, status error) {
	r.next.Deliver(samples, frameCount, status)

	if status != nil || !r.isRecording.Load() {
		return
	}
	frameCount = min(max(frameCount, 0), len(samples))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return
	}

	if cap(r.sampleBuf.Data) < frameCount {
		r.sampleBuf.Data = make([]int, frameCount)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:frameCount]
	for i, s := range samples[:frameCount] {
		r.sampleBuf.Data[i] = floatToInt32(s)
	}
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		applog.Errorf("Recorder: Error writing to WAV file: %v", err)
		return
	}
	r.frames += frameCount
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// StopRecording finalizes the WAV header and closes the file. Chunks keep
// flowing to the next Consumer afterwards.
func (r *Recorder) StopRecording() error {
	if !r.isRecording.Swap(false) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			errs = append(errs, err)
		}
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			errs = append(errs, err)
		}
		r.outputFile = nil
	}
	applog.Infof("Recorder: Stopped after %d frames", r.frames)
	return errors.Join(errs...)
}

func floatToInt32(s float32) int {
	v := math.Round(float64(s) * math.MaxInt32)
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	case math.IsNaN(v):
		return 0
	}
	return int(v)
}
